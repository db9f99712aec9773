package cache

import (
	"net/url"
	"strings"

	"bookcourier/internal/models"
)

// Key identifies one cache entry: a resource type followed by its parameters.
type Key struct {
	parts []string
}

// NewKey builds a key from a resource type and its parameters.
func NewKey(resource string, params ...string) Key {
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, resource)
	parts = append(parts, params...)
	return Key{parts: parts}
}

// Resource returns the resource type.
func (k Key) Resource() string {
	if len(k.parts) == 0 {
		return ""
	}
	return k.parts[0]
}

// Parts returns a copy of the key's components.
func (k Key) Parts() []string {
	return append([]string(nil), k.parts...)
}

// String is the normalized form used as the map key. Components are escaped so
// ("a/b") and ("a","b") never collide.
func (k Key) String() string {
	escaped := make([]string, len(k.parts))
	for i, p := range k.parts {
		escaped[i] = url.PathEscape(p)
	}
	return strings.Join(escaped, "/")
}

// HasPrefix reports whether p's components are a leading run of k's.
func (k Key) HasPrefix(p Key) bool {
	if len(p.parts) > len(k.parts) {
		return false
	}
	for i := range p.parts {
		if k.parts[i] != p.parts[i] {
			return false
		}
	}
	return true
}

// Matcher selects entries for invalidation or removal.
type Matcher struct {
	key    Key
	prefix bool
}

// Exact matches a single key.
func Exact(k Key) Matcher {
	return Matcher{key: k}
}

// Prefix matches every key that starts with the given components.
func Prefix(resource string, params ...string) Matcher {
	return Matcher{key: NewKey(resource, params...), prefix: true}
}

// Match reports whether k is selected.
func (m Matcher) Match(k Key) bool {
	if m.prefix {
		return k.HasPrefix(m.key)
	}
	return len(k.parts) == len(m.key.parts) && k.HasPrefix(m.key)
}

func (m Matcher) String() string {
	if m.prefix {
		return m.key.String() + "/*"
	}
	return m.key.String()
}

// Wire converts the matcher to its event form.
func (m Matcher) Wire() models.KeyMatcher {
	return models.KeyMatcher{Parts: m.key.Parts(), Prefix: m.prefix}
}

// FromWire rebuilds a matcher received in an event.
func FromWire(w models.KeyMatcher) Matcher {
	return Matcher{key: Key{parts: append([]string(nil), w.Parts...)}, prefix: w.Prefix}
}
