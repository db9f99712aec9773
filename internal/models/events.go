package models

import "time"

// Event types
const (
	EventTypeCacheInvalidated = "CACHE_INVALIDATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// KeyMatcher is the wire form of a cache matcher: an exact key or a key prefix.
type KeyMatcher struct {
	Parts  []string `json:"parts"`
	Prefix bool     `json:"prefix"`
}

// CacheInvalidatedEvent is published after a successful mutation so other
// replicas can drop the same entries.
type CacheInvalidatedEvent struct {
	BaseEvent
	Origin   string       `json:"origin"`
	Mutation string       `json:"mutation"`
	Matchers []KeyMatcher `json:"matchers"`
}
