package models

import (
	"encoding/json"
	"strings"
)

// Role is the authorization role of an identity. The zero value is RoleUnknown.
type Role int

const (
	RoleUnknown Role = iota
	RoleCustomer
	RoleLibrarian
	RoleAdmin
)

// ParseRole maps the backend's role string; anything unrecognised is RoleUnknown.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "customer":
		return RoleCustomer
	case "librarian":
		return RoleLibrarian
	case "admin":
		return RoleAdmin
	default:
		return RoleUnknown
	}
}

func (r Role) String() string {
	switch r {
	case RoleCustomer:
		return "customer"
	case RoleLibrarian:
		return "librarian"
	case RoleAdmin:
		return "admin"
	case RoleUnknown:
		return "unknown"
	}
	return "unknown"
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*r = RoleUnknown
		return nil
	}
	*r = ParseRole(s)
	return nil
}
