package models

import "time"

// SessionRecord is a persisted BFF session.
type SessionRecord struct {
	ID           string    `db:"id" json:"id"`
	UID          string    `db:"uid" json:"uid"`
	Email        string    `db:"email" json:"email"`
	DisplayName  string    `db:"display_name" json:"displayName"`
	PhotoURL     string    `db:"photo_url" json:"photoURL"`
	IDToken      string    `db:"id_token" json:"-"`
	RefreshToken string    `db:"refresh_token" json:"-"`
	TokenExpiry  time.Time `db:"token_expiry" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	ExpiresAt    time.Time `db:"expires_at" json:"expiresAt"`
}

// Identity returns the signed-in user carried by the record.
func (s *SessionRecord) Identity() Identity {
	return Identity{ID: s.UID, Email: s.Email, DisplayName: s.DisplayName, PhotoURL: s.PhotoURL}
}

// Expired reports whether the session has outlived its TTL.
func (s *SessionRecord) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
