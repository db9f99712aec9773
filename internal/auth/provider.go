// Package auth talks to the identity provider that issues ID tokens.
package auth

import (
	"context"
	"time"

	"bookcourier/internal/models"
)

// Session is what a successful sign-in yields.
type Session struct {
	Identity     models.Identity
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}

// Profile holds the optional fields of a profile update; nil leaves a field unchanged.
type Profile struct {
	DisplayName *string
	PhotoURL    *string
}

// Provider is the authentication collaborator. Errors are *apperr.Error of type
// AUTH_ERROR whose message is fit to show to the user as is.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignInWithGoogle(ctx context.Context, googleIDToken string) (Session, error)
	CreateUser(ctx context.Context, email, password string) (Session, error)
	UpdateProfile(ctx context.Context, idToken string, profile Profile) (models.Identity, error)
	Refresh(ctx context.Context, refreshToken string) (Session, error)
	SignOut(ctx context.Context, idToken string) error
}
