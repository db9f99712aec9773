package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpirySkew is how early a token is treated as expired.
const ExpirySkew = 30 * time.Second

// TokenExpiry reads the exp claim without verifying the signature; the backend
// verifies, this is only used to refresh before sending a dead token.
func TokenExpiry(idToken string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse id token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}

// Expired reports whether the token's exp (or fallback, if the token carries
// none) is within ExpirySkew of now.
func Expired(idToken string, fallback, now time.Time) bool {
	exp, err := TokenExpiry(idToken)
	if err != nil || exp.IsZero() {
		exp = fallback
	}
	if exp.IsZero() {
		return false
	}
	return !now.Add(ExpirySkew).Before(exp)
}
