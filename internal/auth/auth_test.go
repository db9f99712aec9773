package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookcourier/internal/apperr"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "uid-1",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, err := TokenExpiry(signedToken(t, exp))
	require.NoError(t, err)
	assert.True(t, exp.Equal(got))

	_, err = TokenExpiry("not-a-jwt")
	assert.Error(t, err)
}

func TestExpired(t *testing.T) {
	now := time.Now()
	assert.False(t, Expired(signedToken(t, now.Add(time.Hour)), time.Time{}, now))
	assert.True(t, Expired(signedToken(t, now.Add(10*time.Second)), time.Time{}, now))
	assert.True(t, Expired("opaque", now.Add(-time.Minute), now))
	assert.False(t, Expired("opaque", time.Time{}, now))
}

func TestSignInMapsAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts:signInWithPassword", r.URL.Path)
		assert.Equal(t, "key-1", r.URL.Query().Get("key"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "c@x.io", body["email"])
		_, _ = w.Write([]byte(`{"localId":"u1","email":"c@x.io","displayName":"Cee","idToken":"id-1","refreshToken":"r-1","expiresIn":"3600"}`))
	}))
	defer srv.Close()

	p := NewFirebaseProvider(srv.URL, srv.URL+"/token", "key-1", "http://localhost")
	s, err := p.SignIn(context.Background(), "c@x.io", "secret")
	require.NoError(t, err)

	assert.Equal(t, "u1", s.Identity.ID)
	assert.Equal(t, "Cee", s.Identity.DisplayName)
	assert.Equal(t, "id-1", s.IDToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), s.ExpiresAt, time.Minute)
}

func TestRejectedCredentialsAreAuthErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"INVALID_LOGIN_CREDENTIALS"}}`))
	}))
	defer srv.Close()

	p := NewFirebaseProvider(srv.URL, srv.URL, "k", "")
	_, err := p.SignIn(context.Background(), "c@x.io", "nope")

	assert.True(t, apperr.IsAuth(err))
	assert.Equal(t, "Invalid email or password", apperr.Message(err))
}

func TestRefreshUsesForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "r-1", r.PostForm.Get("refresh_token"))
		_, _ = w.Write([]byte(`{"id_token":"id-2","refresh_token":"r-2","expires_in":"3600","user_id":"u1"}`))
	}))
	defer srv.Close()

	p := NewFirebaseProvider(srv.URL, srv.URL+"/token", "k", "")
	s, err := p.Refresh(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, "id-2", s.IDToken)
	assert.Equal(t, "r-2", s.RefreshToken)
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "Email already in use", humanize("EMAIL_EXISTS"))
	assert.Equal(t, "Password should be at least 6 characters", humanize("WEAK_PASSWORD : Password should be at least 6 characters"))
	assert.Equal(t, "operation not allowed", humanize("OPERATION_NOT_ALLOWED"))
	assert.Equal(t, "Authentication failed", humanize(""))
}
