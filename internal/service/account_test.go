package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"bookcourier/internal/apperr"
	"bookcourier/internal/models"
	"bookcourier/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccount struct {
	signedUp *session.SignUpRequest
	signOuts int
}

func (a *fakeAccount) SignIn(ctx context.Context, email, password string) (*models.Identity, error) {
	if password != "secret" {
		return nil, apperr.Auth(http.StatusBadRequest, "Invalid email or password")
	}
	return &models.Identity{Email: email}, nil
}

func (a *fakeAccount) SignInWithGoogle(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, errors.New("no token")
	}
	return &models.Identity{Email: token + "@gmail.com"}, nil
}

func (a *fakeAccount) SignUp(ctx context.Context, req session.SignUpRequest) (*models.Identity, error) {
	a.signedUp = &req
	return &models.Identity{Email: req.Email, DisplayName: req.Name, PhotoURL: req.PhotoURL}, nil
}

func (a *fakeAccount) SignOut(ctx context.Context) error {
	a.signOuts++
	return nil
}

func TestLoginShowsProviderMessage(t *testing.T) {
	s := NewAccountService(&fakeUploader{})

	_, n, err := s.Login(context.Background(), &fakeAccount{}, LoginForm{Email: "a@x.io", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, NoticeError, n.Level)
	assert.Equal(t, "Invalid email or password", n.Message)

	ident, n, err := s.Login(context.Background(), &fakeAccount{}, LoginForm{Email: " a@x.io ", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", ident.Email)
	assert.Equal(t, NoticeSuccess, n.Level)
}

func TestLoginValidatesEmail(t *testing.T) {
	_, _, err := NewAccountService(&fakeUploader{}).Login(context.Background(), &fakeAccount{}, LoginForm{Email: "nope", Password: "x"})
	assert.True(t, apperr.IsValidation(err))
}

func TestSignUpUploadsPhotoFirst(t *testing.T) {
	up := &fakeUploader{}
	acct := &fakeAccount{}
	form := SignUpForm{Name: "Ann", Email: "ann@x.io", Password: "Str0ng!pw", ConfirmPassword: "Str0ng!pw"}

	ident, n, err := NewAccountService(up).SignUp(context.Background(), acct, form, &Upload{Filename: "me.png", Body: strings.NewReader("png")})
	require.NoError(t, err)
	assert.Equal(t, "Registration successful", n.Message)
	require.NotNil(t, acct.signedUp)
	assert.Equal(t, ident.PhotoURL, acct.signedUp.PhotoURL)
	assert.NotEmpty(t, acct.signedUp.PhotoURL)
}

func TestSignUpRejectsWeakPasswordWithoutCallingProvider(t *testing.T) {
	acct := &fakeAccount{}
	form := SignUpForm{Name: "Ann", Email: "ann@x.io", Password: "weak", ConfirmPassword: "weak"}

	_, _, err := NewAccountService(&fakeUploader{}).SignUp(context.Background(), acct, form, nil)
	assert.True(t, apperr.IsValidation(err))
	assert.Nil(t, acct.signedUp)
}

func TestLogout(t *testing.T) {
	acct := &fakeAccount{}
	n, err := NewAccountService(&fakeUploader{}).Logout(context.Background(), acct)
	require.NoError(t, err)
	assert.Equal(t, NoticeSuccess, n.Level)
	assert.Equal(t, 1, acct.signOuts)
}
