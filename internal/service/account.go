package service

import (
	"context"
	"strings"

	"bookcourier/internal/imagehost"
	"bookcourier/internal/models"
	"bookcourier/internal/session"
	"bookcourier/internal/util"

	"go.uber.org/zap"
)

// Account is a session that can sign in and out.
type Account interface {
	SignIn(ctx context.Context, email, password string) (*models.Identity, error)
	SignInWithGoogle(ctx context.Context, googleIDToken string) (*models.Identity, error)
	SignUp(ctx context.Context, req session.SignUpRequest) (*models.Identity, error)
	SignOut(ctx context.Context) error
}

// AccountService serves the login and registration screens.
type AccountService struct {
	images imagehost.Uploader
	logger *zap.Logger
}

// NewAccountService creates a new account service
func NewAccountService(images imagehost.Uploader) *AccountService {
	return &AccountService{images: images, logger: util.GetLogger()}
}

func (s *AccountService) Login(ctx context.Context, a Account, form LoginForm) (*models.Identity, Notice, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.Login")
	defer span.End()

	if err := check(form); err != nil {
		return nil, failed(err, ""), err
	}
	ident, err := a.SignIn(ctx, strings.TrimSpace(form.Email), form.Password)
	if err != nil {
		return nil, failed(err, "Login failed"), err
	}
	return ident, succeeded("Login successful"), nil
}

func (s *AccountService) LoginWithGoogle(ctx context.Context, a Account, googleIDToken string) (*models.Identity, Notice, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.LoginWithGoogle")
	defer span.End()

	ident, err := a.SignInWithGoogle(ctx, googleIDToken)
	if err != nil {
		return nil, failed(err, "Google login failed"), err
	}
	return ident, succeeded("Login successful"), nil
}

// SignUp registers a new account. The photo, if any, is hosted before the
// account is created so a failed upload leaves nothing behind.
func (s *AccountService) SignUp(ctx context.Context, a Account, form SignUpForm, photo *Upload) (*models.Identity, Notice, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.SignUp")
	defer span.End()

	if err := check(form); err != nil {
		return nil, failed(err, ""), err
	}

	var photoURL string
	if photo != nil {
		url, err := s.images.Upload(ctx, photo.Filename, photo.Body)
		if err != nil {
			s.logger.Warn("Failed to upload profile photo", zap.String("email", form.Email), zap.Error(err))
			return nil, failed(err, "Image upload failed"), err
		}
		photoURL = url
	}

	ident, err := a.SignUp(ctx, session.SignUpRequest{
		Name:     strings.TrimSpace(form.Name),
		Email:    strings.TrimSpace(form.Email),
		Password: form.Password,
		PhotoURL: photoURL,
	})
	if err != nil {
		return nil, failed(err, "Registration failed"), err
	}
	return ident, succeeded("Registration successful"), nil
}

func (s *AccountService) Logout(ctx context.Context, a Account) (Notice, error) {
	if err := a.SignOut(ctx); err != nil {
		s.logger.Error("Failed to sign out", zap.Error(err))
		return failed(err, "Logout failed"), err
	}
	return succeeded("Logged out"), nil
}
