package service

import (
	"context"
	"strings"

	"bookcourier/internal/apperr"
	"bookcourier/internal/auth"
	"bookcourier/internal/imagehost"
	"bookcourier/internal/models"
	"bookcourier/internal/mutation"
	"bookcourier/internal/util"

	"go.uber.org/zap"
)

// ProfileEditor is a viewer that can change its own profile.
type ProfileEditor interface {
	Viewer
	UpdateProfile(ctx context.Context, profile auth.Profile) (*models.Identity, error)
}

// ProfileService serves the profile page.
type ProfileService struct {
	exec   *mutation.Executor
	images imagehost.Uploader
	logger *zap.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(exec *mutation.Executor, images imagehost.Uploader) *ProfileService {
	return &ProfileService{
		exec:   exec,
		images: images,
		logger: util.GetLogger(),
	}
}

// Profile returns the signed-in identity.
func (s *ProfileService) Profile(v Viewer) (*models.Identity, error) {
	ident, ok := identityOf(v)
	if !ok {
		return nil, apperr.ErrNotSignedIn
	}
	return ident, nil
}

// Update changes the display name and, if a photo is given, uploads it and
// sets it as the profile picture.
func (s *ProfileService) Update(ctx context.Context, v ProfileEditor, form ProfileForm, photo *Upload) (*models.Identity, Notice, error) {
	ctx, span := util.StartSpan(ctx, "ProfileService.Update")
	defer span.End()

	if err := check(form); err != nil {
		return nil, failed(err, ""), err
	}
	ident, ok := identityOf(v)
	if !ok {
		return nil, failed(apperr.ErrNotSignedIn, ""), apperr.ErrNotSignedIn
	}

	name := strings.TrimSpace(form.Name)
	profile := auth.Profile{DisplayName: &name}

	updated, err := mutation.Run(ctx, s.exec, mutation.Operation[*models.Identity]{
		Name:   "profile.update",
		Action: "profile:" + strings.ToLower(ident.Email),
		Do: func(ctx context.Context) (*models.Identity, error) {
			if photo != nil && photo.Body != nil {
				link, err := s.images.Upload(ctx, photo.Filename, photo.Body)
				if err != nil {
					return nil, err
				}
				profile.PhotoURL = &link
			}
			return v.UpdateProfile(ctx, profile)
		},
	})
	if err != nil {
		s.logger.Info("Profile update failed", zap.String("email", ident.Email), zap.Error(err))
		return nil, failed(err, "Failed to update profile"), err
	}
	return updated, succeeded("Profile updated successfully!"), nil
}
