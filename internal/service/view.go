// Package service holds the screen controllers: each reads through the
// resource cache and writes through the mutation executor.
package service

import (
	"bookcourier/internal/backend"
	"bookcourier/internal/cache"
	"bookcourier/internal/models"
)

// Viewer is the session a screen is rendered for.
type Viewer interface {
	Identity() *models.Identity
	API() *backend.Client
}

// View is one independently loading region of a screen.
type View[T any] struct {
	Data    T      `json:"data"`
	Loading bool   `json:"loading"`
	Stale   bool   `json:"stale,omitempty"`
	Error   string `json:"error,omitempty"`
	Err     error  `json:"-"`
}

func viewOf[T any](r cache.TypedResult[T], failure string) View[T] {
	v := View[T]{Data: r.Data, Loading: r.Loading(), Stale: r.Stale}
	if r.Status == cache.StatusError || (r.Err != nil && r.Status != cache.StatusPending) {
		v.Error = failure
		v.Err = r.Err
	}
	return v
}

func identityOf(v Viewer) (*models.Identity, bool) {
	if v == nil {
		return nil, false
	}
	ident := v.Identity()
	return ident, ident != nil && ident.Email != ""
}
