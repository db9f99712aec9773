// Package session derives the signed-in identity of a browser session and its
// authorization role.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"bookcourier/internal/apperr"
	"bookcourier/internal/auth"
	"bookcourier/internal/backend"
	"bookcourier/internal/cache"
	"bookcourier/internal/models"
	"bookcourier/internal/resource"
	"bookcourier/internal/store"
	"bookcourier/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// State is the identity lifecycle of one session.
type State int

const (
	NoIdentity State = iota
	IdentityLoading
	IdentityReady
	SignedOut
)

func (s State) String() string {
	switch s {
	case NoIdentity:
		return "no_identity"
	case IdentityLoading:
		return "identity_loading"
	case IdentityReady:
		return "identity_ready"
	case SignedOut:
		return "signed_out"
	default:
		return "unknown"
	}
}

// Snapshot is the (identity, role, resolving) view handed to navigation.
type Snapshot struct {
	State        State
	Identity     *models.Identity
	Role         models.Role
	RoleResolved bool
	Resolving    bool
	RoleErr      error
	NeedsReauth  bool
}

// SignedIn reports whether an identity is present.
func (s Snapshot) SignedIn() bool {
	return s.State == IdentityReady && s.Identity != nil
}

// SignUpRequest is the registration form after the photo has been uploaded.
type SignUpRequest struct {
	Name     string
	Email    string
	Password string
	PhotoURL string
}

// Resolver owns one session's identity and credentials.
type Resolver struct {
	id      string
	ttl     time.Duration
	auth    auth.Provider
	api     *backend.Client
	cache   *cache.Cache
	store   store.SessionStore
	logger  *zap.Logger
	now     func() time.Time
	refresh singleflight.Group

	mu          sync.RWMutex
	state       State
	rec         *models.SessionRecord
	needsReauth bool
	subs        map[int]func(*models.Identity)
	nextSub     int
}

func newResolver(id string, ttl time.Duration, provider auth.Provider, public *backend.Client, c *cache.Cache, st store.SessionStore) *Resolver {
	r := &Resolver{
		id:     id,
		ttl:    ttl,
		auth:   provider,
		cache:  c,
		store:  st,
		logger: util.GetLogger(),
		now:    time.Now,
		state:  NoIdentity,
		subs:   make(map[int]func(*models.Identity)),
	}
	r.api = public.WithCredentials(r)
	return r
}

// ID is the session id carried in the cookie.
func (r *Resolver) ID() string {
	return r.id
}

// API returns the backend client that authenticates as this session.
func (r *Resolver) API() *backend.Client {
	return r.api
}

// Identity returns the signed-in user or nil.
func (r *Resolver) Identity() *models.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.state != IdentityReady || r.rec == nil {
		return nil
	}
	ident := r.rec.Identity()
	return &ident
}

// Subscribe calls fn with the new identity (nil after sign-out) on every
// change. The returned func unsubscribes.
func (r *Resolver) Subscribe(fn func(*models.Identity)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

func (r *Resolver) notify() {
	ident := r.Identity()
	r.mu.RLock()
	fns := make([]func(*models.Identity), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.mu.RUnlock()
	for _, fn := range fns {
		fn(ident)
	}
}

// Snapshot resolves the role if an identity is present, blocking until the
// role fetch settles or ctx ends. Role is unknown until then.
func (r *Resolver) Snapshot(ctx context.Context) Snapshot {
	r.mu.RLock()
	snap := Snapshot{State: r.state, Role: models.RoleUnknown}
	if r.state == IdentityReady && r.rec != nil {
		ident := r.rec.Identity()
		snap.Identity = &ident
	}
	r.mu.RUnlock()

	if snap.State == IdentityLoading {
		snap.Resolving = true
	}

	email := ""
	if snap.Identity != nil {
		email = snap.Identity.Email
	}
	res := cache.Query(ctx, r.cache, resource.Role(email), r.fetchRole,
		cache.Enabled(snap.Identity != nil && email != ""),
		cache.Placeholder(models.RoleUnknown))

	switch res.Status {
	case cache.StatusSuccess:
		snap.Role = res.Data
		snap.RoleResolved = true
	case cache.StatusPending:
		snap.Resolving = true
	case cache.StatusError:
		snap.RoleErr = res.Err
	}

	r.mu.RLock()
	snap.NeedsReauth = r.needsReauth
	r.mu.RUnlock()
	return snap
}

func (r *Resolver) fetchRole(ctx context.Context) (models.Role, error) {
	ident := r.Identity()
	if ident == nil {
		return models.RoleUnknown, apperr.ErrNotSignedIn
	}

	ctx, span := util.StartSpan(ctx, "Resolver.fetchRole")
	defer span.End()

	role, err := r.api.Role(ctx, ident.Email)
	if err != nil {
		util.RoleResolutionsTotal.WithLabelValues("error").Inc()
		return models.RoleUnknown, fmt.Errorf("failed to resolve role: %w", err)
	}
	util.RoleResolutionsTotal.WithLabelValues(role.String()).Inc()
	return role, nil
}

// Token implements httpclient.Credentials. An expired ID token is refreshed
// once, shared by concurrent callers.
func (r *Resolver) Token(ctx context.Context) (string, error) {
	r.mu.RLock()
	rec := r.rec
	r.mu.RUnlock()
	if rec == nil {
		return "", apperr.ErrNotSignedIn
	}
	if !auth.Expired(rec.IDToken, rec.TokenExpiry, r.now()) {
		return rec.IDToken, nil
	}

	v, err, _ := r.refresh.Do(rec.RefreshToken, func() (any, error) {
		s, err := r.auth.Refresh(ctx, rec.RefreshToken)
		if err != nil {
			return "", err
		}
		r.mu.Lock()
		if r.rec != nil {
			r.rec.IDToken = s.IDToken
			if s.RefreshToken != "" {
				r.rec.RefreshToken = s.RefreshToken
			}
			r.rec.TokenExpiry = s.ExpiresAt
			r.needsReauth = false
		}
		updated := r.copyRecord()
		r.mu.Unlock()

		if updated != nil {
			if err := r.store.UpdateSession(ctx, updated); err != nil {
				r.logger.Warn("Failed to persist refreshed token", zap.String("session_id", r.id), zap.Error(err))
			}
		}
		return s.IDToken, nil
	})
	if err != nil {
		r.CredentialRejected(apperr.StatusOf(err))
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	return v.(string), nil
}

// CredentialRejected implements httpclient.Credentials. The session is kept;
// the UI decides whether to send the user back to login.
func (r *Resolver) CredentialRejected(status int) {
	r.mu.Lock()
	r.needsReauth = true
	r.mu.Unlock()
	r.logger.Info("Credential rejected", zap.String("session_id", r.id), zap.Int("status", status))
}

func (r *Resolver) copyRecord() *models.SessionRecord {
	if r.rec == nil {
		return nil
	}
	cp := *r.rec
	return &cp
}

// restore moves the resolver through IdentityLoading into IdentityReady or
// NoIdentity, depending on whether the store knows the session.
func (r *Resolver) restore(ctx context.Context) error {
	r.mu.Lock()
	r.state = IdentityLoading
	r.mu.Unlock()

	rec, err := r.store.GetSession(ctx, r.id)
	if err != nil {
		r.mu.Lock()
		r.state = NoIdentity
		r.mu.Unlock()
		if errors.Is(err, store.ErrSessionNotFound) {
			return err
		}
		return fmt.Errorf("failed to restore session: %w", err)
	}

	r.mu.Lock()
	r.rec = rec
	r.state = IdentityReady
	r.mu.Unlock()
	return nil
}

func (r *Resolver) begin() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.state
	r.state = IdentityLoading
	return prev
}

func (r *Resolver) abort(prev State) {
	r.mu.Lock()
	r.state = prev
	r.mu.Unlock()
}

// establish stores the signed-in session. A different identity signing in on
// the same session first clears what was cached for the previous one.
func (r *Resolver) establish(ctx context.Context, s auth.Session) error {
	now := r.now()
	rec := &models.SessionRecord{
		ID:           r.id,
		UID:          s.Identity.ID,
		Email:        strings.ToLower(strings.TrimSpace(s.Identity.Email)),
		DisplayName:  s.Identity.DisplayName,
		PhotoURL:     s.Identity.PhotoURL,
		IDToken:      s.IDToken,
		RefreshToken: s.RefreshToken,
		TokenExpiry:  s.ExpiresAt,
		ExpiresAt:    now.Add(r.ttl),
	}

	r.mu.Lock()
	prev := r.rec
	r.mu.Unlock()
	if prev != nil && prev.Email != rec.Email {
		r.cache.Remove(resource.UserScoped(prev.Email)...)
	}

	if prev != nil {
		if err := r.store.DeleteSession(ctx, r.id); err != nil {
			r.logger.Warn("Failed to replace session", zap.String("session_id", r.id), zap.Error(err))
		}
	}
	if err := r.store.CreateSession(ctx, rec); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	r.mu.Lock()
	r.rec = rec
	r.state = IdentityReady
	r.needsReauth = false
	r.mu.Unlock()

	r.logger.Info("Signed in", zap.String("session_id", r.id), zap.String("email", rec.Email))
	r.notify()
	return nil
}

func (r *Resolver) SignIn(ctx context.Context, email, password string) (*models.Identity, error) {
	ctx, span := util.StartSpan(ctx, "Resolver.SignIn")
	defer span.End()

	prev := r.begin()
	s, err := r.auth.SignIn(ctx, email, password)
	if err != nil {
		r.abort(prev)
		return nil, err
	}
	if err := r.establish(ctx, s); err != nil {
		r.abort(prev)
		return nil, err
	}
	return r.Identity(), nil
}

// SignInWithGoogle signs in with a Google ID token and upserts the user record.
func (r *Resolver) SignInWithGoogle(ctx context.Context, googleIDToken string) (*models.Identity, error) {
	ctx, span := util.StartSpan(ctx, "Resolver.SignInWithGoogle")
	defer span.End()

	prev := r.begin()
	s, err := r.auth.SignInWithGoogle(ctx, googleIDToken)
	if err != nil {
		r.abort(prev)
		return nil, err
	}
	if err := r.establish(ctx, s); err != nil {
		r.abort(prev)
		return nil, err
	}
	r.saveUser(ctx)
	return r.Identity(), nil
}

// SignUp creates the account, sets its profile and registers the user with
// the backend.
func (r *Resolver) SignUp(ctx context.Context, req SignUpRequest) (*models.Identity, error) {
	ctx, span := util.StartSpan(ctx, "Resolver.SignUp")
	defer span.End()

	prev := r.begin()
	s, err := r.auth.CreateUser(ctx, req.Email, req.Password)
	if err != nil {
		r.abort(prev)
		return nil, err
	}

	ident, err := r.auth.UpdateProfile(ctx, s.IDToken, auth.Profile{DisplayName: &req.Name, PhotoURL: &req.PhotoURL})
	if err != nil {
		r.logger.Warn("Failed to set profile on new account", zap.String("email", req.Email), zap.Error(err))
	} else {
		s.Identity.DisplayName = ident.DisplayName
		s.Identity.PhotoURL = ident.PhotoURL
	}

	if err := r.establish(ctx, s); err != nil {
		r.abort(prev)
		return nil, err
	}
	r.saveUser(ctx)
	return r.Identity(), nil
}

func (r *Resolver) saveUser(ctx context.Context) {
	ident := r.Identity()
	if ident == nil {
		return
	}
	_, err := r.api.SaveUser(ctx, backend.UserUpsert{
		Name:  ident.DisplayName,
		Email: ident.Email,
		Image: ident.PhotoURL,
	})
	if err != nil {
		r.logger.Error("Failed to register user", zap.String("email", ident.Email), zap.Error(err))
		return
	}
	r.cache.Remove(cache.Exact(resource.Role(ident.Email)))
}

// UpdateProfile changes the display name and/or photo of the signed-in user.
func (r *Resolver) UpdateProfile(ctx context.Context, profile auth.Profile) (*models.Identity, error) {
	ctx, span := util.StartSpan(ctx, "Resolver.UpdateProfile")
	defer span.End()

	token, err := r.Token(ctx)
	if err != nil {
		return nil, err
	}
	ident, err := r.auth.UpdateProfile(ctx, token, profile)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.rec == nil {
		r.mu.Unlock()
		return nil, apperr.ErrNotSignedIn
	}
	if profile.DisplayName != nil {
		r.rec.DisplayName = ident.DisplayName
	}
	if profile.PhotoURL != nil {
		r.rec.PhotoURL = ident.PhotoURL
	}
	updated := r.copyRecord()
	r.mu.Unlock()

	if err := r.store.UpdateSession(ctx, updated); err != nil {
		r.logger.Warn("Failed to persist profile", zap.String("session_id", r.id), zap.Error(err))
	}
	r.notify()
	return r.Identity(), nil
}

// SignOut forgets the identity and every cached entry keyed by its email.
func (r *Resolver) SignOut(ctx context.Context) error {
	r.mu.Lock()
	rec := r.rec
	r.rec = nil
	r.state = SignedOut
	r.needsReauth = false
	r.mu.Unlock()

	if rec == nil {
		return nil
	}

	n := r.cache.Remove(resource.UserScoped(rec.Email)...)
	r.logger.Info("Signed out",
		zap.String("session_id", r.id),
		zap.String("email", rec.Email),
		zap.Int("cleared", n))

	if err := r.auth.SignOut(ctx, rec.IDToken); err != nil {
		r.logger.Warn("Auth provider sign-out failed", zap.Error(err))
	}
	if err := r.store.DeleteSession(ctx, r.id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	r.notify()
	return nil
}

func (r *Resolver) expired(now time.Time) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rec != nil && r.rec.Expired(now)
}
