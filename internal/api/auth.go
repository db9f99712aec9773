package api

import (
	"net/http"

	"bookcourier/internal/models"
	"bookcourier/internal/nav"
	"bookcourier/internal/service"
	"bookcourier/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type authResponse struct {
	Identity *models.Identity `json:"identity"`
	Notice   service.Notice   `json:"notice"`
	Redirect string           `json:"redirect"`
}

type sessionResponse struct {
	State        string           `json:"state"`
	Identity     *models.Identity `json:"identity"`
	Role         models.Role      `json:"role"`
	RoleResolved bool             `json:"roleResolved"`
	Resolving    bool             `json:"resolving"`
	NeedsReauth  bool             `json:"needsReauth"`
	Menus        []nav.MenuItem   `json:"menus"`
}

// freshSession returns the resolver a sign-in runs on. It never reuses the id
// the request arrived with.
func (h *Handler) freshSession() *session.Resolver {
	return h.sessions.New()
}

// signedIn retires the request's previous session in favour of fresh and
// issues fresh's id as the cookie.
func (h *Handler) signedIn(c *gin.Context, fresh *session.Resolver, ident *models.Identity, n service.Notice) {
	prev := resolverOf(c)
	if err := h.sessions.Retire(c.Request.Context(), prev); err != nil {
		h.logger.Warn("Failed to retire previous session", zap.String("session_id", prev.ID()), zap.Error(err))
	}
	c.Set(resolverKey, fresh)
	h.setSessionCookie(c, fresh)
	c.JSON(http.StatusOK, authResponse{
		Identity: ident,
		Notice:   n,
		Redirect: nav.SafeRedirect(c.Query("redirect")),
	})
}

// login handles email and password sign-in
func (h *Handler) login(c *gin.Context) {
	var form service.LoginForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	fresh := h.freshSession()
	ident, n, err := h.svc.Accounts.Login(c.Request.Context(), fresh, form)
	if err != nil {
		h.fail(c, err, n)
		return
	}
	h.signedIn(c, fresh, ident, n)
}

// loginWithGoogle exchanges a Google ID token for a session
func (h *Handler) loginWithGoogle(c *gin.Context) {
	var req struct {
		IDToken string `json:"idToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	fresh := h.freshSession()
	ident, n, err := h.svc.Accounts.LoginWithGoogle(c.Request.Context(), fresh, req.IDToken)
	if err != nil {
		h.fail(c, err, n)
		return
	}
	h.signedIn(c, fresh, ident, n)
}

// signUp registers an account from a multipart form with an optional photo
func (h *Handler) signUp(c *gin.Context) {
	form := service.SignUpForm{
		Name:            c.PostForm("name"),
		Email:           c.PostForm("email"),
		Password:        c.PostForm("password"),
		ConfirmPassword: c.PostForm("confirmPassword"),
	}
	photo, done, err := formUpload(c, "photo")
	if err != nil {
		h.fail(c, err, service.Notice{Level: service.NoticeError, Message: "Invalid upload"})
		return
	}
	defer done()

	fresh := h.freshSession()
	ident, n, err := h.svc.Accounts.SignUp(c.Request.Context(), fresh, form, photo)
	if err != nil {
		h.fail(c, err, n)
		return
	}
	h.signedIn(c, fresh, ident, n)
}

// logout signs out and forgets the session
func (h *Handler) logout(c *gin.Context) {
	r := resolverOf(c)
	n, err := h.svc.Accounts.Logout(c.Request.Context(), r)
	h.sessions.Drop(r.ID())
	h.clearSessionCookie(c)
	if err != nil {
		h.logger.Warn("Logout left the session record behind", zap.String("session_id", r.ID()), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"notice": n})
}

// currentSession reports the identity, resolved role and menus
func (h *Handler) currentSession(c *gin.Context) {
	snap := resolverOf(c).Snapshot(c.Request.Context())
	c.JSON(http.StatusOK, sessionResponse{
		State:        snap.State.String(),
		Identity:     snap.Identity,
		Role:         snap.Role,
		RoleResolved: snap.RoleResolved,
		Resolving:    snap.Resolving,
		NeedsReauth:  snap.NeedsReauth,
		Menus:        nav.MenusFor(snap.Role),
	})
}
