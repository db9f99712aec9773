package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bookcourier/internal/apperr"
	"bookcourier/internal/models"
	"bookcourier/internal/util"

	"go.uber.org/zap"
)

// FirebaseProvider implements Provider over the Identity Toolkit REST API.
type FirebaseProvider struct {
	baseURL     string
	tokenURL    string
	apiKey      string
	redirectURI string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewFirebaseProvider constructs a provider. redirectURI is sent with IdP sign-ins.
func NewFirebaseProvider(baseURL, tokenURL, apiKey, redirectURI string) *FirebaseProvider {
	return &FirebaseProvider{
		baseURL:     strings.TrimRight(baseURL, "/"),
		tokenURL:    tokenURL,
		apiKey:      apiKey,
		redirectURI: redirectURI,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		logger:      util.GetLogger(),
	}
}

type accountResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

func (r accountResponse) session() Session {
	return Session{
		Identity: models.Identity{
			ID:          r.LocalID,
			Email:       r.Email,
			DisplayName: r.DisplayName,
			PhotoURL:    r.PhotoURL,
		},
		IDToken:      r.IDToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    expiresAt(r.ExpiresIn),
	}
}

func expiresAt(seconds string) time.Time {
	n, err := strconv.Atoi(seconds)
	if err != nil || n <= 0 {
		return time.Time{}
	}
	return time.Now().Add(time.Duration(n) * time.Second)
}

func (f *FirebaseProvider) SignIn(ctx context.Context, email, password string) (Session, error) {
	var resp accountResponse
	payload := map[string]any{"email": email, "password": password, "returnSecureToken": true}
	if err := f.call(ctx, "accounts:signInWithPassword", payload, &resp); err != nil {
		return Session{}, err
	}
	return resp.session(), nil
}

func (f *FirebaseProvider) SignInWithGoogle(ctx context.Context, googleIDToken string) (Session, error) {
	var resp accountResponse
	payload := map[string]any{
		"postBody":            url.Values{"id_token": {googleIDToken}, "providerId": {"google.com"}}.Encode(),
		"requestUri":          f.redirectURI,
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}
	if err := f.call(ctx, "accounts:signInWithIdp", payload, &resp); err != nil {
		return Session{}, err
	}
	return resp.session(), nil
}

func (f *FirebaseProvider) CreateUser(ctx context.Context, email, password string) (Session, error) {
	var resp accountResponse
	payload := map[string]any{"email": email, "password": password, "returnSecureToken": true}
	if err := f.call(ctx, "accounts:signUp", payload, &resp); err != nil {
		return Session{}, err
	}
	return resp.session(), nil
}

func (f *FirebaseProvider) UpdateProfile(ctx context.Context, idToken string, profile Profile) (models.Identity, error) {
	payload := map[string]any{"idToken": idToken, "returnSecureToken": false}
	if profile.DisplayName != nil {
		payload["displayName"] = *profile.DisplayName
	}
	if profile.PhotoURL != nil {
		payload["photoUrl"] = *profile.PhotoURL
	}
	var resp accountResponse
	if err := f.call(ctx, "accounts:update", payload, &resp); err != nil {
		return models.Identity{}, err
	}
	return resp.session().Identity, nil
}

func (f *FirebaseProvider) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	form := url.Values{"grant_type": {"refresh_token"}, "refresh_token": {refreshToken}}
	endpoint := f.tokenURL + "?key=" + url.QueryEscape(f.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Session{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp struct {
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    string `json:"expires_in"`
		UserID       string `json:"user_id"`
	}
	if err := f.do(req, &resp); err != nil {
		return Session{}, err
	}
	return Session{
		Identity:     models.Identity{ID: resp.UserID},
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    expiresAt(resp.ExpiresIn),
	}, nil
}

// SignOut has no server-side counterpart in the token API; sessions end when
// the caller forgets the tokens.
func (f *FirebaseProvider) SignOut(ctx context.Context, idToken string) error {
	return nil
}

func (f *FirebaseProvider) call(ctx context.Context, method string, payload any, out any) error {
	ctx, span := util.StartSpan(ctx, "Auth."+method)
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode auth request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/%s?key=%s", f.baseURL, method, url.QueryEscape(f.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return f.do(req, out)
}

func (f *FirebaseProvider) do(req *http.Request, out any) error {
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return apperr.Network(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		f.logger.Info("Auth provider rejected request",
			zap.Int("status", resp.StatusCode),
			zap.String("code", errResp.Error.Message))
		return apperr.Auth(resp.StatusCode, humanize(errResp.Error.Message))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Decode(resp.StatusCode, err)
	}
	return nil
}

var authMessages = map[string]string{
	"EMAIL_NOT_FOUND":             "Invalid email or password",
	"INVALID_PASSWORD":            "Invalid email or password",
	"INVALID_LOGIN_CREDENTIALS":   "Invalid email or password",
	"USER_DISABLED":               "This account has been disabled",
	"EMAIL_EXISTS":                "Email already in use",
	"TOO_MANY_ATTEMPTS_TRY_LATER": "Too many attempts, try again later",
	"TOKEN_EXPIRED":               "Session expired, please login again",
	"INVALID_ID_TOKEN":            "Session expired, please login again",
	"INVALID_REFRESH_TOKEN":       "Session expired, please login again",
	"USER_NOT_FOUND":              "Session expired, please login again",
}

// humanize turns provider codes such as "WEAK_PASSWORD : Password should be at
// least 6 characters" into a user-facing message.
func humanize(code string) string {
	if code == "" {
		return "Authentication failed"
	}
	head, detail, hasDetail := strings.Cut(code, " : ")
	if msg, ok := authMessages[strings.TrimSpace(head)]; ok {
		return msg
	}
	if hasDetail {
		return strings.TrimSpace(detail)
	}
	return strings.ToLower(strings.ReplaceAll(code, "_", " "))
}
