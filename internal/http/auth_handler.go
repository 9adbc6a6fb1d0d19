package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"storefront/internal/auth"
	"storefront/internal/relay"
	"storefront/internal/session"
)

// Backend routes the gateway relays auth traffic to.
const (
	backendSignupPath         = "/api/auth/signup/"
	backendForgotPasswordPath = "/api/auth/forgot-password/"
	backendGoogleSigninPath   = "/api/auth/google/signin/"
	backendGoogleSignupPath   = "/api/auth/google/signup/"
	backendTokenRefreshPath   = "/api/auth/token/refresh/"
)

type credentialVerifier interface {
	Verify(ctx context.Context, credential string, kind auth.CredentialKind) (auth.VerifiedIdentity, error)
}

type backendRelay interface {
	Post(ctx context.Context, path string, payload any) (*relay.Credential, error)
	PostWithFallback(ctx context.Context, path string, payload any, form url.Values) (*relay.Credential, error)
	Forward(ctx context.Context, method, path string, body []byte, bearer string) (int, []byte, error)
}

// AuthHandler terminates the storefront's /api/auth routes: pass-through
// signup and password reset, the Google credential relay pipeline, and the
// session endpoints backed by the gateway's session store.
type AuthHandler struct {
	verifier credentialVerifier
	relay    backendRelay
	store    session.Store
	cookies  session.CookieIssuer
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(verifier credentialVerifier, backend backendRelay, store session.Store, cookies session.CookieIssuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		verifier: verifier,
		relay:    backend,
		store:    store,
		cookies:  cookies,
		logger:   logger,
	}
}

// Signup handles POST /api/auth/signup: the registration body is relayed
// verbatim and the returned tokens become the caller's session.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	if err := decodeJSONBody(w, r, &body); err != nil {
		writeJSONError(w, err)
		return
	}

	cred, err := h.relay.Post(r.Context(), backendSignupPath, body)
	if err != nil {
		h.relayFailure(w, "Failed to sign up", err)
		return
	}

	h.openSession(r.Context(), w, cred)
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":    cred.User,
		"access":  cred.Access,
		"refresh": cred.Refresh,
		"message": "Successfully signed up",
	})
}

// ForgotPassword handles POST /api/auth/forgot-password: a pure pass-through
// whose success body the gateway returns untouched.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	if err := decodeJSONBody(w, r, &body); err != nil {
		writeJSONError(w, err)
		return
	}

	status, respBody, err := h.relay.Forward(r.Context(), http.MethodPost, backendForgotPasswordPath, body, "")
	if err != nil {
		h.relayFailure(w, "Failed to send reset email", err)
		return
	}

	if status < 200 || status > 299 {
		backendErr := &relay.BackendError{Status: status, Body: respBody}
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to send reset email", backendErr.Details())
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(respBody)
}

type googleFlow struct {
	backendPath    string
	successStatus  int
	successMessage string
	failureMessage string
	allowFallback  bool
}

// GoogleSignIn handles POST /api/auth/google/signin.
func (h *AuthHandler) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	h.googleAuth(w, r, googleFlow{
		backendPath:    backendGoogleSigninPath,
		successStatus:  http.StatusOK,
		successMessage: "Successfully signed in with Google",
		failureMessage: "Failed to sign in with Google",
		allowFallback:  true,
	})
}

// GoogleSignUp handles POST /api/auth/google/signup. Unlike sign-in it never
// retries the backend call: account creation is not idempotent.
func (h *AuthHandler) GoogleSignUp(w http.ResponseWriter, r *http.Request) {
	h.googleAuth(w, r, googleFlow{
		backendPath:    backendGoogleSignupPath,
		successStatus:  http.StatusCreated,
		successMessage: "Successfully signed up with Google",
		failureMessage: "Failed to sign up with Google",
	})
}

func (h *AuthHandler) googleAuth(w http.ResponseWriter, r *http.Request, flow googleFlow) {
	var body struct {
		IDToken     string `json:"id_token"`
		AccessToken string `json:"access_token"`
	}
	if err := decodeJSONBody(w, r, &body); err != nil {
		writeJSONError(w, err)
		return
	}

	credential := body.IDToken
	kind := auth.CredentialIDToken
	if credential == "" {
		credential = body.AccessToken
		kind = auth.CredentialAccessToken
	}
	if credential == "" {
		writeError(w, http.StatusBadRequest, "Missing token: expected id_token or access_token")
		return
	}

	identity, err := h.verifier.Verify(r.Context(), credential, kind)
	if err != nil {
		h.relayFailure(w, flow.failureMessage, err)
		return
	}

	payload := auth.BuildAccountPayload(identity).WithCredential(credential, kind)

	var cred *relay.Credential
	if flow.allowFallback {
		cred, err = h.relay.PostWithFallback(r.Context(), flow.backendPath, payload, payload.FormValues())
	} else {
		cred, err = h.relay.Post(r.Context(), flow.backendPath, payload)
	}
	if err != nil {
		h.relayFailure(w, flow.failureMessage, err)
		return
	}

	h.openSession(r.Context(), w, cred)
	writeJSON(w, flow.successStatus, map[string]any{
		"user":    cred.User,
		"message": flow.successMessage,
	})
}

// Refresh handles POST /api/auth/refresh: exchanges the refresh cookie for a
// new access token and reissues the session cookie.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshCookie, err := r.Cookie(session.RefreshCookieName)
	if err != nil || refreshCookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "No refresh token")
		return
	}

	cred, err := h.relay.Post(r.Context(), backendTokenRefreshPath, map[string]string{"refresh": refreshCookie.Value})
	if err != nil {
		h.relayFailure(w, "Failed to refresh session", err)
		return
	}

	// Carry the stored user snapshot over to the new session record.
	user := cred.User
	if prev := h.currentSession(r); prev != nil {
		if user == nil {
			user = prev.User
		}
		_ = h.store.Delete(r.Context(), prev.TokenHash)
	}

	refreshToken := cred.Refresh
	if refreshToken == "" {
		refreshToken = refreshCookie.Value
	}

	h.openSession(r.Context(), w, &relay.Credential{Access: cred.Access, Refresh: refreshToken, User: user})
	writeJSON(w, http.StatusOK, map[string]any{
		"user":    user,
		"message": "Session refreshed",
	})
}

// SessionStatus handles GET /api/auth/session: reports whether the request
// carries a live session and echoes the stored user snapshot.
func (h *AuthHandler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(r)
	if sess == nil {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          sess.User,
	})
}

// Logout handles POST /api/auth/logout: drops the stored session and expires
// both cookies. Idempotent.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(session.CookieName); err == nil && cookie.Value != "" {
		if err := h.store.Delete(r.Context(), session.HashToken(cookie.Value)); err != nil {
			h.logger.Error("failed to delete session", "error", err)
		}
	}

	h.cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// openSession records the issued credential and attaches the session cookies.
// Called only on relay success, so failures never carry a Set-Cookie header.
func (h *AuthHandler) openSession(ctx context.Context, w http.ResponseWriter, cred *relay.Credential) {
	if cred.Access == "" {
		return
	}

	if err := h.store.Save(ctx, session.New(cred.Access, cred.Refresh, cred.User)); err != nil {
		// The backend credential is still valid; losing the gateway record
		// only degrades the session-status endpoint.
		h.logger.Error("failed to persist session", "error", err)
	}

	h.cookies.Issue(w, cred.Access, cred.Refresh)
}

func (h *AuthHandler) currentSession(r *http.Request) *session.Session {
	cookie, err := r.Cookie(session.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	sess, err := h.store.Get(r.Context(), session.HashToken(cookie.Value))
	if err != nil {
		h.logger.Error("session lookup failed", "error", err)
		return nil
	}
	return sess
}

// relayFailure translates pipeline errors into the uniform error envelope.
func (h *AuthHandler) relayFailure(w http.ResponseWriter, message string, err error) {
	var backendErr *relay.BackendError
	switch {
	case errors.Is(err, relay.ErrNotConfigured):
		h.logger.Error("relay not configured")
		writeError(w, http.StatusInternalServerError, "Backend API URL is not configured")
	case errors.As(err, &backendErr):
		h.logger.Error("backend relay failed", "status", backendErr.Status)
		writeErrorDetails(w, http.StatusInternalServerError, message, backendErr.Details())
	case errors.Is(err, auth.ErrUpstreamAuth):
		h.logger.Error("credential verification failed", "error", err)
		writeErrorDetails(w, http.StatusInternalServerError, message, err.Error())
	default:
		h.logger.Error("relay pipeline error", "error", err)
		writeErrorDetails(w, http.StatusInternalServerError, message, err.Error())
	}
}
