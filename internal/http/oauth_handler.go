package http

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"storefront/internal/auth"
)

const (
	oauthStateCookieName = "oauth_state"
	oauthStateCookieTTL  = 10 * time.Minute
)

type googleAuthenticator interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (auth.VerifiedIdentity, string, error)
}

// OAuthHandler drives the server-side Google code flow for browsers that
// start authentication at the gateway. Its callback joins the same
// mapper-relay-issuer pipeline as the credential relay endpoints.
type OAuthHandler struct {
	google       googleAuthenticator
	relay        backendRelay
	auth         *AuthHandler
	frontendURL  string
	secureCookie bool
	logger       *slog.Logger
}

// NewOAuthHandler creates an OAuthHandler sharing the AuthHandler's pipeline.
func NewOAuthHandler(google googleAuthenticator, authHandler *AuthHandler, frontendURL, environment string, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		google:       google,
		relay:        authHandler.relay,
		auth:         authHandler,
		frontendURL:  frontendURL,
		secureCookie: environment != "development",
		logger:       logger,
	}
}

// Initiate handles GET /api/auth/google: stores a CSRF state cookie and
// redirects the browser to Google's consent screen.
func (h *OAuthHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	state, err := auth.GenerateState()
	if err != nil {
		h.logger.Error("failed to generate state", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    state,
		Path:     "/api/auth",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(oauthStateCookieTTL.Seconds()),
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// Callback handles GET /api/auth/google/callback: verifies state, exchanges
// the code, relays the mapped payload to the backend's sign-in route, issues
// session cookies, and sends the browser back to the storefront.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookieName)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("oauth callback: missing state cookie")
		h.redirectWithError(w, r, "invalid_request")
		return
	}

	state := r.URL.Query().Get("state")
	if subtle.ConstantTimeCompare([]byte(state), []byte(stateCookie.Value)) != 1 {
		h.logger.Warn("oauth callback: state mismatch")
		h.redirectWithError(w, r, "invalid_request")
		return
	}

	// Expire the single-use state cookie.
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    "",
		Path:     "/api/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Warn("oauth callback: provider error", "error", errParam)
		h.redirectWithError(w, r, errParam)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectWithError(w, r, "invalid_request")
		return
	}

	identity, rawIDToken, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: exchange failed", "error", err)
		h.redirectWithError(w, r, "exchange_error")
		return
	}

	payload := auth.BuildAccountPayload(identity).WithCredential(rawIDToken, auth.CredentialIDToken)

	cred, err := h.relay.PostWithFallback(r.Context(), backendGoogleSigninPath, payload, payload.FormValues())
	if err != nil {
		h.logger.Error("oauth callback: backend relay failed", "error", err)
		h.redirectWithError(w, r, "backend_error")
		return
	}

	h.auth.openSession(r.Context(), w, cred)
	h.logger.Info("oauth login successful", "email", identity.Email)

	http.Redirect(w, r, h.frontendURL+"/", http.StatusTemporaryRedirect)
}

func (h *OAuthHandler) redirectWithError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.frontendURL+"/signin?error="+url.QueryEscape(code), http.StatusTemporaryRedirect)
}
