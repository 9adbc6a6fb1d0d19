package session

import (
	"net/http"
	"strings"
	"time"
)

const (
	// CookieName carries the backend access token.
	CookieName = "auth_token"
	// RefreshCookieName carries the backend refresh token, scoped to the
	// auth routes so it only travels with refresh and logout requests.
	RefreshCookieName = "refresh_token"

	refreshCookiePath = "/api/auth"
)

// CookieIssuer attaches session cookies to responses. Cookies are HttpOnly
// and SameSite=Lax; Secure is set outside development.
type CookieIssuer struct {
	secure bool
}

// NewCookieIssuer builds an issuer for the given environment name.
func NewCookieIssuer(environment string) CookieIssuer {
	return CookieIssuer{secure: !strings.EqualFold(environment, "development")}
}

// Issue sets the auth_token cookie, and the refresh_token cookie when a
// refresh token is present. No cookie is written for empty token values.
func (i CookieIssuer) Issue(w http.ResponseWriter, accessToken, refreshToken string) {
	if accessToken != "" {
		http.SetCookie(w, i.cookie(CookieName, accessToken, "/", TTL))
	}
	if refreshToken != "" {
		http.SetCookie(w, i.cookie(RefreshCookieName, refreshToken, refreshCookiePath, TTL))
	}
}

// Clear expires both session cookies on the client.
func (i CookieIssuer) Clear(w http.ResponseWriter) {
	for _, c := range []*http.Cookie{
		i.cookie(CookieName, "", "/", 0),
		i.cookie(RefreshCookieName, "", refreshCookiePath, 0),
	} {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

func (i CookieIssuer) cookie(name, value, path string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		HttpOnly: true,
		Secure:   i.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	}
}
