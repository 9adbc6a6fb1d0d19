package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUpstreamAuth is returned when Google rejects a credential or cannot be reached.
var ErrUpstreamAuth = errors.New("identity provider rejected credential")

const defaultGoogleAPIBaseURL = "https://www.googleapis.com"

// GoogleVerifier resolves client-submitted Google credentials to a
// VerifiedIdentity by calling Google's introspection endpoints.
type GoogleVerifier struct {
	client  *http.Client
	baseURL string
}

// VerifierOption configures the GoogleVerifier during construction.
type VerifierOption func(*GoogleVerifier)

// WithGoogleAPIBaseURL overrides the base URL for Google API requests.
func WithGoogleAPIBaseURL(baseURL string) VerifierOption {
	return func(v *GoogleVerifier) {
		v.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// NewGoogleVerifier constructs a verifier with the given HTTP client.
func NewGoogleVerifier(client *http.Client, opts ...VerifierOption) *GoogleVerifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	v := &GoogleVerifier{
		client:  client,
		baseURL: defaultGoogleAPIBaseURL,
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

type googleProfileResponse struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Verify resolves the credential to a verified identity. The returned error
// wraps ErrUpstreamAuth whenever Google rejected the credential or was
// unreachable, so callers can surface it as an upstream failure.
func (v *GoogleVerifier) Verify(ctx context.Context, credential string, kind CredentialKind) (VerifiedIdentity, error) {
	var req *http.Request
	var err error

	switch kind {
	case CredentialIDToken:
		endpoint := v.baseURL + "/oauth2/v3/tokeninfo?" + url.Values{"id_token": {credential}}.Encode()
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	case CredentialAccessToken:
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/oauth2/v3/userinfo", nil)
		if err == nil {
			req.Header.Set("Authorization", "Bearer "+credential)
		}
	default:
		return VerifiedIdentity{}, fmt.Errorf("unsupported credential kind %q", kind)
	}
	if err != nil {
		return VerifiedIdentity{}, fmt.Errorf("create google request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return VerifiedIdentity{}, fmt.Errorf("%w: call google: %v", ErrUpstreamAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return VerifiedIdentity{}, fmt.Errorf("%w: google returned status %d: %s", ErrUpstreamAuth, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var profile googleProfileResponse
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return VerifiedIdentity{}, fmt.Errorf("%w: decode google response: %v", ErrUpstreamAuth, err)
	}

	if profile.Email == "" {
		return VerifiedIdentity{}, fmt.Errorf("%w: google response missing email", ErrUpstreamAuth)
	}

	return VerifiedIdentity{
		Email:   profile.Email,
		Name:    profile.Name,
		Picture: profile.Picture,
	}, nil
}
