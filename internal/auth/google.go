package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleAuthenticator drives the server-side Google OAuth 2.0 code flow.
// The client-credential relay endpoints do not use it; it exists for
// browsers that start the flow at the gateway instead of in page script.
type GoogleAuthenticator struct {
	config   *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewGoogleAuthenticator creates a GoogleAuthenticator for the configured OAuth client.
func NewGoogleAuthenticator(ctx context.Context, clientID, clientSecret, redirectURL string) (*GoogleAuthenticator, error) {
	provider, err := oidc.NewProvider(ctx, "https://accounts.google.com")
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
	}

	return &GoogleAuthenticator{
		config:   config,
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// AuthURL generates the Google consent URL carrying the given CSRF state.
func (g *GoogleAuthenticator) AuthURL(state string) string {
	return g.config.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
}

// Exchange trades the authorization code for tokens, verifies the ID token,
// and returns the identity together with the raw ID token so the caller can
// relay it onward as the credential.
func (g *GoogleAuthenticator) Exchange(ctx context.Context, code string) (VerifiedIdentity, string, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return VerifiedIdentity{}, "", fmt.Errorf("%w: token exchange: %v", ErrUpstreamAuth, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return VerifiedIdentity{}, "", fmt.Errorf("%w: no id_token in response", ErrUpstreamAuth)
	}

	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return VerifiedIdentity{}, "", fmt.Errorf("%w: verify id_token: %v", ErrUpstreamAuth, err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return VerifiedIdentity{}, "", fmt.Errorf("%w: parse claims: %v", ErrUpstreamAuth, err)
	}

	if claims.Email == "" || !claims.EmailVerified {
		return VerifiedIdentity{}, "", fmt.Errorf("%w: google account email missing or unverified", ErrUpstreamAuth)
	}

	return VerifiedIdentity{
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, rawIDToken, nil
}

// GenerateState generates a cryptographically secure random state string.
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
