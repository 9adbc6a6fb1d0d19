package auth

// CredentialKind identifies which Google credential a client submitted.
type CredentialKind string

const (
	// CredentialIDToken is an OpenID Connect ID token, resolved via Google's tokeninfo endpoint.
	CredentialIDToken CredentialKind = "id_token"
	// CredentialAccessToken is an OAuth access token, resolved via Google's userinfo endpoint.
	CredentialAccessToken CredentialKind = "access_token"
)

// VerifiedIdentity holds the profile facts Google asserted for a credential.
// It lives for one request and is discarded after payload mapping.
type VerifiedIdentity struct {
	Email   string
	Name    string
	Picture string
}
