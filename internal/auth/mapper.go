package auth

import (
	"net/url"
	"strings"
)

// AccountPayload is the backend-compatible user record relayed on Google auth.
// Exactly one of IDToken or AccessToken carries the originating credential.
type AccountPayload struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	UserType       string `json:"user_type"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	ProfilePicture string `json:"profile_picture"`
	IDToken        string `json:"id_token,omitempty"`
	AccessToken    string `json:"access_token,omitempty"`
}

// BuildAccountPayload derives the backend user record from a verified identity.
// Username is the email's local part before the first "@". The display name is
// split on whitespace: first token becomes FirstName, the rest joined by single
// spaces become LastName. LastName is empty when the name has a single token.
func BuildAccountPayload(identity VerifiedIdentity) AccountPayload {
	username, _, _ := strings.Cut(identity.Email, "@")

	firstName := ""
	lastName := ""
	if parts := strings.Fields(identity.Name); len(parts) > 0 {
		firstName = parts[0]
		lastName = strings.Join(parts[1:], " ")
	}

	return AccountPayload{
		Username:       username,
		Email:          identity.Email,
		UserType:       "customer",
		FirstName:      firstName,
		LastName:       lastName,
		ProfilePicture: identity.Picture,
	}
}

// WithCredential returns a copy carrying the originating credential field.
func (p AccountPayload) WithCredential(credential string, kind CredentialKind) AccountPayload {
	switch kind {
	case CredentialAccessToken:
		p.AccessToken = credential
		p.IDToken = ""
	default:
		p.IDToken = credential
		p.AccessToken = ""
	}
	return p
}

// FormValues renders the payload fields as form data for the relay's
// alternate-encoding retry.
func (p AccountPayload) FormValues() url.Values {
	values := url.Values{
		"username":        {p.Username},
		"email":           {p.Email},
		"user_type":       {p.UserType},
		"first_name":      {p.FirstName},
		"last_name":       {p.LastName},
		"profile_picture": {p.ProfilePicture},
	}
	if p.IDToken != "" {
		values.Set("id_token", p.IDToken)
	}
	if p.AccessToken != "" {
		values.Set("access_token", p.AccessToken)
	}
	return values
}
