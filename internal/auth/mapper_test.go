package auth

import "testing"

func TestBuildAccountPayloadDerivesUsernameFromEmail(t *testing.T) {
	payload := BuildAccountPayload(VerifiedIdentity{Email: "jane.doe@example.com", Name: "Jane Doe"})

	if payload.Username != "jane.doe" {
		t.Fatalf("expected username %q, got %q", "jane.doe", payload.Username)
	}
	if payload.Email != "jane.doe@example.com" {
		t.Fatalf("expected email preserved, got %q", payload.Email)
	}
	if payload.UserType != "customer" {
		t.Fatalf("expected user_type customer, got %q", payload.UserType)
	}
}

func TestBuildAccountPayloadUsernameStopsAtFirstAt(t *testing.T) {
	payload := BuildAccountPayload(VerifiedIdentity{Email: "odd@名@example.com"})

	if payload.Username != "odd" {
		t.Fatalf("expected username before first @, got %q", payload.Username)
	}
}

func TestBuildAccountPayloadSplitsDisplayName(t *testing.T) {
	tests := []struct {
		name      string
		display   string
		firstName string
		lastName  string
	}{
		{"two tokens", "Jane Doe", "Jane", "Doe"},
		{"three tokens", "Jane van Doe", "Jane", "van Doe"},
		{"single token", "Jane", "Jane", ""},
		{"empty", "", "", ""},
		{"extra whitespace", "  Jane   Doe  ", "Jane", "Doe"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			payload := BuildAccountPayload(VerifiedIdentity{Email: "jane@example.com", Name: tc.display})
			if payload.FirstName != tc.firstName {
				t.Fatalf("expected first name %q, got %q", tc.firstName, payload.FirstName)
			}
			if payload.LastName != tc.lastName {
				t.Fatalf("expected last name %q, got %q", tc.lastName, payload.LastName)
			}
		})
	}
}

func TestWithCredentialSetsExactlyOneTokenField(t *testing.T) {
	base := BuildAccountPayload(VerifiedIdentity{Email: "jane@example.com", Name: "Jane Doe"})

	withID := base.WithCredential("id-123", CredentialIDToken)
	if withID.IDToken != "id-123" || withID.AccessToken != "" {
		t.Fatalf("expected only id_token set, got id=%q access=%q", withID.IDToken, withID.AccessToken)
	}

	withAccess := withID.WithCredential("at-456", CredentialAccessToken)
	if withAccess.AccessToken != "at-456" || withAccess.IDToken != "" {
		t.Fatalf("expected only access_token set, got id=%q access=%q", withAccess.IDToken, withAccess.AccessToken)
	}
}

func TestFormValuesMirrorJSONFields(t *testing.T) {
	payload := BuildAccountPayload(VerifiedIdentity{Email: "jane@example.com", Name: "Jane Doe", Picture: "p.png"})
	payload = payload.WithCredential("id-123", CredentialIDToken)

	values := payload.FormValues()
	if values.Get("username") != "jane" {
		t.Fatalf("expected username jane, got %q", values.Get("username"))
	}
	if values.Get("first_name") != "Jane" || values.Get("last_name") != "Doe" {
		t.Fatalf("unexpected name fields: %q %q", values.Get("first_name"), values.Get("last_name"))
	}
	if values.Get("id_token") != "id-123" {
		t.Fatalf("expected id_token carried in form values, got %q", values.Get("id_token"))
	}
	if values.Has("access_token") {
		t.Fatal("expected no access_token field for an id_token credential")
	}
}
