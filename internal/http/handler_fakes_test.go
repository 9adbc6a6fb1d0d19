package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"log/slog"

	"storefront/internal/auth"
	"storefront/internal/relay"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeVerifier struct {
	identity auth.VerifiedIdentity
	err      error
	calls    int
	lastKind auth.CredentialKind
}

func (f *fakeVerifier) Verify(_ context.Context, _ string, kind auth.CredentialKind) (auth.VerifiedIdentity, error) {
	f.calls++
	f.lastKind = kind
	if f.err != nil {
		return auth.VerifiedIdentity{}, f.err
	}
	return f.identity, nil
}

type fakeRelay struct {
	cred *relay.Credential
	err  error

	postCalls     int
	fallbackCalls int
	forwardCalls  int

	lastPath    string
	lastPayload any
	lastMethod  string
	lastBearer  string

	forwardStatus int
	forwardBody   []byte
	forwardErr    error
}

func (f *fakeRelay) Post(_ context.Context, path string, payload any) (*relay.Credential, error) {
	f.postCalls++
	f.lastPath = path
	f.lastPayload = payload
	if f.err != nil {
		return nil, f.err
	}
	return f.cred, nil
}

func (f *fakeRelay) PostWithFallback(_ context.Context, path string, payload any, _ url.Values) (*relay.Credential, error) {
	f.fallbackCalls++
	f.lastPath = path
	f.lastPayload = payload
	if f.err != nil {
		return nil, f.err
	}
	return f.cred, nil
}

func (f *fakeRelay) Forward(_ context.Context, method, path string, body []byte, bearer string) (int, []byte, error) {
	f.forwardCalls++
	f.lastMethod = method
	f.lastPath = path
	f.lastPayload = body
	f.lastBearer = bearer
	if f.forwardErr != nil {
		return 0, nil, f.forwardErr
	}
	return f.forwardStatus, f.forwardBody, nil
}

func (f *fakeRelay) totalCalls() int {
	return f.postCalls + f.fallbackCalls + f.forwardCalls
}

func responseCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
