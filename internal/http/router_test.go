package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/relay"
	"storefront/internal/session"
)

// newTestRouter wires the full middleware and handler stack against a mocked
// Google API and a mocked backend, returning the router plus hit counters.
func newTestRouter(t *testing.T, backendHandler http.HandlerFunc) (http.Handler, *session.InMemoryStore, *int64, *int64) {
	t.Helper()

	var googleHits, backendHits int64

	googleSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&googleHits, 1)
		if r.URL.Path != "/oauth2/v3/tokeninfo" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("id_token") != "valid-token" {
			http.Error(w, `{"error":"invalid_token"}`, http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"email":   "jane@example.com",
			"name":    "Jane Doe",
			"picture": "https://example.com/jane.png",
		})
	}))
	t.Cleanup(googleSrv.Close)

	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&backendHits, 1)
		backendHandler(w, r)
	}))
	t.Cleanup(backendSrv.Close)

	cfg := config.Config{
		Environment:    "development",
		AllowedOrigins: []string{"*"},
		BackendAPIURL:  backendSrv.URL,
	}

	store := session.NewInMemoryStore()
	deps := RouterDeps{
		Verifier: auth.NewGoogleVerifier(nil, auth.WithGoogleAPIBaseURL(googleSrv.URL)),
		Relay:    relay.NewClient(backendSrv.URL, nil),
		Store:    store,
		Logger:   testLogger(),
	}

	return NewRouter(cfg, deps), store, &googleHits, &backendHits
}

func TestRouterGoogleSignInEndToEnd(t *testing.T) {
	router, store, _, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/google/signin/" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		var payload auth.AccountPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}
		if payload.Username != "jane" || payload.UserType != "customer" {
			http.Error(w, "unexpected payload", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access": "tok123",
			"user":   map[string]any{"id": 1, "email": payload.Email},
		})
	})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/google/signin", strings.NewReader(`{"id_token":"valid-token"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["message"] != "Successfully signed in with Google" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
	user, ok := body["user"].(map[string]any)
	if !ok || user["email"] != "jane@example.com" {
		t.Fatalf("expected backend user in response, got %v", body["user"])
	}

	cookie := responseCookie(t, rec, session.CookieName)
	if cookie == nil {
		t.Fatal("expected auth_token cookie")
	}
	if cookie.Value != "tok123" || !cookie.HttpOnly || cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("unexpected cookie attributes: %+v", cookie)
	}

	if sess, _ := store.Get(req.Context(), session.HashToken("tok123")); sess == nil {
		t.Fatal("expected session persisted through the full stack")
	}
}

func TestRouterGoogleSignInMissingTokenShortCircuits(t *testing.T) {
	router, _, googleHits, backendHits := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/google/signin", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Missing token") {
		t.Fatalf("expected missing token error, got %s", rec.Body.String())
	}
	if *googleHits != 0 || *backendHits != 0 {
		t.Fatalf("expected no upstream traffic, got google=%d backend=%d", *googleHits, *backendHits)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("expected no cookies on failure")
	}
}

func TestRouterGoogleSignInRejectedCredentialKeepsBackendUntouched(t *testing.T) {
	router, _, _, backendHits := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/google/signin", strings.NewReader(`{"id_token":"forged"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	if *backendHits != 0 {
		t.Fatalf("expected no backend traffic on rejected credential, got %d", *backendHits)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("expected no cookies on failure")
	}
}

func TestRouterHealthEndpoint(t *testing.T) {
	router, _, _, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("expected security headers applied")
	}
}

func TestRouterPermissionRoutesRequireSession(t *testing.T) {
	router, _, _, backendHits := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/permissions/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
	if *backendHits != 0 {
		t.Fatalf("expected no backend traffic without a session, got %d", *backendHits)
	}
}

func TestRouterPermissionProxyForwardsBearer(t *testing.T) {
	var gotAuth, gotPath string
	router, store, _, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[{"id":1,"name":"catalog:read"}]`))
	})

	_ = store.Save(context.Background(), session.New("tok123", "", json.RawMessage(`{"id":1}`)))

	req := httptest.NewRequest(http.MethodGet, "/api/users/42/permissions/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "tok123"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotAuth != "Bearer tok123" {
		t.Fatalf("expected bearer forwarded, got %q", gotAuth)
	}
	if gotPath != "/api/users/42/permissions/" {
		t.Fatalf("unexpected backend path %q", gotPath)
	}
	if rec.Body.String() != `[{"id":1,"name":"catalog:read"}]` {
		t.Fatalf("expected backend body verbatim, got %s", rec.Body.String())
	}
}
