package http

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"storefront/internal/config"
	"storefront/internal/session"
)

// RouterDeps bundles the collaborators the router wires into handlers.
type RouterDeps struct {
	Verifier credentialVerifier
	Relay    backendRelay
	Store    session.Store
	// Google is optional; the code-flow routes are registered only when set.
	Google googleAuthenticator
	Logger *slog.Logger
}

// NewRouter wires application routes and middleware using chi.
func NewRouter(cfg config.Config, deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(newSecurityHeadersMiddleware(cfg.Environment))
	r.Use(newSlogMiddleware(deps.Logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"environment": cfg.Environment,
		})
	})

	cookies := session.NewCookieIssuer(cfg.Environment)
	authHandler := NewAuthHandler(deps.Verifier, deps.Relay, deps.Store, cookies, deps.Logger)
	permissionHandler := NewPermissionHandler(deps.Relay, deps.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.Signup)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/google/signin", authHandler.GoogleSignIn)
			r.Post("/google/signup", authHandler.GoogleSignUp)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)
			r.Get("/session", authHandler.SessionStatus)

			if deps.Google != nil {
				oauthHandler := NewOAuthHandler(deps.Google, authHandler, cfg.FrontendURL, cfg.Environment, deps.Logger)
				r.Get("/google", oauthHandler.Initiate)
				r.Get("/google/callback", oauthHandler.Callback)
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(newSessionAuthMiddleware(deps.Store, deps.Logger))

			r.Route("/permissions", func(r chi.Router) {
				r.Get("/", permissionHandler.List)
				r.Post("/", permissionHandler.Create)
			})
			r.Route("/users/{id}/permissions", func(r chi.Router) {
				r.Get("/", permissionHandler.UserPermissions)
				r.Put("/", permissionHandler.UpdateUserPermissions)
			})
		})
	})

	r.NotFound(http.NotFoundHandler().ServeHTTP)

	return r
}
