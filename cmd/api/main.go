package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"storefront/internal/auth"
	"storefront/internal/config"
	transporthttp "storefront/internal/http"
	"storefront/internal/platform/database"
	"storefront/internal/platform/logging"
	"storefront/internal/platform/migrate"
	"storefront/internal/relay"
	"storefront/internal/session"
)

const sessionCleanupInterval = time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel)

	store, cleanup, err := buildSessionStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize session store", "error", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	outbound := &http.Client{Timeout: 10 * time.Second}
	verifier := auth.NewGoogleVerifier(outbound)
	backend := relay.NewClient(cfg.BackendAPIURL, outbound, relay.WithFormFallback(cfg.RelayFormFallback))
	if cfg.BackendAPIURL == "" {
		logger.Warn("BACKEND_API_URL is not set; relay endpoints will fail closed")
	}

	deps := transporthttp.RouterDeps{
		Verifier: verifier,
		Relay:    backend,
		Store:    store,
		Logger:   logger,
	}

	if cfg.OAuthEnabled() {
		google, err := auth.NewGoogleAuthenticator(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
		if err != nil {
			logger.Error("failed to initialize google oauth", "error", err)
			os.Exit(1)
		}
		deps.Google = google
		logger.Info("google oauth code flow enabled")
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}

	go cleanupExpiredSessions(ctx, store, logger)

	go func() {
		logger.Info("storefront gateway listening", "addr", srv.Addr, "store", cfg.DataStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func buildSessionStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (session.Store, func(), error) {
	if cfg.UseInMemoryStore() {
		logger.Info("using in-memory session store")
		return session.NewInMemoryStore(), nil, nil
	}

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = db.Close()
	}

	if err := migrate.Apply(ctx, db, logger); err != nil {
		cleanup()
		return nil, nil, err
	}

	logger.Info("connected to postgres")
	return session.NewPostgresStore(db), cleanup, nil
}

func cleanupExpiredSessions(ctx context.Context, store session.Store, logger *slog.Logger) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.DeleteExpired(ctx)
			if err != nil {
				logger.Error("session cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Info("expired sessions removed", "count", removed)
			}
		}
	}
}
