package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/rentdesk/internal/account"
	"github.com/geocoder89/rentdesk/internal/auth"
	"github.com/geocoder89/rentdesk/internal/cache"
	"github.com/geocoder89/rentdesk/internal/config"
	"github.com/geocoder89/rentdesk/internal/db"
	httpx "github.com/geocoder89/rentdesk/internal/http"
	"github.com/geocoder89/rentdesk/internal/http/handlers"
	"github.com/geocoder89/rentdesk/internal/oauth"
	"github.com/geocoder89/rentdesk/internal/observability"
	"github.com/geocoder89/rentdesk/internal/repo/memory"
	"github.com/geocoder89/rentdesk/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx := context.Background()

	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName: "rentdesk",
			Endpoint:    cfg.OTLPEndpoint,
		})
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(sctx)
		}()
	}

	prom := observability.NewProm(prometheus.DefaultRegisterer)
	checks := map[string]handlers.Pinger{}

	deps := httpx.Deps{Prom: prom, Checks: checks}

	switch cfg.Store {
	case config.StorePostgres:
		pool, err := db.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := db.EnsureSchema(ctx, pool); err != nil {
			return err
		}

		deps.Users = postgres.NewUsersRepo(pool, prom)
		deps.Products = postgres.NewProductsRepo(pool, prom)
		checks["postgres"] = pool.Ping
	default:
		log.Warn("using in-memory store; data is lost on restart")
		deps.Users = memory.NewUsersRepo()
		deps.Products = memory.NewProductsRepo()
	}

	created, err := db.EnsureSuperuser(ctx, deps.Users, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		log.Info("superuser created", "email", cfg.AdminEmail)
	}

	var tokenCache cache.Store
	if cfg.RedisAddr != "" {
		rdb := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		store := cache.NewRedisStore(rdb, cfg.OAuthIntrospectPrefix)
		checks["redis"] = store.Ping
		tokenCache = store
	} else {
		tokenCache = cache.New(cfg.OAuthIntrospectTTL)
	}

	oauthClient := oauth.NewClient(oauth.Config{
		BaseURL:      cfg.OAuthBaseURL,
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
	}, prom)

	switch cfg.OAuthTokenFormat {
	case config.TokenFormatJWT:
		deps.Verifier = auth.NewJWTVerifier(cfg.OAuthJWTSecret)
	default:
		deps.Verifier = auth.NewIntrospectionVerifier(oauthClient, tokenCache, cfg.OAuthIntrospectTTL, prom)
	}

	deps.Accounts = account.NewService(deps.Users, oauthClient, deps.Verifier, cfg.OAuthLoginTimeout, log)
	deps.Health = handlers.NewHealthHandler(checks)

	router := httpx.NewRouter(log, cfg, deps)

	// the login grant may take up to OAuthLoginTimeout, so writes must outlast it
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.OAuthLoginTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.Store, "token_format", cfg.OAuthTokenFormat)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	log.Info("server shutting down")
	deps.Health.Drain()

	sctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("shutdown complete")

	return nil
}
