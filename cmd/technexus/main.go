// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the Tech Nexus API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"technexus/internal/auth"
	"technexus/internal/config"
	"technexus/internal/database"
	"technexus/internal/handlers"
	"technexus/internal/localcache"
	"technexus/internal/metrics"
	"technexus/internal/middleware"
	"technexus/internal/router"
	"technexus/internal/session"
	"technexus/internal/storage"
	"technexus/internal/store"
	"technexus/internal/store/memstore"
	"technexus/internal/workspace"
)

func main() {
	// Load configuration first so the logger can follow APP_ENV.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: text in development, JSON everywhere else.
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"store", cfg.StoreBackend,
		"cache", cfg.CacheBackend,
	)

	// Remote entity store.
	var (
		remote workspace.Remote
		users  auth.Users
	)
	switch cfg.StoreBackend {
	case "memory":
		mem := memstore.New()
		remote = workspace.Remote{Articles: mem.Articles(), Comments: mem.Comments(), Profiles: mem.Profiles()}
		users = mem.Users()
		slog.Warn("using in-memory remote store, data is lost on restart")
	default:
		db := connectPostgres(cfg)
		defer db.Close()
		remote = workspace.Remote{
			Articles: store.NewArticleStore(db),
			Comments: store.NewCommentStore(db),
			Profiles: store.NewProfileStore(db),
		}
		users = store.NewUserStore(db)
	}

	// Local cache namespaces and browser registrations.
	var (
		pool     workspace.Pool
		registry session.Registry
	)
	switch cfg.CacheBackend {
	case "memory":
		pool = localcache.NewMemoryPool(session.DefaultTTL)
		registry = session.NewMemoryRegistry()
	default:
		valkeyClient, err := localcache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
		if err != nil {
			slog.Error("failed to connect to valkey", "error", err)
			os.Exit(1)
		}
		defer closeValkey(valkeyClient)
		pool = localcache.NewValkeyPool(valkeyClient, session.DefaultTTL)
		registry = session.NewValkeyRegistry(valkeyClient)
	}

	// In non-development environments, mark cookies as Secure (HTTPS-only).
	secureCookies := !cfg.IsDev()
	browsers := session.NewStore(registry, secureCookies)

	// Metrics registry with the Go runtime collectors.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	// Auth provider with whichever OAuth logins are configured.
	oauth := map[string]*auth.OAuthProvider{}
	for name, creds := range map[string][2]string{
		auth.ProviderGitHub: {cfg.GitHubClientID, cfg.GitHubClientSecret},
		auth.ProviderGoogle: {cfg.GoogleClientID, cfg.GoogleClientSecret},
	} {
		if p := auth.NewOAuthProvider(name, creds[0], creds[1], cfg.OAuthCallbackURL(name)); p != nil {
			oauth[name] = p
			slog.Info("oauth provider enabled", "provider", name)
		}
	}
	authSvc := auth.New(users, nil, auth.Config{
		Secret: []byte(cfg.JWTSecret),
		OAuth:  oauth,
	})

	// Connect to S3-compatible object storage (optional: app works without it).
	storageClient, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
	if err != nil {
		slog.Error("failed to initialize S3 storage", "error", err)
		os.Exit(1)
	}
	if storageClient != nil {
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	} else {
		slog.Warn("s3 storage not configured, thumbnail uploads disabled")
	}

	factory := workspace.NewFactory(pool, remote, authSvc, collector)

	authLimiter := middleware.NewRateLimiter(cfg.AuthRateLimit, time.Minute)
	defer authLimiter.Stop()

	r := router.New(router.Deps{
		API:         handlers.New(authSvc, browsers, storageClient, cfg.SiteURL),
		Browsers:    browsers,
		Workspaces:  factory,
		Metrics:     reg,
		AuthLimiter: authLimiter,
		CORSOrigins: cfg.CORSOrigins,
		Secure:      secureCookies,
	})

	// Create the HTTP server with sensible timeouts. ReadTimeout leaves room
	// for a 2 MB thumbnail upload on a slow connection.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

// connectPostgres opens the database, runs pending migrations and, in
// development, seeds demo data. Any failure is fatal.
func connectPostgres(cfg *config.Config) *sql.DB {
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}
	return db
}

func closeValkey(c *redis.Client) {
	if err := c.Close(); err != nil {
		slog.Warn("close valkey", "error", err)
	}
}
