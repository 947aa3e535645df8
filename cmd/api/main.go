package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/alohawaii-travel/api/pkg/accounts"
	"github.com/alohawaii-travel/api/pkg/api"
	"github.com/alohawaii-travel/api/pkg/audit"
	"github.com/alohawaii-travel/api/pkg/auth"
	"github.com/alohawaii-travel/api/pkg/config"
	"github.com/alohawaii-travel/api/pkg/middleware"
	"github.com/alohawaii-travel/api/pkg/observability"
	"github.com/alohawaii-travel/api/pkg/sso"
	"github.com/alohawaii-travel/api/pkg/storage/postgres"
	"github.com/alohawaii-travel/api/pkg/tours"
	"github.com/alohawaii-travel/api/pkg/whitelist"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if err := postgres.RunMigrations(ctx, db, logger); err != nil {
		db.Close()
		return err
	}
	postgres.ExportPoolStats(ctx, db, metrics, 0)

	registry, err := auth.NewRegistry(cfg.Auth.APIKeys)
	if err != nil {
		db.Close()
		return err
	}
	issuer, err := auth.NewTokenIssuer(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL,
		auth.WithIssuer(cfg.Auth.SessionIssuer))
	if err != nil {
		db.Close()
		return err
	}
	gate := auth.NewGate(registry, issuer,
		auth.WithStrictOrigin(cfg.Auth.StrictOrigin),
		auth.WithLogger(logger),
		auth.WithMetrics(metrics))

	whitelistStore := whitelist.NewPostgresStore(db)
	checker := whitelist.NewChecker(cfg.Auth.AllowedDomains, whitelistStore, logger)

	dbRecorder := audit.NewDBRecorder(db)
	recorder := audit.NewMultiRecorder(audit.NewLogRecorder(logger), dbRecorder)

	accountStore := accounts.NewPostgresStore(db)
	lifecycle := accounts.NewLifecycleController(accountStore, checker,
		accounts.WithLogger(logger),
		accounts.WithMetrics(metrics),
		accounts.WithRecorder(recorder))

	provider, err := sso.NewGoogleProvider(ctx, sso.Config{
		ClientID:     cfg.SSO.GoogleClientID,
		ClientSecret: cfg.SSO.GoogleClientSecret,
		RedirectURL:  cfg.SSO.GoogleRedirectURL,
	})
	if err != nil {
		db.Close()
		return err
	}
	ssoHandler := sso.NewHandler(provider, lifecycle, issuer,
		sso.WithLogger(logger),
		sso.WithSecureCookies(cfg.Auth.SecureCookies),
		sso.WithRecorder(recorder))

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst,
			middleware.WithCredentialRegistry(registry))
		limiter.StartCleanup(ctx)
	}

	router := api.NewRouter(api.Deps{
		Gate:           gate,
		SSOHandler:     ssoHandler,
		AccountStore:   accountStore,
		TourStore:      tours.NewPostgresStore(db),
		WhitelistStore: whitelistStore,
		Checker:        checker,
		Recorder:       recorder,
		AuditReader:    dbRecorder,
		RateLimiter:    limiter,
		Logger:         logger,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: api.NewHealthRouter(observability.NewHealthChecker(db), metrics),
	}

	go func() {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
		}
	}()

	go func() {
		logger.WithFields(map[string]interface{}{
			"addr":          server.Addr,
			"strict_origin": cfg.Auth.StrictOrigin,
			"api_keys":      registry.Len(),
		}).Info("api server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("api server failed")
			cancel()
		}
	}()

	manager := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	manager.RegisterShutdownFunc(func(shutdownCtx context.Context) error {
		return healthServer.Shutdown(shutdownCtx)
	})
	manager.RegisterShutdownFunc(func(context.Context) error {
		return recorder.Close()
	})
	manager.RegisterShutdownFunc(func(context.Context) error {
		return db.Close()
	})
	return manager.WaitForShutdown()
}
