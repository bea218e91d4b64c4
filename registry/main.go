package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trustreg-labs/trustreg-go/internal/hub"
	"github.com/trustreg-labs/trustreg-go/internal/llm"
	"github.com/trustreg-labs/trustreg-go/internal/metrics"
	"github.com/trustreg-labs/trustreg-go/internal/platform/auditlog"
	"github.com/trustreg-labs/trustreg-go/internal/platform/auth"
	"github.com/trustreg-labs/trustreg-go/internal/platform/env"
	"github.com/trustreg-labs/trustreg-go/internal/platform/httpserver"
	"github.com/trustreg-labs/trustreg-go/internal/platform/objectstore"
	"github.com/trustreg-labs/trustreg-go/internal/platform/postgres"
	"github.com/trustreg-labs/trustreg-go/internal/scoring"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := env.String("REGISTRY_HTTP_ADDR", ":8080")
	shutdownTimeout, err := env.Duration("REGISTRY_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	dbCfg, err := postgres.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid database config", "error", err)
		os.Exit(2)
	}
	db, err := postgres.Open(ctx, dbCfg)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := ensureSchema(schemaCtx, db); err != nil {
		cancel()
		logger.Error("schema bootstrap failed", "error", err)
		os.Exit(1)
	}
	cancel()

	storeCfg, err := objectstore.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid object store config", "error", err)
		os.Exit(2)
	}
	storeClient, err := objectstore.NewMinIOClient(storeCfg)
	if err != nil {
		logger.Error("object store client init failed", "error", err)
		os.Exit(2)
	}
	startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := objectstore.EnsureBuckets(startupCtx, storeClient, storeCfg); err != nil {
		cancel()
		logger.Error("object store unavailable", "error", err)
		os.Exit(1)
	}
	cancel()

	authCfg, err := auth.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid auth config", "error", err)
		os.Exit(2)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", httpserver.Healthz("registry"))
	mux.HandleFunc(
		"/readyz",
		httpserver.ReadyzWithChecks(
			"registry",
			httpserver.ReadinessCheck{
				Name: "postgres",
				Check: func(ctx context.Context) error {
					checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
					defer cancel()
					return db.PingContext(checkCtx)
				},
			},
			httpserver.ReadinessCheck{
				Name: "minio",
				Check: func(ctx context.Context) error {
					checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
					defer cancel()
					return objectstore.CheckBuckets(checkCtx, storeClient, storeCfg)
				},
			},
		),
	)

	var authenticator auth.Authenticator
	skipPrefixes := []string{"/healthz", "/readyz"}
	switch authCfg.Mode {
	case auth.ModeOIDC:
		oidcSvc, err := auth.NewOIDCService(ctx, authCfg)
		if err != nil {
			logger.Error("oidc init failed", "error", err)
			os.Exit(1)
		}
		login, err := oidcSvc.LoginHandler()
		if err != nil {
			logger.Error("oidc login handler init failed", "error", err)
			os.Exit(2)
		}
		callback, err := oidcSvc.CallbackHandler()
		if err != nil {
			logger.Error("oidc callback handler init failed", "error", err)
			os.Exit(2)
		}
		mux.HandleFunc("GET /auth/login", login)
		mux.HandleFunc("GET /auth/callback", callback)
		mux.HandleFunc("POST /auth/logout", oidcSvc.LogoutHandler())
		authenticator = oidcSvc
		skipPrefixes = append(skipPrefixes, "/auth/")
	case auth.ModeDev:
		authenticator = auth.NewDevAuthenticator(authCfg)
		logger.Warn("dev auth mode enabled; do not use in production")
	case auth.ModeDisabled:
		logger.Warn("auth disabled; all requests are anonymous")
	}

	hubCfg, err := hub.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid hub config", "error", err)
		os.Exit(2)
	}
	gatherer := hub.NewClient(hubCfg, nil, logger)
	model, err := llm.NewModel(llm.ConfigFromEnv())
	if err != nil {
		logger.Error("llm init failed", "error", err)
		os.Exit(2)
	}
	var generator llm.Generator
	if model != nil {
		generator = model
	}
	scorer := scoring.NewScorer(gatherer, metrics.All(generator), scoring.DefaultWeights(), logger)

	api := newRegistryAPI(logger, db, storeClient, storeCfg, scorer)
	api.register(mux)

	handler := auth.Middleware{
		Logger:        logger,
		Authenticator: authenticator,
		Authorize:     auth.MethodRoleAuthorizer(),
		Audit: func(ctx context.Context, event auth.DenyEvent) error {
			auditCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
			defer cancel()
			return auditlog.InsertAuthDeny(auditCtx, db, "registry", event)
		},
		SkipPrefixes: skipPrefixes,
	}.Wrap(mux)

	cfg := httpserver.Config{
		Service:         "registry",
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}

	if err := httpserver.Run(ctx, logger, cfg, httpserver.Wrap(logger, "registry", handler)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
