package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"feedengine/internal/accounts"
	"feedengine/internal/assets"
	"feedengine/internal/auth"
	"feedengine/internal/config"
	"feedengine/internal/feed"
	"feedengine/internal/handlers"
	"feedengine/internal/middleware"
	"feedengine/internal/router"
	"feedengine/internal/storage/sqlite"
	"feedengine/internal/telemetry"

	"github.com/gofrs/uuid/v5"
)

const version = "1.0.0"

type App struct {
	Server *http.Server
	Logger *slog.Logger
	Config *config.Config
}

func NewApp(cfg *config.Config, logger *slog.Logger, handler http.Handler) *App {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.Timeouts.Read,
		WriteTimeout: cfg.HTTP.Timeouts.Write,
		IdleTimeout:  cfg.HTTP.Timeouts.Idle,
	}

	return &App{
		Server: server,
		Logger: logger,
		Config: cfg,
	}
}

func (a *App) Run(ctx context.Context) error {
	srvErrChan := make(chan error, 1)

	go func() {
		a.Logger.Info("server starting", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErrChan <- err
		}
	}()

	select {
	case err := <-srvErrChan:
		return fmt.Errorf("server startup failed: %w", err)
	case <-ctx.Done():
		a.Logger.Info("shutdown signal received")
	}

	// attempt clean shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.HTTP.Timeouts.Shutdown)
	defer cancel()

	a.Logger.Info("draining connections...")
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		// graceful shutdown timed out
		if closeErr := a.Server.Close(); closeErr != nil {
			// both failed. Return combined error.
			return fmt.Errorf("graceful shutdown failed: %w", errors.Join(err, closeErr))
		}
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	a.Logger.Info("server stopped")
	return nil
}

func newAssetStore(cfg *config.Config) (assets.Store, error) {
	switch cfg.Assets.Backend {
	case "s3":
		return assets.NewS3Store(cfg.S3)
	default:
		return assets.NewLocalStore(cfg.Assets.Root)
	}
}

func main() {
	cfg := config.LoadWithDefaults()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("invalid configuration: %v", err))
	}

	stderr := os.Stderr
	logHandler := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.Logger.Level})
	logger := slog.New(logHandler).With("app", cfg.App.Name)

	// Add PID
	logger.Info("application starting", "pid", os.Getpid())
	logger.Info("configuration loaded",
		"name", cfg.App.Name,
		"env", cfg.App.Environment,
		"port", cfg.HTTP.Port,
		"db", cfg.DB.Path,
		"assets_backend", cfg.Assets.Backend,
		"rate_limit_rps", cfg.Limiter.RPS,
		"trusted_proxy", cfg.Proxy.Trusted,
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Init(rootCtx, cfg.App.Name, version, cfg.App.Environment, cfg.Telemetry.OtelEndpoint, cfg.Telemetry.EnableTelemetry, logger)
	if err != nil {
		logger.Error("telemetry init failed", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", "err", err)
		}
	}()

	metrics, err := telemetry.NewMetrics(tel.Meter)
	if err != nil {
		logger.Error("metrics init failed", "err", err)
		os.Exit(1)
	}

	store, err := sqlite.NewStore(cfg.DB.Path)
	if err != nil {
		logger.Error("could not open database", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Migrate(cfg.DB.MigrationsPath); err != nil {
		logger.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	assetStore, err := newAssetStore(cfg)
	if err != nil {
		logger.Error("could not create asset store", "err", err)
		os.Exit(1)
	}

	variantNamespace := uuid.FromStringOrNil(cfg.Assets.VariantNamespace)
	processor := assets.NewProcessor(rootCtx, assetStore, variantNamespace, cfg.Assets.VariantWorkers, logger)

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	passwords := auth.NewPasswords(cfg.Auth.BcryptCost)

	events := &feed.LogPublisher{Logger: logger}
	feedService := feed.NewService(store, assetStore, events, cfg.Feed.PageSize, logger)
	accountsService := accounts.NewService(store, tokens, passwords, logger)
	renderer := feed.NewMarkdownRenderer()

	limiter := middleware.NewIPRateLimiter(rootCtx, cfg.Limiter.RPS, cfg.Limiter.Burst, cfg.Proxy.Trusted, metrics)
	authLimiter := middleware.NewIPRateLimiter(rootCtx, 2, 5, cfg.Proxy.Trusted, metrics)
	authMiddleware := &middleware.Auth{Tokens: tokens, Logger: logger, Metrics: metrics}

	feedHandler := handlers.NewFeedHandler(feedService, renderer, logger, metrics)
	accountsHandler := handlers.NewAccountsHandler(accountsService, logger)
	assetHandler := &handlers.AssetHandler{
		Assets:    assetStore,
		Processor: processor,
		Tracer:    tel.Tracer,
		Metrics:   metrics,
		Logger:    logger,
	}

	router := router.NewRouter(router.RouterDependencies{
		Cfg:             cfg,
		Logger:          logger,
		FeedHandler:     feedHandler,
		AccountsHandler: accountsHandler,
		AssetHandler:    assetHandler,
		Auth:            authMiddleware,
		Limiter:         limiter,
		AuthLimiter:     authLimiter,
		Tracer:          tel.Tracer,
		Metrics:         metrics,
	})

	app := NewApp(cfg, logger, router)

	// run the app with context
	if err := app.Run(rootCtx); err != nil {
		logger.Error("server crashed", "err", err)
		os.Exit(1)
	}

	logger.Info("application exited successfully")
	os.Exit(0)
}
