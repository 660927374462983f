package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/crewsight/crewsight/internal/config"
	"github.com/crewsight/crewsight/internal/health"
	"github.com/crewsight/crewsight/internal/http/handler"
	"github.com/crewsight/crewsight/internal/http/middleware"
	"github.com/crewsight/crewsight/internal/http/router"
	"github.com/crewsight/crewsight/internal/observability"
	"github.com/crewsight/crewsight/internal/repository"
	"github.com/crewsight/crewsight/internal/security"
	"github.com/crewsight/crewsight/internal/service"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	DB            *gorm.DB
	Redis         redis.UniversalClient
	Observability *observability.Runtime
}

// Build assembles the full dependency graph: store, services, handlers,
// router, server. Redis is optional; without it rate limiting stays
// in-process.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, lp, err := observability.InitLogger(ctx, cfg)
	if err != nil {
		return nil, err
	}
	runtime, err := observability.InitRuntime(ctx, cfg, logger, lp)
	if err != nil {
		return nil, err
	}

	db, err := repository.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(db); err != nil {
		return nil, err
	}

	teams := repository.NewTeamRepository(db)
	users := repository.NewUserRepository(db)
	catalog := repository.NewCatalogRepository(db)
	sessions := repository.NewSessionRepository(db)
	activities := repository.NewActivityRepository(db)
	logs := repository.NewPluginLogRepository(db)

	tokens := security.NewSessionTokenManager(cfg.SessionIssuer, cfg.SessionAudience, cfg.SessionSecret)
	resolver := service.NewIdentityResolver(teams, users, tokens)
	registry := service.NewSessionRegistry(sessions, catalog)
	aggregator := service.NewActivityAggregator(sessions, activities)
	ingestor := service.NewLogIngestor(logs)
	setup := service.NewSetupService(teams)
	auth := service.NewAuthService(teams, users, tokens, cfg.SessionTTL)
	directory := service.NewDirectoryService(catalog, users)

	checkers := []health.Checker{health.NewDatabaseChecker(db)}
	var redisClient redis.UniversalClient
	var globalLimiter, logLimiter func(http.Handler) http.Handler
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		checkers = append(checkers, health.NewRedisChecker(redisClient))
		backend := middleware.NewRedisLimiter(redisClient, "crewsight")
		globalLimiter = middleware.NewRateLimiterWith(
			backend, cfg.APIRateLimitRPM, time.Minute, middleware.FailOpen, "api", nil,
		).Middleware()
		logLimiter = middleware.NewRateLimiterWith(
			backend, cfg.LogIngestRateLimitRPM, time.Minute, middleware.FailOpen, "log_ingest", middleware.BearerOrIPKey,
		).Middleware()
	}

	h := router.NewRouter(router.Dependencies{
		SetupHandler:          handler.NewSetupHandler(setup),
		AuthHandler:           handler.NewAuthHandler(auth, cfg.CookieSecure),
		ActivityHandler:       handler.NewActivityHandler(aggregator),
		SessionHandler:        handler.NewSessionHandler(registry, aggregator),
		LogHandler:            handler.NewLogHandler(ingestor),
		AdminHandler:          handler.NewAdminHandler(ingestor, directory),
		Resolver:              resolver,
		CORSOrigins:           cfg.CORSOrigins,
		APIRateLimitRPM:       cfg.APIRateLimitRPM,
		LogIngestRateLimitRPM: cfg.LogIngestRateLimitRPM,
		GlobalRateLimiter:     globalLimiter,
		LogRateLimiter:        logLimiter,
		Readiness:             health.NewProbeRunner(2*time.Second, checkers...),
		EnableOTelHTTP:        cfg.OTELTracesEnabled,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		Server:        server,
		DB:            db,
		Redis:         redisClient,
		Observability: runtime,
	}, nil
}

// Run serves until the context is canceled or SIGINT/SIGTERM arrives, then
// drains connections and flushes telemetry.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info("http server listening", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		a.Logger.Info("shutting down")
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.Server.Shutdown(drainCtx)
	})

	err := g.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if oerr := a.Observability.Shutdown(flushCtx); oerr != nil {
		a.Logger.Warn("observability shutdown", "error", oerr.Error())
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if sqlDB, derr := a.DB.DB(); derr == nil {
		_ = sqlDB.Close()
	}
	return err
}
