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

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/icarus-art/icarus/internal/accounts"
	"github.com/icarus-art/icarus/internal/app"
	"github.com/icarus-art/icarus/internal/auth"
	"github.com/icarus-art/icarus/internal/observability"
	"github.com/icarus-art/icarus/internal/pages"
	"github.com/icarus-art/icarus/internal/platform/cache"
	"github.com/icarus-art/icarus/internal/platform/db"
	"github.com/icarus-art/icarus/internal/posts"
	"github.com/icarus-art/icarus/internal/shared"
	"github.com/icarus-art/icarus/internal/view"
	"github.com/icarus-art/icarus/internal/waitlist"
	"github.com/icarus-art/icarus/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer dbpool.Close()

	if cfg.DBMigrate {
		if err := db.Migrate(ctx, dbpool); err != nil {
			return err
		}
		logger.Info("database migrated")
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		return err
	}
	metrics := observability.NewMetrics()

	authService := auth.NewService(auth.NewRepository(dbpool), sessionManager, logger)
	accountService := accounts.NewService(accounts.NewRepository(dbpool), auth.NewHasher(cfg.BcryptCost), authService, cfg.AccountsConfig())
	waitlistService := waitlist.NewService(waitlist.NewRepository(dbpool))
	postService := posts.NewService(posts.NewRepository(dbpool))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		AccountService:  accountService,
		AccountsHandler: accounts.NewHandler(logger, accountService, authService, metrics),
		WaitlistHandler: waitlist.NewHandler(logger, waitlistService, metrics),
		PostsHandler:    posts.NewHandler(logger, postService, metrics),
		PagesHandler: pages.NewHandler(logger, templates, csrfManager, accountService, postService, authService, metrics, pages.Config{
			AppName:      cfg.AppName,
			Tagline:      cfg.AppTagline,
			DefaultTheme: cfg.AccountsConfig().DefaultTheme,
		}),
		Metrics: metrics,
		HealthChecks: map[string]app.HealthCheck{
			"postgres": dbpool.Ping,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
		JobsHandler: jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
