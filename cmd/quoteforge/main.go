package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/quoteforge/quoteforge/internal/admin"
	"github.com/quoteforge/quoteforge/internal/app"
	"github.com/quoteforge/quoteforge/internal/auth"
	"github.com/quoteforge/quoteforge/internal/customers"
	"github.com/quoteforge/quoteforge/internal/ledger"
	"github.com/quoteforge/quoteforge/internal/observability"
	"github.com/quoteforge/quoteforge/internal/platform/cache"
	"github.com/quoteforge/quoteforge/internal/platform/db"
	"github.com/quoteforge/quoteforge/internal/products"
	"github.com/quoteforge/quoteforge/internal/quotes"
	"github.com/quoteforge/quoteforge/internal/render"
	"github.com/quoteforge/quoteforge/internal/shared"
	"github.com/quoteforge/quoteforge/internal/snapshot"
	"github.com/quoteforge/quoteforge/internal/store"
	"github.com/quoteforge/quoteforge/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	remoteStore := store.New(dbpool, logger)
	if err := remoteStore.EnsureSchema(ctx); err != nil {
		logger.Error("ensure schema", slog.Any("error", err))
		os.Exit(1)
	}

	snapshotStore := snapshot.NewStore(redisClient, cfg.SnapshotKey)
	stateLedger := ledger.New()
	hydrate(ctx, logger, stateLedger, snapshotStore, remoteStore)

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	publisher := snapshot.NewPublisher(stateLedger, snapshotStore, jobClient, logger)
	go func() {
		// Periodic resync covers any persist notification lost to a redis
		// or queue hiccup.
		ticker := time.NewTicker(cfg.SnapshotInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				publisher.StateChanged(ctx)
			}
		}
	}()

	metrics := observability.NewMetrics()

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, stateLedger, publisher)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	productsService := products.NewService(stateLedger, publisher, metrics, logger)
	productsHandler := products.NewHandler(logger, productsService)

	customersService := customers.NewService(stateLedger, publisher, metrics, logger)
	customersHandler := customers.NewHandler(logger, customersService)

	quotesService := quotes.NewService(stateLedger, render.New(), publisher, metrics, logger)
	quotesHandler := quotes.NewHandler(logger, quotesService)

	adminService := admin.NewService(stateLedger, remoteStore, publisher, metrics, logger)
	adminHandler := admin.NewHandler(logger, adminService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		ProductsHandler:  productsHandler,
		CustomersHandler: customersHandler,
		QuotesHandler:    quotesHandler,
		AdminHandler:     adminHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// hydrate restores the ledger from the freshest source available: the local
// redis snapshot first, then the remote mirror, else fresh state.
func hydrate(ctx context.Context, logger *slog.Logger, l *ledger.Ledger, snapshots *snapshot.Store, remote *store.Store) {
	data, err := snapshots.Load(ctx)
	if err != nil {
		logger.Warn("load local snapshot", slog.Any("error", err))
	}
	if data != nil {
		if err := l.Restore(data); err != nil {
			logger.Warn("restore local snapshot", slog.Any("error", err))
		} else {
			logger.Info("state restored", slog.String("source", "snapshot"))
			return
		}
	}

	exp, ok, err := remote.LoadState(ctx)
	if err != nil {
		logger.Warn("load remote state", slog.Any("error", err))
		return
	}
	if ok {
		l.Import(exp)
		logger.Info("state restored", slog.String("source", "remote"))
		return
	}
	logger.Info("starting with fresh state")
}
