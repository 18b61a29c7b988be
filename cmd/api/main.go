package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prospecting_backend/internal/archive"
	"prospecting_backend/internal/email"
	apphttp "prospecting_backend/internal/http"
	"prospecting_backend/internal/http/router"
	"prospecting_backend/internal/leads"
	"prospecting_backend/internal/notification"
	"prospecting_backend/internal/provider"
	"prospecting_backend/internal/scheduler"
	"prospecting_backend/internal/workflows"
	"prospecting_backend/platform/config"
	"prospecting_backend/platform/db"
	eventbus "prospecting_backend/platform/events"
	"prospecting_backend/platform/logger"
	"prospecting_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if cfg.MigrationsEnabled {
		if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
			return db.RunMigrations(ctx, pool)
		}); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")
	}

	// Event bus for decoupled communication between modules
	eventBus := eventbus.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	payloadArchive := initArchive(ctx, cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(sender, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	leadsModule := leads.NewModule(pool, cfg, log)

	deps := workflows.Deps{
		Pool:         pool,
		Leads:        leadsModule.Repository(),
		Orchestrator: leadsModule.Orchestrator(),
		Provider:     provider.NewClient(cfg, log),
		Bus:          eventBus,
		Config:       cfg,
		Validator:    val,
		Log:          log,
		Archiver:     payloadArchive,
	}

	runLock, closeRunLock := initRunLock(cfg, log)
	if closeRunLock != nil {
		defer closeRunLock()
	}
	if runLock != nil {
		deps.Locker = runLock
		deps.LockTTL = cfg.GetRunLockTTL()
	}

	runQueue, closeRunQueue := initRunQueue(cfg, log)
	if closeRunQueue != nil {
		defer closeRunQueue()
	}
	if runQueue != nil {
		deps.Enqueuer = runQueue
	}

	workflowsModule := workflows.NewModule(deps)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			workflowsModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initArchive returns the MinIO payload archive, or a no-op one when object
// storage is not configured.
func initArchive(ctx context.Context, cfg *config.Config, log *logger.Logger) archive.Archiver {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MINIO_ENDPOINT not configured; provider payload archive disabled")
		return archive.Noop{}
	}

	store, err := archive.NewMinIOArchiver(cfg)
	if err != nil {
		log.Error("failed to initialize payload archive", "error", err)
		panic("failed to initialize payload archive: " + err.Error())
	}
	if err := withRetry(ctx, log, "ensure archive bucket", 5, 2*time.Second, func() error {
		return store.EnsureBucketExists(ctx)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", store.Bucket())
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("payload archive initialized", "bucket", store.Bucket())
	return store
}

func initRunLock(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.RunLock, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; concurrent runs of a workflow are not prevented")
		return nil, nil
	}

	lock, err := scheduler.NewRunLock(cfg, log)
	if err != nil {
		log.Error("failed to initialize run lock", "error", err)
		return nil, nil
	}

	return lock, func() {
		_ = lock.Close()
	}
}

func initRunQueue(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; background workflow runs disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
