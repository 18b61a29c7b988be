package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prospecting_backend/internal/archive"
	"prospecting_backend/internal/email"
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

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	if cfg.GetRedisURL() == "" {
		panic("REDIS_URL is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := eventbus.NewInMemoryBus(log)
	defer eventBus.Wait()

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	notificationModule := notification.New(sender, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	var payloadArchive archive.Archiver = archive.Noop{}
	if cfg.IsMinIOEnabled() {
		store, err := archive.NewMinIOArchiver(cfg)
		if err != nil {
			log.Error("failed to initialize payload archive", "error", err)
			panic("failed to initialize payload archive: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure archive bucket", 5, 2*time.Second, func() error {
			return store.EnsureBucketExists(ctx)
		}); err != nil {
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		payloadArchive = store
	}

	runLock, err := scheduler.NewRunLock(cfg, log)
	if err != nil {
		log.Error("failed to initialize run lock", "error", err)
		panic("failed to initialize run lock: " + err.Error())
	}
	defer func() { _ = runLock.Close() }()

	// Worker-side run wiring (no HTTP handlers required).
	leadsModule := leads.NewModule(pool, cfg, log)
	workflowsModule := workflows.NewModule(workflows.Deps{
		Pool:         pool,
		Leads:        leadsModule.Repository(),
		Orchestrator: leadsModule.Orchestrator(),
		Provider:     provider.NewClient(cfg, log),
		Bus:          eventBus,
		Config:       cfg,
		Validator:    validator.New(),
		Log:          log,
		Archiver:     payloadArchive,
		Locker:       runLock,
		LockTTL:      cfg.GetRunLockTTL(),
	})

	worker, err := scheduler.NewWorker(cfg, workflowsModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	worker.Run(ctx)
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
