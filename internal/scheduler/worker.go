package scheduler

import (
	"context"
	"fmt"

	"prospecting_backend/platform/apperr"
	"prospecting_backend/platform/config"
	"prospecting_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// WorkflowRunner executes one queued workflow run.
type WorkflowRunner interface {
	RunQueued(ctx context.Context, workflowID, companyID uuid.UUID, identifiers []string) error
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	runner WorkflowRunner
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, runner WorkflowRunner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		runner: runner,
		log:    log,
	}

	mux.HandleFunc(TaskWorkflowRun, w.handleWorkflowRun)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleWorkflowRun(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseWorkflowRunPayload(task)
	if err != nil {
		return fmt.Errorf("decode workflow run payload: %v: %w", err, asynq.SkipRetry)
	}

	workflowID, err := uuid.Parse(payload.WorkflowID)
	if err != nil {
		return fmt.Errorf("workflow id: %v: %w", err, asynq.SkipRetry)
	}

	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return fmt.Errorf("tenant id: %v: %w", err, asynq.SkipRetry)
	}

	return runResult(w.runner.RunQueued(ctx, workflowID, tenantID, payload.Identifiers))
}

// runResult tells asynq which failures are worth another attempt. A
// workflow that no longer validates will not fix itself.
func runResult(err error) error {
	switch apperr.GetKind(err) {
	case apperr.KindNotFound, apperr.KindValidation:
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	default:
		return err
	}
}
