package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"prospecting_backend/internal/archive"
	"prospecting_backend/internal/events"
	leadsdomain "prospecting_backend/internal/leads/domain"
	"prospecting_backend/internal/leads/reconcile"
	"prospecting_backend/internal/provider"
	"prospecting_backend/internal/workflows/domain"
	"prospecting_backend/platform/apperr"
	"prospecting_backend/platform/config"
	eventbus "prospecting_backend/platform/events"
	"prospecting_backend/platform/logger"
	"prospecting_backend/platform/metrics"

	"github.com/google/uuid"
)

const (
	defaultPageSize     = 50
	defaultMaxPages     = 20
	defaultPostLimit    = 10
	defaultLockTTL      = 30 * time.Minute
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// RunOptions are the per-trigger overrides of a run.
type RunOptions struct {
	// Identifiers replaces the stored list of an identifiers workflow.
	Identifiers []string
}

// RunResult is what a synchronous run returns.
type RunResult struct {
	Workflow domain.Workflow
	Leads    []reconcile.ReconciledLead
}

// Service runs workflows.
type Service struct {
	workflows    WorkflowStore
	history      HistoryStore
	recorder     *Recorder
	leads        LeadLister
	orchestrator *reconcile.Orchestrator
	provider     ProfileProvider
	archiver     archive.Archiver
	locker       RunLocker
	lockTTL      time.Duration
	enqueuer     RunEnqueuer
	bus          eventbus.Bus
	pageSize     int
	maxPages     int
	postLimit    int
	now          func() time.Time
	log          *logger.Logger
}

// New creates the run service. Archiving, run locking and background runs
// are off until the matching setter is called.
func New(
	workflows WorkflowStore,
	history HistoryStore,
	leads LeadLister,
	orchestrator *reconcile.Orchestrator,
	provider ProfileProvider,
	bus eventbus.Bus,
	cfg config.ReconcileConfig,
	log *logger.Logger,
) *Service {
	s := &Service{
		workflows:    workflows,
		history:      history,
		recorder:     NewRecorder(history, log),
		leads:        leads,
		orchestrator: orchestrator,
		provider:     provider,
		archiver:     archive.Noop{},
		lockTTL:      defaultLockTTL,
		bus:          bus,
		pageSize:     defaultPageSize,
		maxPages:     defaultMaxPages,
		postLimit:    defaultPostLimit,
		now:          time.Now,
		log:          log,
	}
	if cfg != nil {
		if v := cfg.GetSearchPageSize(); v > 0 {
			s.pageSize = v
		}
		if v := cfg.GetMaxSearchPages(); v > 0 {
			s.maxPages = v
		}
		if v := cfg.GetReactionPostLimit(); v > 0 {
			s.postLimit = v
		}
	}
	return s
}

// SetArchiver enables raw payload archiving.
func (s *Service) SetArchiver(a archive.Archiver) {
	if a != nil {
		s.archiver = a
	}
}

// SetRunLocker makes runs of the same workflow mutually exclusive.
func (s *Service) SetRunLocker(l RunLocker, ttl time.Duration) {
	s.locker = l
	if ttl > 0 {
		s.lockTTL = ttl
	}
}

// SetEnqueuer enables background runs.
func (s *Service) SetEnqueuer(e RunEnqueuer) {
	s.enqueuer = e
}

// Get returns one workflow of the tenant.
func (s *Service) Get(ctx context.Context, companyID, id uuid.UUID) (domain.Workflow, error) {
	wf, err := s.workflows.GetWorkflow(ctx, id, companyID)
	if errors.Is(err, domain.ErrWorkflowNotFound) {
		return domain.Workflow{}, apperr.NotFound("workflow not found")
	}
	if err != nil {
		return domain.Workflow{}, apperr.Unavailable("load workflow", err)
	}
	return wf, nil
}

// History lists the newest runs of a workflow.
func (s *Service) History(ctx context.Context, companyID, id uuid.UUID, limit int) ([]domain.HistoryEntry, error) {
	if _, err := s.Get(ctx, companyID, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	entries, err := s.history.ListHistory(ctx, id, companyID, limit)
	if err != nil {
		return nil, apperr.Unavailable("list workflow history", err)
	}
	return entries, nil
}

// Enqueue validates the workflow and hands the run to the worker.
func (s *Service) Enqueue(ctx context.Context, companyID, id uuid.UUID, opts RunOptions) (domain.Workflow, error) {
	if s.enqueuer == nil {
		return domain.Workflow{}, apperr.Unavailable("background runs are not configured", nil)
	}
	wf, _, err := s.prepare(ctx, companyID, id, opts)
	if err != nil {
		return domain.Workflow{}, err
	}
	if err := s.enqueuer.EnqueueWorkflowRun(ctx, wf.ID, companyID, opts.Identifiers); err != nil {
		return domain.Workflow{}, apperr.Unavailable("enqueue workflow run", err)
	}
	return wf, nil
}

// RunQueued is the entry point of the background worker.
func (s *Service) RunQueued(ctx context.Context, workflowID, companyID uuid.UUID, identifiers []string) error {
	_, err := s.Run(ctx, companyID, workflowID, RunOptions{Identifiers: identifiers})
	return err
}

type outcome struct {
	status domain.RunStatus
	cursor string
	leads  []reconcile.ReconciledLead
	err    error
}

// Run executes the workflow synchronously. Validation failures return
// before anything is recorded; once the run starts exactly one history row
// is written, whatever happens.
func (s *Service) Run(ctx context.Context, companyID, id uuid.UUID, opts RunOptions) (RunResult, error) {
	wf, account, err := s.prepare(ctx, companyID, id, opts)
	if err != nil {
		return RunResult{}, err
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, "workflow-run:"+wf.ID.String(), s.lockTTL)
		if errors.Is(err, ErrRunInProgress) {
			return RunResult{}, apperr.Conflict("workflow run already in progress")
		}
		if err != nil {
			return RunResult{}, apperr.Unavailable("acquire run lock", err)
		}
		defer release()
	}

	r := run{
		wf:      wf,
		account: account,
		req: reconcile.UpsertRequest{
			CompanyID:  wf.CompanyID,
			ProviderID: wf.ProviderID,
			WorkflowID: wf.ID,
			Status:     leadsdomain.StatusSearched,
		},
		log: s.log.WithContext(ctx).With("workflow_id", wf.ID, "source", string(wf.Source), "kind", string(wf.Kind)),
	}

	out := &outcome{status: domain.RunFailed, cursor: wf.Cursor}
	defer s.finish(ctx, wf, out)

	r.log.Info("workflow run started")
	acquired, err := s.acquire(ctx, r, opts)
	if err != nil {
		out.err = err
		r.log.Error("workflow run failed", "error", err)
		return RunResult{}, apperr.Unavailable("workflow run failed", err)
	}

	updated, err := s.workflows.PatchAfterRun(ctx, wf.ID, companyID, domain.RunPatch{
		Cursor:         acquired.cursor,
		SearchCriteria: acquired.criteria,
		RanAt:          s.now(),
	})
	if err != nil {
		out.err = err
		r.log.DatabaseError("patch_workflow_after_run", err)
		return RunResult{}, apperr.Unavailable("store workflow run", err)
	}

	out.status = domain.RunSuccess
	out.cursor = acquired.cursor
	out.leads = acquired.leads
	r.log.Info("workflow run finished", "leads", len(acquired.leads), "cursor", acquired.cursor)
	return RunResult{Workflow: updated, Leads: acquired.leads}, nil
}

// finish records the outcome and announces it.
func (s *Service) finish(ctx context.Context, wf domain.Workflow, out *outcome) {
	s.recorder.Record(ctx, wf.ID, wf.CompanyID, out.cursor, out.status)
	metrics.WorkflowRuns.WithLabelValues(string(wf.Source), out.status.String()).Inc()

	if s.bus == nil {
		return
	}
	if out.status == domain.RunSuccess {
		created := 0
		for _, l := range out.leads {
			if l.Created {
				created++
			}
		}
		s.bus.Publish(ctx, events.WorkflowRunCompleted{
			BaseEvent:    eventbus.NewBaseEvent(),
			WorkflowID:   wf.ID,
			CompanyID:    wf.CompanyID,
			Source:       string(wf.Source),
			Cursor:       out.cursor,
			LeadsTotal:   len(out.leads),
			LeadsCreated: created,
		})
		return
	}

	reason := "unknown error"
	if out.err != nil {
		reason = out.err.Error()
	}
	s.bus.Publish(ctx, events.WorkflowRunFailed{
		BaseEvent:    eventbus.NewBaseEvent(),
		WorkflowID:   wf.ID,
		WorkflowName: wf.Name,
		CompanyID:    wf.CompanyID,
		Source:       string(wf.Source),
		Cursor:       out.cursor,
		Error:        reason,
	})
}

// prepare loads and validates everything a run needs.
func (s *Service) prepare(ctx context.Context, companyID, id uuid.UUID, opts RunOptions) (domain.Workflow, domain.Provider, error) {
	wf, err := s.Get(ctx, companyID, id)
	if err != nil {
		return domain.Workflow{}, domain.Provider{}, err
	}

	account, err := s.workflows.GetProvider(ctx, wf.ProviderID, companyID)
	if errors.Is(err, domain.ErrProviderNotFound) {
		return domain.Workflow{}, domain.Provider{}, apperr.Validation("workflow provider account is not connected")
	}
	if err != nil {
		return domain.Workflow{}, domain.Provider{}, apperr.Unavailable("load provider account", err)
	}

	if err := s.validate(ctx, wf, opts); err != nil {
		return domain.Workflow{}, domain.Provider{}, err
	}
	return wf, account, nil
}

func (s *Service) validate(ctx context.Context, wf domain.Workflow, opts RunOptions) error {
	if wf.Kind != domain.KindSearch && wf.Kind != domain.KindInvite {
		return apperr.Validation("unknown workflow kind")
	}
	if len(opts.Identifiers) > 0 && wf.Source != domain.SourceIdentifiers {
		return apperr.Validation("identifiers can only be given to identifier workflows")
	}

	switch wf.Source {
	case domain.SourceIdentifiers:
		if len(opts.Identifiers) == 0 && len(wf.Identifiers) == 0 {
			return apperr.Validation("workflow has no identifiers")
		}
	case domain.SourceSearch:
		if _, err := searchCriteria(wf); err != nil {
			return apperr.Validation("workflow search criteria is malformed")
		}
	case domain.SourceLeadList:
		if wf.SourceWorkflowID == nil {
			return apperr.Validation("workflow has no source workflow")
		}
		_, err := s.workflows.GetWorkflow(ctx, *wf.SourceWorkflowID, wf.CompanyID)
		if errors.Is(err, domain.ErrWorkflowNotFound) {
			return apperr.Validation("source workflow not found")
		}
		if err != nil {
			return apperr.Unavailable("load source workflow", err)
		}
	case domain.SourceReactions:
		if strings.TrimSpace(wf.TargetIdentifier) == "" {
			return apperr.Validation("workflow has no reaction target")
		}
	default:
		return apperr.Validation("unknown workflow source")
	}
	return nil
}

func searchCriteria(wf domain.Workflow) (criteria provider.SearchCriteria, err error) {
	if len(wf.SearchCriteria) == 0 {
		return criteria, nil
	}
	err = json.Unmarshal(wf.SearchCriteria, &criteria)
	return criteria, err
}
