// Package service runs prospecting workflows: it acquires profiles from the
// provider, optionally sends invitations, hands the batch to the lead
// upsert engine and records the run outcome.
package service

import (
	"context"
	"errors"
	"time"

	leadsdomain "prospecting_backend/internal/leads/domain"
	"prospecting_backend/internal/provider"
	"prospecting_backend/internal/workflows/domain"

	"github.com/google/uuid"
)

// ErrRunInProgress is returned by a RunLocker when another run of the same
// workflow holds the lock.
var ErrRunInProgress = errors.New("workflow run already in progress")

// WorkflowStore is the workflow persistence the service needs.
type WorkflowStore interface {
	GetWorkflow(ctx context.Context, id, companyID uuid.UUID) (domain.Workflow, error)
	GetProvider(ctx context.Context, id, companyID uuid.UUID) (domain.Provider, error)
	PatchAfterRun(ctx context.Context, id, companyID uuid.UUID, patch domain.RunPatch) (domain.Workflow, error)
}

// HistoryStore persists run outcomes.
type HistoryStore interface {
	InsertHistory(ctx context.Context, entry domain.HistoryEntry) error
	ListHistory(ctx context.Context, workflowID, companyID uuid.UUID, limit int) ([]domain.HistoryEntry, error)
}

// LeadLister reads the leads another workflow collected.
type LeadLister interface {
	ListByWorkflow(ctx context.Context, workflowID, companyID uuid.UUID, limit int) ([]leadsdomain.Lead, error)
}

// ProfileProvider is the part of the provider API client runs use.
type ProfileProvider interface {
	GetProfile(ctx context.Context, accountID, identifier string) (provider.Profile, error)
	SearchProfiles(ctx context.Context, accountID string, criteria provider.SearchCriteria, cursor string, limit int) (provider.SearchPage, error)
	SendInvitation(ctx context.Context, accountID, providerID, message string) (provider.Invitation, error)
	GetAllPosts(ctx context.Context, accountID, identifier string, limit int) ([]provider.Post, error)
	GetAllPostComments(ctx context.Context, accountID, socialID string, limit int) ([]provider.Comment, error)
	GetAllPostReactions(ctx context.Context, accountID, socialID string, limit int) ([]provider.PostReaction, error)
}

// RunLocker serializes runs of the same workflow across processes.
// Acquire returns ErrRunInProgress when the key is held.
type RunLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// RunEnqueuer hands a run to the background worker.
type RunEnqueuer interface {
	EnqueueWorkflowRun(ctx context.Context, workflowID, companyID uuid.UUID, identifiers []string) error
}
