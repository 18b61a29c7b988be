// Package reconcile merges profile records from every acquisition path into
// canonical leads: identity resolution, base record upsert, guarded status
// history and child record reconciliation.
package reconcile

import (
	"context"

	"prospecting_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// IdentityStore looks up stored leads by identifier.
type IdentityStore interface {
	FindByIdentifiers(ctx context.Context, companyID, providerID uuid.UUID, identifiers []string) ([]domain.IdentityMatch, error)
}

// ChildStore persists child substructures of a lead.
type ChildStore interface {
	CountChildren(ctx context.Context, leadID uuid.UUID) (map[domain.ChildKind]int, error)
	ReactionKeys(ctx context.Context, leadID uuid.UUID) (map[string]struct{}, error)
	InsertWorkExperience(ctx context.Context, leadID uuid.UUID, item domain.WorkExperience) error
	InsertVolunteering(ctx context.Context, leadID uuid.UUID, item domain.VolunteeringExperience) error
	InsertEducation(ctx context.Context, leadID uuid.UUID, item domain.Education) error
	InsertSkill(ctx context.Context, leadID uuid.UUID, item domain.Skill) error
	InsertLanguage(ctx context.Context, leadID uuid.UUID, item domain.Language) error
	InsertCertification(ctx context.Context, leadID uuid.UUID, item domain.Certification) error
	InsertProject(ctx context.Context, leadID uuid.UUID, item domain.Project) error
	InsertReaction(ctx context.Context, leadID uuid.UUID, item domain.Reaction) error
}

// LeadStore is everything the orchestrator needs from persistence.
type LeadStore interface {
	IdentityStore
	ChildStore
	InsertLead(ctx context.Context, lead domain.Lead) (domain.Lead, error)
	UpdateLead(ctx context.Context, lead domain.Lead) (domain.Lead, error)
	LinkWorkflow(ctx context.Context, workflowID, leadID, companyID uuid.UUID) error
	// AppendStatus appends entry if domain.ShouldRecordStatus allows it
	// against the latest stored row, atomically with that read.
	AppendStatus(ctx context.Context, entry domain.LeadStatus) (bool, error)
	// LatestStatus returns the newest status row of a lead, nil without history.
	LatestStatus(ctx context.Context, leadID uuid.UUID) (*domain.LeadStatus, error)
}

// Scope is the tenant and connected account a batch is reconciled in.
type Scope struct {
	CompanyID  uuid.UUID
	ProviderID uuid.UUID
}
