package reconcile

import (
	"prospecting_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// LeadCandidate is one incoming profile mapped into lead shape.
type LeadCandidate struct {
	Lead     domain.Lead
	Children domain.Children
	// Status overrides UpsertRequest.Status for this item, e.g. the outcome
	// of its invitation.
	Status *domain.Status
}

// UpsertRequest carries the batch-wide parameters of one orchestrator call.
type UpsertRequest struct {
	CompanyID  uuid.UUID
	ProviderID uuid.UUID
	WorkflowID uuid.UUID
	Status     domain.Status
}

func (r UpsertRequest) scope() Scope {
	return Scope{CompanyID: r.CompanyID, ProviderID: r.ProviderID}
}

// ReconciledLead is the outcome for one item that made it into the store.
type ReconciledLead struct {
	Lead           domain.Lead
	Created        bool
	Status         domain.Status
	StatusRecorded bool
	// Inserted holds the child rows written by this call only.
	Inserted domain.Children
}
