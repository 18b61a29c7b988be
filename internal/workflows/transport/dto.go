package transport

import (
	"encoding/json"
	"time"

	leadstransport "prospecting_backend/internal/leads/transport"
	"prospecting_backend/internal/workflows/domain"
	"prospecting_backend/internal/workflows/service"

	"github.com/google/uuid"
)

// Request DTOs
type RunRequest struct {
	Async       bool     `json:"async"`
	Identifiers []string `json:"identifiers" validate:"omitempty,max=200,dive,profileid"`
}

// Response DTOs
type WorkflowResponse struct {
	ID               uuid.UUID       `json:"id"`
	ProviderID       uuid.UUID       `json:"providerId"`
	Name             string          `json:"name"`
	Kind             string          `json:"kind"`
	Source           string          `json:"source"`
	Identifiers      []string        `json:"identifiers"`
	SearchCriteria   json.RawMessage `json:"searchCriteria,omitempty"`
	InviteMessage    string          `json:"inviteMessage,omitempty"`
	SourceWorkflowID *uuid.UUID      `json:"sourceWorkflowId,omitempty"`
	TargetIdentifier string          `json:"targetIdentifier,omitempty"`
	MaxResults       int             `json:"maxResults"`
	Cursor           string          `json:"cursor"`
	LastRunAt        *time.Time      `json:"lastRunAt,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

type HistoryResponse struct {
	ID        uuid.UUID `json:"id"`
	Cursor    string    `json:"cursor"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type RunResponse struct {
	Workflow WorkflowResponse                        `json:"workflow"`
	Leads    []leadstransport.ReconciledLeadResponse `json:"leads"`
}

type QueuedRunResponse struct {
	Workflow WorkflowResponse `json:"workflow"`
	Queued   bool             `json:"queued"`
}

func FromWorkflow(w domain.Workflow) WorkflowResponse {
	identifiers := w.Identifiers
	if identifiers == nil {
		identifiers = []string{}
	}
	return WorkflowResponse{
		ID:               w.ID,
		ProviderID:       w.ProviderID,
		Name:             w.Name,
		Kind:             string(w.Kind),
		Source:           string(w.Source),
		Identifiers:      identifiers,
		SearchCriteria:   w.SearchCriteria,
		InviteMessage:    w.InviteMessage,
		SourceWorkflowID: w.SourceWorkflowID,
		TargetIdentifier: w.TargetIdentifier,
		MaxResults:       w.MaxResults,
		Cursor:           w.Cursor,
		LastRunAt:        w.LastRunAt,
		CreatedAt:        w.CreatedAt,
		UpdatedAt:        w.UpdatedAt,
	}
}

func FromHistory(entries []domain.HistoryEntry) []HistoryResponse {
	out := make([]HistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryResponse{
			ID:        e.ID,
			Cursor:    e.Cursor,
			Status:    e.Status.String(),
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

func FromRunResult(r service.RunResult) RunResponse {
	return RunResponse{
		Workflow: FromWorkflow(r.Workflow),
		Leads:    leadstransport.FromReconciled(r.Leads),
	}
}
