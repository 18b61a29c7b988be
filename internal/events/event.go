// Package events defines the domain events modules publish on the
// platform event bus.
package events

import (
	eventbus "prospecting_backend/platform/events"

	"github.com/google/uuid"
)

// =============================================================================
// Workflow Domain Events
// =============================================================================

// WorkflowRunCompleted is published after a run finished and its history row
// was written.
type WorkflowRunCompleted struct {
	eventbus.BaseEvent
	WorkflowID   uuid.UUID `json:"workflowId"`
	CompanyID    uuid.UUID `json:"companyId"`
	Source       string    `json:"source"`
	Cursor       string    `json:"cursor"`
	LeadsTotal   int       `json:"leadsTotal"`
	LeadsCreated int       `json:"leadsCreated"`
}

func (e WorkflowRunCompleted) EventName() string { return "workflows.run.completed" }

// WorkflowRunFailed is published when a run ends with a FAILED history row.
type WorkflowRunFailed struct {
	eventbus.BaseEvent
	WorkflowID   uuid.UUID `json:"workflowId"`
	WorkflowName string    `json:"workflowName"`
	CompanyID    uuid.UUID `json:"companyId"`
	Source       string    `json:"source"`
	Cursor       string    `json:"cursor"`
	Error        string    `json:"error"`
}

func (e WorkflowRunFailed) EventName() string { return "workflows.run.failed" }
