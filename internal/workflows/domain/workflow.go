package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrProviderNotFound = errors.New("provider account not found")
)

// Kind is what a run does with the profiles it acquires.
type Kind string

const (
	KindSearch Kind = "search"
	KindInvite Kind = "invite"
)

// Source is where a run takes its profiles from.
type Source string

const (
	SourceIdentifiers Source = "identifiers"
	SourceSearch      Source = "search"
	SourceLeadList    Source = "lead_list"
	SourceReactions   Source = "reactions"
)

// RunStatus is the outcome stored in workflow_history.
type RunStatus int16

const (
	RunFailed  RunStatus = 0
	RunSuccess RunStatus = 1
)

func (s RunStatus) String() string {
	if s == RunSuccess {
		return "SUCCESS"
	}
	return "FAILED"
}

// Workflow is a configured prospecting job.
type Workflow struct {
	ID               uuid.UUID
	CompanyID        uuid.UUID
	ProviderID       uuid.UUID
	Name             string
	Kind             Kind
	Source           Source
	Identifiers      []string
	SearchCriteria   json.RawMessage
	InviteMessage    string
	SourceWorkflowID *uuid.UUID
	TargetIdentifier string
	MaxResults       int
	Cursor           string
	LastRunAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Provider is a connected account of the provider API.
type Provider struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	AccountID   string
	DisplayName string
	CreatedAt   time.Time
}

// HistoryEntry is one run of a workflow.
type HistoryEntry struct {
	ID         uuid.UUID
	WorkflowID uuid.UUID
	CompanyID  uuid.UUID
	Cursor     string
	Status     RunStatus
	CreatedAt  time.Time
}

// RunPatch is what a finished run writes back onto its workflow.
type RunPatch struct {
	Cursor         string
	SearchCriteria json.RawMessage
	RanAt          time.Time
}
