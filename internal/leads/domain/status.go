package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is a lead's prospecting state as recorded in lead_statuses.
type Status string

const (
	StatusSearched           Status = "SEARCHED"
	StatusInQueue            Status = "IN_QUEUE"
	StatusInvitedFailed      Status = "INVITED_FAILED"
	StatusNotSent            Status = "NOT_SENT"
	StatusInvited            Status = "INVITED"
	StatusAlreadyInvited     Status = "ALREADY_INVITED"
	StatusAccepted           Status = "ACCEPTED"
	StatusFollowUpSentFailed Status = "FOLLOW_UP_SENT_FAILED"
	StatusFollowUpSent       Status = "FOLLOW_UP_SENT"
	StatusReplied            Status = "REPLIED"
)

// Stalled variants sit just below the step they failed to reach.
var statusOrdinals = map[Status]int{
	StatusSearched:           10,
	StatusInQueue:            20,
	StatusInvitedFailed:      25,
	StatusNotSent:            25,
	StatusInvited:            30,
	StatusAlreadyInvited:     30,
	StatusAccepted:           40,
	StatusFollowUpSentFailed: 45,
	StatusFollowUpSent:       50,
	StatusReplied:            60,
}

// advanceable are the only states a lead may move on from automatically.
// Anything else is terminal for the upsert engine.
var advanceable = map[Status]bool{
	StatusSearched:      true,
	StatusInQueue:       true,
	StatusInvitedFailed: true,
}

// Ordinal returns the position of s in the progression, 0 when unknown.
func (s Status) Ordinal() int {
	return statusOrdinals[s]
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusOrdinals[s]
	return ok
}

// ParseStatus accepts any casing of a known status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown lead status %q", raw)
	}
	return s, nil
}

// LeadStatus is one append-only row of a lead's status history.
type LeadStatus struct {
	ID         uuid.UUID
	LeadID     uuid.UUID
	WorkflowID uuid.UUID
	CompanyID  uuid.UUID
	Status     Status
	CreatedAt  time.Time
}

// ShouldRecordStatus decides whether proposed may be appended after latest.
// A lead without history always gets its first row. Afterwards a row is only
// added when the lead is still in an advanceable state and proposed ranks
// strictly higher, so history never regresses and repeated runs add nothing.
func ShouldRecordStatus(latest *LeadStatus, proposed Status) bool {
	if latest == nil {
		return true
	}
	if !advanceable[latest.Status] {
		return false
	}
	return latest.Status.Ordinal() < proposed.Ordinal()
}
