package service

import (
	"context"
	"time"

	"prospecting_backend/internal/workflows/domain"
	"prospecting_backend/platform/logger"

	"github.com/google/uuid"
)

const recordTimeout = 10 * time.Second

// Recorder writes the single workflow_history row of a run.
type Recorder struct {
	history HistoryStore
	log     *logger.Logger
}

func NewRecorder(history HistoryStore, log *logger.Logger) *Recorder {
	return &Recorder{history: history, log: log}
}

// Record persists the run outcome. It still writes after ctx is cancelled,
// and a failed write is only logged: it never changes what the run returns.
func (r *Recorder) Record(ctx context.Context, workflowID, companyID uuid.UUID, cursor string, status domain.RunStatus) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	err := r.history.InsertHistory(ctx, domain.HistoryEntry{
		WorkflowID: workflowID,
		CompanyID:  companyID,
		Cursor:     cursor,
		Status:     status,
	})
	if err != nil {
		r.log.WithContext(ctx).DatabaseError("insert_workflow_history", err,
			"workflow_id", workflowID, "status", status.String())
	}
}
