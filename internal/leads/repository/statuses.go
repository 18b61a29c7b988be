package repository

import (
	"context"
	"errors"
	"fmt"

	"prospecting_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const latestStatusQuery = `
	SELECT id, lead_id, workflow_id, company_id, status, created_at
	FROM lead_statuses
	WHERE lead_id = $1
	ORDER BY created_at DESC, id DESC
	LIMIT 1`

// LatestStatus returns the newest status row of leadID, nil if it has none.
func (r *Repository) LatestStatus(ctx context.Context, leadID uuid.UUID) (*domain.LeadStatus, error) {
	return scanLatestStatus(r.pool.QueryRow(ctx, latestStatusQuery, leadID))
}

func scanLatestStatus(row pgx.Row) (*domain.LeadStatus, error) {
	var s domain.LeadStatus
	var status string
	err := row.Scan(&s.ID, &s.LeadID, &s.WorkflowID, &s.CompanyID, &status, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.Status = domain.Status(status)
	return &s, nil
}

// AppendStatus appends entry when domain.ShouldRecordStatus allows it.
// The read of the latest row and the insert run in one transaction under a
// per-lead advisory lock, so concurrent runs see each other's rows.
func (r *Repository) AppendStatus(ctx context.Context, entry domain.LeadStatus) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, entry.LeadID); err != nil {
		return false, fmt.Errorf("lock lead status: %w", err)
	}

	latest, err := scanLatestStatus(tx.QueryRow(ctx, latestStatusQuery, entry.LeadID))
	if err != nil {
		return false, fmt.Errorf("read latest status: %w", err)
	}
	if !domain.ShouldRecordStatus(latest, entry.Status) {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO lead_statuses (lead_id, workflow_id, company_id, status)
		VALUES ($1, $2, $3, $4)
	`, entry.LeadID, entry.WorkflowID, entry.CompanyID, string(entry.Status)); err != nil {
		return false, fmt.Errorf("insert status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ListStatuses returns the status history of a lead, oldest first.
func (r *Repository) ListStatuses(ctx context.Context, leadID, companyID uuid.UUID) ([]domain.LeadStatus, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, workflow_id, company_id, status, created_at
		FROM lead_statuses
		WHERE lead_id = $1 AND company_id = $2
		ORDER BY created_at ASC, id ASC
	`, leadID, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]domain.LeadStatus, 0)
	for rows.Next() {
		var s domain.LeadStatus
		var status string
		if err := rows.Scan(&s.ID, &s.LeadID, &s.WorkflowID, &s.CompanyID, &status, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Status = domain.Status(status)
		history = append(history, s)
	}
	return history, rows.Err()
}
