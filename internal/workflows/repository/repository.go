package repository

import (
	"context"
	"errors"
	"fmt"

	"prospecting_backend/internal/workflows/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const workflowColumns = `id, company_id, provider_id, name, kind, source, identifiers, search_criteria,
	invite_message, source_workflow_id, target_identifier, max_results, cursor, last_run_at, created_at, updated_at`

func scanWorkflow(row pgx.Row) (domain.Workflow, error) {
	var (
		w      domain.Workflow
		kind   string
		source string
	)
	err := row.Scan(
		&w.ID, &w.CompanyID, &w.ProviderID, &w.Name, &kind, &source, &w.Identifiers, &w.SearchCriteria,
		&w.InviteMessage, &w.SourceWorkflowID, &w.TargetIdentifier, &w.MaxResults, &w.Cursor, &w.LastRunAt,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return domain.Workflow{}, err
	}
	w.Kind = domain.Kind(kind)
	w.Source = domain.Source(source)
	return w, nil
}

func (r *Repository) GetWorkflow(ctx context.Context, id, companyID uuid.UUID) (domain.Workflow, error) {
	w, err := scanWorkflow(r.pool.QueryRow(ctx, `SELECT `+workflowColumns+` FROM workflows WHERE id = $1 AND company_id = $2`, id, companyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Workflow{}, domain.ErrWorkflowNotFound
	}
	if err != nil {
		return domain.Workflow{}, fmt.Errorf("get workflow: %w", err)
	}
	return w, nil
}

func (r *Repository) GetProvider(ctx context.Context, id, companyID uuid.UUID) (domain.Provider, error) {
	var p domain.Provider
	err := r.pool.QueryRow(ctx, `
		SELECT id, company_id, account_id, display_name, created_at
		FROM providers
		WHERE id = $1 AND company_id = $2
	`, id, companyID).Scan(&p.ID, &p.CompanyID, &p.AccountID, &p.DisplayName, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Provider{}, domain.ErrProviderNotFound
	}
	if err != nil {
		return domain.Provider{}, fmt.Errorf("get provider: %w", err)
	}
	return p, nil
}

// PatchAfterRun stores the cursor and the criteria a run actually used.
// A nil criteria keeps the stored value.
func (r *Repository) PatchAfterRun(ctx context.Context, id, companyID uuid.UUID, patch domain.RunPatch) (domain.Workflow, error) {
	var criteria any
	if len(patch.SearchCriteria) > 0 {
		criteria = string(patch.SearchCriteria)
	}
	w, err := scanWorkflow(r.pool.QueryRow(ctx, `
		UPDATE workflows
		SET cursor = $3,
			search_criteria = COALESCE($4::jsonb, search_criteria),
			last_run_at = $5,
			updated_at = now()
		WHERE id = $1 AND company_id = $2
		RETURNING `+workflowColumns,
		id, companyID, patch.Cursor, criteria, patch.RanAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Workflow{}, domain.ErrWorkflowNotFound
	}
	if err != nil {
		return domain.Workflow{}, fmt.Errorf("patch workflow: %w", err)
	}
	return w, nil
}

// InsertHistory appends the run outcome of a workflow.
func (r *Repository) InsertHistory(ctx context.Context, entry domain.HistoryEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO workflow_history (workflow_id, company_id, cursor, status)
		VALUES ($1, $2, $3, $4)
	`, entry.WorkflowID, entry.CompanyID, entry.Cursor, int16(entry.Status))
	if err != nil {
		return fmt.Errorf("insert workflow history: %w", err)
	}
	return nil
}

// ListHistory returns the newest runs of a workflow first.
func (r *Repository) ListHistory(ctx context.Context, workflowID, companyID uuid.UUID, limit int) ([]domain.HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, workflow_id, company_id, cursor, status, created_at
		FROM workflow_history
		WHERE workflow_id = $1 AND company_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, workflowID, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("list workflow history: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.HistoryEntry, 0)
	for rows.Next() {
		var (
			e      domain.HistoryEntry
			status int16
		)
		if err := rows.Scan(&e.ID, &e.WorkflowID, &e.CompanyID, &e.Cursor, &status, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Status = domain.RunStatus(status)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
