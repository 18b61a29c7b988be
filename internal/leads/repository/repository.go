package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"prospecting_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, company_id, provider_id, public_identifier, private_identifier,
	first_name, last_name, headline, location, network_distance, profile_picture_url,
	emails, phones, addresses, is_hiring, is_open_to_work, can_send_inmail, is_influencer, is_creator,
	connections_count, follower_count, shared_connections_count, created_at, updated_at`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var (
		lead     domain.Lead
		distance *string
	)
	err := row.Scan(
		&lead.ID, &lead.CompanyID, &lead.ProviderID, &lead.PublicIdentifier, &lead.PrivateIdentifier,
		&lead.FirstName, &lead.LastName, &lead.Headline, &lead.Location, &distance, &lead.ProfilePictureURL,
		&lead.Emails, &lead.Phones, &lead.Addresses, &lead.IsHiring, &lead.IsOpenToWork, &lead.CanSendInMail,
		&lead.IsInfluencer, &lead.IsCreator,
		&lead.ConnectionsCount, &lead.FollowerCount, &lead.SharedConnectionsCount, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}
	if distance != nil {
		d := domain.NetworkDistance(*distance)
		lead.NetworkDistance = &d
	}
	return lead, nil
}

func distanceParam(d *domain.NetworkDistance) *string {
	if d == nil {
		return nil
	}
	s := string(*d)
	return &s
}

// nilIfEmpty makes empty slices bind as NULL so COALESCE keeps stored values.
func nilIfEmpty(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	return values
}

// InsertLead creates a lead. Hitting an identifier unique index returns
// domain.ErrLeadExists.
func (r *Repository) InsertLead(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			company_id, provider_id, public_identifier, private_identifier,
			first_name, last_name, headline, location, network_distance, profile_picture_url,
			emails, phones, addresses, is_hiring, is_open_to_work, can_send_inmail, is_influencer, is_creator,
			connections_count, follower_count, shared_connections_count
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			COALESCE($11, '{}'::text[]), COALESCE($12, '{}'::text[]), COALESCE($13, '{}'::text[]),
			$14, $15, $16, $17, $18, $19, $20, $21
		)
		RETURNING `+leadColumns,
		lead.CompanyID, lead.ProviderID, lead.PublicIdentifier, lead.PrivateIdentifier,
		lead.FirstName, lead.LastName, lead.Headline, lead.Location, distanceParam(lead.NetworkDistance), lead.ProfilePictureURL,
		nilIfEmpty(lead.Emails), nilIfEmpty(lead.Phones), nilIfEmpty(lead.Addresses),
		lead.IsHiring, lead.IsOpenToWork, lead.CanSendInMail, lead.IsInfluencer, lead.IsCreator,
		lead.ConnectionsCount, lead.FollowerCount, lead.SharedConnectionsCount,
	)

	created, err := scanLead(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.Lead{}, domain.ErrLeadExists
		}
		return domain.Lead{}, fmt.Errorf("insert lead: %w", err)
	}
	return created, nil
}

// UpdateLead merges lead into the stored row. Nil fields keep the stored
// value, so a sparse search result never erases profile details.
func (r *Repository) UpdateLead(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			public_identifier = COALESCE($4, public_identifier),
			private_identifier = COALESCE($5, private_identifier),
			first_name = COALESCE($6, first_name),
			last_name = COALESCE($7, last_name),
			headline = COALESCE($8, headline),
			location = COALESCE($9, location),
			network_distance = COALESCE($10, network_distance),
			profile_picture_url = COALESCE($11, profile_picture_url),
			emails = COALESCE($12, emails),
			phones = COALESCE($13, phones),
			addresses = COALESCE($14, addresses),
			is_hiring = COALESCE($15, is_hiring),
			is_open_to_work = COALESCE($16, is_open_to_work),
			can_send_inmail = COALESCE($17, can_send_inmail),
			is_influencer = COALESCE($18, is_influencer),
			is_creator = COALESCE($19, is_creator),
			connections_count = COALESCE($20, connections_count),
			follower_count = COALESCE($21, follower_count),
			shared_connections_count = COALESCE($22, shared_connections_count),
			updated_at = now()
		WHERE id = $1 AND company_id = $2 AND provider_id = $3
		RETURNING `+leadColumns,
		lead.ID, lead.CompanyID, lead.ProviderID, lead.PublicIdentifier, lead.PrivateIdentifier,
		lead.FirstName, lead.LastName, lead.Headline, lead.Location, distanceParam(lead.NetworkDistance), lead.ProfilePictureURL,
		nilIfEmpty(lead.Emails), nilIfEmpty(lead.Phones), nilIfEmpty(lead.Addresses),
		lead.IsHiring, lead.IsOpenToWork, lead.CanSendInMail, lead.IsInfluencer, lead.IsCreator,
		lead.ConnectionsCount, lead.FollowerCount, lead.SharedConnectionsCount,
	)

	updated, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, domain.ErrLeadNotFound
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.Lead{}, domain.ErrLeadExists
		}
		return domain.Lead{}, fmt.Errorf("update lead: %w", err)
	}
	return updated, nil
}

func (r *Repository) GetByID(ctx context.Context, id, companyID uuid.UUID) (domain.Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1 AND company_id = $2`, id, companyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, domain.ErrLeadNotFound
	}
	return lead, err
}

// ListByWorkflow returns the leads linked to workflowID, oldest link first.
// Used to reuse the result of one workflow as the input of another.
func (r *Repository) ListByWorkflow(ctx context.Context, workflowID, companyID uuid.UUID, limit int) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+prefixed("l", leadColumns)+`
		FROM lead_workflows lw
		JOIN leads l ON l.id = lw.lead_id
		WHERE lw.workflow_id = $1 AND lw.company_id = $2
		ORDER BY lw.created_at ASC, l.id ASC
		LIMIT $3
	`, workflowID, companyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// LinkWorkflow records that workflowID produced leadID. Idempotent.
func (r *Repository) LinkWorkflow(ctx context.Context, workflowID, leadID, companyID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_workflows (workflow_id, lead_id, company_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (workflow_id, lead_id) DO NOTHING
	`, workflowID, leadID, companyID)
	return err
}

// prefixed qualifies every column in a comma separated list with alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}
