package repository

import (
	"context"

	"prospecting_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// FindByIdentifiers returns leads in scope whose public or private
// identifier is one of identifiers, oldest first.
func (r *Repository) FindByIdentifiers(ctx context.Context, companyID, providerID uuid.UUID, identifiers []string) ([]domain.IdentityMatch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, public_identifier, private_identifier, created_at
		FROM leads
		WHERE company_id = $1 AND provider_id = $2
			AND (public_identifier = ANY($3) OR private_identifier = ANY($3))
		ORDER BY created_at ASC, id ASC
	`, companyID, providerID, identifiers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]domain.IdentityMatch, 0)
	for rows.Next() {
		var m domain.IdentityMatch
		if err := rows.Scan(&m.ID, &m.PublicIdentifier, &m.PrivateIdentifier, &m.CreatedAt); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
