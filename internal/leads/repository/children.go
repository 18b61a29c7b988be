package repository

import (
	"context"
	"fmt"

	"prospecting_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// CountChildren returns how many rows of each kind leadID already owns.
func (r *Repository) CountChildren(ctx context.Context, leadID uuid.UUID) (map[domain.ChildKind]int, error) {
	var work, volunteering, education, skills, languages, certifications, projects, reactions int
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM lead_work_experiences WHERE lead_id = $1),
			(SELECT count(*) FROM lead_volunteering_experiences WHERE lead_id = $1),
			(SELECT count(*) FROM lead_educations WHERE lead_id = $1),
			(SELECT count(*) FROM lead_skills WHERE lead_id = $1),
			(SELECT count(*) FROM lead_languages WHERE lead_id = $1),
			(SELECT count(*) FROM lead_certifications WHERE lead_id = $1),
			(SELECT count(*) FROM lead_projects WHERE lead_id = $1),
			(SELECT count(*) FROM lead_reactions WHERE lead_id = $1)
	`, leadID).Scan(&work, &volunteering, &education, &skills, &languages, &certifications, &projects, &reactions)
	if err != nil {
		return nil, fmt.Errorf("count children: %w", err)
	}

	return map[domain.ChildKind]int{
		domain.ChildWorkExperience: work,
		domain.ChildVolunteering:   volunteering,
		domain.ChildEducation:      education,
		domain.ChildSkill:          skills,
		domain.ChildLanguage:       languages,
		domain.ChildCertification:  certifications,
		domain.ChildProject:        projects,
		domain.ChildReaction:       reactions,
	}, nil
}

// ReactionKeys returns the natural keys of the reactions stored for leadID.
func (r *Repository) ReactionKeys(ctx context.Context, leadID uuid.UUID) (map[string]struct{}, error) {
	rows, err := r.pool.Query(ctx, `SELECT reaction_id FROM lead_reactions WHERE lead_id = $1`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys[key] = struct{}{}
	}
	return keys, rows.Err()
}

func (r *Repository) InsertWorkExperience(ctx context.Context, leadID uuid.UUID, item domain.WorkExperience) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_work_experiences (lead_id, company, position, location, description, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, leadID, item.Company, item.Position, item.Location, item.Description, item.StartDate, item.EndDate)
	return err
}

func (r *Repository) InsertVolunteering(ctx context.Context, leadID uuid.UUID, item domain.VolunteeringExperience) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_volunteering_experiences (lead_id, organization, role, cause, description, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, leadID, item.Organization, item.Role, item.Cause, item.Description, item.StartDate, item.EndDate)
	return err
}

func (r *Repository) InsertEducation(ctx context.Context, leadID uuid.UUID, item domain.Education) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_educations (lead_id, school, degree, field_of_study, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, leadID, item.School, item.Degree, item.FieldOfStudy, item.StartDate, item.EndDate)
	return err
}

func (r *Repository) InsertSkill(ctx context.Context, leadID uuid.UUID, item domain.Skill) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_skills (lead_id, name, endorsements) VALUES ($1, $2, $3)
	`, leadID, item.Name, item.Endorsements)
	return err
}

func (r *Repository) InsertLanguage(ctx context.Context, leadID uuid.UUID, item domain.Language) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_languages (lead_id, name, proficiency) VALUES ($1, $2, $3)
	`, leadID, item.Name, item.Proficiency)
	return err
}

func (r *Repository) InsertCertification(ctx context.Context, leadID uuid.UUID, item domain.Certification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_certifications (lead_id, name, organization, url, issued_at)
		VALUES ($1, $2, $3, $4, $5)
	`, leadID, item.Name, item.Organization, item.URL, item.IssuedAt)
	return err
}

func (r *Repository) InsertProject(ctx context.Context, leadID uuid.UUID, item domain.Project) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_projects (lead_id, name, description, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5)
	`, leadID, item.Name, item.Description, item.StartDate, item.EndDate)
	return err
}

// InsertReaction stores a reaction; an existing natural key yields
// domain.ErrDuplicateChild.
func (r *Repository) InsertReaction(ctx context.Context, leadID uuid.UUID, item domain.Reaction) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO lead_reactions (lead_id, reaction_id, kind, post_id, post_url, reaction_type, comment_text, reacted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (lead_id, reaction_id) DO NOTHING
	`, leadID, item.ReactionID, string(item.Kind), item.PostID, item.PostURL, item.ReactionType, item.CommentText, item.ReactedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicateChild
	}
	return nil
}
