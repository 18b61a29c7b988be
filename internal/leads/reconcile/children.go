package reconcile

import (
	"context"
	"errors"

	"prospecting_backend/internal/leads/domain"
	"prospecting_backend/platform/logger"
	"prospecting_backend/platform/metrics"

	"github.com/google/uuid"
)

// childReconciler adds child rows to a lead without duplicating them.
// Static kinds are written only while the lead has none of that kind;
// reactions are topped up by natural key.
type childReconciler struct {
	store ChildStore
	log   *logger.Logger
}

type insertFunc[T any] func(ctx context.Context, leadID uuid.UUID, item T) error

// reconcileKind inserts items of one kind and returns the ones that were
// stored. existing > 0 skips the kind entirely; each insert stands alone.
func reconcileKind[T any](ctx context.Context, log *logger.Logger, leadID uuid.UUID, kind domain.ChildKind, existing int, items []T, insert insertFunc[T]) []T {
	if existing > 0 || len(items) == 0 {
		return nil
	}

	inserted := make([]T, 0, len(items))
	for _, item := range items {
		if err := insert(ctx, leadID, item); err != nil {
			if !errors.Is(err, domain.ErrDuplicateChild) {
				log.DatabaseError("insert_lead_child", err, "lead_id", leadID, "kind", string(kind))
			}
			continue
		}
		inserted = append(inserted, item)
	}
	if len(inserted) > 0 {
		metrics.ChildRowsInserted.WithLabelValues(string(kind)).Add(float64(len(inserted)))
	}
	return inserted
}

func (c *childReconciler) reconcile(ctx context.Context, leadID uuid.UUID, incoming domain.Children) domain.Children {
	var out domain.Children
	if incoming.Empty() {
		return out
	}
	log := c.log.WithContext(ctx)

	if incoming.HasStatic() {
		counts, err := c.store.CountChildren(ctx, leadID)
		if err != nil {
			// Without counts a write could duplicate rows; skip static kinds.
			log.DatabaseError("count_lead_children", err, "lead_id", leadID)
		} else {
			out.WorkExperiences = reconcileKind(ctx, log, leadID, domain.ChildWorkExperience, counts[domain.ChildWorkExperience], incoming.WorkExperiences, c.store.InsertWorkExperience)
			out.Volunteering = reconcileKind(ctx, log, leadID, domain.ChildVolunteering, counts[domain.ChildVolunteering], incoming.Volunteering, c.store.InsertVolunteering)
			out.Educations = reconcileKind(ctx, log, leadID, domain.ChildEducation, counts[domain.ChildEducation], incoming.Educations, c.store.InsertEducation)
			out.Skills = reconcileKind(ctx, log, leadID, domain.ChildSkill, counts[domain.ChildSkill], incoming.Skills, c.store.InsertSkill)
			out.Languages = reconcileKind(ctx, log, leadID, domain.ChildLanguage, counts[domain.ChildLanguage], incoming.Languages, c.store.InsertLanguage)
			out.Certifications = reconcileKind(ctx, log, leadID, domain.ChildCertification, counts[domain.ChildCertification], incoming.Certifications, c.store.InsertCertification)
			out.Projects = reconcileKind(ctx, log, leadID, domain.ChildProject, counts[domain.ChildProject], incoming.Projects, c.store.InsertProject)
		}
	}

	if len(incoming.Reactions) > 0 {
		out.Reactions = c.reconcileReactions(ctx, log, leadID, incoming.Reactions)
	}
	return out
}

// reconcileReactions drops reactions whose key is already stored or repeats
// earlier in the incoming list. The unique index is the backstop when the
// key lookup fails or a concurrent run inserts the same key.
func (c *childReconciler) reconcileReactions(ctx context.Context, log *logger.Logger, leadID uuid.UUID, incoming []domain.Reaction) []domain.Reaction {
	known, err := c.store.ReactionKeys(ctx, leadID)
	if err != nil {
		log.DatabaseError("load_reaction_keys", err, "lead_id", leadID)
		known = map[string]struct{}{}
	}

	fresh := make([]domain.Reaction, 0, len(incoming))
	for _, r := range incoming {
		if r.ReactionID == "" {
			continue
		}
		if _, ok := known[r.ReactionID]; ok {
			continue
		}
		known[r.ReactionID] = struct{}{}
		fresh = append(fresh, r)
	}

	return reconcileKind(ctx, log, leadID, domain.ChildReaction, 0, fresh, c.store.InsertReaction)
}
