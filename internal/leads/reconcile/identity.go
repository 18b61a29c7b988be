package reconcile

import (
	"bytes"
	"context"
	"sort"

	"prospecting_backend/internal/leads/domain"
	"prospecting_backend/platform/logger"

	"github.com/google/uuid"
)

// DefaultIdentityBatchSize bounds the identifier list of one lookup query.
const DefaultIdentityBatchSize = 20

// Resolver maps candidate identifiers to existing lead ids.
type Resolver struct {
	store     IdentityStore
	batchSize int
	log       *logger.Logger
}

func NewResolver(store IdentityStore, batchSize int, log *logger.Logger) *Resolver {
	if batchSize < 1 {
		batchSize = DefaultIdentityBatchSize
	}
	return &Resolver{store: store, batchSize: batchSize, log: log}
}

// Resolve returns, per candidate index, the id of the stored lead it refers
// to. Candidates without a match are absent from the map. Identifiers must
// already be normalised. A failing lookup batch is logged and skipped, so
// the result may be partial but Resolve itself never fails.
func (r *Resolver) Resolve(ctx context.Context, scope Scope, candidates []domain.Identifiers) map[int]uuid.UUID {
	resolved := make(map[int]uuid.UUID, len(candidates))

	identifiers := uniqueIdentifiers(candidates)
	if len(identifiers) == 0 {
		return resolved
	}

	matches := make([]domain.IdentityMatch, 0, len(identifiers))
	for start := 0; start < len(identifiers); start += r.batchSize {
		end := min(start+r.batchSize, len(identifiers))
		batch, err := r.store.FindByIdentifiers(ctx, scope.CompanyID, scope.ProviderID, identifiers[start:end])
		if err != nil {
			r.log.WithContext(ctx).DatabaseError("resolve_identities", err,
				"batch_start", start, "batch_size", end-start)
			continue
		}
		matches = append(matches, batch...)
	}
	matches = oldestFirst(matches)

	for i, ids := range candidates {
		for _, m := range matches {
			if m.Matches(ids) {
				resolved[i] = m.ID
				break
			}
		}
	}
	return resolved
}

// oldestFirst orders the matches of all lookup batches by age and drops
// rows returned by more than one batch, so the oldest lead wins a tie.
func oldestFirst(matches []domain.IdentityMatch) []domain.IdentityMatch {
	seen := make(map[uuid.UUID]struct{}, len(matches))
	out := make([]domain.IdentityMatch, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out
}

func uniqueIdentifiers(candidates []domain.Identifiers) []string {
	seen := make(map[string]struct{}, len(candidates)*2)
	out := make([]string, 0, len(candidates)*2)
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, c := range candidates {
		add(c.Public)
		add(c.Private)
	}
	return out
}
