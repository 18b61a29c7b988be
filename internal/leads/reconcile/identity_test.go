package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"prospecting_backend/internal/leads/domain"
	"prospecting_backend/internal/leads/leadstest"
	"prospecting_backend/platform/logger"

	"github.com/google/uuid"
)

func seedLead(s *leadstest.Store, scope Scope, public, private string) uuid.UUID {
	l := domain.Lead{ID: uuid.New(), CompanyID: scope.CompanyID, ProviderID: scope.ProviderID}
	l.SetIdentifiers(domain.Identifiers{Public: public, Private: private})
	s.Seed(l)
	return l.ID
}

func TestResolveMatchesEitherIdentifier(t *testing.T) {
	store := leadstest.NewStore()
	scope := newRequest("").scope()
	byPublic := seedLead(store, scope, "jdoe", "")
	byPrivate := seedLead(store, scope, "", "abc123")

	r := NewResolver(store, 20, logger.Discard())
	got := r.Resolve(context.Background(), scope, []domain.Identifiers{
		{Public: "jdoe"},
		{Public: "someone-else", Private: "abc123"},
		{Public: "unknown"},
		{},
	})

	if got[0] != byPublic {
		t.Fatalf("candidate 0 resolved to %s, want %s", got[0], byPublic)
	}
	if got[1] != byPrivate {
		t.Fatalf("candidate 1 resolved to %s, want %s", got[1], byPrivate)
	}
	if _, ok := got[2]; ok {
		t.Fatal("candidate 2 must stay unresolved")
	}
	if _, ok := got[3]; ok {
		t.Fatal("empty identifiers must never resolve")
	}
}

func TestResolveIsTenantScoped(t *testing.T) {
	store := leadstest.NewStore()
	scope := newRequest("").scope()
	seedLead(store, Scope{CompanyID: uuid.New(), ProviderID: scope.ProviderID}, "jdoe", "")

	r := NewResolver(store, 20, logger.Discard())
	got := r.Resolve(context.Background(), scope, []domain.Identifiers{{Public: "jdoe"}})
	if len(got) != 0 {
		t.Fatalf("lead of another company resolved: %v", got)
	}
}

func TestResolveSkipsFailedBatch(t *testing.T) {
	store := leadstest.NewStore()
	scope := newRequest("").scope()
	ids := map[string]uuid.UUID{}
	for _, p := range []string{"a", "b", "c", "d"} {
		ids[p] = seedLead(store, scope, p, "")
	}
	store.FindErr = func(call int) error {
		if call == 1 {
			return errors.New("lookup failed")
		}
		return nil
	}

	r := NewResolver(store, 2, logger.Discard())
	got := r.Resolve(context.Background(), scope, []domain.Identifiers{
		{Public: "a"}, {Public: "b"}, {Public: "c"}, {Public: "d"},
	})

	if store.FindCalls() != 2 {
		t.Fatalf("expected 2 lookup batches, got %d", store.FindCalls())
	}
	if _, ok := got[0]; ok {
		t.Fatal("candidate in failed batch must be unresolved")
	}
	if _, ok := got[1]; ok {
		t.Fatal("candidate in failed batch must be unresolved")
	}
	if got[2] != ids["c"] || got[3] != ids["d"] {
		t.Fatalf("second batch not resolved: %v", got)
	}
}

func TestResolvePrefersOldestMatchAcrossBatches(t *testing.T) {
	store := leadstest.NewStore()
	scope := newRequest("").scope()
	now := time.Now()

	newer := domain.Lead{ID: uuid.New(), CompanyID: scope.CompanyID, ProviderID: scope.ProviderID, CreatedAt: now}
	newer.SetIdentifiers(domain.Identifiers{Public: "jdoe"})
	store.Seed(newer)
	older := domain.Lead{ID: uuid.New(), CompanyID: scope.CompanyID, ProviderID: scope.ProviderID, CreatedAt: now.Add(-time.Hour)}
	older.SetIdentifiers(domain.Identifiers{Private: "abc123"})
	store.Seed(older)

	// One identifier per lookup, so the newer lead arrives in the first batch.
	r := NewResolver(store, 1, logger.Discard())
	got := r.Resolve(context.Background(), scope, []domain.Identifiers{{Public: "jdoe", Private: "abc123"}})

	if got[0] != older.ID {
		t.Fatalf("resolved to %s, want oldest lead %s", got[0], older.ID)
	}
	if store.FindCalls() != 2 {
		t.Fatalf("expected 2 lookup batches, got %d", store.FindCalls())
	}
}
