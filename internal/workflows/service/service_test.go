package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"prospecting_backend/internal/archive"
	"prospecting_backend/internal/events"
	leadsdomain "prospecting_backend/internal/leads/domain"
	"prospecting_backend/internal/leads/leadstest"
	"prospecting_backend/internal/leads/reconcile"
	"prospecting_backend/internal/provider"
	"prospecting_backend/internal/workflows/domain"
	"prospecting_backend/platform/apperr"
	"prospecting_backend/platform/config"
	eventbus "prospecting_backend/platform/events"
	"prospecting_backend/platform/logger"
	"prospecting_backend/platform/phone"

	"github.com/google/uuid"
)

var (
	testCompanyID  = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testProviderID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

type fakeWorkflows struct {
	mu        sync.Mutex
	workflows map[uuid.UUID]domain.Workflow
	providers map[uuid.UUID]domain.Provider
	history   []domain.HistoryEntry
	patchErr  error
	insertErr error
	insertCtx error
}

func newFakeWorkflows() *fakeWorkflows {
	return &fakeWorkflows{
		workflows: map[uuid.UUID]domain.Workflow{},
		providers: map[uuid.UUID]domain.Provider{
			testProviderID: {ID: testProviderID, CompanyID: testCompanyID, AccountID: "acc-1"},
		},
	}
}

func (f *fakeWorkflows) add(wf domain.Workflow) domain.Workflow {
	if wf.ID == uuid.Nil {
		wf.ID = uuid.New()
	}
	wf.CompanyID = testCompanyID
	wf.ProviderID = testProviderID
	if wf.Kind == "" {
		wf.Kind = domain.KindSearch
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.workflows[wf.ID] = wf
	return wf
}

func (f *fakeWorkflows) GetWorkflow(_ context.Context, id, companyID uuid.UUID) (domain.Workflow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wf, ok := f.workflows[id]
	if !ok || wf.CompanyID != companyID {
		return domain.Workflow{}, domain.ErrWorkflowNotFound
	}
	return wf, nil
}

func (f *fakeWorkflows) GetProvider(_ context.Context, id, companyID uuid.UUID) (domain.Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.providers[id]
	if !ok || p.CompanyID != companyID {
		return domain.Provider{}, domain.ErrProviderNotFound
	}
	return p, nil
}

func (f *fakeWorkflows) PatchAfterRun(_ context.Context, id, companyID uuid.UUID, patch domain.RunPatch) (domain.Workflow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.patchErr != nil {
		return domain.Workflow{}, f.patchErr
	}
	wf, ok := f.workflows[id]
	if !ok || wf.CompanyID != companyID {
		return domain.Workflow{}, domain.ErrWorkflowNotFound
	}
	wf.Cursor = patch.Cursor
	if len(patch.SearchCriteria) > 0 {
		wf.SearchCriteria = patch.SearchCriteria
	}
	ranAt := patch.RanAt
	wf.LastRunAt = &ranAt
	f.workflows[id] = wf
	return wf, nil
}

func (f *fakeWorkflows) InsertHistory(ctx context.Context, entry domain.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCtx = ctx.Err()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.history = append(f.history, entry)
	return nil
}

func (f *fakeWorkflows) ListHistory(_ context.Context, workflowID, companyID uuid.UUID, limit int) ([]domain.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.HistoryEntry
	for i := len(f.history) - 1; i >= 0 && len(out) < limit; i-- {
		if f.history[i].WorkflowID == workflowID && f.history[i].CompanyID == companyID {
			out = append(out, f.history[i])
		}
	}
	return out, nil
}

func (f *fakeWorkflows) entries() []domain.HistoryEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.HistoryEntry(nil), f.history...)
}

type fakeProvider struct {
	mu         sync.Mutex
	profiles   map[string]provider.Profile
	pages      map[string]provider.SearchPage
	searchErr  map[string]error
	inviteErr  map[string]error
	invited    []string
	posts      []provider.Post
	comments   map[string][]provider.Comment
	reactions  map[string][]provider.PostReaction
	cursorsHit []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		profiles:  map[string]provider.Profile{},
		pages:     map[string]provider.SearchPage{},
		searchErr: map[string]error{},
		inviteErr: map[string]error{},
		comments:  map[string][]provider.Comment{},
		reactions: map[string][]provider.PostReaction{},
	}
}

func (p *fakeProvider) GetProfile(_ context.Context, _ string, identifier string) (provider.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	profile, ok := p.profiles[identifier]
	if !ok {
		return provider.Profile{}, provider.ErrNotFound
	}
	return profile, nil
}

func (p *fakeProvider) SearchProfiles(_ context.Context, _ string, _ provider.SearchCriteria, cursor string, _ int) (provider.SearchPage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursorsHit = append(p.cursorsHit, cursor)
	if err := p.searchErr[cursor]; err != nil {
		return provider.SearchPage{}, err
	}
	return p.pages[cursor], nil
}

func (p *fakeProvider) SendInvitation(_ context.Context, _ string, providerID, _ string) (provider.Invitation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.inviteErr[providerID]; err != nil {
		return provider.Invitation{}, err
	}
	p.invited = append(p.invited, providerID)
	return provider.Invitation{InvitationID: "inv-" + providerID}, nil
}

func (p *fakeProvider) GetAllPosts(context.Context, string, string, int) ([]provider.Post, error) {
	return p.posts, nil
}

func (p *fakeProvider) GetAllPostComments(_ context.Context, _ string, socialID string, _ int) ([]provider.Comment, error) {
	return p.comments[socialID], nil
}

func (p *fakeProvider) GetAllPostReactions(_ context.Context, _ string, socialID string, _ int) ([]provider.PostReaction, error) {
	return p.reactions[socialID], nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *fakeLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, ErrRunInProgress
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, nil
}

type fakeEnqueuer struct {
	queued []uuid.UUID
}

func (e *fakeEnqueuer) EnqueueWorkflowRun(_ context.Context, workflowID, _ uuid.UUID, _ []string) error {
	e.queued = append(e.queued, workflowID)
	return nil
}

type fakeArchiver struct {
	mu       sync.Mutex
	payloads []archive.Payload
}

func (a *fakeArchiver) Archive(_ context.Context, p archive.Payload) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.payloads = append(a.payloads, p)
	return archive.ObjectKey(p), nil
}

type fixture struct {
	svc       *Service
	workflows *fakeWorkflows
	provider  *fakeProvider
	leads     *leadstest.Store
	bus       *eventbus.InMemoryBus
}

func newFixture() *fixture {
	cfg := &config.Config{
		IdentityBatchSize:  20,
		UpsertConcurrency:  4,
		UpsertBatchTimeout: time.Minute,
		SearchPageSize:     2,
		MaxSearchPages:     5,
		ReactionPostLimit:  3,
	}
	log := logger.Discard()
	leads := leadstest.NewStore()
	workflows := newFakeWorkflows()
	prov := newFakeProvider()
	bus := eventbus.NewInMemoryBus(log)
	orchestrator := reconcile.NewOrchestrator(leads, cfg, phone.NewNormalizer("US"), log)
	svc := New(workflows, workflows, leads, orchestrator, prov, bus, cfg, log)
	return &fixture{svc: svc, workflows: workflows, provider: prov, leads: leads, bus: bus}
}

func TestRunInviteWorkflowCreatesInvitedLead(t *testing.T) {
	f := newFixture()
	f.provider.profiles["alice-smith"] = provider.Profile{
		ProviderID:       "ACoAAlice",
		PublicIdentifier: "alice-smith",
		FirstName:        "Alice",
		LastName:         "Smith",
	}
	wf := f.workflows.add(domain.Workflow{
		Name:        "invite alice",
		Kind:        domain.KindInvite,
		Source:      domain.SourceIdentifiers,
		Identifiers: []string{"alice-smith"},
	})

	result, err := f.svc.Run(context.Background(), testCompanyID, wf.ID, RunOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Leads) != 1 {
		t.Fatalf("expected 1 lead, got %d", len(result.Leads))
	}
	if f.leads.LeadCount() != 1 {
		t.Fatalf("expected 1 stored lead, got %d", f.leads.LeadCount())
	}

	leadID := result.Leads[0].Lead.ID
	history := f.leads.History(leadID)
	if len(history) != 1 || history[0] != leadsdomain.StatusInvited {
		t.Fatalf("expected a single INVITED status, got %v", history)
	}
	if !f.leads.Linked(wf.ID, leadID) {
		t.Fatal("expected lead linked to workflow")
	}
	if len(f.provider.invited) != 1 || f.provider.invited[0] != "ACoAAlice" {
		t.Fatalf("expected one invitation to ACoAAlice, got %v", f.provider.invited)
	}

	entries := f.workflows.entries()
	if len(entries) != 1 || entries[0].Status != domain.RunSuccess {
		t.Fatalf("expected one SUCCESS history row, got %+v", entries)
	}
	if result.Workflow.LastRunAt == nil {
		t.Fatal("expected last_run_at to be set")
	}
}

func TestRunInviteOutcomesPerItem(t *testing.T) {
	f := newFixture()
	f.provider.profiles["ok"] = provider.Profile{ProviderID: "P1", PublicIdentifier: "ok", FirstName: "Ok"}
	f.provider.profiles["pending"] = provider.Profile{ProviderID: "P2", PublicIdentifier: "pending", FirstName: "Pending"}
	f.provider.profiles["broken"] = provider.Profile{ProviderID: "P3", PublicIdentifier: "broken", FirstName: "Broken"}
	f.provider.inviteErr["P2"] = provider.ErrAlreadyInvited
	f.provider.inviteErr["P3"] = errors.New("provider api 500")
	wf := f.workflows.add(domain.Workflow{
		Kind:        domain.KindInvite,
		Source:      domain.SourceIdentifiers,
		Identifiers: []string{"ok", "pending", "broken"},
	})

	result, err := f.svc.Run(context.Background(), testCompanyID, wf.ID, RunOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := map[string]leadsdomain.Status{}
	for _, l := range result.Leads {
		got[l.Lead.Identifiers().Public] = l.Status
	}
	want := map[string]leadsdomain.Status{
		"ok":      leadsdomain.StatusInvited,
		"pending": leadsdomain.StatusAlreadyInvited,
		"broken":  leadsdomain.StatusInvitedFailed,
	}
	for id, status := range want {
		if got[id] != status {
			t.Fatalf("%s: expected %s, got %s", id, status, got[id])
		}
	}
}

func TestRunInviteSendsOneInvitationPerPerson(t *testing.T) {
	f := newFixture()
	f.provider.profiles["ok"] = provider.Profile{ProviderID: "P1", PublicIdentifier: "ok", FirstName: "Ok"}
	wf := f.workflows.add(domain.Workflow{
		Kind:        domain.KindInvite,
		Source:      domain.SourceIdentifiers,
		Identifiers: []string{"ok", "ok"},
	})

	if _, err := f.svc.Run(context.Background(), testCompanyID, wf.ID, RunOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.provider.invited) != 1 {
		t.Fatalf("expected a single invitation, got %v", f.provider.invited)
	}
	if n := f.leads.LeadCount(); n != 1 {
		t.Fatalf("expected 1 stored lead, got %d", n)
	}
}

func TestRunInviteSkipsLeadsAlreadyInvited(t *testing.T) {
	f := newFixture()
	f.provider.profiles["ok"] = provider.Profile{ProviderID: "P1", PublicIdentifier: "ok", FirstName: "Ok"}
	wf := f.workflows.add(domain.Workflow{
		Kind:        domain.KindInvite,
		Source:      domain.SourceIdentifiers,
		Identifiers: []string{"ok"},
	})

	first, err := f.svc.Run(context.Background(), testCompanyID, wf.ID, RunOptions{})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := f.svc.Run(context.Background(), testCompanyID, wf.ID, RunOptions{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(f.provider.invited) != 1 {
		t.Fatalf("INVITED lead must not be invited again, got %v", f.provider.invited)
	}
	if len(second.Leads) != 1 || second.Leads[0].Lead.ID != first.Leads[0].Lead.ID {
		t.Fatalf("expected the second run to update the same lead, got %+v", second.Leads)
	}
	if h := f.leads.History(first.Leads[0].Lead.ID); len(h) != 1 || h[0] != leadsdomain.StatusInvited {
		t.Fatalf("expected history [INVITED], got %v", h)
	}
}

func TestRunInviteRetriesFailedInvitation(t *testing.T) {
	f := newFixture()
	f.provider.profiles["ok"] = provider.Profile{ProviderID: "P1", PublicIdentifier: "ok", FirstName: "Ok"}
	f.provider.inviteErr["P1"] = errors.New("provider api 500")
	wf := f.workflows.add(domain.Workflow{
		Kind:        domain.KindInvite,
		Source:      domain.SourceIdentifiers,
		Identifiers: []string{"ok"},
	})

	first, err := f.svc.Run(context.Background(), testCompanyID, wf.ID, RunOptions{})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	delete(f.provider.inviteErr, "P1")
	if _, err := f.svc.Run(context.Background(), testCompanyID, wf.ID, RunOptions{}); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(f.provider.invited) != 1 {
		t.Fatalf("expected the retry to invite, got %v", f.provider.invited)
	}
	h := f.leads.History(first.Leads[0].Lead.ID)
	if len(h) != 2 || h[0] != leadsdomain.StatusInvitedFailed || h[1] != leadsdomain.StatusInvited {
		t.Fatalf("expected history [INVITED_FAILED INVITED], got %v", h)
	}
}

func TestRunKeepsOtherLeadsWhenOneUpsertFails(t *testing.T) {
	f := newFixture()
	identifiers := make([]string, 10)
	for i := range identifiers {
		slug := fmt.Sprintf("p%d", i)
		identifiers[i] = slug
		f.provider.profiles[slug] = provider.Profile{ProviderID: fmt.Sprintf("ID%d", i), PublicIdentifier: slug}
	}
	f.leads.InsertErr = func(l leadsdomain.Lead) error {
		if l.Identifiers().Public == "p5" {
			return errors.New("insert failed")
		}
		return nil
	}
	wf := f.workflows.add(domain.Workflow{Source: domain.SourceIdentifiers, Identifiers: identifiers})

	result, err := f.svc.Run(context.Background(), testCompanyID, wf.ID, RunOptions{})
	if err != nil {
		t.Fatalf("one failed item must not fail the run: %v", err)
	}
	if len(result.Leads) != 9 {
		t.Fatalf("expected 9 leads, got %d", len(result.Leads))
	}
	if n := f.leads.LeadCount(); n != 9 {
		t.Fatalf("expected 9 stored leads, got %d", n)
	}
	entries := f.workflows.entries()
	if len(entries) != 1 || entries[0].Status != domain.RunSuccess {
		t.Fatalf("expected one SUCCESS history row, got %+v", entries)
	}
}

func TestRunUnknownWorkflowFailsWithoutHistory(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Run(context.Background(), testCompanyID, uuid.New(), RunOptions{})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(f.workflows.entries()) != 0 {
		t.Fatal("validation failures must not write history")
	}
}

func TestRunDisconnectedProviderIsValidationError(t *testing.T) {
	f := newFixture()
	wf := f.workflows.add(domain.Workflow{Source: domain.SourceIdentifiers, Identifiers: []string{"a"}})
	f.workflows.providers = map[uuid.UUID]domain.Provider{}

	_, err := f.svc.Run(context.Background(), testCompanyID, wf.ID, RunOptions{})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.workflows.entries()) != 0 {
		t.Fatal("validation failures must not write history")
	}
}

func TestRunRejectsIdentifierOverrideForSearch(t *testing.T) {
	f := newFixture()
	wf := f.workflows.add(domain.Workflow{Source: domain.SourceSearch})

	_, err := f.svc.Run(context.Background(), testCompanyID, wf.ID, RunOptions{Identifiers: []string{"x"}})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRunFirstSearchPageFailureRecordsFailedRun(t *testing.T) {
	f := newFixture()
	f.provider.searchErr["c0"] = errors.New("connection refused")
	wf := f.workflows.add(domain.Workflow{Name: "growth", Source: domain.SourceSearch, Cursor: "c0"})

	var (
		mu     sync.Mutex
		failed []events.WorkflowRunFailed
	)
	f.bus.Subscribe(events.WorkflowRunFailed{}.EventName(), eventbus.HandlerFunc(func(_ context.Context, e eventbus.Event) error {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, e.(events.WorkflowRunFailed))
		return nil
	}))

	_, err := f.svc.Run(context.Background(), testCompanyID, wf.ID, RunOptions{})
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	f.bus.Wait()

	entries := f.workflows.entries()
	if len(entries) != 1 {
		t.Fatalf("expected exactly one history row, got %d", len(entries))
	}
	if entries[0].Status != domain.RunFailed || entries[0].Cursor != "c0" {
		t.Fatalf("expected FAILED row keeping cursor c0, got %+v", entries[0])
	}
	if len(failed) != 1 || failed[0].WorkflowName != "growth" {
		t.Fatalf("expected one failure event, got %+v", failed)
	}
}

func TestRunSearchCarriesCursorAcrossPages(t *testing.T) {
	f := newFixture()
	f.provider.pages[""] = provider.SearchPage{
		Items:  []provider.SearchResult{{ID: "A1", PublicIdentifier: "a", Name: "Ann A"}, {ID: "B1", PublicIdentifier: "b", Name: "Bob B"}},
		Cursor: "c1",
	}
	f.provider.pages["c1"] = provider.SearchPage{
		Items:  []provider.SearchResult{{ID: "C1", PublicIdentifier: "c", Name: "Cat C"}},
		Cursor: "c2",
	}
	f.provider.searchErr["c2"] = errors.New("rate limited")
	wf := f.workflows.add(domain.Workflow{
		Source:         domain.SourceSearch,
		SearchCriteria: json.RawMessage(`{"keywords":"founder"}`),
	})

	result, err := f.svc.Run(context.Background(), testCompanyID, wf.ID, RunOptions{})
	if err != nil {
		t.Fatalf("a later page failure must not fail the run: %v", err)
	}
	if len(result.Leads) != 3 {
		t.Fatalf("expected 3 leads, got %d", len(result.Leads))
	}
	for _, l := range result.Leads {
		if l.Status != leadsdomain.StatusSearched || !l.StatusRecorded {
			t.Fatalf("expected recorded SEARCHED status, got %+v", l)
		}
	}
	if result.Workflow.Cursor != "c2" {
		t.Fatalf("expected cursor c2 stored, got %q", result.Workflow.Cursor)
	}

	var stored provider.SearchCriteria
	if err := json.Unmarshal(result.Workflow.SearchCriteria, &stored); err != nil {
		t.Fatalf("stored criteria: %v", err)
	}
	if stored.Keywords != "founder" || stored.Category != "people" {
		t.Fatalf("expected criteria used to be stored with defaults, got %+v", stored)
	}

	entries := f.workflows.entries()
	if len(entries) != 1 || entries[0].Status != domain.RunSuccess || entries[0].Cursor != "c2" {
		t.Fatalf("unexpected history: %+v", entries)
	}
}

func TestRunSearchStopsAtMaxResults(t *testing.T) {
	f := newFixture()
	f.provider.pages[""] = provider.SearchPage{
		Items:  []provider.SearchResult{{ID: "A1", Name: "Ann A"}, {ID: "B1", Name: "Bob B"}},
		Cursor: "c1",
	}
	f.provider.pages["c1"] = provider.SearchPage{
		Items:  []provider.SearchResult{{ID: "C1", Name: "Cat C"}},
		Cursor: "c2",
	}
	wf := f.workflows.add(domain.Workflow{Source: domain.SourceSearch, MaxResults: 2})

	result, err := f.svc.Run(context.Background(), testCompanyID, wf.ID, RunOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Leads) != 2 {
		t.Fatalf("expected 2 leads, got %d", len(result.Leads))
	}
	if len(f.provider.cursorsHit) != 1 {
		t.Fatalf("expected a single page fetch, got %v", f.provider.cursorsHit)
	}
	if result.Workflow.Cursor != "c1" {
		t.Fatalf("expected cursor c1, got %q", result.Workflow.Cursor)
	}
}

func TestRunIdentifiersArchivesRawProfiles(t *testing.T) {
	f := newFixture()
	archiver := &fakeArchiver{}
	f.svc.SetArchiver(archiver)
	f.provider.profiles["jdoe"] = provider.Profile{
		ProviderID:       "abc123",
		PublicIdentifier: "jdoe",
		FirstName:        "John",
		Raw:              json.RawMessage(`{"provider_id":"abc123"}`),
	}
	wf := f.workflows.add(domain.Workflow{Source: domain.SourceIdentifiers, Identifiers: []string{"jdoe", "missing"}})

	result, err := f.svc.Run(context.Background(), testCompanyID, wf.ID, RunOptions{})
	if err != nil {
		t.Fatalf("one missing profile must not fail the run: %v", err)
	}
	if len(result.Leads) != 1 {
		t.Fatalf("expected 1 lead, got %d", len(result.Leads))
	}
	if len(archiver.payloads) != 1 {
		t.Fatalf("expected 1 archived payload, got %d", len(archiver.payloads))
	}
	p := archiver.payloads[0]
	if p.CompanyID != testCompanyID || p.Kind != "profile" || p.Identifier != "jdoe" {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestRunIdentifiersFailsWhenNoProfileFetched(t *testing.T) {
	f := newFixture()
	wf := f.workflows.add(domain.Workflow{Source: domain.SourceIdentifiers, Identifiers: []string{"ghost"}})

	_, err := f.svc.Run(context.Background(), testCompanyID, wf.ID, RunOptions{})
	if !errors.Is(err, provider.ErrNotFound) {
		t.Fatalf("expected wrapped not found, got %v", err)
	}
	entries := f.workflows.entries()
	if len(entries) != 1 || entries[0].Status != domain.RunFailed {
		t.Fatalf("expected one FAILED row, got %+v", entries)
	}
}

func TestRunLeadListReusesSourceLeads(t *testing.T) {
	f := newFixture()
	f.provider.profiles["jdoe"] = provider.Profile{ProviderID: "abc123", PublicIdentifier: "jdoe", FirstName: "John"}
	source := f.workflows.add(domain.Workflow{Source: domain.SourceIdentifiers, Identifiers: []string{"jdoe"}})
	first, err := f.svc.Run(context.Background(), testCompanyID, source.ID, RunOptions{})
	if err != nil {
		t.Fatalf("source run: %v", err)
	}

	sourceID := source.ID
	reuse := f.workflows.add(domain.Workflow{Source: domain.SourceLeadList, SourceWorkflowID: &sourceID})
	result, err := f.svc.Run(context.Background(), testCompanyID, reuse.ID, RunOptions{})
	if err != nil {
		t.Fatalf("lead list run: %v", err)
	}

	if f.leads.LeadCount() != 1 {
		t.Fatalf("expected the lead to be reused, got %d leads", f.leads.LeadCount())
	}
	leadID := first.Leads[0].Lead.ID
	if len(result.Leads) != 1 || result.Leads[0].Lead.ID != leadID || result.Leads[0].Created {
		t.Fatalf("expected existing lead updated, got %+v", result.Leads)
	}
	if !f.leads.Linked(reuse.ID, leadID) {
		t.Fatal("expected lead linked to the reusing workflow")
	}
	if history := f.leads.History(leadID); len(history) != 1 {
		t.Fatalf("re-ingest must not repeat SEARCHED, got %v", history)
	}
}

func TestRunLeadListWithUnknownSourceIsValidationError(t *testing.T) {
	f := newFixture()
	missing := uuid.New()
	wf := f.workflows.add(domain.Workflow{Source: domain.SourceLeadList, SourceWorkflowID: &missing})

	_, err := f.svc.Run(context.Background(), testCompanyID, wf.ID, RunOptions{})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRunReactionsGroupsEngagementPerAuthor(t *testing.T) {
	f := newFixture()
	f.provider.posts = []provider.Post{{ID: "post-1", SocialID: "urn:li:activity:1", ShareURL: "https://example.com/p/1"}}
	f.provider.comments["urn:li:activity:1"] = []provider.Comment{
		{ID: "cm-1", Text: "Great", Date: "2024-05-01T10:00:00Z", Author: provider.Author{ID: "AU1", PublicIdentifier: "ann", Name: "Ann Lee"}},
		{ID: "cm-2", Text: "Agreed", Author: provider.Author{ID: "AU1", PublicIdentifier: "ann", Name: "Ann Lee"}},
	}
	f.provider.reactions["urn:li:activity:1"] = []provider.PostReaction{
		{Value: "LIKE", Author: provider.Author{ID: "AU2", Name: "Ben Ray"}},
		{Value: "LIKE", Author: provider.Author{ID: "AU1", PublicIdentifier: "ann", Name: "Ann Lee"}},
	}
	wf := f.workflows.add(domain.Workflow{Source: domain.SourceReactions, TargetIdentifier: "ceo"})

	result, err := f.svc.Run(context.Background(), testCompanyID, wf.ID, RunOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Leads) != 2 {
		t.Fatalf("expected 2 authors, got %d", len(result.Leads))
	}

	counts := map[string]int{}
	for _, l := range result.Leads {
		counts[*l.Lead.PrivateIdentifier] = f.leads.ChildCount(l.Lead.ID, leadsdomain.ChildReaction)
	}
	if counts["AU1"] != 3 || counts["AU2"] != 1 {
		t.Fatalf("unexpected reaction counts: %v", counts)
	}

	again, err := f.svc.Run(context.Background(), testCompanyID, wf.ID, RunOptions{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	for _, l := range again.Leads {
		if len(l.Inserted.Reactions) != 0 {
			t.Fatalf("re-scrape must not duplicate reactions, got %+v", l.Inserted.Reactions)
		}
	}
}

func TestRunHeldLockIsConflict(t *testing.T) {
	f := newFixture()
	locker := &fakeLocker{held: map[string]bool{}}
	f.svc.SetRunLocker(locker, time.Minute)
	wf := f.workflows.add(domain.Workflow{Source: domain.SourceIdentifiers, Identifiers: []string{"a"}})
	locker.held["workflow-run:"+wf.ID.String()] = true

	_, err := f.svc.Run(context.Background(), testCompanyID, wf.ID, RunOptions{})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(f.workflows.entries()) != 0 {
		t.Fatal("a rejected run must not write history")
	}
}

func TestRunReleasesLock(t *testing.T) {
	f := newFixture()
	locker := &fakeLocker{held: map[string]bool{}}
	f.svc.SetRunLocker(locker, time.Minute)
	f.provider.profiles["a"] = provider.Profile{ProviderID: "A1", PublicIdentifier: "a", FirstName: "Ann"}
	wf := f.workflows.add(domain.Workflow{Source: domain.SourceIdentifiers, Identifiers: []string{"a"}})

	if _, err := f.svc.Run(context.Background(), testCompanyID, wf.ID, RunOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(locker.held) != 0 {
		t.Fatalf("expected lock released, still held: %v", locker.held)
	}
}

func TestRunPatchFailureRecordsFailedRun(t *testing.T) {
	f := newFixture()
	f.provider.profiles["a"] = provider.Profile{ProviderID: "A1", PublicIdentifier: "a", FirstName: "Ann"}
	wf := f.workflows.add(domain.Workflow{Source: domain.SourceIdentifiers, Identifiers: []string{"a"}})
	f.workflows.patchErr = errors.New("connection reset")

	_, err := f.svc.Run(context.Background(), testCompanyID, wf.ID, RunOptions{})
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	entries := f.workflows.entries()
	if len(entries) != 1 || entries[0].Status != domain.RunFailed {
		t.Fatalf("expected one FAILED row, got %+v", entries)
	}
}

func TestEnqueueRequiresQueue(t *testing.T) {
	f := newFixture()
	wf := f.workflows.add(domain.Workflow{Source: domain.SourceIdentifiers, Identifiers: []string{"a"}})

	_, err := f.svc.Enqueue(context.Background(), testCompanyID, wf.ID, RunOptions{})
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestEnqueueValidatesBeforeQueueing(t *testing.T) {
	f := newFixture()
	queue := &fakeEnqueuer{}
	f.svc.SetEnqueuer(queue)
	valid := f.workflows.add(domain.Workflow{Source: domain.SourceIdentifiers, Identifiers: []string{"a"}})
	invalid := f.workflows.add(domain.Workflow{Source: domain.SourceReactions})

	if _, err := f.svc.Enqueue(context.Background(), testCompanyID, invalid.ID, RunOptions{}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.svc.Enqueue(context.Background(), testCompanyID, valid.ID, RunOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queue.queued) != 1 || queue.queued[0] != valid.ID {
		t.Fatalf("expected only the valid workflow queued, got %v", queue.queued)
	}
	if len(f.workflows.entries()) != 0 {
		t.Fatal("enqueueing must not write history")
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	f := newFixture()
	f.provider.profiles["a"] = provider.Profile{ProviderID: "A1", PublicIdentifier: "a", FirstName: "Ann"}
	wf := f.workflows.add(domain.Workflow{Source: domain.SourceIdentifiers, Identifiers: []string{"a"}})
	f.svc.Run(context.Background(), testCompanyID, wf.ID, RunOptions{})
	f.svc.Run(context.Background(), testCompanyID, wf.ID, RunOptions{Identifiers: []string{"ghost"}})

	entries, err := f.svc.History(context.Background(), testCompanyID, wf.ID, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 || entries[0].Status != domain.RunFailed || entries[1].Status != domain.RunSuccess {
		t.Fatalf("unexpected history order: %+v", entries)
	}
}
