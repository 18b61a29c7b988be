// Package leadstest provides an in-memory lead store for tests of packages
// that reconcile or read leads.
package leadstest

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"prospecting_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// Store is an in-memory lead store with the same uniqueness and status guard
// rules as the Postgres repository.
type Store struct {
	mu        sync.Mutex
	leads     map[uuid.UUID]domain.Lead
	links     []link
	statuses  map[uuid.UUID][]domain.LeadStatus
	counts    map[uuid.UUID]map[domain.ChildKind]int
	reactions map[uuid.UUID]map[string]struct{}

	findCalls int

	// FindErr fails the n-th FindByIdentifiers call (1-based) when it returns non-nil.
	FindErr      func(call int) error
	// InsertErr fails InsertLead for matching leads.
	InsertErr    func(lead domain.Lead) error
	// BeforeInsert runs once, before the next InsertLead checks uniqueness.
	BeforeInsert func()
	CountErr     error

	// ChildErr fails the insert of a matching child row, reactions included.
	ChildErr func(kind domain.ChildKind, item any) error
}

type link struct {
	workflowID, leadID, companyID uuid.UUID
}

func NewStore() *Store {
	return &Store{
		leads:     map[uuid.UUID]domain.Lead{},
		statuses:  map[uuid.UUID][]domain.LeadStatus{},
		counts:    map[uuid.UUID]map[domain.ChildKind]int{},
		reactions: map[uuid.UUID]map[string]struct{}{},
	}
}

func (s *Store) FindByIdentifiers(_ context.Context, companyID, providerID uuid.UUID, identifiers []string) ([]domain.IdentityMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	if s.FindErr != nil {
		if err := s.FindErr(s.findCalls); err != nil {
			return nil, err
		}
	}

	wanted := make(map[string]bool, len(identifiers))
	for _, id := range identifiers {
		wanted[id] = true
	}
	var out []domain.IdentityMatch
	for _, l := range s.leads {
		if l.CompanyID != companyID || l.ProviderID != providerID {
			continue
		}
		ids := l.Identifiers()
		if (ids.Public != "" && wanted[ids.Public]) || (ids.Private != "" && wanted[ids.Private]) {
			out = append(out, domain.IdentityMatch{ID: l.ID, PublicIdentifier: l.PublicIdentifier, PrivateIdentifier: l.PrivateIdentifier, CreatedAt: l.CreatedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out, nil
}

// conflict reports whether another lead in the same scope already owns one
// of lead's identifiers.
func (s *Store) conflict(lead domain.Lead) bool {
	ids := lead.Identifiers()
	for _, other := range s.leads {
		if other.ID == lead.ID || other.CompanyID != lead.CompanyID || other.ProviderID != lead.ProviderID {
			continue
		}
		o := other.Identifiers()
		if (ids.Public != "" && o.Public == ids.Public) || (ids.Private != "" && o.Private == ids.Private) {
			return true
		}
	}
	return false
}

func (s *Store) InsertLead(_ context.Context, lead domain.Lead) (domain.Lead, error) {
	s.mu.Lock()
	hook := s.BeforeInsert
	s.BeforeInsert = nil
	s.mu.Unlock()
	if hook != nil {
		hook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InsertErr != nil {
		if err := s.InsertErr(lead); err != nil {
			return domain.Lead{}, err
		}
	}
	if s.conflict(lead) {
		return domain.Lead{}, domain.ErrLeadExists
	}
	lead.ID = uuid.New()
	lead.CreatedAt = time.Now()
	lead.UpdatedAt = lead.CreatedAt
	s.leads[lead.ID] = lead
	return lead, nil
}

func (s *Store) UpdateLead(_ context.Context, lead domain.Lead) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.leads[lead.ID]
	if !ok || stored.CompanyID != lead.CompanyID {
		return domain.Lead{}, domain.ErrLeadNotFound
	}

	merged := stored
	coalesce(&merged.PublicIdentifier, lead.PublicIdentifier)
	coalesce(&merged.PrivateIdentifier, lead.PrivateIdentifier)
	coalesce(&merged.FirstName, lead.FirstName)
	coalesce(&merged.LastName, lead.LastName)
	coalesce(&merged.Headline, lead.Headline)
	coalesce(&merged.Location, lead.Location)
	if len(lead.Emails) > 0 {
		merged.Emails = lead.Emails
	}
	if len(lead.Phones) > 0 {
		merged.Phones = lead.Phones
	}
	if s.conflict(merged) {
		return domain.Lead{}, domain.ErrLeadExists
	}
	merged.UpdatedAt = time.Now()
	s.leads[merged.ID] = merged
	return merged, nil
}

func coalesce[T any](dst **T, src *T) {
	if src != nil {
		*dst = src
	}
}

func (s *Store) LinkWorkflow(_ context.Context, workflowID, leadID, companyID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.links {
		if l.workflowID == workflowID && l.leadID == leadID {
			return nil
		}
	}
	s.links = append(s.links, link{workflowID: workflowID, leadID: leadID, companyID: companyID})
	return nil
}

// ListByWorkflow returns the leads linked to workflowID in link order.
func (s *Store) ListByWorkflow(_ context.Context, workflowID, companyID uuid.UUID, limit int) ([]domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Lead, 0)
	for _, l := range s.links {
		if l.workflowID != workflowID || l.companyID != companyID {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, s.leads[l.leadID])
	}
	return out, nil
}

func (s *Store) AppendStatus(_ context.Context, entry domain.LeadStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.statuses[entry.LeadID]
	var latest *domain.LeadStatus
	if len(history) > 0 {
		latest = &history[len(history)-1]
	}
	if !domain.ShouldRecordStatus(latest, entry.Status) {
		return false, nil
	}
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	s.statuses[entry.LeadID] = append(history, entry)
	return true, nil
}

func (s *Store) LatestStatus(_ context.Context, leadID uuid.UUID) (*domain.LeadStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.statuses[leadID]
	if len(history) == 0 {
		return nil, nil
	}
	latest := history[len(history)-1]
	return &latest, nil
}

func (s *Store) CountChildren(_ context.Context, leadID uuid.UUID) (map[domain.ChildKind]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CountErr != nil {
		return nil, s.CountErr
	}
	out := make(map[domain.ChildKind]int, len(s.counts[leadID]))
	for k, v := range s.counts[leadID] {
		out[k] = v
	}
	return out, nil
}

func (s *Store) ReactionKeys(_ context.Context, leadID uuid.UUID) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.reactions[leadID]))
	for k := range s.reactions[leadID] {
		out[k] = struct{}{}
	}
	return out, nil
}

func (s *Store) addChild(leadID uuid.UUID, kind domain.ChildKind, item any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ChildErr != nil {
		if err := s.ChildErr(kind, item); err != nil {
			return err
		}
	}
	if s.counts[leadID] == nil {
		s.counts[leadID] = map[domain.ChildKind]int{}
	}
	s.counts[leadID][kind]++
	return nil
}

func (s *Store) InsertWorkExperience(_ context.Context, leadID uuid.UUID, item domain.WorkExperience) error {
	return s.addChild(leadID, domain.ChildWorkExperience, item)
}

func (s *Store) InsertVolunteering(_ context.Context, leadID uuid.UUID, item domain.VolunteeringExperience) error {
	return s.addChild(leadID, domain.ChildVolunteering, item)
}

func (s *Store) InsertEducation(_ context.Context, leadID uuid.UUID, item domain.Education) error {
	return s.addChild(leadID, domain.ChildEducation, item)
}

func (s *Store) InsertSkill(_ context.Context, leadID uuid.UUID, item domain.Skill) error {
	return s.addChild(leadID, domain.ChildSkill, item)
}

func (s *Store) InsertLanguage(_ context.Context, leadID uuid.UUID, item domain.Language) error {
	return s.addChild(leadID, domain.ChildLanguage, item)
}

func (s *Store) InsertCertification(_ context.Context, leadID uuid.UUID, item domain.Certification) error {
	return s.addChild(leadID, domain.ChildCertification, item)
}

func (s *Store) InsertProject(_ context.Context, leadID uuid.UUID, item domain.Project) error {
	return s.addChild(leadID, domain.ChildProject, item)
}

func (s *Store) InsertReaction(_ context.Context, leadID uuid.UUID, item domain.Reaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ChildErr != nil {
		if err := s.ChildErr(domain.ChildReaction, item); err != nil {
			return err
		}
	}
	if s.reactions[leadID] == nil {
		s.reactions[leadID] = map[string]struct{}{}
	}
	if _, ok := s.reactions[leadID][item.ReactionID]; ok {
		return domain.ErrDuplicateChild
	}
	s.reactions[leadID][item.ReactionID] = struct{}{}
	return nil
}

// Seed stores lead as is.
func (s *Store) Seed(lead domain.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads[lead.ID] = lead
}

func (s *Store) FindCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findCalls
}

func (s *Store) LeadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.leads)
}

// Linked reports whether leadID is linked to workflowID.
func (s *Store) Linked(workflowID, leadID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.links {
		if l.workflowID == workflowID && l.leadID == leadID {
			return true
		}
	}
	return false
}

// History returns the recorded statuses of leadID, oldest first.
func (s *Store) History(leadID uuid.UUID) []domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Status, 0, len(s.statuses[leadID]))
	for _, st := range s.statuses[leadID] {
		out = append(out, st.Status)
	}
	return out
}

// ChildCount returns the stored rows of kind for leadID.
func (s *Store) ChildCount(leadID uuid.UUID, kind domain.ChildKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kind == domain.ChildReaction {
		return len(s.reactions[leadID])
	}
	return s.counts[leadID][kind]
}
