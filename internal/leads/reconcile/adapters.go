package reconcile

import (
	"errors"
	"strings"
	"time"

	"prospecting_backend/internal/leads/domain"
	"prospecting_backend/internal/provider"

	"github.com/google/uuid"
)

// ErrNoIdentifier is returned for items that carry neither a public nor a
// private identifier; they cannot be matched or stored.
var ErrNoIdentifier = errors.New("profile has no identifier")

// Adapter maps one kind of incoming profile object onto a LeadCandidate.
type Adapter[T any] interface {
	// Name labels the adapter in logs and metrics.
	Name() string
	Identifiers(item T) domain.Identifiers
	Candidate(item T) (LeadCandidate, error)
}

// ProfileDetailAdapter maps full profiles from GetProfile, children included.
type ProfileDetailAdapter struct{}

func (ProfileDetailAdapter) Name() string { return "profile_detail" }

func (ProfileDetailAdapter) Identifiers(p provider.Profile) domain.Identifiers {
	return domain.Identifiers{Public: p.PublicIdentifier, Private: p.ProviderID}
}

func (a ProfileDetailAdapter) Candidate(p provider.Profile) (LeadCandidate, error) {
	ids := a.Identifiers(p)
	if ids.Normalize().Empty() {
		return LeadCandidate{}, ErrNoIdentifier
	}

	lead := domain.Lead{
		FirstName:              nonEmpty(p.FirstName),
		LastName:               nonEmpty(p.LastName),
		Headline:               nonEmpty(p.Headline),
		Location:               nonEmpty(p.Location),
		NetworkDistance:        distance(p.NetworkDistance),
		ProfilePictureURL:      nonEmpty(p.ProfilePictureURL),
		Emails:                 p.ContactInfo.Emails,
		Phones:                 p.ContactInfo.Phones,
		Addresses:              p.ContactInfo.Addresses,
		IsHiring:               p.IsHiring,
		IsOpenToWork:           p.IsOpenToWork,
		CanSendInMail:          p.CanSendInMail,
		IsInfluencer:           p.IsInfluencer,
		IsCreator:              p.IsCreator,
		ConnectionsCount:       p.ConnectionsCount,
		FollowerCount:          p.FollowerCount,
		SharedConnectionsCount: p.SharedConnectionsCount,
	}
	lead.SetIdentifiers(ids)

	return LeadCandidate{Lead: lead, Children: profileChildren(p)}, nil
}

func profileChildren(p provider.Profile) domain.Children {
	var c domain.Children
	for _, e := range p.WorkExperience {
		c.WorkExperiences = append(c.WorkExperiences, domain.WorkExperience{
			Company: e.Company, Position: e.Position, Location: e.Location, Description: e.Description,
			StartDate: parseDate(e.Start), EndDate: parseDate(e.End),
		})
	}
	for _, v := range p.VolunteeringExperience {
		c.Volunteering = append(c.Volunteering, domain.VolunteeringExperience{
			Organization: v.Company, Role: v.Role, Cause: v.Cause, Description: v.Description,
			StartDate: parseDate(v.Start), EndDate: parseDate(v.End),
		})
	}
	for _, e := range p.Education {
		c.Educations = append(c.Educations, domain.Education{
			School: e.School, Degree: e.Degree, FieldOfStudy: e.FieldOfStudy,
			StartDate: parseDate(e.Start), EndDate: parseDate(e.End),
		})
	}
	for _, s := range p.Skills {
		if strings.TrimSpace(s.Name) == "" {
			continue
		}
		c.Skills = append(c.Skills, domain.Skill{Name: s.Name, Endorsements: s.Endorsements})
	}
	for _, l := range p.Languages {
		if strings.TrimSpace(l.Name) == "" {
			continue
		}
		c.Languages = append(c.Languages, domain.Language{Name: l.Name, Proficiency: l.Proficiency})
	}
	for _, cert := range p.Certifications {
		if strings.TrimSpace(cert.Name) == "" {
			continue
		}
		c.Certifications = append(c.Certifications, domain.Certification{
			Name: cert.Name, Organization: cert.Organization, URL: cert.URL, IssuedAt: parseDate(cert.Issued),
		})
	}
	for _, pr := range p.Projects {
		if strings.TrimSpace(pr.Name) == "" {
			continue
		}
		c.Projects = append(c.Projects, domain.Project{
			Name: pr.Name, Description: pr.Description, StartDate: parseDate(pr.Start), EndDate: parseDate(pr.End),
		})
	}
	return c
}

// SearchResultAdapter maps rows of a people search page. They carry no
// children and no contact data.
type SearchResultAdapter struct{}

func (SearchResultAdapter) Name() string { return "search_result" }

func (SearchResultAdapter) Identifiers(r provider.SearchResult) domain.Identifiers {
	return domain.Identifiers{Public: r.PublicIdentifier, Private: r.ID}
}

func (a SearchResultAdapter) Candidate(r provider.SearchResult) (LeadCandidate, error) {
	ids := a.Identifiers(r)
	if ids.Normalize().Empty() {
		return LeadCandidate{}, ErrNoIdentifier
	}

	first, last := splitName(r.Name)
	lead := domain.Lead{
		FirstName:              first,
		LastName:               last,
		Headline:               nonEmpty(r.Headline),
		Location:               nonEmpty(r.Location),
		NetworkDistance:        distance(r.NetworkDistance),
		ProfilePictureURL:      nonEmpty(r.ProfilePictureURL),
		SharedConnectionsCount: r.SharedConnectionsCount,
		IsOpenToWork:           r.IsOpenToWork,
		IsHiring:               r.IsHiring,
	}
	lead.SetIdentifiers(ids)
	return LeadCandidate{Lead: lead}, nil
}

// InternalLeadAdapter re-ingests leads already stored for another workflow,
// e.g. when a workflow takes its input from an earlier search.
type InternalLeadAdapter struct{}

func (InternalLeadAdapter) Name() string { return "internal_lead" }

func (InternalLeadAdapter) Identifiers(l domain.Lead) domain.Identifiers {
	return l.Identifiers()
}

func (a InternalLeadAdapter) Candidate(l domain.Lead) (LeadCandidate, error) {
	if a.Identifiers(l).Normalize().Empty() {
		return LeadCandidate{}, ErrNoIdentifier
	}
	lead := l
	lead.ID = uuid.Nil
	lead.CreatedAt = time.Time{}
	lead.UpdatedAt = time.Time{}
	return LeadCandidate{Lead: lead}, nil
}

// Engagement is one post author together with their comments and reactions
// on the scraped posts.
type Engagement struct {
	Author    provider.Author
	Reactions []domain.Reaction
}

// EngagementAdapter maps reaction and comment authors, attaching their
// engagements as reaction children.
type EngagementAdapter struct{}

func (EngagementAdapter) Name() string { return "engagement" }

func (EngagementAdapter) Identifiers(e Engagement) domain.Identifiers {
	return domain.Identifiers{Public: e.Author.PublicIdentifier, Private: e.Author.ID}
}

func (a EngagementAdapter) Candidate(e Engagement) (LeadCandidate, error) {
	ids := a.Identifiers(e)
	if ids.Normalize().Empty() {
		return LeadCandidate{}, ErrNoIdentifier
	}

	first, last := splitName(e.Author.Name)
	lead := domain.Lead{
		FirstName:         first,
		LastName:          last,
		Headline:          nonEmpty(e.Author.Headline),
		NetworkDistance:   distance(e.Author.NetworkDistance),
		ProfilePictureURL: nonEmpty(e.Author.ProfilePictureURL),
	}
	lead.SetIdentifiers(ids)
	return LeadCandidate{Lead: lead, Children: domain.Children{Reactions: e.Reactions}}, nil
}

// WithStatus pairs an item with its own status.
type WithStatus[T any] struct {
	Item   T
	Status domain.Status
}

// StatusAdapter wraps an adapter so every candidate carries the status of
// its item instead of the batch status.
type StatusAdapter[T any] struct {
	Inner Adapter[T]
}

func (a StatusAdapter[T]) Name() string { return a.Inner.Name() }

func (a StatusAdapter[T]) Identifiers(item WithStatus[T]) domain.Identifiers {
	return a.Inner.Identifiers(item.Item)
}

func (a StatusAdapter[T]) Candidate(item WithStatus[T]) (LeadCandidate, error) {
	candidate, err := a.Inner.Candidate(item.Item)
	if err != nil {
		return LeadCandidate{}, err
	}
	status := item.Status
	candidate.Status = &status
	return candidate, nil
}

var dateLayouts = []string{"2006-01-02", "2006-01", "1/2006", "01/2006", "1/2/2006", "Jan 2006", "2006"}

// parseDate understands the date spellings seen in profile sections.
// Anything else is treated as absent.
func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		d := t.UTC().Truncate(24 * time.Hour)
		return &d
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func splitName(full string) (*string, *string) {
	fields := strings.Fields(full)
	switch len(fields) {
	case 0:
		return nil, nil
	case 1:
		return &fields[0], nil
	default:
		last := strings.Join(fields[1:], " ")
		return &fields[0], &last
	}
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func distance(raw string) *domain.NetworkDistance {
	d, ok := domain.ParseNetworkDistance(raw)
	if !ok {
		return nil
	}
	return &d
}
