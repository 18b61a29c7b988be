package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrLeadNotFound is returned when a lead id does not exist in the tenant scope.
	ErrLeadNotFound = errors.New("lead not found")
	// ErrLeadExists is returned when an insert hits one of the identifier
	// unique indexes, i.e. a concurrent run created the same person first.
	ErrLeadExists = errors.New("lead already exists")
	// ErrDuplicateChild is returned when a child row with the same natural key
	// is already stored.
	ErrDuplicateChild = errors.New("child record already exists")
)

// Lead is the canonical record of one person within (company, provider).
// Optional fields are pointers; nil means "not known from this source" and
// never overwrites a stored value.
type Lead struct {
	ID                     uuid.UUID
	CompanyID              uuid.UUID
	ProviderID             uuid.UUID
	PublicIdentifier       *string
	PrivateIdentifier      *string
	FirstName              *string
	LastName               *string
	Headline               *string
	Location               *string
	NetworkDistance        *NetworkDistance
	ProfilePictureURL      *string
	Emails                 []string
	Phones                 []string
	Addresses              []string
	IsHiring               *bool
	IsOpenToWork           *bool
	CanSendInMail          *bool
	IsInfluencer           *bool
	IsCreator              *bool
	ConnectionsCount       *int
	FollowerCount          *int
	SharedConnectionsCount *int
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Identifiers returns the lead's identity keys.
func (l Lead) Identifiers() Identifiers {
	var ids Identifiers
	if l.PublicIdentifier != nil {
		ids.Public = *l.PublicIdentifier
	}
	if l.PrivateIdentifier != nil {
		ids.Private = *l.PrivateIdentifier
	}
	return ids
}

// SetIdentifiers stores ids, leaving empty ones nil.
func (l *Lead) SetIdentifiers(ids Identifiers) {
	l.PublicIdentifier = optional(ids.Public)
	l.PrivateIdentifier = optional(ids.Private)
}

// IdentityMatch is a stored lead as seen by the identity resolver.
type IdentityMatch struct {
	ID                uuid.UUID
	PublicIdentifier  *string
	PrivateIdentifier *string
	CreatedAt         time.Time
}

// Matches reports whether ids refer to the stored lead: equal public slug or
// equal private id. Empty identifiers never match.
func (m IdentityMatch) Matches(ids Identifiers) bool {
	if ids.Public != "" && m.PublicIdentifier != nil && *m.PublicIdentifier == ids.Public {
		return true
	}
	if ids.Private != "" && m.PrivateIdentifier != nil && *m.PrivateIdentifier == ids.Private {
		return true
	}
	return false
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
