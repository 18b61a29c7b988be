package transport

import (
	"time"

	"prospecting_backend/internal/leads/domain"
	"prospecting_backend/internal/leads/reconcile"

	"github.com/google/uuid"
)

// Response DTOs
type LeadResponse struct {
	ID                     uuid.UUID `json:"id"`
	PublicIdentifier       *string   `json:"publicIdentifier,omitempty"`
	PrivateIdentifier      *string   `json:"privateIdentifier,omitempty"`
	FirstName              *string   `json:"firstName,omitempty"`
	LastName               *string   `json:"lastName,omitempty"`
	Headline               *string   `json:"headline,omitempty"`
	Location               *string   `json:"location,omitempty"`
	NetworkDistance        *string   `json:"networkDistance,omitempty"`
	ProfilePictureURL      *string   `json:"profilePictureUrl,omitempty"`
	Emails                 []string  `json:"emails"`
	Phones                 []string  `json:"phones"`
	Addresses              []string  `json:"addresses"`
	IsHiring               *bool     `json:"isHiring,omitempty"`
	IsOpenToWork           *bool     `json:"isOpenToWork,omitempty"`
	CanSendInMail          *bool     `json:"canSendInMail,omitempty"`
	IsInfluencer           *bool     `json:"isInfluencer,omitempty"`
	IsCreator              *bool     `json:"isCreator,omitempty"`
	ConnectionsCount       *int      `json:"connectionsCount,omitempty"`
	FollowerCount          *int      `json:"followerCount,omitempty"`
	SharedConnectionsCount *int      `json:"sharedConnectionsCount,omitempty"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

type StatusResponse struct {
	Status     string    `json:"status"`
	WorkflowID uuid.UUID `json:"workflowId"`
	CreatedAt  time.Time `json:"createdAt"`
}

type LeadDetailResponse struct {
	Lead     LeadResponse     `json:"lead"`
	Statuses []StatusResponse `json:"statuses"`
}

// InsertedChildren counts the child rows one reconciliation wrote.
type InsertedChildren struct {
	WorkExperiences int `json:"workExperiences"`
	Volunteering    int `json:"volunteering"`
	Educations      int `json:"educations"`
	Skills          int `json:"skills"`
	Languages       int `json:"languages"`
	Certifications  int `json:"certifications"`
	Projects        int `json:"projects"`
	Reactions       int `json:"reactions"`
}

type ReconciledLeadResponse struct {
	Lead           LeadResponse     `json:"lead"`
	Created        bool             `json:"created"`
	Status         string           `json:"status,omitempty"`
	StatusRecorded bool             `json:"statusRecorded"`
	Inserted       InsertedChildren `json:"inserted"`
}

func FromLead(l domain.Lead) LeadResponse {
	resp := LeadResponse{
		ID:                     l.ID,
		PublicIdentifier:       l.PublicIdentifier,
		PrivateIdentifier:      l.PrivateIdentifier,
		FirstName:              l.FirstName,
		LastName:               l.LastName,
		Headline:               l.Headline,
		Location:               l.Location,
		ProfilePictureURL:      l.ProfilePictureURL,
		Emails:                 nonNil(l.Emails),
		Phones:                 nonNil(l.Phones),
		Addresses:              nonNil(l.Addresses),
		IsHiring:               l.IsHiring,
		IsOpenToWork:           l.IsOpenToWork,
		CanSendInMail:          l.CanSendInMail,
		IsInfluencer:           l.IsInfluencer,
		IsCreator:              l.IsCreator,
		ConnectionsCount:       l.ConnectionsCount,
		FollowerCount:          l.FollowerCount,
		SharedConnectionsCount: l.SharedConnectionsCount,
		CreatedAt:              l.CreatedAt,
		UpdatedAt:              l.UpdatedAt,
	}
	if l.NetworkDistance != nil {
		d := string(*l.NetworkDistance)
		resp.NetworkDistance = &d
	}
	return resp
}

func FromStatuses(history []domain.LeadStatus) []StatusResponse {
	out := make([]StatusResponse, 0, len(history))
	for _, s := range history {
		out = append(out, StatusResponse{Status: string(s.Status), WorkflowID: s.WorkflowID, CreatedAt: s.CreatedAt})
	}
	return out
}

func FromChildren(c domain.Children) InsertedChildren {
	return InsertedChildren{
		WorkExperiences: len(c.WorkExperiences),
		Volunteering:    len(c.Volunteering),
		Educations:      len(c.Educations),
		Skills:          len(c.Skills),
		Languages:       len(c.Languages),
		Certifications:  len(c.Certifications),
		Projects:        len(c.Projects),
		Reactions:       len(c.Reactions),
	}
}

func FromReconciled(results []reconcile.ReconciledLead) []ReconciledLeadResponse {
	out := make([]ReconciledLeadResponse, 0, len(results))
	for _, r := range results {
		out = append(out, ReconciledLeadResponse{
			Lead:           FromLead(r.Lead),
			Created:        r.Created,
			Status:         string(r.Status),
			StatusRecorded: r.StatusRecorded,
			Inserted:       FromChildren(r.Inserted),
		})
	}
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
