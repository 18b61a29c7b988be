// Package provider is the client for the LinkedIn automation API that
// fetches profiles, runs searches, sends invitations and lists post
// engagement on behalf of a connected account.
package provider

import "encoding/json"

type ContactInfo struct {
	Emails    []string `json:"emails"`
	Phones    []string `json:"phones"`
	Addresses []string `json:"addresses"`
}

type Experience struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

type Volunteering struct {
	Company     string `json:"company"`
	Role        string `json:"role"`
	Cause       string `json:"cause"`
	Description string `json:"description"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

type Education struct {
	School       string `json:"school"`
	Degree       string `json:"degree"`
	FieldOfStudy string `json:"field_of_study"`
	Start        string `json:"start"`
	End          string `json:"end"`
}

type Skill struct {
	Name         string `json:"name"`
	Endorsements int    `json:"endorsement_count"`
}

type Language struct {
	Name        string `json:"name"`
	Proficiency string `json:"proficiency"`
}

type Certification struct {
	Name         string `json:"name"`
	Organization string `json:"organization"`
	URL          string `json:"url"`
	Issued       string `json:"issued"`
}

type Project struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

// Profile is the full profile returned by GetProfile.
type Profile struct {
	ProviderID             string          `json:"provider_id"`
	PublicIdentifier       string          `json:"public_identifier"`
	FirstName              string          `json:"first_name"`
	LastName               string          `json:"last_name"`
	Headline               string          `json:"headline"`
	Location               string          `json:"location"`
	NetworkDistance        string          `json:"network_distance"`
	ProfilePictureURL      string          `json:"profile_picture_url"`
	ContactInfo            ContactInfo     `json:"contact_info"`
	IsHiring               *bool           `json:"hiring"`
	IsOpenToWork           *bool           `json:"open_to_work"`
	CanSendInMail          *bool           `json:"can_send_inmail"`
	IsInfluencer           *bool           `json:"is_influencer"`
	IsCreator              *bool           `json:"is_creator"`
	ConnectionsCount       *int            `json:"connections_count"`
	FollowerCount          *int            `json:"follower_count"`
	SharedConnectionsCount *int            `json:"shared_connections_count"`
	WorkExperience         []Experience    `json:"work_experience"`
	VolunteeringExperience []Volunteering  `json:"volunteering_experience"`
	Education              []Education     `json:"education"`
	Skills                 []Skill         `json:"skills"`
	Languages              []Language      `json:"languages"`
	Certifications         []Certification `json:"certifications"`
	Projects               []Project       `json:"projects"`

	// Raw is the undecoded response body, kept for archiving.
	Raw json.RawMessage `json:"-"`
}

// SearchResult is one row of a people search page. It carries far less
// than a Profile.
type SearchResult struct {
	ID                     string `json:"id"`
	PublicIdentifier       string `json:"public_identifier"`
	Name                   string `json:"name"`
	Headline               string `json:"headline"`
	Location               string `json:"location"`
	NetworkDistance        string `json:"network_distance"`
	ProfilePictureURL      string `json:"profile_picture_url"`
	SharedConnectionsCount *int   `json:"shared_connections_count"`
	IsOpenToWork           *bool  `json:"open_to_work"`
	IsHiring               *bool  `json:"hiring"`
}

// SearchCriteria is the people search request body, stored on the workflow
// as JSON.
type SearchCriteria struct {
	API             string   `json:"api,omitempty"`
	Category        string   `json:"category,omitempty"`
	Keywords        string   `json:"keywords,omitempty"`
	Location        []string `json:"location,omitempty"`
	Industry        []string `json:"industry,omitempty"`
	Company         []string `json:"company,omitempty"`
	NetworkDistance []int    `json:"network_distance,omitempty"`
	ProfileLanguage []string `json:"profile_language,omitempty"`
}

// WithDefaults fills the fields the API requires for a people search.
func (c SearchCriteria) WithDefaults() SearchCriteria {
	if c.API == "" {
		c.API = "classic"
	}
	if c.Category == "" {
		c.Category = "people"
	}
	return c
}

type SearchPage struct {
	Items  []SearchResult `json:"items"`
	Cursor string         `json:"cursor"`
}

// Author identifies whoever commented on or reacted to a post.
type Author struct {
	ID                string `json:"id"`
	PublicIdentifier  string `json:"public_identifier"`
	Name              string `json:"name"`
	Headline          string `json:"headline"`
	ProfilePictureURL string `json:"profile_picture_url"`
	NetworkDistance   string `json:"network_distance"`
}

type Post struct {
	ID       string `json:"id"`
	SocialID string `json:"social_id"`
	ShareURL string `json:"share_url"`
	Text     string `json:"text"`
	Date     string `json:"parsed_datetime"`
}

type Comment struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Date   string `json:"date"`
	Author Author `json:"author_details"`
}

type PostReaction struct {
	Value  string `json:"value"`
	Author Author `json:"author"`
}

type Invitation struct {
	InvitationID string `json:"invitation_id"`
}

type listPage[T any] struct {
	Items  []T    `json:"items"`
	Cursor string `json:"cursor"`
}
