package domain

import "time"

// ChildKind names a child substructure table of a lead.
type ChildKind string

const (
	ChildWorkExperience ChildKind = "work_experience"
	ChildVolunteering   ChildKind = "volunteering_experience"
	ChildEducation      ChildKind = "education"
	ChildSkill          ChildKind = "skill"
	ChildLanguage       ChildKind = "language"
	ChildCertification  ChildKind = "certification"
	ChildProject        ChildKind = "project"
	ChildReaction       ChildKind = "reaction"
)

// StaticChildKinds are filled once from a profile and never topped up.
var StaticChildKinds = []ChildKind{
	ChildWorkExperience,
	ChildVolunteering,
	ChildEducation,
	ChildSkill,
	ChildLanguage,
	ChildCertification,
	ChildProject,
}

type WorkExperience struct {
	Company     string
	Position    string
	Location    string
	Description string
	StartDate   *time.Time
	EndDate     *time.Time
}

type VolunteeringExperience struct {
	Organization string
	Role         string
	Cause        string
	Description  string
	StartDate    *time.Time
	EndDate      *time.Time
}

type Education struct {
	School       string
	Degree       string
	FieldOfStudy string
	StartDate    *time.Time
	EndDate      *time.Time
}

type Skill struct {
	Name         string
	Endorsements int
}

type Language struct {
	Name        string
	Proficiency string
}

type Certification struct {
	Name         string
	Organization string
	URL          string
	IssuedAt     *time.Time
}

type Project struct {
	Name        string
	Description string
	StartDate   *time.Time
	EndDate     *time.Time
}

// ReactionKind tells apart likes and comments on a post.
type ReactionKind string

const (
	ReactionKindReaction ReactionKind = "reaction"
	ReactionKindComment  ReactionKind = "comment"
)

// Reaction is an engagement of the lead with a post. ReactionID is the
// natural key: the comment id for comments, post id and author id for likes.
type Reaction struct {
	ReactionID   string
	Kind         ReactionKind
	PostID       string
	PostURL      string
	ReactionType string
	CommentText  string
	ReactedAt    *time.Time
}

// Children groups every child substructure carried by one profile.
type Children struct {
	WorkExperiences []WorkExperience
	Volunteering    []VolunteeringExperience
	Educations      []Education
	Skills          []Skill
	Languages       []Language
	Certifications  []Certification
	Projects        []Project
	Reactions       []Reaction
}

// HasStatic reports whether any static kind carries items.
func (c Children) HasStatic() bool {
	return len(c.WorkExperiences) > 0 || len(c.Volunteering) > 0 || len(c.Educations) > 0 ||
		len(c.Skills) > 0 || len(c.Languages) > 0 || len(c.Certifications) > 0 || len(c.Projects) > 0
}

// Empty reports whether c carries nothing at all.
func (c Children) Empty() bool {
	return !c.HasStatic() && len(c.Reactions) == 0
}

// Count returns the number of items of kind.
func (c Children) Count(kind ChildKind) int {
	switch kind {
	case ChildWorkExperience:
		return len(c.WorkExperiences)
	case ChildVolunteering:
		return len(c.Volunteering)
	case ChildEducation:
		return len(c.Educations)
	case ChildSkill:
		return len(c.Skills)
	case ChildLanguage:
		return len(c.Languages)
	case ChildCertification:
		return len(c.Certifications)
	case ChildProject:
		return len(c.Projects)
	case ChildReaction:
		return len(c.Reactions)
	}
	return 0
}
