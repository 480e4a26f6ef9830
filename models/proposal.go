package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProposalStatus string

const (
	StatusDraft     ProposalStatus = "DRAFT"
	StatusSubmitted ProposalStatus = "SUBMITTED"
	StatusReview    ProposalStatus = "REVIEW"
	StatusApproved  ProposalStatus = "APPROVED"
	StatusRejected  ProposalStatus = "REJECTED"
	StatusRevision  ProposalStatus = "REVISION"
	StatusCompleted ProposalStatus = "COMPLETED"
)

func (s ProposalStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusReview, StatusApproved,
		StatusRejected, StatusRevision, StatusCompleted:
		return true
	}
	return false
}

// IsEditable reports whether content and team may still change.
func (s ProposalStatus) IsEditable() bool {
	return s == StatusDraft || s == StatusRevision
}

// IsUnderReview reports whether reviews may be created or edited.
func (s ProposalStatus) IsUnderReview() bool {
	return s == StatusSubmitted || s == StatusReview
}

// Proposal represents the proposals table
type Proposal struct {
	ProposalID      uint           `gorm:"primaryKey;column:proposal_id" json:"proposal_id"`
	Title           string         `gorm:"column:title;size:255" json:"title"`
	Abstract        string         `gorm:"column:abstract;type:text" json:"abstract"`
	Keywords        datatypes.JSON `gorm:"column:keywords" json:"keywords"`
	FundingAmount   float64        `gorm:"column:funding_amount" json:"funding_amount"`
	Year            int            `gorm:"column:year" json:"year"`
	SchemeID        uint           `gorm:"column:scheme_id" json:"scheme_id"`
	Status          ProposalStatus `gorm:"column:status;size:20;index" json:"status"`
	KetuaID         uint           `gorm:"column:ketua_id;index" json:"ketua_id"`
	ReviewerID      *uint          `gorm:"column:reviewer_id;index" json:"reviewer_id"`
	ReviewerComment *string        `gorm:"column:reviewer_comment;type:text" json:"reviewer_comment"`
	SubmissionCycle int            `gorm:"column:submission_cycle" json:"submission_cycle"`
	Version         int            `gorm:"column:version" json:"version"`
	CreatedAt       time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"column:updated_at" json:"updated_at"`
	SubmittedAt     *time.Time     `gorm:"column:submitted_at" json:"submitted_at"`
	ReviewedAt      *time.Time     `gorm:"column:reviewed_at" json:"reviewed_at"`
	CompletedAt     *time.Time     `gorm:"column:completed_at" json:"completed_at"`
	DeletedAt       gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`

	Ketua    *User    `gorm:"foreignKey:KetuaID;references:UserID" json:"ketua,omitempty"`
	Reviewer *User    `gorm:"foreignKey:ReviewerID;references:UserID" json:"reviewer,omitempty"`
	Scheme   *Scheme  `gorm:"foreignKey:SchemeID;references:SchemeID" json:"scheme,omitempty"`
	Members  []Member `gorm:"foreignKey:ProposalID;references:ProposalID" json:"members,omitempty"`
}

// TableName overrides the table name for Proposal
func (Proposal) TableName() string {
	return "proposals"
}

// ReviewerAssignment is either unassigned or assigned to one reviewer.
type ReviewerAssignment struct {
	Assigned   bool `json:"assigned"`
	ReviewerID uint `json:"reviewer_id,omitempty"`
}

func Unassigned() ReviewerAssignment { return ReviewerAssignment{} }

func AssignedTo(reviewerID uint) ReviewerAssignment {
	return ReviewerAssignment{Assigned: true, ReviewerID: reviewerID}
}

// Is reports whether the assignment names userID.
func (a ReviewerAssignment) Is(userID uint) bool {
	return a.Assigned && a.ReviewerID == userID
}

// Assignment reads the reviewer column as a ReviewerAssignment.
func (p *Proposal) Assignment() ReviewerAssignment {
	if p.ReviewerID == nil || *p.ReviewerID == 0 {
		return Unassigned()
	}
	return AssignedTo(*p.ReviewerID)
}

// Assign stores a into the reviewer column.
func (p *Proposal) Assign(a ReviewerAssignment) {
	if !a.Assigned {
		p.ReviewerID = nil
		return
	}
	id := a.ReviewerID
	p.ReviewerID = &id
}

func (p *Proposal) IsOwner(userID uint) bool {
	return userID != 0 && p.KetuaID == userID
}

// KeywordList decodes the keywords column; malformed data yields nil.
func (p *Proposal) KeywordList() []string {
	if len(p.Keywords) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(p.Keywords, &out); err != nil {
		return nil
	}
	return out
}

func (p *Proposal) SetKeywords(words []string) {
	if words == nil {
		words = []string{}
	}
	raw, _ := json.Marshal(words)
	p.Keywords = datatypes.JSON(raw)
}

// Scheme is the funding scheme lookup.
type Scheme struct {
	SchemeID     uint   `gorm:"primaryKey;column:scheme_id" json:"scheme_id"`
	Code         string `gorm:"column:code;size:50;unique" json:"code"`
	Name         string `gorm:"column:name" json:"name"`
	DisplayOrder int    `gorm:"column:display_order" json:"display_order"`
	IsActive     bool   `gorm:"column:is_active" json:"is_active"`
}

func (Scheme) TableName() string {
	return "schemes"
}
