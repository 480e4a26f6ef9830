package models

import "time"

type Recommendation string

const (
	RecommendationLayak      Recommendation = "LAYAK"
	RecommendationTidakLayak Recommendation = "TIDAK_LAYAK"
	RecommendationRevisi     Recommendation = "REVISI"
)

func (r Recommendation) Valid() bool {
	switch r {
	case RecommendationLayak, RecommendationTidakLayak, RecommendationRevisi:
		return true
	}
	return false
}

// Review is a reviewer's evaluation for one submission cycle of a proposal.
type Review struct {
	ReviewID       uint           `gorm:"primaryKey;column:review_id" json:"review_id"`
	ProposalID     uint           `gorm:"column:proposal_id;not null;uniqueIndex:idx_review_cycle" json:"proposal_id"`
	ReviewerID     uint           `gorm:"column:reviewer_id;not null;uniqueIndex:idx_review_cycle;index" json:"reviewer_id"`
	Cycle          int            `gorm:"column:cycle;not null;uniqueIndex:idx_review_cycle" json:"cycle"`
	Score          *int           `gorm:"column:score" json:"score"`
	Recommendation Recommendation `gorm:"column:recommendation;size:20;index" json:"recommendation"`
	Notes          string         `gorm:"column:notes;type:text" json:"notes"`
	Version        int            `gorm:"column:version" json:"version"`
	ReviewedAt     time.Time      `gorm:"column:reviewed_at" json:"reviewed_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at" json:"updated_at"`

	Reviewer *User     `gorm:"foreignKey:ReviewerID;references:UserID" json:"reviewer,omitempty"`
	Proposal *Proposal `gorm:"foreignKey:ProposalID;references:ProposalID" json:"proposal,omitempty"`
}

// TableName specifies the table name for Review.
func (Review) TableName() string {
	return "proposal_reviews"
}

// RecommendationSummary counts reviews per recommendation.
type RecommendationSummary struct {
	Total      int64 `json:"total"`
	Layak      int64 `json:"layak"`
	TidakLayak int64 `json:"tidak_layak"`
	Revisi     int64 `json:"revisi"`
}

// Add counts one review with recommendation r.
func (s *RecommendationSummary) Add(r Recommendation, n int64) {
	switch r {
	case RecommendationLayak:
		s.Layak += n
	case RecommendationTidakLayak:
		s.TidakLayak += n
	case RecommendationRevisi:
		s.Revisi += n
	default:
		return
	}
	s.Total += n
}

// SummarizeReviews derives the summary from rows.
func SummarizeReviews(reviews []Review) RecommendationSummary {
	var s RecommendationSummary
	for _, r := range reviews {
		s.Add(r.Recommendation, 1)
	}
	return s
}
