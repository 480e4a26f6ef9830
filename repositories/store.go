package repositories

import (
	"context"

	"proposal-management-api/models"
	"proposal-management-api/policy"
)

// ProposalFilter narrows ListProposals.
type ProposalFilter struct {
	Scope    policy.Scope
	Statuses []models.ProposalStatus
	Year     int
	SchemeID uint
	Search   string
	Limit    int
	Offset   int
}

// ReviewFilter narrows ListReviews and CountReviewsByRecommendation.
type ReviewFilter struct {
	Scope          policy.Scope
	ProposalID     uint
	Recommendation models.Recommendation
}

type ProposalRepository interface {
	CreateProposal(ctx context.Context, p *models.Proposal) error
	GetProposal(ctx context.Context, id uint) (*models.Proposal, error)
	// GetProposalForUpdate reads the proposal and holds a row lock until the
	// surrounding transaction ends. Call it inside WithinTx.
	GetProposalForUpdate(ctx context.Context, id uint) (*models.Proposal, error)
	ListProposals(ctx context.Context, f ProposalFilter) ([]models.Proposal, int64, error)
	// UpdateProposal writes p only if the stored version still equals
	// p.Version, then increments p.Version. A stale version is a Conflict.
	UpdateProposal(ctx context.Context, p *models.Proposal) error
	// DeleteProposal soft-deletes p under the same version check.
	DeleteProposal(ctx context.Context, p *models.Proposal) error
	// ListAwaitingReview returns SUBMITTED/REVIEW proposals in scope whose
	// assigned reviewer has not reviewed the current cycle.
	ListAwaitingReview(ctx context.Context, scope policy.Scope) ([]models.Proposal, error)

	AppendStatusHistory(ctx context.Context, h *models.ProposalStatusHistory) error
	ListStatusHistory(ctx context.Context, proposalID uint) ([]models.ProposalStatusHistory, error)
}

type MemberRepository interface {
	AddMember(ctx context.Context, m *models.Member) error
	GetMember(ctx context.Context, proposalID, memberID uint) (*models.Member, error)
	ListMembers(ctx context.Context, proposalID uint) ([]models.Member, error)
	// UpdateMemberStatus moves m from `from` to m.Status; Conflict when the
	// stored status is no longer `from`.
	UpdateMemberStatus(ctx context.Context, m *models.Member, from models.MemberStatus) error
	RemoveMember(ctx context.Context, m *models.Member) error
}

type ReviewRepository interface {
	CreateReview(ctx context.Context, r *models.Review) error
	GetReview(ctx context.Context, id uint) (*models.Review, error)
	FindReview(ctx context.Context, proposalID, reviewerID uint, cycle int) (*models.Review, error)
	UpdateReview(ctx context.Context, r *models.Review) error
	ListReviews(ctx context.Context, f ReviewFilter) ([]models.Review, error)
	CountReviewsByRecommendation(ctx context.Context, f ReviewFilter) (models.RecommendationSummary, error)
}

type DocumentRepository interface {
	CreateDocument(ctx context.Context, d *models.ProposalDocument) error
	GetDocument(ctx context.Context, id uint) (*models.ProposalDocument, error)
	ListDocuments(ctx context.Context, proposalID uint) ([]models.ProposalDocument, error)
	DeleteDocument(ctx context.Context, d *models.ProposalDocument) error
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID uint, unreadOnly bool) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID uint) error
}

// UserRepository is the read-only view of the user directory.
type UserRepository interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsersByRole(ctx context.Context, role models.RoleID) ([]models.User, error)
}

type SchemeRepository interface {
	GetScheme(ctx context.Context, id uint) (*models.Scheme, error)
	ListSchemes(ctx context.Context, activeOnly bool) ([]models.Scheme, error)
}

// Store bundles the repositories. WithinTx runs fn against a Store bound to
// one database transaction; fn's error rolls everything back.
type Store interface {
	ProposalRepository
	MemberRepository
	ReviewRepository
	DocumentRepository
	NotificationRepository
	UserRepository
	SchemeRepository

	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
