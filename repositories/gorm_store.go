package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"proposal-management-api/apperrors"
	"proposal-management-api/config"
	"proposal-management-api/models"
	"proposal-management-api/policy"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormStore struct {
	db *gorm.DB
}

// NewGormStore returns the gorm-backed Store. A nil db falls back to config.DB.
func NewGormStore(db *gorm.DB) Store {
	if db == nil {
		db = config.DB
	}
	return &gormStore{db: db}
}

var _ Store = (*gormStore)(nil)

func (s *gormStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func translate(op, what string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.NotFound(op, what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.Conflict(op, "%s already exists", what)
	default:
		return apperrors.Internal(op, err)
	}
}

// ===================== PROPOSALS =====================

func (s *gormStore) CreateProposal(ctx context.Context, p *models.Proposal) error {
	return translate("proposals.create", "proposal", s.db.WithContext(ctx).Create(p).Error)
}

func (s *gormStore) GetProposal(ctx context.Context, id uint) (*models.Proposal, error) {
	var p models.Proposal
	err := s.db.WithContext(ctx).Where("proposal_id = ?", id).First(&p).Error
	if err != nil {
		return nil, translate("proposals.get", "proposal", err)
	}
	return &p, nil
}

func (s *gormStore) GetProposalForUpdate(ctx context.Context, id uint) (*models.Proposal, error) {
	var p models.Proposal
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("proposal_id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, translate("proposals.lock", "proposal", err)
	}
	return &p, nil
}

// memberProposalIDs is the subquery of proposals userID belongs to.
func (s *gormStore) memberProposalIDs(userID uint, approvedOnly bool) *gorm.DB {
	q := s.db.Model(&models.Member{}).Select("proposal_id").Where("user_id = ?", userID)
	if approvedOnly {
		q = q.Where("status = ?", models.MemberApproved)
	}
	return q
}

func (s *gormStore) applyProposalScope(q *gorm.DB, scope policy.Scope) *gorm.DB {
	switch {
	case scope.All:
		return q
	case scope.AssignedReviewerID != 0:
		return q.Where("reviewer_id = ?", scope.AssignedReviewerID)
	case scope.OwnerID != 0 && scope.MemberID != 0:
		return q.Where("ketua_id = ? OR proposal_id IN (?)",
			scope.OwnerID, s.memberProposalIDs(scope.MemberID, scope.MemberApprovedOnly))
	case scope.OwnerID != 0:
		return q.Where("ketua_id = ?", scope.OwnerID)
	default:
		return q.Where("1 = 0")
	}
}

func (s *gormStore) ListProposals(ctx context.Context, f ProposalFilter) ([]models.Proposal, int64, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	q := s.applyProposalScope(s.db.WithContext(ctx).Model(&models.Proposal{}), f.Scope)
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.Year != 0 {
		q = q.Where("year = ?", f.Year)
	}
	if f.SchemeID != 0 {
		q = q.Where("scheme_id = ?", f.SchemeID)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		q = q.Where("title LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate("proposals.list", "proposal", err)
	}

	var rows []models.Proposal
	if err := q.Order("updated_at DESC, proposal_id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, 0, translate("proposals.list", "proposal", err)
	}
	return rows, total, nil
}

func (s *gormStore) UpdateProposal(ctx context.Context, p *models.Proposal) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.Proposal{}).
		Where("proposal_id = ? AND version = ?", p.ProposalID, p.Version).
		Updates(map[string]interface{}{
			"title":            p.Title,
			"abstract":         p.Abstract,
			"keywords":         p.Keywords,
			"funding_amount":   p.FundingAmount,
			"year":             p.Year,
			"scheme_id":        p.SchemeID,
			"status":           p.Status,
			"reviewer_id":      p.ReviewerID,
			"reviewer_comment": p.ReviewerComment,
			"submission_cycle": p.SubmissionCycle,
			"submitted_at":     p.SubmittedAt,
			"reviewed_at":      p.ReviewedAt,
			"completed_at":     p.CompletedAt,
			"version":          p.Version + 1,
			"updated_at":       now,
		})
	if res.Error != nil {
		return translate("proposals.update", "proposal", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.Conflict("proposals.update", "proposal %d was modified concurrently", p.ProposalID)
	}
	p.Version++
	p.UpdatedAt = now
	return nil
}

func (s *gormStore) DeleteProposal(ctx context.Context, p *models.Proposal) error {
	res := s.db.WithContext(ctx).
		Where("proposal_id = ? AND version = ?", p.ProposalID, p.Version).
		Delete(&models.Proposal{})
	if res.Error != nil {
		return translate("proposals.delete", "proposal", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.Conflict("proposals.delete", "proposal %d was modified concurrently", p.ProposalID)
	}
	return nil
}

func (s *gormStore) ListAwaitingReview(ctx context.Context, scope policy.Scope) ([]models.Proposal, error) {
	reviewed := s.db.Model(&models.Review{}).
		Select("1").
		Where("proposal_reviews.proposal_id = proposals.proposal_id").
		Where("proposal_reviews.reviewer_id = proposals.reviewer_id").
		Where("proposal_reviews.cycle = proposals.submission_cycle")

	q := s.applyProposalScope(s.db.WithContext(ctx).Model(&models.Proposal{}), scope).
		Where("status IN ?", []models.ProposalStatus{models.StatusSubmitted, models.StatusReview}).
		Where("reviewer_id IS NULL OR NOT EXISTS (?)", reviewed)

	var rows []models.Proposal
	if err := q.Order("submitted_at ASC, proposal_id ASC").Find(&rows).Error; err != nil {
		return nil, translate("proposals.awaitingReview", "proposal", err)
	}
	return rows, nil
}

func (s *gormStore) AppendStatusHistory(ctx context.Context, h *models.ProposalStatusHistory) error {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	return translate("proposals.history", "status history", s.db.WithContext(ctx).Create(h).Error)
}

func (s *gormStore) ListStatusHistory(ctx context.Context, proposalID uint) ([]models.ProposalStatusHistory, error) {
	var rows []models.ProposalStatusHistory
	err := s.db.WithContext(ctx).
		Where("proposal_id = ?", proposalID).
		Order("created_at ASC, history_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate("proposals.history", "status history", err)
	}
	return rows, nil
}

// ===================== MEMBERS =====================

func (s *gormStore) AddMember(ctx context.Context, m *models.Member) error {
	return translate("members.add", "member", s.db.WithContext(ctx).Create(m).Error)
}

func (s *gormStore) GetMember(ctx context.Context, proposalID, memberID uint) (*models.Member, error) {
	var m models.Member
	err := s.db.WithContext(ctx).
		Where("proposal_id = ? AND member_id = ?", proposalID, memberID).
		First(&m).Error
	if err != nil {
		return nil, translate("members.get", "member", err)
	}
	return &m, nil
}

func (s *gormStore) ListMembers(ctx context.Context, proposalID uint) ([]models.Member, error) {
	var rows []models.Member
	err := s.db.WithContext(ctx).Preload("User").
		Where("proposal_id = ?", proposalID).
		Order("member_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate("members.list", "member", err)
	}
	return rows, nil
}

func (s *gormStore) UpdateMemberStatus(ctx context.Context, m *models.Member, from models.MemberStatus) error {
	res := s.db.WithContext(ctx).Model(&models.Member{}).
		Where("member_id = ? AND status = ?", m.MemberID, from).
		Updates(map[string]interface{}{
			"status":       m.Status,
			"responded_at": m.RespondedAt,
		})
	if res.Error != nil {
		return translate("members.updateStatus", "member", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.Conflict("members.updateStatus", "member %d is no longer %s", m.MemberID, from)
	}
	return nil
}

func (s *gormStore) RemoveMember(ctx context.Context, m *models.Member) error {
	res := s.db.WithContext(ctx).Delete(&models.Member{}, m.MemberID)
	if res.Error != nil {
		return translate("members.remove", "member", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("members.remove", "member")
	}
	return nil
}

// ===================== REVIEWS =====================

func (s *gormStore) CreateReview(ctx context.Context, r *models.Review) error {
	return translate("reviews.create", "review", s.db.WithContext(ctx).Create(r).Error)
}

func (s *gormStore) GetReview(ctx context.Context, id uint) (*models.Review, error) {
	var r models.Review
	if err := s.db.WithContext(ctx).Where("review_id = ?", id).First(&r).Error; err != nil {
		return nil, translate("reviews.get", "review", err)
	}
	return &r, nil
}

func (s *gormStore) FindReview(ctx context.Context, proposalID, reviewerID uint, cycle int) (*models.Review, error) {
	var r models.Review
	err := s.db.WithContext(ctx).
		Where("proposal_id = ? AND reviewer_id = ? AND cycle = ?", proposalID, reviewerID, cycle).
		First(&r).Error
	if err != nil {
		return nil, translate("reviews.find", "review", err)
	}
	return &r, nil
}

func (s *gormStore) UpdateReview(ctx context.Context, r *models.Review) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.Review{}).
		Where("review_id = ? AND version = ?", r.ReviewID, r.Version).
		Updates(map[string]interface{}{
			"score":          r.Score,
			"recommendation": r.Recommendation,
			"notes":          r.Notes,
			"version":        r.Version + 1,
			"updated_at":     now,
		})
	if res.Error != nil {
		return translate("reviews.update", "review", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.Conflict("reviews.update", "review %d was modified concurrently", r.ReviewID)
	}
	r.Version++
	r.UpdatedAt = now
	return nil
}

// reviewQuery builds the scoped review query shared by listing and counting,
// so both always see the same rows.
func (s *gormStore) reviewQuery(ctx context.Context, f ReviewFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Review{})

	switch sc := f.Scope; {
	case sc.All:
	case sc.AuthorID != 0:
		q = q.Where("reviewer_id = ?", sc.AuthorID)
	case sc.OwnerID != 0:
		owned := s.db.Model(&models.Proposal{}).Select("proposal_id").Where("ketua_id = ?", sc.OwnerID)
		if sc.MemberID != 0 {
			q = q.Where("proposal_id IN (?) OR proposal_id IN (?)",
				owned, s.memberProposalIDs(sc.MemberID, sc.MemberApprovedOnly))
		} else {
			q = q.Where("proposal_id IN (?)", owned)
		}
	default:
		q = q.Where("1 = 0")
	}

	if f.ProposalID != 0 {
		q = q.Where("proposal_id = ?", f.ProposalID)
	}
	if f.Recommendation != "" {
		q = q.Where("recommendation = ?", f.Recommendation)
	}
	return q
}

func (s *gormStore) ListReviews(ctx context.Context, f ReviewFilter) ([]models.Review, error) {
	var rows []models.Review
	if err := s.reviewQuery(ctx, f).Order("reviewed_at DESC, review_id DESC").Find(&rows).Error; err != nil {
		return nil, translate("reviews.list", "review", err)
	}
	return rows, nil
}

func (s *gormStore) CountReviewsByRecommendation(ctx context.Context, f ReviewFilter) (models.RecommendationSummary, error) {
	var rows []struct {
		Recommendation string
		Total          int64
	}
	var summary models.RecommendationSummary
	err := s.reviewQuery(ctx, f).
		Select("recommendation, COUNT(*) AS total").
		Group("recommendation").
		Scan(&rows).Error
	if err != nil {
		return summary, translate("reviews.count", "review", err)
	}
	for _, row := range rows {
		summary.Add(models.Recommendation(row.Recommendation), row.Total)
	}
	return summary, nil
}

// ===================== DOCUMENTS =====================

func (s *gormStore) CreateDocument(ctx context.Context, d *models.ProposalDocument) error {
	return translate("documents.create", "document", s.db.WithContext(ctx).Create(d).Error)
}

func (s *gormStore) GetDocument(ctx context.Context, id uint) (*models.ProposalDocument, error) {
	var d models.ProposalDocument
	err := s.db.WithContext(ctx).Where("document_id = ? AND delete_at IS NULL", id).First(&d).Error
	if err != nil {
		return nil, translate("documents.get", "document", err)
	}
	return &d, nil
}

func (s *gormStore) ListDocuments(ctx context.Context, proposalID uint) ([]models.ProposalDocument, error) {
	var rows []models.ProposalDocument
	err := s.db.WithContext(ctx).
		Where("proposal_id = ? AND delete_at IS NULL", proposalID).
		Order("uploaded_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate("documents.list", "document", err)
	}
	return rows, nil
}

func (s *gormStore) DeleteDocument(ctx context.Context, d *models.ProposalDocument) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.ProposalDocument{}).
		Where("document_id = ? AND delete_at IS NULL", d.DocumentID).
		Update("delete_at", now)
	if res.Error != nil {
		return translate("documents.delete", "document", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("documents.delete", "document")
	}
	d.DeleteAt = &now
	return nil
}

// ===================== NOTIFICATIONS =====================

func (s *gormStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.CreateAt.IsZero() {
		n.CreateAt = time.Now()
	}
	return translate("notifications.create", "notification", s.db.WithContext(ctx).Create(n).Error)
}

func (s *gormStore) ListNotifications(ctx context.Context, userID uint, unreadOnly bool) ([]models.Notification, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var rows []models.Notification
	if err := q.Order("create_at DESC").Limit(100).Find(&rows).Error; err != nil {
		return nil, translate("notifications.list", "notification", err)
	}
	return rows, nil
}

func (s *gormStore) MarkNotificationRead(ctx context.Context, userID, notificationID uint) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("notification_id = ? AND user_id = ?", notificationID, userID).
		Updates(map[string]interface{}{"is_read": true, "update_at": now})
	if res.Error != nil {
		return translate("notifications.read", "notification", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("notifications.read", "notification")
	}
	return nil
}

// ===================== USERS & LOOKUPS =====================

func (s *gormStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("user_id = ? AND delete_at IS NULL", id).First(&u).Error
	if err != nil {
		return nil, translate("users.get", "user", err)
	}
	return &u, nil
}

func (s *gormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).
		Where("email = ? AND delete_at IS NULL", strings.TrimSpace(email)).
		First(&u).Error
	if err != nil {
		return nil, translate("users.byEmail", "user", err)
	}
	return &u, nil
}

func (s *gormStore) ListUsersByRole(ctx context.Context, role models.RoleID) ([]models.User, error) {
	var rows []models.User
	err := s.db.WithContext(ctx).
		Where("role_id = ? AND delete_at IS NULL AND is_active = ?", role, true).
		Find(&rows).Error
	if err != nil {
		return nil, translate("users.byRole", "user", err)
	}
	return rows, nil
}

func (s *gormStore) GetScheme(ctx context.Context, id uint) (*models.Scheme, error) {
	var sc models.Scheme
	if err := s.db.WithContext(ctx).Where("scheme_id = ?", id).First(&sc).Error; err != nil {
		return nil, translate("schemes.get", "scheme", err)
	}
	return &sc, nil
}

func (s *gormStore) ListSchemes(ctx context.Context, activeOnly bool) ([]models.Scheme, error) {
	q := s.db.WithContext(ctx).Model(&models.Scheme{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var rows []models.Scheme
	if err := q.Order("display_order ASC, scheme_id ASC").Find(&rows).Error; err != nil {
		return nil, translate("schemes.list", "scheme", err)
	}
	return rows, nil
}
