package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"proposal-management-api/apperrors"
	"proposal-management-api/models"
	"proposal-management-api/policy"
	"proposal-management-api/repositories"
	"proposal-management-api/utils"
)

// ReviewInput is a new review for the proposal's current cycle.
type ReviewInput struct {
	ProposalID     uint                  `json:"proposal_id" validate:"required"`
	Score          *int                  `json:"score" validate:"omitempty,gte=0,lte=100"`
	Recommendation models.Recommendation `json:"recommendation" validate:"required"`
	Notes          string                `json:"notes" validate:"max=20000"`
}

// ReviewPatch changes only the fields that are set.
type ReviewPatch struct {
	Score          *int                   `json:"score" validate:"omitempty,gte=0,lte=100"`
	Recommendation *models.Recommendation `json:"recommendation"`
	Notes          *string                `json:"notes" validate:"omitempty,max=20000"`
}

// ReviewList is a scoped listing with its recommendation counts.
type ReviewList struct {
	Reviews []models.Review              `json:"reviews"`
	Summary models.RecommendationSummary `json:"summary"`
}

type ReviewService struct {
	store    repositories.Store
	notifier *NotificationService
	logger   *zap.Logger
	now      func() time.Time
}

func NewReviewService(store repositories.Store, notifier *NotificationService, logger *zap.Logger) *ReviewService {
	return &ReviewService{
		store:    defaultStore(store),
		notifier: notifier,
		logger:   defaultLogger(logger, "reviews"),
		now:      time.Now,
	}
}

func validRecommendation(op string, r models.Recommendation) error {
	if !r.Valid() {
		return apperrors.ValidationFields(op, map[string]string{"recommendation": "oneof"})
	}
	return nil
}

// Create stores the actor's review for the current submission cycle. The
// first review of a SUBMITTED proposal moves it to REVIEW.
func (s *ReviewService) Create(ctx context.Context, a policy.Actor, in ReviewInput) (*models.Review, error) {
	const op = "reviews.create"
	in.Notes = utils.SanitizeInput(in.Notes)
	if err := utils.ValidateStruct(op, in); err != nil {
		return nil, err
	}
	if err := validRecommendation(op, in.Recommendation); err != nil {
		return nil, err
	}

	var (
		r     *models.Review
		p     *models.Proposal
		moved bool
	)
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		var err error
		p, err = tx.GetProposalForUpdate(ctx, in.ProposalID)
		if err != nil {
			return err
		}
		if err := policy.CanCreateReview(a, p).Err(op); err != nil {
			return err
		}
		if !p.Status.IsUnderReview() {
			return apperrors.InvalidState(op, "proposal in %s cannot be reviewed", p.Status)
		}

		existing, err := tx.FindReview(ctx, p.ProposalID, a.ID, p.SubmissionCycle)
		switch {
		case err == nil && existing != nil:
			return apperrors.Conflict(op, "review for cycle %d already exists", p.SubmissionCycle)
		case err != nil && apperrors.KindOf(err) != apperrors.KindNotFound:
			return err
		}

		now := s.now()
		r = &models.Review{
			ProposalID:     p.ProposalID,
			ReviewerID:     a.ID,
			Cycle:          p.SubmissionCycle,
			Score:          in.Score,
			Recommendation: in.Recommendation,
			Notes:          in.Notes,
			Version:        1,
			ReviewedAt:     now,
			UpdatedAt:      now,
		}
		if err := tx.CreateReview(ctx, r); err != nil {
			return err
		}

		if p.Status == models.StatusSubmitted {
			from := p.Status
			p.Status = models.StatusReview
			p.ReviewedAt = &now
			if err := tx.UpdateProposal(ctx, p); err != nil {
				return err
			}
			moved = true
			return tx.AppendStatusHistory(ctx, historyRow(p, &from, a, "", now))
		}
		return nil
	})
	if err != nil {
		return nil, logUnexpected(s.logger, err, "failed to create review",
			zap.Uint("proposal_id", in.ProposalID), zap.Uint("reviewer_id", a.ID))
	}

	s.logger.Info("review created",
		zap.Uint("review_id", r.ReviewID),
		zap.Uint("proposal_id", r.ProposalID),
		zap.Int("cycle", r.Cycle),
		zap.String("recommendation", string(r.Recommendation)),
		zap.Bool("moved_to_review", moved))
	s.notifier.Notify(ctx, Event{
		Recipients: []uint{p.KetuaID},
		Title:      "Proposal reviewed",
		Message:    fmt.Sprintf("A review was recorded for \"%s\".", p.Title),
		ProposalID: p.ProposalID,
	})
	return r, nil
}

// Update edits a review while its proposal is still under review.
func (s *ReviewService) Update(ctx context.Context, a policy.Actor, reviewID uint, patch ReviewPatch) (*models.Review, error) {
	const op = "reviews.update"
	if err := utils.ValidateStruct(op, patch); err != nil {
		return nil, err
	}
	if patch.Recommendation != nil {
		if err := validRecommendation(op, *patch.Recommendation); err != nil {
			return nil, err
		}
	}

	var r *models.Review
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		var err error
		r, err = tx.GetReview(ctx, reviewID)
		if err != nil {
			return err
		}
		if err := policy.CanEditReview(a, r).Err(op); err != nil {
			return err
		}
		p, err := tx.GetProposalForUpdate(ctx, r.ProposalID)
		if err != nil {
			return err
		}
		if !p.Status.IsUnderReview() {
			return apperrors.InvalidState(op, "reviews of a %s proposal are closed", p.Status)
		}
		if r.Cycle != p.SubmissionCycle {
			return apperrors.InvalidState(op, "review of cycle %d is closed", r.Cycle)
		}

		if patch.Score != nil {
			r.Score = patch.Score
		}
		if patch.Recommendation != nil {
			r.Recommendation = *patch.Recommendation
		}
		if patch.Notes != nil {
			r.Notes = utils.SanitizeInput(*patch.Notes)
		}
		return tx.UpdateReview(ctx, r)
	})
	if err != nil {
		return nil, logUnexpected(s.logger, err, "failed to update review", zap.Uint("review_id", reviewID))
	}
	return r, nil
}

// List returns the reviews visible to the actor with counts derived from
// the returned rows.
func (s *ReviewService) List(ctx context.Context, a policy.Actor, proposalID uint, rec models.Recommendation) (*ReviewList, error) {
	scope, d := policy.ReviewScope(a)
	if err := d.Err("reviews.list"); err != nil {
		return nil, err
	}
	rows, err := s.store.ListReviews(ctx, repositories.ReviewFilter{
		Scope:          scope,
		ProposalID:     proposalID,
		Recommendation: rec,
	})
	if err != nil {
		return nil, logUnexpected(s.logger, err, "failed to list reviews", zap.Uint("user_id", a.ID))
	}
	return &ReviewList{Reviews: rows, Summary: models.SummarizeReviews(rows)}, nil
}

// Stats counts visible reviews per recommendation in the database.
func (s *ReviewService) Stats(ctx context.Context, a policy.Actor, proposalID uint) (models.RecommendationSummary, error) {
	scope, d := policy.ReviewScope(a)
	if err := d.Err("reviews.stats"); err != nil {
		return models.RecommendationSummary{}, err
	}
	summary, err := s.store.CountReviewsByRecommendation(ctx, repositories.ReviewFilter{
		Scope:      scope,
		ProposalID: proposalID,
	})
	return summary, logUnexpected(s.logger, err, "failed to count reviews", zap.Uint("user_id", a.ID))
}

// ProposalsToReview lists assigned proposals whose current cycle has no
// review from their reviewer yet.
func (s *ReviewService) ProposalsToReview(ctx context.Context, a policy.Actor) ([]models.Proposal, error) {
	scope, d := policy.PendingReviewScope(a)
	if err := d.Err("reviews.pending"); err != nil {
		return nil, err
	}
	rows, err := s.store.ListAwaitingReview(ctx, scope)
	return rows, logUnexpected(s.logger, err, "failed to list pending reviews", zap.Uint("user_id", a.ID))
}
