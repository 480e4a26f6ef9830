package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"proposal-management-api/apperrors"
	"proposal-management-api/models"
	"proposal-management-api/policy"
	"proposal-management-api/repositories"
	"proposal-management-api/utils"
)

// ProposalInput is the editable content of a proposal.
type ProposalInput struct {
	Title         string   `json:"title" validate:"required,max=255"`
	Abstract      string   `json:"abstract" validate:"max=10000"`
	Keywords      []string `json:"keywords" validate:"max=20,dive,max=100"`
	FundingAmount float64  `json:"funding_amount" validate:"gte=0"`
	Year          int      `json:"year" validate:"required,gte=2000,lte=2100"`
	SchemeID      uint     `json:"scheme_id" validate:"required"`
}

// ListParams are the caller-supplied listing filters.
type ListParams struct {
	Statuses []models.ProposalStatus
	Year     int
	SchemeID uint
	Search   string
	Limit    int
	Offset   int
}

type ProposalService struct {
	store    repositories.Store
	notifier *NotificationService
	logger   *zap.Logger
	now      func() time.Time
}

func NewProposalService(store repositories.Store, notifier *NotificationService, logger *zap.Logger) *ProposalService {
	store = defaultStore(store)
	return &ProposalService{
		store:    store,
		notifier: notifier,
		logger:   defaultLogger(logger, "proposals"),
		now:      time.Now,
	}
}

// loadSubject reads a proposal with its team.
func loadSubject(ctx context.Context, store repositories.Store, proposalID uint) (policy.Subject, error) {
	p, err := store.GetProposal(ctx, proposalID)
	if err != nil {
		return policy.Subject{}, err
	}
	members, err := store.ListMembers(ctx, proposalID)
	if err != nil {
		return policy.Subject{}, err
	}
	return policy.Subject{Proposal: p, Members: members}, nil
}

// lockSubject is loadSubject holding the proposal row lock; tx must be the
// store passed to WithinTx.
func lockSubject(ctx context.Context, tx repositories.Store, proposalID uint) (policy.Subject, error) {
	p, err := tx.GetProposalForUpdate(ctx, proposalID)
	if err != nil {
		return policy.Subject{}, err
	}
	members, err := tx.ListMembers(ctx, proposalID)
	if err != nil {
		return policy.Subject{}, err
	}
	return policy.Subject{Proposal: p, Members: members}, nil
}

// visibleSubject is loadSubject for reads: proposals the actor may not see
// are reported as missing.
func visibleSubject(ctx context.Context, store repositories.Store, a policy.Actor, proposalID uint, op string) (policy.Subject, error) {
	s, err := loadSubject(ctx, store, proposalID)
	if err != nil {
		return s, err
	}
	if policy.CanView(a, s).Denied() {
		return policy.Subject{}, apperrors.NotFound(op, "proposal")
	}
	return s, nil
}

func historyRow(p *models.Proposal, from *models.ProposalStatus, actor policy.Actor, comment string, at time.Time) *models.ProposalStatusHistory {
	h := &models.ProposalStatusHistory{
		ProposalID: p.ProposalID,
		OldStatus:  from,
		NewStatus:  p.Status,
		ChangedBy:  actor.ID,
		Cycle:      p.SubmissionCycle,
		CreatedAt:  at,
	}
	if c := strings.TrimSpace(comment); c != "" {
		h.Comment = &c
	}
	return h
}

func (s *ProposalService) scheme(ctx context.Context, id uint, op string) error {
	sc, err := s.store.GetScheme(ctx, id)
	if apperrors.KindOf(err) == apperrors.KindNotFound {
		return apperrors.ValidationFields(op, map[string]string{"scheme_id": "exists"})
	}
	if err != nil {
		return err
	}
	if !sc.IsActive {
		return apperrors.ValidationFields(op, map[string]string{"scheme_id": "active"})
	}
	return nil
}

func (in ProposalInput) normalized() ProposalInput {
	in.Title = utils.SanitizeInput(in.Title)
	in.Abstract = utils.SanitizeInput(in.Abstract)
	in.Keywords = utils.SanitizeList(in.Keywords)
	return in
}

func (in ProposalInput) applyTo(p *models.Proposal) {
	p.Title = in.Title
	p.Abstract = in.Abstract
	p.SetKeywords(in.Keywords)
	p.FundingAmount = in.FundingAmount
	p.Year = in.Year
	p.SchemeID = in.SchemeID
}

// Create opens a DRAFT proposal owned by the actor, who becomes its KETUA.
func (s *ProposalService) Create(ctx context.Context, a policy.Actor, in ProposalInput) (*models.Proposal, error) {
	const op = "proposal.create"
	if err := policy.CanCreateProposal(a).Err(op); err != nil {
		return nil, err
	}
	in = in.normalized()
	if err := utils.ValidateStruct(op, in); err != nil {
		return nil, err
	}
	if err := s.scheme(ctx, in.SchemeID, op); err != nil {
		return nil, logUnexpected(s.logger, err, "failed to load scheme", zap.Uint("scheme_id", in.SchemeID))
	}

	now := s.now()
	p := &models.Proposal{
		Status:    models.StatusDraft,
		KetuaID:   a.ID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.applyTo(p)

	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		if err := tx.CreateProposal(ctx, p); err != nil {
			return err
		}
		ketua := &models.Member{
			ProposalID:  p.ProposalID,
			UserID:      a.ID,
			Role:        models.TeamRoleKetua,
			Status:      models.MemberApproved,
			CanEdit:     true,
			CreatedAt:   now,
			RespondedAt: &now,
		}
		if err := tx.AddMember(ctx, ketua); err != nil {
			return err
		}
		p.Members = []models.Member{*ketua}
		return tx.AppendStatusHistory(ctx, historyRow(p, nil, a, "", now))
	})
	if err != nil {
		return nil, logUnexpected(s.logger, err, "failed to create proposal", zap.Uint("user_id", a.ID))
	}

	s.logger.Info("proposal created", zap.Uint("proposal_id", p.ProposalID), zap.Uint("ketua_id", a.ID))
	return p, nil
}

// Update replaces the content of a DRAFT or REVISION proposal.
func (s *ProposalService) Update(ctx context.Context, a policy.Actor, proposalID uint, in ProposalInput) (*models.Proposal, error) {
	const op = "proposal.update"
	in = in.normalized()
	if err := utils.ValidateStruct(op, in); err != nil {
		return nil, err
	}

	var out *models.Proposal
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		subj, err := lockSubject(ctx, tx, proposalID)
		if err != nil {
			return err
		}
		if err := policy.CanEdit(a, subj).Err(op); err != nil {
			return err
		}
		p := subj.Proposal
		if !p.Status.IsEditable() {
			return apperrors.InvalidState(op, "proposal in %s cannot be edited", p.Status)
		}
		if in.SchemeID != p.SchemeID {
			if err := s.scheme(ctx, in.SchemeID, op); err != nil {
				return err
			}
		}
		in.applyTo(p)
		if err := tx.UpdateProposal(ctx, p); err != nil {
			return err
		}
		p.Members = subj.Members
		out = p
		return nil
	})
	if err != nil {
		return nil, logUnexpected(s.logger, err, "failed to update proposal", zap.Uint("proposal_id", proposalID))
	}
	return out, nil
}

// Get returns a proposal with its team if the actor may see it.
func (s *ProposalService) Get(ctx context.Context, a policy.Actor, proposalID uint) (*models.Proposal, error) {
	subj, err := visibleSubject(ctx, s.store, a, proposalID, "proposal.get")
	if err != nil {
		return nil, logUnexpected(s.logger, err, "failed to load proposal", zap.Uint("proposal_id", proposalID))
	}
	p := subj.Proposal
	p.Members = subj.Members
	return p, nil
}

// List returns the proposals in the actor's scope.
func (s *ProposalService) List(ctx context.Context, a policy.Actor, params ListParams) ([]models.Proposal, int64, error) {
	scope, d := policy.ProposalScope(a)
	if err := d.Err("proposal.list"); err != nil {
		return nil, 0, err
	}
	rows, total, err := s.store.ListProposals(ctx, repositories.ProposalFilter{
		Scope:    scope,
		Statuses: params.Statuses,
		Year:     params.Year,
		SchemeID: params.SchemeID,
		Search:   params.Search,
		Limit:    params.Limit,
		Offset:   params.Offset,
	})
	if err != nil {
		return nil, 0, logUnexpected(s.logger, err, "failed to list proposals", zap.Uint("user_id", a.ID))
	}
	return rows, total, nil
}

// pendingMembers counts non-KETUA members that have not approved.
func pendingMembers(members []models.Member) int {
	n := 0
	for _, m := range members {
		if m.EffectiveStatus() != models.MemberApproved {
			n++
		}
	}
	return n
}

// Submit moves a DRAFT or REVISION proposal to SUBMITTED and opens a new
// review cycle. Every non-KETUA member must have approved.
func (s *ProposalService) Submit(ctx context.Context, a policy.Actor, proposalID uint) (*models.Proposal, error) {
	const op = "proposal.submit"
	var out *models.Proposal
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		subj, err := lockSubject(ctx, tx, proposalID)
		if err != nil {
			return err
		}
		if err := policy.CanSubmit(a, subj).Err(op); err != nil {
			return err
		}
		p := subj.Proposal
		if pathOf(p.Status, models.StatusSubmitted) != viaSubmit {
			return apperrors.InvalidState(op, "proposal in %s cannot be submitted", p.Status)
		}
		if n := pendingMembers(subj.Members); n > 0 {
			return apperrors.IncompleteTeam(op, n)
		}

		from := p.Status
		now := s.now()
		p.Status = models.StatusSubmitted
		p.SubmissionCycle++
		p.SubmittedAt = &now
		if err := tx.UpdateProposal(ctx, p); err != nil {
			return err
		}
		if err := tx.AppendStatusHistory(ctx, historyRow(p, &from, a, "", now)); err != nil {
			return err
		}
		p.Members = subj.Members
		out = p
		return nil
	})
	if err != nil {
		return nil, logUnexpected(s.logger, err, "failed to submit proposal", zap.Uint("proposal_id", proposalID))
	}

	s.logger.Info("proposal submitted",
		zap.Uint("proposal_id", out.ProposalID), zap.Int("cycle", out.SubmissionCycle), zap.Uint("actor_id", a.ID))
	s.notifyAdmins(ctx, Event{
		Title:      "Proposal submitted",
		Message:    fmt.Sprintf("Proposal \"%s\" was submitted for review (cycle %d).", out.Title, out.SubmissionCycle),
		ProposalID: out.ProposalID,
	})
	if rid := out.Assignment(); rid.Assigned {
		s.notifier.Notify(ctx, Event{
			Recipients: []uint{rid.ReviewerID},
			Title:      "Proposal resubmitted",
			Message:    fmt.Sprintf("Proposal \"%s\" is ready for another review.", out.Title),
			ProposalID: out.ProposalID,
		})
	}
	return out, nil
}

// UpdateStatus records a review decision. Only the assigned reviewer or an
// Admin may decide; the comment replaces any earlier one.
func (s *ProposalService) UpdateStatus(ctx context.Context, a policy.Actor, proposalID uint, to models.ProposalStatus, comment string) (*models.Proposal, error) {
	const op = "proposal.updateStatus"
	if !to.Valid() {
		return nil, apperrors.ValidationFields(op, map[string]string{"status": "oneof"})
	}

	var out *models.Proposal
	var from models.ProposalStatus
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		p, err := tx.GetProposalForUpdate(ctx, proposalID)
		if err != nil {
			return err
		}
		if err := policy.CanUpdateStatus(a, p).Err(op); err != nil {
			return err
		}
		if pathOf(p.Status, to) != viaDecision {
			return apperrors.IllegalTransition(op, p.Status, to)
		}

		from = p.Status
		now := s.now()
		p.Status = to
		p.ReviewedAt = &now
		c := utils.SanitizeInput(comment)
		if c != "" {
			p.ReviewerComment = &c
		} else {
			p.ReviewerComment = nil
		}
		if err := tx.UpdateProposal(ctx, p); err != nil {
			return err
		}
		if err := tx.AppendStatusHistory(ctx, historyRow(p, &from, a, c, now)); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, logUnexpected(s.logger, err, "failed to update proposal status",
			zap.Uint("proposal_id", proposalID), zap.String("to", string(to)))
	}

	s.logger.Info("proposal status changed",
		zap.Uint("proposal_id", out.ProposalID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Uint("actor_id", a.ID))
	s.notifyTeam(ctx, out, Event{
		Title:      "Proposal status changed",
		Message:    fmt.Sprintf("Proposal \"%s\" moved from %s to %s.", out.Title, from, to),
		Type:       statusNotifyType(to),
		ProposalID: out.ProposalID,
	})
	return out, nil
}

func statusNotifyType(s models.ProposalStatus) string {
	switch s {
	case models.StatusApproved, models.StatusCompleted:
		return NotifySuccess
	case models.StatusRejected:
		return NotifyError
	case models.StatusRevision:
		return NotifyWarning
	}
	return NotifyInfo
}

// Delete soft-deletes a proposal. Owners may only delete drafts.
func (s *ProposalService) Delete(ctx context.Context, a policy.Actor, proposalID uint) error {
	const op = "proposal.delete"
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		p, err := tx.GetProposalForUpdate(ctx, proposalID)
		if err != nil {
			return err
		}
		if err := policy.CanDelete(a, p).Err(op); err != nil {
			return err
		}
		return tx.DeleteProposal(ctx, p)
	})
	if err != nil {
		return logUnexpected(s.logger, err, "failed to delete proposal", zap.Uint("proposal_id", proposalID))
	}
	s.logger.Info("proposal deleted", zap.Uint("proposal_id", proposalID), zap.Uint("actor_id", a.ID))
	return nil
}

// AssignReviewer sets the reviewer of a SUBMITTED or REVIEW proposal.
func (s *ProposalService) AssignReviewer(ctx context.Context, a policy.Actor, proposalID, reviewerID uint) (*models.Proposal, error) {
	const op = "proposal.assignReviewer"
	if err := policy.CanAssignReviewer(a).Err(op); err != nil {
		return nil, err
	}

	var out *models.Proposal
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		p, err := tx.GetProposalForUpdate(ctx, proposalID)
		if err != nil {
			return err
		}
		if !p.Status.IsUnderReview() {
			return apperrors.InvalidState(op, "reviewers are assigned to submitted proposals, not %s", p.Status)
		}
		u, err := tx.GetUser(ctx, reviewerID)
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return apperrors.ValidationFields(op, map[string]string{"reviewer_id": "exists"})
		}
		if err != nil {
			return err
		}
		if u.RoleID != models.RoleReviewer || !u.IsActive {
			return apperrors.ValidationFields(op, map[string]string{"reviewer_id": "reviewer"})
		}
		if u.UserID == p.KetuaID {
			return apperrors.ValidationFields(op, map[string]string{"reviewer_id": "not_owner"})
		}
		p.Assign(models.AssignedTo(u.UserID))
		if err := tx.UpdateProposal(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, logUnexpected(s.logger, err, "failed to assign reviewer",
			zap.Uint("proposal_id", proposalID), zap.Uint("reviewer_id", reviewerID))
	}

	s.logger.Info("reviewer assigned", zap.Uint("proposal_id", proposalID), zap.Uint("reviewer_id", reviewerID))
	s.notifier.Notify(ctx, Event{
		Recipients: []uint{reviewerID},
		Title:      "Review assignment",
		Message:    fmt.Sprintf("You have been assigned to review \"%s\".", out.Title),
		ProposalID: out.ProposalID,
	})
	return out, nil
}

// Complete closes an APPROVED proposal.
func (s *ProposalService) Complete(ctx context.Context, a policy.Actor, proposalID uint) (*models.Proposal, error) {
	const op = "proposal.complete"
	if err := policy.CanComplete(a).Err(op); err != nil {
		return nil, err
	}
	var out *models.Proposal
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		p, err := tx.GetProposalForUpdate(ctx, proposalID)
		if err != nil {
			return err
		}
		if pathOf(p.Status, models.StatusCompleted) != viaCompletion {
			return apperrors.IllegalTransition(op, p.Status, models.StatusCompleted)
		}
		from := p.Status
		now := s.now()
		p.Status = models.StatusCompleted
		p.CompletedAt = &now
		if err := tx.UpdateProposal(ctx, p); err != nil {
			return err
		}
		out = p
		return tx.AppendStatusHistory(ctx, historyRow(p, &from, a, "", now))
	})
	if err != nil {
		return nil, logUnexpected(s.logger, err, "failed to complete proposal", zap.Uint("proposal_id", proposalID))
	}
	s.notifyTeam(ctx, out, Event{
		Title:      "Proposal completed",
		Message:    fmt.Sprintf("Proposal \"%s\" has been marked as completed.", out.Title),
		Type:       NotifySuccess,
		ProposalID: out.ProposalID,
	})
	return out, nil
}

// History returns the status trail of a visible proposal, oldest first.
func (s *ProposalService) History(ctx context.Context, a policy.Actor, proposalID uint) ([]models.ProposalStatusHistory, error) {
	if _, err := visibleSubject(ctx, s.store, a, proposalID, "proposal.history"); err != nil {
		return nil, logUnexpected(s.logger, err, "failed to load proposal", zap.Uint("proposal_id", proposalID))
	}
	rows, err := s.store.ListStatusHistory(ctx, proposalID)
	return rows, logUnexpected(s.logger, err, "failed to load status history", zap.Uint("proposal_id", proposalID))
}

func (s *ProposalService) notifyTeam(ctx context.Context, p *models.Proposal, ev Event) {
	if s.notifier == nil {
		return
	}
	recipients := []uint{p.KetuaID}
	members, err := s.store.ListMembers(ctx, p.ProposalID)
	if err != nil {
		s.logger.Warn("failed to load team for notification", zap.Uint("proposal_id", p.ProposalID), zap.Error(err))
	}
	for _, m := range members {
		if m.EffectiveStatus() == models.MemberApproved {
			recipients = append(recipients, m.UserID)
		}
	}
	ev.Recipients = recipients
	s.notifier.Notify(ctx, ev)
}

func (s *ProposalService) notifyAdmins(ctx context.Context, ev Event) {
	if s.notifier == nil {
		return
	}
	admins, err := s.store.ListUsersByRole(ctx, models.RoleAdmin)
	if err != nil {
		s.logger.Warn("failed to load admins for notification", zap.Error(err))
		return
	}
	for _, u := range admins {
		ev.Recipients = append(ev.Recipients, u.UserID)
	}
	s.notifier.Notify(ctx, ev)
}
