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

// MemberInput invites a user onto a proposal team.
type MemberInput struct {
	UserID  uint `json:"user_id" validate:"required"`
	CanEdit bool `json:"can_edit"`
}

// MembershipService manages proposal teams. Every mutation also bumps the
// proposal version so it serializes against submission.
type MembershipService struct {
	store    repositories.Store
	notifier *NotificationService
	logger   *zap.Logger
	now      func() time.Time
}

func NewMembershipService(store repositories.Store, notifier *NotificationService, logger *zap.Logger) *MembershipService {
	return &MembershipService{
		store:    defaultStore(store),
		notifier: notifier,
		logger:   defaultLogger(logger, "members"),
		now:      time.Now,
	}
}

func (s *MembershipService) List(ctx context.Context, a policy.Actor, proposalID uint) ([]models.Member, error) {
	subj, err := loadSubject(ctx, s.store, proposalID)
	if err != nil {
		return nil, logUnexpected(s.logger, err, "failed to load members", zap.Uint("proposal_id", proposalID))
	}
	if policy.CanViewMembers(a, subj).Denied() {
		return nil, apperrors.NotFound("members.list", "proposal")
	}
	return subj.Members, nil
}

// Add invites a Mahasiswa or Dosen as a PENDING member.
func (s *MembershipService) Add(ctx context.Context, a policy.Actor, proposalID uint, in MemberInput) (*models.Member, error) {
	const op = "members.add"
	if err := utils.ValidateStruct(op, in); err != nil {
		return nil, err
	}

	var (
		m *models.Member
		p *models.Proposal
	)
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		var err error
		p, err = tx.GetProposalForUpdate(ctx, proposalID)
		if err != nil {
			return err
		}
		if err := policy.CanManageMembers(a, p).Err(op); err != nil {
			return err
		}
		if !p.Status.IsEditable() {
			return apperrors.InvalidState(op, "team of a %s proposal cannot change", p.Status)
		}
		if in.UserID == p.KetuaID {
			return apperrors.Conflict(op, "user %d is already the lead", in.UserID)
		}
		u, err := tx.GetUser(ctx, in.UserID)
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return apperrors.ValidationFields(op, map[string]string{"user_id": "exists"})
		}
		if err != nil {
			return err
		}
		if u.RoleID != models.RoleMahasiswa && u.RoleID != models.RoleDosen {
			return apperrors.ValidationFields(op, map[string]string{"user_id": "team_role"})
		}

		m = &models.Member{
			ProposalID: proposalID,
			UserID:     in.UserID,
			Role:       models.TeamRoleAnggota,
			Status:     models.MemberPending,
			CanEdit:    in.CanEdit,
			CreatedAt:  s.now(),
		}
		if err := tx.AddMember(ctx, m); err != nil {
			return err
		}
		return tx.UpdateProposal(ctx, p)
	})
	if err != nil {
		return nil, logUnexpected(s.logger, err, "failed to add member",
			zap.Uint("proposal_id", proposalID), zap.Uint("user_id", in.UserID))
	}

	s.notifier.Notify(ctx, Event{
		Recipients: []uint{in.UserID},
		Title:      "Team invitation",
		Message:    fmt.Sprintf("You were invited to join the team of \"%s\". Please approve or reject.", p.Title),
		ProposalID: proposalID,
	})
	return m, nil
}

// Approve accepts the actor's own invitation.
func (s *MembershipService) Approve(ctx context.Context, a policy.Actor, proposalID, memberID uint) (*models.Member, error) {
	return s.respond(ctx, a, proposalID, memberID, models.MemberApproved)
}

// Reject declines the actor's own invitation.
func (s *MembershipService) Reject(ctx context.Context, a policy.Actor, proposalID, memberID uint) (*models.Member, error) {
	return s.respond(ctx, a, proposalID, memberID, models.MemberRejected)
}

func (s *MembershipService) respond(ctx context.Context, a policy.Actor, proposalID, memberID uint, to models.MemberStatus) (*models.Member, error) {
	op := "members.approve"
	if to == models.MemberRejected {
		op = "members.reject"
	}

	var (
		m *models.Member
		p *models.Proposal
	)
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		var err error
		p, err = tx.GetProposalForUpdate(ctx, proposalID)
		if err != nil {
			return err
		}
		m, err = tx.GetMember(ctx, proposalID, memberID)
		if err != nil {
			return err
		}
		if err := policy.CanRespondToInvitation(a, *m).Err(op); err != nil {
			return err
		}
		if m.EffectiveStatus() != models.MemberPending {
			return apperrors.InvalidState(op, "invitation already answered (%s)", m.EffectiveStatus())
		}
		if !p.Status.IsEditable() {
			return apperrors.InvalidState(op, "team of a %s proposal cannot change", p.Status)
		}

		now := s.now()
		m.Status = to
		m.RespondedAt = &now
		if err := tx.UpdateMemberStatus(ctx, m, models.MemberPending); err != nil {
			return err
		}
		return tx.UpdateProposal(ctx, p)
	})
	if err != nil {
		return nil, logUnexpected(s.logger, err, "failed to answer invitation",
			zap.Uint("proposal_id", proposalID), zap.Uint("member_id", memberID))
	}

	s.logger.Info("invitation answered",
		zap.Uint("proposal_id", proposalID), zap.Uint("member_id", memberID), zap.String("status", string(to)))
	verb := "approved"
	kind := NotifySuccess
	if to == models.MemberRejected {
		verb, kind = "rejected", NotifyWarning
	}
	s.notifier.Notify(ctx, Event{
		Recipients: []uint{p.KetuaID},
		Title:      "Invitation " + verb,
		Message:    fmt.Sprintf("A team member %s the invitation to \"%s\".", verb, p.Title),
		Type:       kind,
		ProposalID: proposalID,
	})
	return m, nil
}

// Remove drops a non-KETUA member while the team is still editable.
func (s *MembershipService) Remove(ctx context.Context, a policy.Actor, proposalID, memberID uint) error {
	const op = "members.remove"
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		p, err := tx.GetProposalForUpdate(ctx, proposalID)
		if err != nil {
			return err
		}
		if err := policy.CanManageMembers(a, p).Err(op); err != nil {
			return err
		}
		if !p.Status.IsEditable() {
			return apperrors.InvalidState(op, "team of a %s proposal cannot change", p.Status)
		}
		m, err := tx.GetMember(ctx, proposalID, memberID)
		if err != nil {
			return err
		}
		if m.IsKetua() {
			return apperrors.InvalidState(op, "the lead cannot be removed")
		}
		if err := tx.RemoveMember(ctx, m); err != nil {
			return err
		}
		return tx.UpdateProposal(ctx, p)
	})
	return logUnexpected(s.logger, err, "failed to remove member",
		zap.Uint("proposal_id", proposalID), zap.Uint("member_id", memberID))
}
