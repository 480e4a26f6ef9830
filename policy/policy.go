// Package policy decides who may do what to a proposal. Every mutating
// service call consults these predicates; none of the role or ownership
// checks are repeated elsewhere.
package policy

import (
	"proposal-management-api/apperrors"
	"proposal-management-api/models"
)

// Reason codes returned on denial.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonUnauthenticated     Reason = "unauthenticated"
	ReasonRoleNotPermitted    Reason = "role_not_permitted"
	ReasonNotOwner            Reason = "not_owner"
	ReasonNotTeamEditor       Reason = "not_team_editor"
	ReasonNotAssignedReviewer Reason = "not_assigned_reviewer"
	ReasonNotInvitee          Reason = "not_invitee"
	ReasonNotReviewAuthor     Reason = "not_review_author"
	ReasonNotVisible          Reason = "not_visible"
	ReasonStatusLocked        Reason = "status_locked"
)

// Actor is the authenticated caller.
type Actor struct {
	ID   uint
	Role models.RoleID
}

func (a Actor) IsAdmin() bool    { return a.Role == models.RoleAdmin }
func (a Actor) IsReviewer() bool { return a.Role == models.RoleReviewer }

func (a Actor) authenticated() bool { return a.ID != 0 && a.Role.Valid() }

// Decision is the result of a predicate.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func Allow() Decision           { return Decision{Allowed: true} }
func Deny(r Reason) Decision    { return Decision{Reason: r} }
func (d Decision) Denied() bool { return !d.Allowed }

// Err converts a denial into a Forbidden error for op; nil when allowed.
func (d Decision) Err(op string) error {
	if d.Allowed {
		return nil
	}
	return apperrors.Forbidden(op, string(d.Reason))
}

// All returns the first denial, or Allow when every decision allows.
func All(ds ...Decision) Decision {
	for _, d := range ds {
		if !d.Allowed {
			return d
		}
	}
	return Allow()
}

// Any returns Allow when at least one decision allows, otherwise the last denial.
func Any(ds ...Decision) Decision {
	last := Deny(ReasonRoleNotPermitted)
	for _, d := range ds {
		if d.Allowed {
			return d
		}
		last = d
	}
	return last
}

// Subject is a proposal together with its team, which most predicates need.
type Subject struct {
	Proposal *models.Proposal
	Members  []models.Member
}

func (s Subject) member(userID uint) (models.Member, bool) {
	for _, m := range s.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return models.Member{}, false
}

// IsAdmin allows only administrators.
func IsAdmin(a Actor) Decision {
	if !a.authenticated() {
		return Deny(ReasonUnauthenticated)
	}
	if a.IsAdmin() {
		return Allow()
	}
	return Deny(ReasonRoleNotPermitted)
}

// HasRole allows actors holding one of roles.
func HasRole(a Actor, roles ...models.RoleID) Decision {
	if !a.authenticated() {
		return Deny(ReasonUnauthenticated)
	}
	for _, r := range roles {
		if a.Role == r {
			return Allow()
		}
	}
	return Deny(ReasonRoleNotPermitted)
}

// IsOwner allows the proposal's KETUA.
func IsOwner(a Actor, p *models.Proposal) Decision {
	if !a.authenticated() {
		return Deny(ReasonUnauthenticated)
	}
	if p.IsOwner(a.ID) {
		return Allow()
	}
	return Deny(ReasonNotOwner)
}

// IsAssignedReviewer allows the reviewer currently assigned to p.
func IsAssignedReviewer(a Actor, p *models.Proposal) Decision {
	if !a.authenticated() {
		return Deny(ReasonUnauthenticated)
	}
	if a.IsReviewer() && p.Assignment().Is(a.ID) {
		return Allow()
	}
	return Deny(ReasonNotAssignedReviewer)
}

// IsTeamEditor allows an approved, non-KETUA member granted edit rights.
func IsTeamEditor(a Actor, s Subject) Decision {
	if !a.authenticated() {
		return Deny(ReasonUnauthenticated)
	}
	m, ok := s.member(a.ID)
	if ok && !m.IsKetua() && m.CanEdit && m.EffectiveStatus() == models.MemberApproved {
		return Allow()
	}
	return Deny(ReasonNotTeamEditor)
}

// CanCreateProposal: Mahasiswa, Dosen and Admin may open proposals.
func CanCreateProposal(a Actor) Decision {
	return HasRole(a, models.RoleMahasiswa, models.RoleDosen, models.RoleAdmin)
}

// CanView: owner, any member, the assigned reviewer, or Admin.
func CanView(a Actor, s Subject) Decision {
	if !a.authenticated() {
		return Deny(ReasonUnauthenticated)
	}
	if a.IsAdmin() || s.Proposal.IsOwner(a.ID) || s.Proposal.Assignment().Is(a.ID) {
		return Allow()
	}
	if _, ok := s.member(a.ID); ok {
		return Allow()
	}
	return Deny(ReasonNotVisible)
}

// CanViewMembers: owner, members and Admin.
func CanViewMembers(a Actor, s Subject) Decision {
	if !a.authenticated() {
		return Deny(ReasonUnauthenticated)
	}
	if a.IsAdmin() || s.Proposal.IsOwner(a.ID) {
		return Allow()
	}
	if _, ok := s.member(a.ID); ok {
		return Allow()
	}
	return Deny(ReasonNotVisible)
}

// CanEdit: owner, an approved member with edit rights, or Admin.
func CanEdit(a Actor, s Subject) Decision {
	return Any(IsAdmin(a), IsOwner(a, s.Proposal), IsTeamEditor(a, s))
}

// CanSubmit depends on where the proposal comes from: a draft may be
// submitted by anyone who can edit it, a revision only by owner or Admin.
func CanSubmit(a Actor, s Subject) Decision {
	if s.Proposal.Status == models.StatusRevision {
		return Any(IsAdmin(a), IsOwner(a, s.Proposal))
	}
	return CanEdit(a, s)
}

// CanUpdateStatus: Admin or the assigned reviewer.
func CanUpdateStatus(a Actor, p *models.Proposal) Decision {
	return Any(IsAdmin(a), IsAssignedReviewer(a, p))
}

// CanDelete: Admin always; the owner only while the proposal is a draft.
func CanDelete(a Actor, p *models.Proposal) Decision {
	if IsAdmin(a).Allowed {
		return Allow()
	}
	if d := IsOwner(a, p); d.Denied() {
		return d
	}
	if p.Status != models.StatusDraft {
		return Deny(ReasonStatusLocked)
	}
	return Allow()
}

// CanManageMembers: only the owner adds or removes team members.
func CanManageMembers(a Actor, p *models.Proposal) Decision {
	return IsOwner(a, p)
}

// CanRespondToInvitation: a member answers only their own invitation.
func CanRespondToInvitation(a Actor, m models.Member) Decision {
	if !a.authenticated() {
		return Deny(ReasonUnauthenticated)
	}
	if m.UserID == a.ID {
		return Allow()
	}
	return Deny(ReasonNotInvitee)
}

// CanAssignReviewer: Admin only.
func CanAssignReviewer(a Actor) Decision {
	return IsAdmin(a)
}

// CanComplete: Admin only.
func CanComplete(a Actor) Decision {
	return IsAdmin(a)
}

// CanCreateReview: Admin or the assigned reviewer.
func CanCreateReview(a Actor, p *models.Proposal) Decision {
	return Any(IsAdmin(a), IsAssignedReviewer(a, p))
}

// CanEditReview: the review's author or Admin.
func CanEditReview(a Actor, r *models.Review) Decision {
	if !a.authenticated() {
		return Deny(ReasonUnauthenticated)
	}
	if a.IsAdmin() || r.ReviewerID == a.ID {
		return Allow()
	}
	return Deny(ReasonNotReviewAuthor)
}
