package policy

import "proposal-management-api/models"

// Scope restricts listings to what an actor may see. The zero value of each
// field means "no restriction on that axis".
type Scope struct {
	// All is true for Admin; other fields are ignored.
	All bool
	// OwnerID restricts to proposals led by this user.
	OwnerID uint
	// MemberID widens OwnerID with proposals this user is a member of.
	MemberID uint
	// MemberApprovedOnly limits MemberID to approved memberships.
	MemberApprovedOnly bool
	// AssignedReviewerID restricts to proposals assigned to this reviewer.
	AssignedReviewerID uint
	// AuthorID restricts reviews to those written by this user.
	AuthorID uint
}

// ProposalScope: Admin sees everything, reviewers see assignments, everyone
// else sees proposals they lead or belong to.
func ProposalScope(a Actor) (Scope, Decision) {
	if !a.authenticated() {
		return Scope{}, Deny(ReasonUnauthenticated)
	}
	switch a.Role {
	case models.RoleAdmin:
		return Scope{All: true}, Allow()
	case models.RoleReviewer:
		return Scope{AssignedReviewerID: a.ID}, Allow()
	default:
		return Scope{OwnerID: a.ID, MemberID: a.ID}, Allow()
	}
}

// ReviewScope: Mahasiswa see reviews of proposals they lead, Dosen also of
// proposals they co-author, reviewers only their own reviews, Admin all.
func ReviewScope(a Actor) (Scope, Decision) {
	if !a.authenticated() {
		return Scope{}, Deny(ReasonUnauthenticated)
	}
	switch a.Role {
	case models.RoleAdmin:
		return Scope{All: true}, Allow()
	case models.RoleReviewer:
		return Scope{AuthorID: a.ID}, Allow()
	case models.RoleDosen:
		return Scope{OwnerID: a.ID, MemberID: a.ID, MemberApprovedOnly: true}, Allow()
	case models.RoleMahasiswa:
		return Scope{OwnerID: a.ID}, Allow()
	}
	return Scope{}, Deny(ReasonRoleNotPermitted)
}

// PendingReviewScope: reviewers see their open assignments, Admin every
// proposal still waiting for a review. Others may not use the queue.
func PendingReviewScope(a Actor) (Scope, Decision) {
	if !a.authenticated() {
		return Scope{}, Deny(ReasonUnauthenticated)
	}
	switch a.Role {
	case models.RoleAdmin:
		return Scope{All: true}, Allow()
	case models.RoleReviewer:
		return Scope{AssignedReviewerID: a.ID}, Allow()
	}
	return Scope{}, Deny(ReasonRoleNotPermitted)
}
