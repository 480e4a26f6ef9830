package services

import (
	"proposal-management-api/models"
)

// transitionPath says which operation may drive a status change.
type transitionPath int

const (
	viaSubmit transitionPath = iota + 1
	viaDecision
	viaCompletion
)

// transitions is the proposal state machine. APPROVED leads only to
// COMPLETED; REJECTED and COMPLETED are final.
var transitions = map[models.ProposalStatus]map[models.ProposalStatus]transitionPath{
	models.StatusDraft: {
		models.StatusSubmitted: viaSubmit,
	},
	models.StatusSubmitted: {
		models.StatusReview: viaDecision,
	},
	models.StatusReview: {
		models.StatusApproved: viaDecision,
		models.StatusRejected: viaDecision,
		models.StatusRevision: viaDecision,
	},
	models.StatusRevision: {
		models.StatusSubmitted: viaSubmit,
	},
	models.StatusApproved: {
		models.StatusCompleted: viaCompletion,
	},
}

// CanTransition reports whether from -> to is in the state machine at all.
func CanTransition(from, to models.ProposalStatus) bool {
	_, ok := transitions[from][to]
	return ok
}

func pathOf(from, to models.ProposalStatus) transitionPath {
	return transitions[from][to]
}

// NextStatuses lists the statuses reachable from s in one step.
func NextStatuses(s models.ProposalStatus) []models.ProposalStatus {
	out := make([]models.ProposalStatus, 0, len(transitions[s]))
	for _, candidate := range []models.ProposalStatus{
		models.StatusSubmitted, models.StatusReview, models.StatusApproved,
		models.StatusRejected, models.StatusRevision, models.StatusCompleted,
	} {
		if CanTransition(s, candidate) {
			out = append(out, candidate)
		}
	}
	return out
}

// IsTerminal reports whether no decision can move the proposal further.
func IsTerminal(s models.ProposalStatus) bool {
	return s == models.StatusApproved || s == models.StatusRejected || s == models.StatusCompleted
}
