package repositories

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proposal-management-api/apperrors"
	"proposal-management-api/models"
	"proposal-management-api/policy"
)

func TestGetProposalMissingIsNotFound(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`(?s)SELECT \* FROM .proposals. WHERE proposal_id = \?.*deleted_at. IS NULL`),
			columns: []string{"proposal_id"},
			rows:    [][]driver.Value{},
		},
	}
	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	_, err := NewGormStore(db).GetProposal(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	require.NoError(t, state.verifyComplete())
}

func TestGetProposalForUpdateLocksRow(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`(?s)SELECT \* FROM .proposals. WHERE proposal_id = \?.*deleted_at. IS NULL.*FOR UPDATE`),
			columns: []string{"proposal_id", "status", "version", "submission_cycle"},
			rows: [][]driver.Value{
				{int64(7), "REVIEW", int64(4), int64(2)},
			},
		},
	}
	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	p, err := NewGormStore(db).GetProposalForUpdate(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, uint(7), p.ProposalID)
	assert.Equal(t, models.StatusReview, p.Status)
	assert.Equal(t, 4, p.Version)
	assert.Equal(t, 2, p.SubmissionCycle)
	require.NoError(t, state.verifyComplete())
}

func TestGetProposalForUpdateMissingIsNotFound(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`(?s)FROM .proposals. .*FOR UPDATE`),
			columns: []string{"proposal_id"},
			rows:    [][]driver.Value{},
		},
	}
	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	_, err := NewGormStore(db).GetProposalForUpdate(context.Background(), 9)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	require.NoError(t, state.verifyComplete())
}

func TestUpdateProposalStaleVersionIsConflict(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindExec,
			pattern: regexp.MustCompile(`(?s)UPDATE .proposals. SET .*WHERE \(?proposal_id = \? AND version = \?\)?`),
			result:  scriptedResult{rowsAffected: 0},
		},
	}
	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	p := &models.Proposal{ProposalID: 7, Status: models.StatusReview, Version: 3}
	err := NewGormStore(db).UpdateProposal(context.Background(), p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, 3, p.Version)
	require.NoError(t, state.verifyComplete())
}

func TestUpdateProposalBumpsVersion(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindExec,
			pattern: regexp.MustCompile(`(?s)UPDATE .proposals. SET .*version.*WHERE`),
			result:  scriptedResult{rowsAffected: 1},
		},
	}
	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	p := &models.Proposal{ProposalID: 7, Status: models.StatusApproved, Version: 3}
	require.NoError(t, NewGormStore(db).UpdateProposal(context.Background(), p))
	assert.Equal(t, 4, p.Version)
	assert.False(t, p.UpdatedAt.IsZero())
	require.NoError(t, state.verifyComplete())
}

func TestCountReviewsByRecommendationForAuthor(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`(?s)SELECT recommendation, COUNT\(\*\) AS total FROM .proposal_reviews. WHERE reviewer_id = \? GROUP BY .*recommendation`),
			args:    []driver.Value{int64(20)},
			columns: []string{"recommendation", "total"},
			rows: [][]driver.Value{
				{"LAYAK", int64(2)},
				{"REVISI", int64(1)},
			},
		},
	}
	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	summary, err := NewGormStore(db).CountReviewsByRecommendation(context.Background(), ReviewFilter{
		Scope: policy.Scope{AuthorID: 20},
	})
	require.NoError(t, err)
	assert.Equal(t, models.RecommendationSummary{Total: 3, Layak: 2, Revisi: 1}, summary)
	require.NoError(t, state.verifyComplete())
}

func TestRemoveMemberMissingIsNotFound(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindExec,
			pattern: regexp.MustCompile(`(?s)DELETE FROM .proposal_members. WHERE .*member_id. = \?`),
			result:  scriptedResult{rowsAffected: 0},
		},
	}
	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	err := NewGormStore(db).RemoveMember(context.Background(), &models.Member{MemberID: 3})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	require.NoError(t, state.verifyComplete())
}
