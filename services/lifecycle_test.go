package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"proposal-management-api/models"
	"proposal-management-api/repositories/repotest"
)

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from, to models.ProposalStatus
		path     transitionPath
	}{
		{models.StatusDraft, models.StatusSubmitted, viaSubmit},
		{models.StatusRevision, models.StatusSubmitted, viaSubmit},
		{models.StatusSubmitted, models.StatusReview, viaDecision},
		{models.StatusReview, models.StatusApproved, viaDecision},
		{models.StatusReview, models.StatusRejected, viaDecision},
		{models.StatusReview, models.StatusRevision, viaDecision},
		{models.StatusApproved, models.StatusCompleted, viaCompletion},
		{models.StatusDraft, models.StatusApproved, 0},
		{models.StatusSubmitted, models.StatusApproved, 0},
		{models.StatusRevision, models.StatusReview, 0},
		{models.StatusApproved, models.StatusRevision, 0},
		{models.StatusRejected, models.StatusSubmitted, 0},
		{models.StatusCompleted, models.StatusApproved, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.path, pathOf(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
		assert.Equal(t, tc.path != 0, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestNextStatusesAndTerminal(t *testing.T) {
	assert.Equal(t,
		[]models.ProposalStatus{models.StatusApproved, models.StatusRejected, models.StatusRevision},
		NextStatuses(models.StatusReview))
	assert.Empty(t, NextStatuses(models.StatusRejected))
	assert.Empty(t, NextStatuses(models.StatusCompleted))

	for _, s := range []models.ProposalStatus{models.StatusApproved, models.StatusRejected, models.StatusCompleted} {
		assert.True(t, IsTerminal(s), s)
	}
	for _, s := range []models.ProposalStatus{models.StatusDraft, models.StatusSubmitted, models.StatusReview, models.StatusRevision} {
		assert.False(t, IsTerminal(s), s)
	}
}

type countingSchemeStore struct {
	*repotest.Store
	calls int
	err   error
}

func (s *countingSchemeStore) ListSchemes(ctx context.Context, activeOnly bool) ([]models.Scheme, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.Store.ListSchemes(ctx, activeOnly)
}

func TestSchemeCache(t *testing.T) {
	store := &countingSchemeStore{Store: repotest.NewStore()}
	store.PutScheme(models.Scheme{SchemeID: 1, Code: "PDP", IsActive: true, DisplayOrder: 2})
	store.PutScheme(models.Scheme{SchemeID: 2, Code: "PT", IsActive: true, DisplayOrder: 1})
	store.PutScheme(models.Scheme{SchemeID: 3, Code: "OLD"})
	svc := NewSchemeService(store, zap.NewNop())
	ctx := context.Background()

	first, err := svc.Active(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "PT", first[0].Code)

	_, err = svc.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, store.calls)

	svc.Clear()
	store.err = errors.New("db gone")
	_, err = svc.Active(ctx)
	require.Error(t, err)
	assert.Equal(t, 2, store.calls)

	store.err = nil
	_, err = svc.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, store.calls)
}
