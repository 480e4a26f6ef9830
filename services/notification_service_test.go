package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"proposal-management-api/apperrors"
	"proposal-management-api/repositories/repotest"
)

func TestNotifyStoresAndMailsEachRecipientOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.notifier.Notify(ctx, Event{
		Recipients: []uint{dosenID, 0, studentID, dosenID},
		Title:      "Proposal approved",
		Message:    "Selamat <b>tim</b>",
		Type:       NotifySuccess,
		ProposalID: 5,
	})

	for _, uid := range []uint{dosenID, studentID} {
		notes := f.store.Notifications(uid)
		require.Len(t, notes, 1)
		assert.Equal(t, NotifySuccess, notes[0].Type)
		require.NotNil(t, notes[0].RelatedProposalID)
		assert.Equal(t, uint(5), *notes[0].RelatedProposalID)
	}
	require.Len(t, f.mailer.sent, 2)
	assert.Equal(t, []string{"dosen@univ.ac.id"}, f.mailer.sent[0].to)
	assert.Equal(t, "Proposal approved", f.mailer.sent[0].subject)
}

func TestNotifyToleratesMailFailures(t *testing.T) {
	f := newFixture(t)
	f.mailer.err = errors.New("smtp down")

	f.notifier.Notify(context.Background(), Event{Recipients: []uint{studentID}, Title: "t", Message: "m"})

	notes := f.store.Notifications(studentID)
	require.Len(t, notes, 1)
	assert.Equal(t, NotifyInfo, notes[0].Type)
	assert.Nil(t, notes[0].RelatedProposalID)
}

func TestNilNotifierIsNoop(t *testing.T) {
	var n *NotificationService
	assert.NotPanics(t, func() {
		n.Notify(context.Background(), Event{Recipients: []uint{1}, Title: "x"})
	})
}

func TestNotificationsWithoutMailer(t *testing.T) {
	store := repotest.NewStore()
	n := NewNotificationService(store, nil, zap.NewNop())
	ctx := context.Background()

	n.Notify(ctx, Event{Recipients: []uint{7}, Title: "a"})
	n.Notify(ctx, Event{Recipients: []uint{7}, Title: "b"})

	all, err := n.List(ctx, 7, false)
	require.NoError(t, err)
	require.Len(t, all, 2)

	require.NoError(t, n.MarkRead(ctx, 7, all[0].NotificationID))
	unread, err := n.List(ctx, 7, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "b", unread[0].Title)

	requireKind(t, n.MarkRead(ctx, 8, all[1].NotificationID), apperrors.KindNotFound)
}

func TestBuildFormalEmailHTMLEscapes(t *testing.T) {
	html := buildFormalEmailHTML("Status <update>", " Siti ", "line1\r\nline2 & <script>")
	assert.Contains(t, html, "<title>Status &lt;update&gt;</title>")
	assert.Contains(t, html, "Yth. Siti")
	assert.Contains(t, html, "line1<br />line2 &amp; &lt;script&gt;")
	assert.False(t, strings.Contains(html, "<script>"))
}
