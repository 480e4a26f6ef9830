package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"proposal-management-api/apperrors"
	"proposal-management-api/models"
	"proposal-management-api/policy"
	"proposal-management-api/repositories/repotest"
)

const (
	adminID     uint = 1
	dosenID     uint = 10
	studentID   uint = 11
	student2ID  uint = 12
	reviewerID  uint = 20
	reviewer2ID uint = 21
	strangerID  uint = 30

	activeScheme   uint = 1
	inactiveScheme uint = 2
)

var (
	admin    = policy.Actor{ID: adminID, Role: models.RoleAdmin}
	dosen    = policy.Actor{ID: dosenID, Role: models.RoleDosen}
	student  = policy.Actor{ID: studentID, Role: models.RoleMahasiswa}
	student2 = policy.Actor{ID: student2ID, Role: models.RoleMahasiswa}
	reviewer = policy.Actor{ID: reviewerID, Role: models.RoleReviewer}
	rev2     = policy.Actor{ID: reviewer2ID, Role: models.RoleReviewer}
	stranger = policy.Actor{ID: strangerID, Role: models.RoleDosen}
)

type sentMail struct {
	to      []string
	subject string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(to []string, subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, subject: subject})
	return m.err
}

type fixture struct {
	store    *repotest.Store
	mailer   *recordingMailer
	notifier *NotificationService
	props    *ProposalService
	members  *MembershipService
	reviews  *ReviewService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repotest.NewStore()
	for _, u := range []models.User{
		{UserID: adminID, UserFname: "Admin", Email: "admin@univ.ac.id", RoleID: models.RoleAdmin, IsActive: true},
		{UserID: dosenID, UserFname: "Dosen", Email: "dosen@univ.ac.id", RoleID: models.RoleDosen, IsActive: true},
		{UserID: studentID, UserFname: "Siti", Email: "siti@student.univ.ac.id", RoleID: models.RoleMahasiswa, IsActive: true},
		{UserID: student2ID, UserFname: "Budi", Email: "budi@student.univ.ac.id", RoleID: models.RoleMahasiswa, IsActive: true},
		{UserID: reviewerID, UserFname: "Rina", Email: "rina@univ.ac.id", RoleID: models.RoleReviewer, IsActive: true},
		{UserID: reviewer2ID, UserFname: "Agus", Email: "agus@univ.ac.id", RoleID: models.RoleReviewer, IsActive: true},
		{UserID: strangerID, UserFname: "Other", Email: "other@univ.ac.id", RoleID: models.RoleDosen, IsActive: true},
	} {
		store.PutUser(u)
	}
	store.PutScheme(models.Scheme{SchemeID: activeScheme, Code: "PDP", Name: "Penelitian Dosen Pemula", IsActive: true})
	store.PutScheme(models.Scheme{SchemeID: inactiveScheme, Code: "OLD", Name: "Retired scheme", DisplayOrder: 9})

	logger := zap.NewNop()
	mailer := &recordingMailer{}
	notifier := NewNotificationService(store, mailer, logger)
	notifier.dispatch = func(fn func()) { fn() }

	return &fixture{
		store:    store,
		mailer:   mailer,
		notifier: notifier,
		props:    NewProposalService(store, notifier, logger),
		members:  NewMembershipService(store, notifier, logger),
		reviews:  NewReviewService(store, notifier, logger),
	}
}

func sampleInput() ProposalInput {
	return ProposalInput{
		Title:         "Deteksi dini banjir berbasis IoT",
		Abstract:      "Sensor network for early flood warnings.",
		Keywords:      []string{"iot", "banjir"},
		FundingAmount: 25000000,
		Year:          2025,
		SchemeID:      activeScheme,
	}
}

// draft creates a DRAFT proposal owned by owner.
func (f *fixture) draft(t *testing.T, owner policy.Actor) *models.Proposal {
	t.Helper()
	p, err := f.props.Create(context.Background(), owner, sampleInput())
	require.NoError(t, err)
	return p
}

// joined adds user to p and has them approve.
func (f *fixture) joined(t *testing.T, p *models.Proposal, owner, user policy.Actor, canEdit bool) *models.Member {
	t.Helper()
	ctx := context.Background()
	m, err := f.members.Add(ctx, owner, p.ProposalID, MemberInput{UserID: user.ID, CanEdit: canEdit})
	require.NoError(t, err)
	m, err = f.members.Approve(ctx, user, p.ProposalID, m.MemberID)
	require.NoError(t, err)
	return m
}

// underReview returns a submitted proposal assigned to reviewer.
func (f *fixture) underReview(t *testing.T) *models.Proposal {
	t.Helper()
	ctx := context.Background()
	p := f.draft(t, dosen)
	f.joined(t, p, dosen, student, false)
	_, err := f.props.Submit(ctx, dosen, p.ProposalID)
	require.NoError(t, err)
	p, err = f.props.AssignReviewer(ctx, admin, p.ProposalID, reviewerID)
	require.NoError(t, err)
	return p
}

func requireKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, apperrors.KindOf(err), "error: %v", err)
}

func intPtr(v int) *int { return &v }
