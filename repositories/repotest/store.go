// Package repotest provides an in-memory repositories.Store for tests.
package repotest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"proposal-management-api/apperrors"
	"proposal-management-api/models"
	"proposal-management-api/policy"
	"proposal-management-api/repositories"
)

// Store is an in-memory repositories.Store with the same uniqueness and
// version rules as the gorm store. Transactions are serialized and roll back
// by restoring a snapshot.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	seq  uint

	proposals     map[uint]models.Proposal
	deleted       map[uint]bool
	members       map[uint]models.Member
	reviews       map[uint]models.Review
	history       []models.ProposalStatusHistory
	documents     map[uint]models.ProposalDocument
	notifications []models.Notification
	users         map[uint]models.User
	schemes       map[uint]models.Scheme

	inTx  bool
	locks map[uint]int

	// BeforeProposalUpdate runs inside UpdateProposal before the version
	// check, so tests can simulate a concurrent writer.
	BeforeProposalUpdate func(id uint)
}

func NewStore() *Store {
	return &Store{
		seq:       1000,
		proposals: map[uint]models.Proposal{},
		deleted:   map[uint]bool{},
		members:   map[uint]models.Member{},
		reviews:   map[uint]models.Review{},
		documents: map[uint]models.ProposalDocument{},
		users:     map[uint]models.User{},
		schemes:   map[uint]models.Scheme{},
		locks:     map[uint]int{},
	}
}

var _ repositories.Store = (*Store)(nil)

var errLockOutsideTx = errors.New("row lock requested outside WithinTx")

type storeSnapshot struct {
	seq           uint
	proposals     map[uint]models.Proposal
	deleted       map[uint]bool
	members       map[uint]models.Member
	reviews       map[uint]models.Review
	history       []models.ProposalStatusHistory
	documents     map[uint]models.ProposalDocument
	notifications []models.Notification
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *Store) snapshot() storeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return storeSnapshot{
		seq:           s.seq,
		proposals:     cloneMap(s.proposals),
		deleted:       cloneMap(s.deleted),
		members:       cloneMap(s.members),
		reviews:       cloneMap(s.reviews),
		history:       append([]models.ProposalStatusHistory(nil), s.history...),
		documents:     cloneMap(s.documents),
		notifications: append([]models.Notification(nil), s.notifications...),
	}
}

func (s *Store) restore(snap storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = snap.seq
	s.proposals = snap.proposals
	s.deleted = snap.deleted
	s.members = snap.members
	s.reviews = snap.reviews
	s.history = snap.history
	s.documents = snap.documents
	s.notifications = snap.notifications
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repositories.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	snap := s.snapshot()
	s.setInTx(true)
	defer s.setInTx(false)
	if err := fn(s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) setInTx(v bool) {
	s.mu.Lock()
	s.inTx = v
	s.mu.Unlock()
}

func (s *Store) nextID() uint {
	s.seq++
	return s.seq
}

// ----- seeding helpers -----

func (s *Store) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.UserID] = u
}

func (s *Store) PutScheme(sc models.Scheme) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemes[sc.SchemeID] = sc
}

// BumpVersion simulates a write by another session.
func (s *Store) BumpVersion(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.proposals[id]
	p.Version++
	s.proposals[id] = p
}

// ForceStatus overwrites a proposal's status without any checks.
func (s *Store) ForceStatus(id uint, status models.ProposalStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.proposals[id]
	p.Status = status
	s.proposals[id] = p
}

// History returns the status history rows of proposal id in insert order.
func (s *Store) History(id uint) []models.ProposalStatusHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ProposalStatusHistory
	for _, h := range s.history {
		if h.ProposalID == id {
			out = append(out, h)
		}
	}
	return out
}

// Notifications returns every notification stored for userID.
func (s *Store) Notifications(userID uint) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// ----- proposals -----

func stripRelations(p models.Proposal) models.Proposal {
	p.Members, p.Ketua, p.Reviewer, p.Scheme = nil, nil, nil, nil
	return p
}

func (s *Store) CreateProposal(_ context.Context, p *models.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ProposalID = s.nextID()
	s.proposals[p.ProposalID] = stripRelations(*p)
	return nil
}

func (s *Store) GetProposal(_ context.Context, id uint) (*models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[id]
	if !ok || s.deleted[id] {
		return nil, apperrors.NotFound("proposals.get", "proposal")
	}
	return &p, nil
}

// GetProposalForUpdate is GetProposal plus a lock count. WithinTx already
// runs one transaction at a time; a lock taken outside one is an error.
func (s *Store) GetProposalForUpdate(ctx context.Context, id uint) (*models.Proposal, error) {
	s.mu.Lock()
	if !s.inTx {
		s.mu.Unlock()
		return nil, apperrors.Internal("proposals.lock", errLockOutsideTx)
	}
	s.locks[id]++
	s.mu.Unlock()
	return s.GetProposal(ctx, id)
}

// Locks reports how many row locks were taken on proposal id.
func (s *Store) Locks(id uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locks[id]
}

func (s *Store) isMember(proposalID, userID uint, approvedOnly bool) bool {
	for _, m := range s.members {
		if m.ProposalID != proposalID || m.UserID != userID {
			continue
		}
		return !approvedOnly || m.EffectiveStatus() == models.MemberApproved
	}
	return false
}

func (s *Store) inProposalScope(p models.Proposal, sc policy.Scope) bool {
	switch {
	case sc.All:
		return true
	case sc.AssignedReviewerID != 0:
		return p.ReviewerID != nil && *p.ReviewerID == sc.AssignedReviewerID
	case sc.OwnerID != 0 && sc.MemberID != 0:
		return p.KetuaID == sc.OwnerID || s.isMember(p.ProposalID, sc.MemberID, sc.MemberApprovedOnly)
	case sc.OwnerID != 0:
		return p.KetuaID == sc.OwnerID
	}
	return false
}

func (s *Store) ListProposals(_ context.Context, f repositories.ProposalFilter) ([]models.Proposal, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []models.Proposal
	for id, p := range s.proposals {
		if s.deleted[id] || !s.inProposalScope(p, f.Scope) {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, p.Status) {
			continue
		}
		if f.Year != 0 && p.Year != f.Year {
			continue
		}
		if f.SchemeID != 0 && p.SchemeID != f.SchemeID {
			continue
		}
		if q := strings.TrimSpace(f.Search); q != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(q)) {
			continue
		}
		rows = append(rows, p)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].UpdatedAt.Equal(rows[j].UpdatedAt) {
			return rows[i].UpdatedAt.After(rows[j].UpdatedAt)
		}
		return rows[i].ProposalID > rows[j].ProposalID
	})
	total := int64(len(rows))
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if f.Offset >= len(rows) {
		return nil, total, nil
	}
	rows = rows[f.Offset:]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, total, nil
}

func containsStatus(list []models.ProposalStatus, s models.ProposalStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (s *Store) UpdateProposal(_ context.Context, p *models.Proposal) error {
	if hook := s.BeforeProposalUpdate; hook != nil {
		hook(p.ProposalID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.proposals[p.ProposalID]
	if !ok || s.deleted[p.ProposalID] || stored.Version != p.Version {
		return apperrors.Conflict("proposals.update", "proposal %d was modified concurrently", p.ProposalID)
	}
	p.Version++
	p.UpdatedAt = time.Now()
	s.proposals[p.ProposalID] = stripRelations(*p)
	return nil
}

func (s *Store) DeleteProposal(_ context.Context, p *models.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.proposals[p.ProposalID]
	if !ok || s.deleted[p.ProposalID] || stored.Version != p.Version {
		return apperrors.Conflict("proposals.delete", "proposal %d was modified concurrently", p.ProposalID)
	}
	s.deleted[p.ProposalID] = true
	return nil
}

func (s *Store) ListAwaitingReview(_ context.Context, sc policy.Scope) ([]models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []models.Proposal
	for id, p := range s.proposals {
		if s.deleted[id] || !p.Status.IsUnderReview() || !s.inProposalScope(p, sc) {
			continue
		}
		a := p.Assignment()
		if a.Assigned && s.hasReview(p.ProposalID, a.ReviewerID, p.SubmissionCycle) {
			continue
		}
		rows = append(rows, p)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ProposalID < rows[j].ProposalID })
	return rows, nil
}

func (s *Store) hasReview(proposalID, reviewerID uint, cycle int) bool {
	for _, r := range s.reviews {
		if r.ProposalID == proposalID && r.ReviewerID == reviewerID && r.Cycle == cycle {
			return true
		}
	}
	return false
}

func (s *Store) AppendStatusHistory(_ context.Context, h *models.ProposalStatusHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h.HistoryID = s.nextID()
	s.history = append(s.history, *h)
	return nil
}

func (s *Store) ListStatusHistory(_ context.Context, proposalID uint) ([]models.ProposalStatusHistory, error) {
	return s.History(proposalID), nil
}

// ----- members -----

func (s *Store) AddMember(_ context.Context, m *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.members {
		if existing.ProposalID == m.ProposalID && existing.UserID == m.UserID {
			return apperrors.Conflict("members.add", "member already exists")
		}
	}
	m.MemberID = s.nextID()
	s.members[m.MemberID] = *m
	return nil
}

func (s *Store) GetMember(_ context.Context, proposalID, memberID uint) (*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberID]
	if !ok || m.ProposalID != proposalID {
		return nil, apperrors.NotFound("members.get", "member")
	}
	return &m, nil
}

func (s *Store) ListMembers(_ context.Context, proposalID uint) ([]models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []models.Member
	for _, m := range s.members {
		if m.ProposalID == proposalID {
			rows = append(rows, m)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].MemberID < rows[j].MemberID })
	return rows, nil
}

func (s *Store) UpdateMemberStatus(_ context.Context, m *models.Member, from models.MemberStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.members[m.MemberID]
	if !ok || stored.Status != from {
		return apperrors.Conflict("members.updateStatus", "member %d is no longer %s", m.MemberID, from)
	}
	stored.Status = m.Status
	stored.RespondedAt = m.RespondedAt
	s.members[m.MemberID] = stored
	return nil
}

func (s *Store) RemoveMember(_ context.Context, m *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[m.MemberID]; !ok {
		return apperrors.NotFound("members.remove", "member")
	}
	delete(s.members, m.MemberID)
	return nil
}

// ----- reviews -----

func (s *Store) CreateReview(_ context.Context, r *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasReview(r.ProposalID, r.ReviewerID, r.Cycle) {
		return apperrors.Conflict("reviews.create", "review already exists")
	}
	r.ReviewID = s.nextID()
	s.reviews[r.ReviewID] = *r
	return nil
}

func (s *Store) GetReview(_ context.Context, id uint) (*models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return nil, apperrors.NotFound("reviews.get", "review")
	}
	return &r, nil
}

func (s *Store) FindReview(_ context.Context, proposalID, reviewerID uint, cycle int) (*models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reviews {
		if r.ProposalID == proposalID && r.ReviewerID == reviewerID && r.Cycle == cycle {
			return &r, nil
		}
	}
	return nil, apperrors.NotFound("reviews.find", "review")
}

func (s *Store) UpdateReview(_ context.Context, r *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.reviews[r.ReviewID]
	if !ok || stored.Version != r.Version {
		return apperrors.Conflict("reviews.update", "review %d was modified concurrently", r.ReviewID)
	}
	r.Version++
	r.UpdatedAt = time.Now()
	s.reviews[r.ReviewID] = *r
	return nil
}

func (s *Store) reviewVisible(r models.Review, f repositories.ReviewFilter) bool {
	if f.ProposalID != 0 && r.ProposalID != f.ProposalID {
		return false
	}
	if f.Recommendation != "" && r.Recommendation != f.Recommendation {
		return false
	}
	sc := f.Scope
	switch {
	case sc.All:
		return true
	case sc.AuthorID != 0:
		return r.ReviewerID == sc.AuthorID
	case sc.OwnerID != 0:
		p, ok := s.proposals[r.ProposalID]
		if ok && !s.deleted[r.ProposalID] && p.KetuaID == sc.OwnerID {
			return true
		}
		return sc.MemberID != 0 && s.isMember(r.ProposalID, sc.MemberID, sc.MemberApprovedOnly)
	}
	return false
}

func (s *Store) ListReviews(_ context.Context, f repositories.ReviewFilter) ([]models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []models.Review
	for _, r := range s.reviews {
		if s.reviewVisible(r, f) {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ReviewID > rows[j].ReviewID })
	return rows, nil
}

// CountReviewsByRecommendation groups independently of ListReviews, the way
// the SQL GROUP BY does.
func (s *Store) CountReviewsByRecommendation(_ context.Context, f repositories.ReviewFilter) (models.RecommendationSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	groups := map[string]int64{}
	for _, r := range s.reviews {
		if s.reviewVisible(r, f) {
			groups[string(r.Recommendation)]++
		}
	}
	var summary models.RecommendationSummary
	for rec, n := range groups {
		summary.Add(models.Recommendation(rec), n)
	}
	return summary, nil
}

// ----- documents -----

func (s *Store) CreateDocument(_ context.Context, d *models.ProposalDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.DocumentID = s.nextID()
	s.documents[d.DocumentID] = *d
	return nil
}

func (s *Store) GetDocument(_ context.Context, id uint) (*models.ProposalDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[id]
	if !ok || d.DeleteAt != nil {
		return nil, apperrors.NotFound("documents.get", "document")
	}
	return &d, nil
}

func (s *Store) ListDocuments(_ context.Context, proposalID uint) ([]models.ProposalDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []models.ProposalDocument
	for _, d := range s.documents {
		if d.ProposalID == proposalID && d.DeleteAt == nil {
			rows = append(rows, d)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].DocumentID < rows[j].DocumentID })
	return rows, nil
}

func (s *Store) DeleteDocument(_ context.Context, d *models.ProposalDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.documents[d.DocumentID]
	if !ok || stored.DeleteAt != nil {
		return apperrors.NotFound("documents.delete", "document")
	}
	now := time.Now()
	stored.DeleteAt = &now
	s.documents[d.DocumentID] = stored
	d.DeleteAt = &now
	return nil
}

// ----- notifications -----

func (s *Store) CreateNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.NotificationID = s.nextID()
	if n.CreateAt.IsZero() {
		n.CreateAt = time.Now()
	}
	s.notifications = append(s.notifications, *n)
	return nil
}

func (s *Store) ListNotifications(_ context.Context, userID uint, unreadOnly bool) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range s.Notifications(userID) {
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, userID, notificationID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.notifications {
		if n.NotificationID == notificationID && n.UserID == userID {
			s.notifications[i].IsRead = true
			return nil
		}
	}
	return apperrors.NotFound("notifications.read", "notification")
}

// ----- users & lookups -----

func (s *Store) GetUser(_ context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.NotFound("users.get", "user")
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return &u, nil
		}
	}
	return nil, apperrors.NotFound("users.byEmail", "user")
}

func (s *Store) ListUsersByRole(_ context.Context, role models.RoleID) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []models.User
	for _, u := range s.users {
		if u.RoleID == role && u.IsActive {
			rows = append(rows, u)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].UserID < rows[j].UserID })
	return rows, nil
}

func (s *Store) GetScheme(_ context.Context, id uint) (*models.Scheme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.schemes[id]
	if !ok {
		return nil, apperrors.NotFound("schemes.get", "scheme")
	}
	return &sc, nil
}

func (s *Store) ListSchemes(_ context.Context, activeOnly bool) ([]models.Scheme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []models.Scheme
	for _, sc := range s.schemes {
		if activeOnly && !sc.IsActive {
			continue
		}
		rows = append(rows, sc)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].DisplayOrder < rows[j].DisplayOrder })
	return rows, nil
}
