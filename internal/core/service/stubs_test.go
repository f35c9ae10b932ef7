package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/africtivistes/adisa/internal/core/domain"
	"github.com/africtivistes/adisa/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

type stubAccountRepo struct {
	mu       sync.Mutex
	byID     map[string]*domain.Account
	seq      int
	findErr  error
	createFn func(a *domain.Account) error
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{byID: make(map[string]*domain.Account)}
}

func cloneAccount(a *domain.Account) *domain.Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

func (r *stubAccountRepo) seed(a *domain.Account) *domain.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == "" {
		r.seq++
		a.ID = fmt.Sprintf("acct-%d", r.seq)
	}
	r.byID[a.ID] = cloneAccount(a)
	return cloneAccount(a)
}

func (r *stubAccountRepo) get(id string) *domain.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneAccount(r.byID[id])
}

func (r *stubAccountRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func (r *stubAccountRepo) Create(_ context.Context, a *domain.Account) (*domain.Account, error) {
	if r.createFn != nil {
		if err := r.createFn(a); err != nil {
			return nil, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if a.Username != "" && existing.Username == a.Username {
			return nil, domain.ErrUsernameTaken
		}
		if existing.Email == a.Email {
			return nil, domain.ErrUserAlreadyExists
		}
	}
	r.seq++
	c := cloneAccount(a)
	c.ID = fmt.Sprintf("acct-%d", r.seq)
	r.byID[c.ID] = c
	return cloneAccount(c), nil
}

func (r *stubAccountRepo) find(match func(*domain.Account) bool) (*domain.Account, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if match(a) {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *stubAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return a.ID == id })
}

func (r *stubAccountRepo) FindByUsername(_ context.Context, username string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return a.Username == username })
}

func (r *stubAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return a.Email == email })
}

func (r *stubAccountRepo) List(_ context.Context) ([]*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Account, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, cloneAccount(a))
	}
	return out, nil
}

func (r *stubAccountRepo) SetTwoFactorSecret(_ context.Context, id, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if a.TwoFactorEnabled {
		return domain.ErrTwoFactorAlreadyEnabled
	}
	a.TwoFactorSecret = secret
	return nil
}

func (r *stubAccountRepo) EnableTwoFactor(_ context.Context, id, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok || a.TwoFactorSecret != secret {
		return domain.ErrInvalidCode
	}
	a.TwoFactorEnabled = true
	return nil
}

func (r *stubAccountRepo) Update(_ context.Context, id string, u domain.AccountUpdate) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if u.Role != nil {
		a.Role = *u.Role
	}
	if u.IsActive != nil {
		a.IsActive = *u.IsActive
	}
	return cloneAccount(a), nil
}

// ---------------------------------------------------------------------------
// Invitations
// ---------------------------------------------------------------------------

type stubInvitationRepo struct {
	mu      sync.Mutex
	byToken map[string]*domain.Invitation
	seq     int
}

func newStubInvitationRepo() *stubInvitationRepo {
	return &stubInvitationRepo{byToken: make(map[string]*domain.Invitation)}
}

func cloneInvitation(i *domain.Invitation) *domain.Invitation {
	c := *i
	return &c
}

func (r *stubInvitationRepo) get(token string) *domain.Invitation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.byToken[token]; ok {
		return cloneInvitation(i)
	}
	return nil
}

func (r *stubInvitationRepo) only() *domain.Invitation {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.byToken {
		return cloneInvitation(i)
	}
	return nil
}

func (r *stubInvitationRepo) Create(_ context.Context, i *domain.Invitation) (*domain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	c := cloneInvitation(i)
	c.ID = fmt.Sprintf("inv-%d", r.seq)
	r.byToken[c.Token] = c
	return cloneInvitation(c), nil
}

func (r *stubInvitationRepo) FindUnusedByToken(_ context.Context, token string) (*domain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byToken[token]
	if !ok || i.Used {
		return nil, domain.ErrInvalidOrExpiredInvite
	}
	return cloneInvitation(i), nil
}

func (r *stubInvitationRepo) Redeem(_ context.Context, token string, now time.Time) (*domain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byToken[token]
	if !ok || i.Used || now.After(i.ExpiresAt) {
		return nil, domain.ErrInvalidOrExpiredInvite
	}
	i.Used = true
	i.UsedAt = &now
	return cloneInvitation(i), nil
}

func (r *stubInvitationRepo) Release(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.byToken[token]; ok {
		i.Used = false
		i.UsedAt = nil
	}
	return nil
}

// ---------------------------------------------------------------------------
// Sessions, replay guard, mailer
// ---------------------------------------------------------------------------

type stubSessionStore struct {
	mu   sync.Mutex
	byID map[string]domain.Session
	ttls map[string]time.Duration
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{byID: make(map[string]domain.Session), ttls: make(map[string]time.Duration)}
}

func (s *stubSessionStore) Save(_ context.Context, sess *domain.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[sess.ID] = *sess
	s.ttls[sess.ID] = ttl
	return nil
}

func (s *stubSessionStore) Update(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[sess.ID]; !ok {
		return domain.ErrUnauthorized
	}
	s.byID[sess.ID] = *sess
	return nil
}

func (s *stubSessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return &sess, nil
}

func (s *stubSessionStore) Delete(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, sess.ID)
	return nil
}

func (s *stubSessionStore) DeleteByAccount(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.byID {
		if sess.AccountID == accountID {
			delete(s.byID, id)
		}
	}
	return nil
}

type stubReplayGuard struct {
	mu   sync.Mutex
	used map[string]bool
}

func newStubReplayGuard() *stubReplayGuard {
	return &stubReplayGuard{used: make(map[string]bool)}
}

func (g *stubReplayGuard) MarkUsed(_ context.Context, accountID string, step uint64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := fmt.Sprintf("%s:%d", accountID, step)
	if g.used[key] {
		return false, nil
	}
	g.used[key] = true
	return true, nil
}

type stubMailer struct {
	mu   sync.Mutex
	sent []ports.Message
	err  error
}

func (m *stubMailer) Send(_ context.Context, msg ports.Message) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var testNow = time.Date(2026, 3, 2, 10, 0, 15, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestSessionManager(store ports.SessionStore) *SessionManager {
	m := NewSessionManager(store, "test-session-secret", time.Hour, zerolog.Nop())
	m.now = fixedClock(testNow)
	return m
}
