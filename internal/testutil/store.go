// Package testutil provides in-memory stand-ins for the persistence ports.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"auth-bridge/internal/domain"
)

// MemoryStore implements domain.SessionStore and domain.AccountReader over
// maps. Insert sweeps the user's other rows under one lock and rejects
// unknown users, matching the Postgres store.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]domain.Session // by id
	users     map[string]domain.User    // by id
	providers map[string][]string       // by user id
	now       func() time.Time

	// Fail, when set, is consulted before every operation; a non-nil return
	// is returned to the caller.
	Fail func(op string) error
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]domain.Session),
		users:     make(map[string]domain.User),
		providers: make(map[string][]string),
		now:       time.Now,
	}
}

// SetNow overrides the clock used to filter expired sessions.
func (m *MemoryStore) SetNow(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// AddUser registers a user and its linked provider ids.
func (m *MemoryStore) AddUser(u domain.User, providerIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.providers[u.ID] = append([]string(nil), providerIDs...)
}

// PutSession stores s directly, bypassing the single-session sweep.
func (m *MemoryStore) PutSession(s domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

// SessionsFor returns the stored sessions of userID ordered by id.
func (m *MemoryStore) SessionsFor(userID string) []domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked(userID)
}

func (m *MemoryStore) fail(op string) error {
	if m.Fail == nil {
		return nil
	}
	return m.Fail(op)
}

func (m *MemoryStore) Lookup(_ context.Context, token string) (*domain.SessionView, error) {
	if err := m.fail("Lookup"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if s.Token != token {
			continue
		}
		if s.Expired(m.now()) {
			return nil, domain.ErrSessionNotFound
		}
		u, ok := m.users[s.UserID]
		if !ok {
			return nil, domain.ErrSessionNotFound
		}
		return &domain.SessionView{Session: s, User: u}, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (m *MemoryStore) GetByToken(_ context.Context, token string) (*domain.Session, error) {
	if err := m.fail("GetByToken"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if s.Token == token {
			return &s, nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

func (m *MemoryStore) GetByID(_ context.Context, sessionID string) (*domain.Session, error) {
	if err := m.fail("GetByID"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &s, nil
}

func (m *MemoryStore) ListByUser(_ context.Context, userID string) ([]domain.Session, error) {
	if err := m.fail("ListByUser"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked(userID), nil
}

func (m *MemoryStore) Insert(_ context.Context, s domain.Session) ([]domain.Session, error) {
	if err := m.fail("Insert"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[s.UserID]; !ok {
		return nil, domain.ErrUserNotFound
	}

	swept := m.listLocked(s.UserID)
	for _, old := range swept {
		delete(m.sessions, old.ID)
	}
	m.sessions[s.ID] = s
	return swept, nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	if err := m.fail("Delete"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *MemoryStore) ProviderIDs(_ context.Context, userID string) ([]string, error) {
	if err := m.fail("ProviderIDs"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.providers[userID]...), nil
}

func (m *MemoryStore) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	if err := m.fail("FindUserByEmail"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *MemoryStore) listLocked(userID string) []domain.Session {
	var out []domain.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
