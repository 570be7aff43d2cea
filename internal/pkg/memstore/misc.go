package memstore

import (
	"context"
	"sync"

	"github.com/go-redsync/redsync/v4"
	"github.com/pkg/errors"

	"exusiai.dev/crm-backup/internal/store"
)

// Roles is an in-memory store.RoleStore.
type Roles struct {
	mu    sync.Mutex
	roles map[string][]string
	calls int

	Err error
}

var _ store.RoleStore = (*Roles)(nil)

func NewRoles() *Roles {
	return &Roles{roles: make(map[string][]string)}
}

func (s *Roles) Grant(userID string, roles ...string) *Roles {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[userID] = append(s.roles[userID], roles...)
	return s
}

func (s *Roles) GetRolesByUserID(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]string(nil), s.roles[userID]...), nil
}

// Calls returns how many lookups reached the store.
func (s *Roles) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var ErrNotHeld = errors.New("memstore: mutex not held")

// Mutex is a process-local store.Mutex. LockContext fails with redsync.ErrFailed
// while the mutex is held.
type Mutex struct {
	mu   sync.Mutex
	held bool
}

var _ store.Mutex = (*Mutex)(nil)

func (m *Mutex) LockContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held {
		return redsync.ErrFailed
	}
	m.held = true
	return nil
}

func (m *Mutex) UnlockContext(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.held {
		return false, ErrNotHeld
	}
	m.held = false
	return true, nil
}

func (m *Mutex) Held() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held
}
