// Package credentials is the durable backing for the session: access
// token, refresh token and the user snapshot survive restarts and are
// cleared wholesale on logout.
package credentials

import (
	"sync"

	"github.com/supervisorapp/supervisor-client/internal/core/datamodel/user"
)

const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyUser         = "user"
)

// Store persists the three session values. Reads return zero values
// when nothing is stored; writes are immediate, never batched.
type Store interface {
	AccessToken() string
	SaveAccessToken(token string) error
	RefreshToken() string
	SaveRefreshToken(token string) error
	User() *user.User
	SaveUser(u *user.User) error
	Clear() error
}

// MemoryStore keeps credentials in process memory only. Used in tests
// and by hosts that manage persistence themselves.
type MemoryStore struct {
	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	user         *user.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accessToken
}

func (m *MemoryStore) SaveAccessToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accessToken = token
	return nil
}

func (m *MemoryStore) RefreshToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refreshToken
}

func (m *MemoryStore) SaveRefreshToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshToken = token
	return nil
}

func (m *MemoryStore) User() *user.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	copied := *m.user
	return &copied
}

func (m *MemoryStore) SaveUser(u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u == nil {
		m.user = nil
		return nil
	}
	copied := *u
	m.user = &copied
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accessToken = ""
	m.refreshToken = ""
	m.user = nil
	return nil
}

var _ Store = (*MemoryStore)(nil)
