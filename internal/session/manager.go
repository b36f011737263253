// Package session owns the authentication state: tokens, the current
// user, and the derived role and permission projections. All mutation
// goes through the Manager; every change is mirrored synchronously to
// the persistent credential store.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/supervisorapp/supervisor-client/internal"
	"github.com/supervisorapp/supervisor-client/internal/credentials"
	"github.com/supervisorapp/supervisor-client/internal/core/datamodel/user"
	"github.com/supervisorapp/supervisor-client/internal/transport"
)

const (
	LoginPath          = "/token/"
	LogoutPath         = "/auth/logout/"
	ProfilePath        = "/auth/profile/"
	ChangePasswordPath = "/auth/change-password/"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Access  string    `json:"access"`
	Refresh string    `json:"refresh"`
	User    user.User `json:"user"`
}

// Manager is the single owner of the session. Tokens live in the
// credential store so the transport's refresh path and the manager
// always see the same state; the user snapshot is cached in memory
// and mirrored to the store on every change.
type Manager struct {
	api          *transport.Client
	creds        credentials.Store
	logger       *slog.Logger
	refreshAhead time.Duration

	mu   sync.RWMutex
	user *user.User
}

func NewManager(api *transport.Client, creds credentials.Store, refreshAhead time.Duration, logger *slog.Logger) *Manager {
	if refreshAhead <= 0 {
		refreshAhead = internal.DefaultRefreshAhead
	}
	return &Manager{
		api:          api,
		creds:        creds,
		logger:       logger,
		refreshAhead: refreshAhead,
	}
}

// Login authenticates and establishes the session. On any failure the
// session is fully cleared before the error is returned, so no
// partial state survives a failed login.
func (m *Manager) Login(ctx context.Context, creds Credentials) (*user.User, error) {
	resp, err := m.api.Post(ctx, LoginPath, creds)
	if err != nil {
		m.Logout(ctx)
		return nil, err
	}

	var out loginResponse
	if err := resp.Decode(&out); err != nil {
		m.Logout(ctx)
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	if out.Access == "" || out.Refresh == "" {
		m.Logout(ctx)
		return nil, errors.New("login response missing tokens")
	}

	m.mu.Lock()
	m.user = &out.User
	m.persistLocked(out.Access, out.Refresh, &out.User)
	m.mu.Unlock()

	m.logger.Info("login successful", "username", out.User.Username, "role", out.User.Profile.Role)
	return m.User(), nil
}

// persistLocked mirrors the session to the credential store. Callers
// hold m.mu.
func (m *Manager) persistLocked(access, refresh string, u *user.User) {
	if err := m.creds.SaveAccessToken(access); err != nil {
		m.logger.Error("failed to persist access token", "error", err)
	}
	if err := m.creds.SaveRefreshToken(refresh); err != nil {
		m.logger.Error("failed to persist refresh token", "error", err)
	}
	if err := m.creds.SaveUser(u); err != nil {
		m.logger.Error("failed to persist user snapshot", "error", err)
	}
}

// Logout asks the server to blacklist the refresh token, then clears
// local state. Server errors are logged and swallowed: local cleanup
// happens no matter what.
func (m *Manager) Logout(ctx context.Context) {
	if refresh := m.creds.RefreshToken(); refresh != "" {
		if _, err := m.api.Post(ctx, LogoutPath, map[string]string{"refresh": refresh}); err != nil {
			m.logger.Warn("server-side logout failed", "error", err)
		}
	}

	m.mu.Lock()
	m.user = nil
	if err := m.creds.Clear(); err != nil {
		m.logger.Error("failed to clear credential store", "error", err)
	}
	m.mu.Unlock()
}

// RefreshAccessToken mints a new access token from the held refresh
// token. Fails fast when none is held; on any refresh failure the
// whole session is torn down before the error is returned.
func (m *Manager) RefreshAccessToken(ctx context.Context) (string, error) {
	if m.creds.RefreshToken() == "" {
		return "", errors.New("no refresh token held")
	}

	if err := m.api.RefreshAccessToken(ctx); err != nil {
		m.Logout(ctx)
		return "", err
	}
	return m.creds.AccessToken(), nil
}

// FetchCurrentUser reloads the profile from the server and replaces
// the stored user snapshot. A 401 (after the transport's own recovery
// has given up) tears the session down; other errors pass through.
func (m *Manager) FetchCurrentUser(ctx context.Context) (*user.User, error) {
	resp, err := m.api.Get(ctx, ProfilePath, nil)
	if err != nil {
		var expired *internal.AuthExpiredError
		if errors.As(err, &expired) || internal.IsUnauthorized(err) {
			m.Logout(ctx)
		}
		return nil, err
	}

	var u user.User
	if err := resp.Decode(&u); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}

	m.setUser(&u)
	return m.User(), nil
}

// UpdateProfile sends a full or partial profile update and refreshes
// the stored user snapshot from the server's reply.
func (m *Manager) UpdateProfile(ctx context.Context, data any) (*user.User, error) {
	resp, err := m.api.Put(ctx, ProfilePath, data)
	if err != nil {
		return nil, err
	}

	var u user.User
	if err := resp.Decode(&u); err != nil {
		return nil, fmt.Errorf("decode updated profile: %w", err)
	}

	m.setUser(&u)
	return m.User(), nil
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (m *Manager) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	_, err := m.api.Post(ctx, ChangePasswordPath, req)
	return err
}

// Initialize restores the session from the credential store at
// startup. When all three values are present the session is
// optimistically authenticated, then validated against the profile
// endpoint; a stale or revoked session is torn down.
func (m *Manager) Initialize(ctx context.Context) {
	storedUser := m.creds.User()
	if m.creds.AccessToken() == "" || m.creds.RefreshToken() == "" || storedUser == nil {
		return
	}

	m.mu.Lock()
	m.user = storedUser
	m.mu.Unlock()

	if _, err := m.FetchCurrentUser(ctx); err != nil {
		m.logger.Warn("stored session no longer valid, logging out", "error", err)
		m.Logout(ctx)
	}
}

func (m *Manager) setUser(u *user.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = u
	if err := m.creds.SaveUser(u); err != nil {
		m.logger.Error("failed to persist user snapshot", "error", err)
	}
}

// ----------------- PROJECTIONS -----------------

func (m *Manager) User() *user.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	copied := *m.user
	return &copied
}

func (m *Manager) AccessToken() string {
	return m.creds.AccessToken()
}

// IsAuthenticated holds exactly when both an access token and a user
// are present.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	hasUser := m.user != nil
	m.mu.RUnlock()
	return hasUser && m.creds.AccessToken() != ""
}

func (m *Manager) Role() user.Role {
	if u := m.User(); u != nil {
		return u.Profile.Role
	}
	return ""
}

func (m *Manager) FullName() string {
	if u := m.User(); u != nil {
		return u.FullName()
	}
	return ""
}

func (m *Manager) IsSuperAdmin() bool  { return m.Role() == user.RoleSuperAdmin }
func (m *Manager) IsAdmin() bool       { return m.Role() == user.RoleAdmin }
func (m *Manager) IsCoordinator() bool { return m.Role() == user.RoleCoordinator }
func (m *Manager) IsStockman() bool    { return m.Role() == user.RoleStockman }
func (m *Manager) IsSupervisor() bool  { return m.Role() == user.RoleSupervisor }

func (m *Manager) HasAdminRights() bool {
	u := m.User()
	return u != nil && u.HasAdminRights()
}

func (m *Manager) HasPermission(code string) bool {
	u := m.User()
	return u != nil && u.HasPermission(code)
}

// NeedsRefresh reports whether the access token expires within the
// configured refresh-ahead window. The client holds no signing key,
// so the claim is read without verification; the server stays the
// authority on validity.
func (m *Manager) NeedsRefresh() bool {
	token := m.creds.AccessToken()
	if token == "" {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Until(exp.Time) < m.refreshAhead
}
