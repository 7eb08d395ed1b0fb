package httpauth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LoginFunc exchanges signed credentials for a session token and its
// time-to-live. Callers typically sign a login request with
// Credentials.SignRequest and POST it to the broker's session
// endpoint.
type LoginFunc func(ctx context.Context) (token string, ttl time.Duration, err error)

// Manager implements the request-signing and session-token lifecycle:
// AccessToken returns a currently-valid token,
// minting one on first use or once the cached one expires;
// RefreshIfNeeded is a no-op when the cached token is still valid, and
// Refresh always forces a new one (used after an auth-class fetch
// failure, which may mean the token was revoked server-side before
// its advertised expiry).
type Manager struct {
	creds *Credentials
	login LoginFunc

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewManager builds a Manager that signs with creds and mints session
// tokens via login.
func NewManager(creds *Credentials, login LoginFunc) *Manager {
	return &Manager{creds: creds, login: login}
}

// SignRequest signs method and path with the manager's credentials.
func (m *Manager) SignRequest(method, path string) (map[string]string, error) {
	return m.creds.SignRequest(method, path)
}

// AccessToken returns a currently-valid session token, refreshing it
// first if none is cached or the cached one has expired.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == "" || !time.Now().Before(m.expiresAt) {
		if err := m.refreshLocked(ctx); err != nil {
			return "", err
		}
	}
	return m.token, nil
}

// RefreshIfNeeded refreshes the cached token only if it is missing or
// expired.
func (m *Manager) RefreshIfNeeded(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && time.Now().Before(m.expiresAt) {
		return nil
	}
	return m.refreshLocked(ctx)
}

// Refresh unconditionally mints a new session token. It satisfies
// subscription.AuthRefresher, so the polling engine can call it once
// after an auth-class fetch failure before retrying.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshLocked(ctx)
}

// Revoke clears the cached token without contacting the broker.
func (m *Manager) Revoke(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.expiresAt = time.Time{}
	return nil
}

func (m *Manager) refreshLocked(ctx context.Context) error {
	token, ttl, err := m.login(ctx)
	if err != nil {
		return fmt.Errorf("httpauth: login: %w", err)
	}
	m.token = token
	m.expiresAt = time.Now().Add(ttl)
	return nil
}
