// Package services holds the per-identity Client and the operations the API exposes.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"collage-sync/internal/apperr"
	"collage-sync/internal/cache"
	"collage-sync/internal/config"
	"collage-sync/internal/gateway"
	"collage-sync/internal/push"
	"collage-sync/internal/realtime"
	"collage-sync/internal/session"

	"github.com/rs/zerolog"
)

// Deps are the process-wide collaborators shared by every Client
type Deps struct {
	Gateway  gateway.Gateway
	Cleaner  session.Cleaner
	Bridge   *realtime.Bridge
	Notifier push.Notifier
	Bucket   string
	Collage  config.CollageConfig
	Log      zerolog.Logger
	Now      func() time.Time

	// IdleTTL is how long an unheld Client survives without use. Zero
	// disables eviction.
	IdleTTL time.Duration
}

// Manager owns one Client per signed-in identity
type Manager struct {
	deps Deps
	auth *AuthService

	mu      sync.Mutex
	clients map[string]*Client
}

// NewManager creates a new client manager
func NewManager(deps Deps, auth *AuthService) *Manager {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Notifier == nil {
		deps.Notifier = push.Noop{}
	}
	return &Manager{
		deps:    deps,
		auth:    auth,
		clients: make(map[string]*Client),
	}
}

// Auth returns the auth service
func (m *Manager) Auth() *AuthService {
	return m.auth
}

// ClientForToken validates a session token and returns its Client
func (m *Manager) ClientForToken(ctx context.Context, token string) (*Client, error) {
	if token == "" {
		return nil, apperr.New(apperr.Unauthorized, "authenticate", "token required")
	}
	userID, err := m.auth.ValidateJWT(token)
	if err != nil {
		return nil, err
	}
	return m.Client(ctx, userID)
}

// Client returns the Client of userID, creating it on first use. The
// account must still exist.
func (m *Manager) Client(ctx context.Context, userID string) (*Client, error) {
	m.mu.Lock()
	c, ok := m.clients[userID]
	m.mu.Unlock()
	if ok {
		c.touch(m.deps.Now())
		return c, nil
	}

	user, err := m.deps.Gateway.GetUser(ctx, userID)
	if apperr.Is(err, apperr.NotFound) {
		return nil, apperr.New(apperr.Unauthorized, "authenticate", "account no longer exists")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[userID]; ok {
		c.touch(m.deps.Now())
		return c, nil
	}
	c = newClient(m.deps, user, m.fanout)
	m.clients[userID] = c
	m.deps.Log.Info().Str("user_id", userID).Msg("Client created")
	return c, nil
}

// fanout applies fn to the cache of every live client except from
func (m *Manager) fanout(from *Client, fn func(*cache.EntityCache)) {
	m.mu.Lock()
	clients := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		if c != from {
			clients = append(clients, c)
		}
	}
	m.mu.Unlock()

	for _, c := range clients {
		fn(c.cache)
	}
}

// SignOut drops the Client of userID and clears its caches
func (m *Manager) SignOut(userID string) {
	m.mu.Lock()
	c, ok := m.clients[userID]
	delete(m.clients, userID)
	m.mu.Unlock()

	if ok {
		c.close()
		m.deps.Log.Info().Str("user_id", userID).Msg("Client signed out")
	}
}

// EvictIdle closes and drops every unheld client unused for IdleTTL. It
// returns the number evicted.
func (m *Manager) EvictIdle() int {
	if m.deps.IdleTTL <= 0 {
		return 0
	}
	cutoff := m.deps.Now().Add(-m.deps.IdleTTL)

	m.mu.Lock()
	var evicted []*Client
	for id, c := range m.clients {
		if c.idleSince(cutoff) {
			delete(m.clients, id)
			evicted = append(evicted, c)
		}
	}
	m.mu.Unlock()

	for _, c := range evicted {
		c.close()
	}
	if len(evicted) > 0 {
		m.deps.Log.Info().Int("evicted", len(evicted)).Msg("Idle clients evicted")
	}
	return len(evicted)
}

// RunEviction calls EvictIdle every interval until ctx ends
func (m *Manager) RunEviction(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvictIdle()
		}
	}
}

// Len returns the number of live clients
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}
