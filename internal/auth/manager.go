package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/vburojevic/calltrace/internal/domain"
)

// TokenManager caches the access token of a single environment.
//
// Reads take the shared lock. A refresh takes the exclusive lock and checks
// freshness again, so concurrent callers that all saw a stale token trigger
// at most one exchange.
type TokenManager struct {
	env       domain.Environment
	exchanger Exchanger
	clock     clock.Clock
	buffer    time.Duration
	lifetime  time.Duration
	logger    *zap.Logger

	mu    sync.RWMutex
	state domain.TokenState
}

// Option configures a TokenManager
type Option func(*TokenManager)

// WithClock sets the time source
func WithClock(c clock.Clock) Option {
	return func(m *TokenManager) { m.clock = c }
}

// WithRefreshBuffer sets how long before expiry a token is treated as stale
func WithRefreshBuffer(d time.Duration) Option {
	return func(m *TokenManager) { m.buffer = d }
}

// WithDefaultLifetime sets the lifetime assumed for pre-issued tokens
func WithDefaultLifetime(d time.Duration) Option {
	return func(m *TokenManager) {
		if d > 0 {
			m.lifetime = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(m *TokenManager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithPresetToken seeds the cache with an already issued token. It counts
// as fetched when the manager is created.
func WithPresetToken(token string) Option {
	return func(m *TokenManager) {
		if token != "" {
			m.state.Token = token
		}
	}
}

// NewTokenManager creates a manager for env. A nil exchanger means the
// manager can only serve a preset token.
func NewTokenManager(env domain.Environment, exchanger Exchanger, opts ...Option) *TokenManager {
	m := &TokenManager{
		env:       env,
		exchanger: exchanger,
		clock:     clock.New(),
		buffer:    DefaultRefreshBuffer,
		lifetime:  DefaultLifetime,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.state.Token != "" {
		m.state.FetchedAt = m.clock.Now()
		m.state.Lifetime = m.lifetime
	}
	m.logger = m.logger.With(zap.String("env", string(env)))
	return m
}

// Environment returns the environment this manager serves
func (m *TokenManager) Environment() domain.Environment { return m.env }

// State returns a copy of the cached token state
func (m *TokenManager) State() domain.TokenState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Token returns a usable access token, refreshing it when it is within the
// buffer of its expiry. If the refresh fails and a token is cached, the stale
// token is returned and a warning logged. With nothing cached the result is
// domain.ErrNoCredentials.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.RLock()
	if m.state.Fresh(m.clock.Now(), m.buffer) {
		tok := m.state.Token
		m.mu.RUnlock()
		return tok, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if m.state.Fresh(now, m.buffer) {
		return m.state.Token, nil
	}

	if m.exchanger == nil {
		if m.state.Token != "" {
			m.logger.Warn("token past refresh point and no credentials to renew it",
				zap.Duration("age", m.state.Age(now)))
			return m.state.Token, nil
		}
		return "", fmt.Errorf("%s: %w", m.env, domain.ErrNoCredentials)
	}

	m.logger.Debug("refreshing token")
	grant, err := m.exchanger.Exchange(ctx)
	if err != nil {
		if m.state.Token != "" {
			m.logger.Warn("token refresh failed, using cached token",
				zap.Error(err),
				zap.Duration("age", m.state.Age(now)))
			return m.state.Token, nil
		}
		return "", fmt.Errorf("%s: %w: %v", m.env, domain.ErrNoCredentials, err)
	}

	lifetime := grant.Lifetime
	if lifetime <= 0 {
		lifetime = m.lifetime
	}
	m.state = domain.TokenState{
		Token:     grant.AccessToken,
		FetchedAt: m.clock.Now(),
		Lifetime:  lifetime,
	}
	m.logger.Debug("token refreshed", zap.Duration("lifetime", lifetime))
	return m.state.Token, nil
}
