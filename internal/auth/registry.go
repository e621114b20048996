package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/vburojevic/calltrace/internal/domain"
)

// Registry hands out the token manager of each environment. Managers share
// no state with each other.
type Registry struct {
	managers map[domain.Environment]*TokenManager
}

// NewRegistry creates a registry over managers
func NewRegistry(managers ...*TokenManager) *Registry {
	r := &Registry{managers: make(map[domain.Environment]*TokenManager)}
	for _, m := range managers {
		r.managers[m.Environment()] = m
	}
	return r
}

// Settings are the knobs shared by every manager built with FromCredentials
type Settings struct {
	RefreshBuffer   time.Duration
	DefaultLifetime time.Duration
	HTTPTimeout     time.Duration
	Clock           clock.Clock
	Logger          *zap.Logger
}

// FromCredentials builds a registry with one manager per environment.
// Environments whose credentials are incomplete get no exchanger and can
// only serve a preset token.
func FromCredentials(creds map[domain.Environment]Credentials, s Settings) *Registry {
	if s.HTTPTimeout <= 0 {
		s.HTTPTimeout = DefaultHTTPTimeout
	}
	client := &http.Client{Timeout: s.HTTPTimeout}

	r := NewRegistry()
	for env, c := range creds {
		var ex Exchanger
		if c.Complete() {
			ex = NewBrokerExchanger(c, client, s.DefaultLifetime)
		}
		opts := []Option{
			WithLogger(s.Logger),
			WithDefaultLifetime(s.DefaultLifetime),
			WithPresetToken(c.Token),
		}
		if s.RefreshBuffer > 0 {
			opts = append(opts, WithRefreshBuffer(s.RefreshBuffer))
		}
		if s.Clock != nil {
			opts = append(opts, WithClock(s.Clock))
		}
		r.managers[env] = NewTokenManager(env, ex, opts...)
	}
	return r
}

// Manager returns the manager for env
func (r *Registry) Manager(env domain.Environment) (*TokenManager, bool) {
	m, ok := r.managers[env]
	return m, ok
}

// Token returns a token for env
func (r *Registry) Token(ctx context.Context, env domain.Environment) (string, error) {
	m, ok := r.managers[env]
	if !ok {
		return "", fmt.Errorf("%s: %w", env, domain.ErrNoCredentials)
	}
	return m.Token(ctx)
}
