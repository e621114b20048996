// Package search executes query bodies against the regional log backends.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vburojevic/calltrace/internal/domain"
	"github.com/vburojevic/calltrace/internal/plan"
)

// DefaultTimeout bounds a single search call
const DefaultTimeout = 50 * time.Minute

var errInvalidResponse = errors.New("invalid JSON response")

// TokenSource returns a bearer token for an environment
type TokenSource interface {
	Token(ctx context.Context, env domain.Environment) (string, error)
}

// Executor runs one query against one index
type Executor struct {
	backend   Backend
	tokens    TokenSource
	endpoints map[string]string
	timeout   time.Duration
	metrics   *Metrics
	logger    *zap.Logger
}

// Config configures an Executor
type Config struct {
	Backend   Backend
	Tokens    TokenSource
	Endpoints map[string]string // index -> base URL
	Timeout   time.Duration
	Metrics   *Metrics
	Logger    *zap.Logger
}

// NewExecutor creates an executor
func NewExecutor(cfg Config) *Executor {
	if cfg.Backend == nil {
		cfg.Backend = NewOpenSearchBackend(nil)
	}
	if cfg.Endpoints == nil {
		cfg.Endpoints = plan.DefaultEndpoints()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Executor{
		backend:   cfg.Backend,
		tokens:    cfg.Tokens,
		endpoints: cfg.Endpoints,
		timeout:   cfg.Timeout,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

// Execute runs body against index and returns its hits. Every failure is
// returned as an error and logged; callers treat it as an empty result.
func (e *Executor) Execute(ctx context.Context, index string, body any) ([]domain.RawHit, error) {
	log := e.logger.With(zap.String("index", index))

	endpoint, ok := e.endpoints[index]
	if !ok || endpoint == "" {
		e.metrics.observe(index, OutcomeNoEndpoint, 0, 0)
		log.Warn("no endpoint configured for index")
		return nil, fmt.Errorf("%s: %w", index, domain.ErrUnresolvedTarget)
	}

	env := plan.EnvironmentOf(index)
	if e.tokens == nil {
		e.metrics.observe(index, OutcomeNoToken, 0, 0)
		return nil, fmt.Errorf("%s: %w", env, domain.ErrNoCredentials)
	}
	token, err := e.tokens.Token(ctx, env)
	if err != nil {
		e.metrics.observe(index, OutcomeNoToken, 0, 0)
		log.Warn("no token for environment", zap.String("env", string(env)), zap.Error(err))
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	raw, err := e.backend.Search(callCtx, endpoint, index, token, payload)
	elapsed := time.Since(start)
	if err != nil {
		outcome := OutcomeError
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			outcome = OutcomeTimeout
		}
		e.metrics.observe(index, outcome, 0, elapsed)
		log.Warn("search failed", zap.Error(err), zap.Duration("elapsed", elapsed))

		var te *domain.TransportError
		if errors.As(err, &te) {
			return nil, err
		}
		return nil, &domain.TransportError{Index: index, Err: err}
	}

	hits, err := ParseHits(raw)
	if err != nil {
		e.metrics.observe(index, OutcomeError, 0, elapsed)
		log.Warn("unreadable search response", zap.Error(err))
		return nil, &domain.TransportError{Index: index, Err: err}
	}
	for i := range hits {
		if hits[i].Index == "" {
			hits[i].Index = index
		}
	}

	e.metrics.observe(index, OutcomeOK, len(hits), elapsed)
	log.Debug("search done", zap.Int("hits", len(hits)), zap.Duration("elapsed", elapsed))
	return hits, nil
}
