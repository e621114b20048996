// Package frontier drives the breadth-first identifier traversal.
package frontier

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vburojevic/calltrace/internal/aggregate"
	"github.com/vburojevic/calltrace/internal/classify"
	"github.com/vburojevic/calltrace/internal/domain"
	"github.com/vburojevic/calltrace/internal/filter"
	"github.com/vburojevic/calltrace/internal/plan"
)

// Defaults
const (
	DefaultMaxDepth     = 3
	DefaultMaxTotalHits = 1000
)

// ErrNoSeeds means every seed was empty or filtered out
var ErrNoSeeds = errors.New("no usable seed identifiers")

// Expander turns an identifier into search targets
type Expander interface {
	Expand(id domain.Identifier, scope plan.Scope, window *domain.TimeWindow) []domain.SearchTarget
}

// Searcher executes one search target
type Searcher interface {
	Execute(ctx context.Context, index string, body any) ([]domain.RawHit, error)
}

// Config bounds a traversal
type Config struct {
	MaxDepth     int // 0 searches the seeds only, negative = DefaultMaxDepth
	MaxTotalHits int
	Concurrency  int // per-depth limit on in-flight searches, 0 = unbounded
	Scope        plan.Scope
	IncludeTypes []domain.IDType
	Aggregate    aggregate.Options
}

// Controller runs traversals. A Controller holds no per-run state and may
// be reused.
type Controller struct {
	expander   Expander
	searcher   Searcher
	classifier classify.Classifier
	filter     filter.Filter
	observer   Observer
	cfg        Config
	logger     *zap.Logger
}

// Option configures a Controller
type Option func(*Controller)

// WithObserver sets the progress observer
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithFilter replaces the default candidate filter
func WithFilter(f filter.Filter) Option {
	return func(c *Controller) {
		if f != nil {
			c.filter = f
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a controller
func New(expander Expander, searcher Searcher, classifier classify.Classifier, cfg Config, opts ...Option) *Controller {
	if cfg.MaxDepth < 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.MaxTotalHits <= 0 {
		cfg.MaxTotalHits = DefaultMaxTotalHits
	}
	if len(cfg.Scope.Environments) == 0 || len(cfg.Scope.Regions) == 0 {
		def := plan.DefaultScope()
		if len(cfg.Scope.Environments) == 0 {
			cfg.Scope.Environments = def.Environments
		}
		if len(cfg.Scope.Regions) == 0 {
			cfg.Scope.Regions = def.Regions
		}
	}
	if classifier == nil {
		classifier = classify.Rules{}
	}
	c := &Controller{
		expander:   expander,
		searcher:   searcher,
		classifier: classifier,
		filter:     filter.Default(),
		observer:   NopObserver{},
		cfg:        cfg,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type run struct {
	*Controller
	id       string
	agg      *aggregate.Aggregator
	visited  map[string]struct{}
	order    []domain.Identifier
	deepest  int
	state    State
	log      *zap.Logger
	frontier []domain.Identifier
}

// Run traverses from seeds until the frontier drains, a cap is hit or ctx
// ends. The result is returned for every terminal state; the error is
// non-nil only when no seed survives filtering.
func (c *Controller) Run(ctx context.Context, seeds []domain.Identifier) (*domain.Result, error) {
	aggOpts := c.cfg.Aggregate
	if aggOpts.Logger == nil {
		aggOpts.Logger = c.logger
	}
	r := &run{
		Controller: c,
		id:         uuid.NewString(),
		agg:        aggregate.New(aggOpts),
		visited:    make(map[string]struct{}),
	}
	r.log = c.logger.With(zap.String("run_id", r.id))

	r.transition(StateSeeding, 0)
	for _, s := range seeds {
		s.Depth = 0
		r.enqueue(s)
	}
	if len(r.frontier) == 0 {
		return nil, ErrNoSeeds
	}

	depth := 0
	for {
		if st, done := r.check(ctx, depth); done {
			r.transition(st, depth)
			break
		}

		batch := r.process(ctx, depth)

		if ctx.Err() != nil {
			r.transition(StateCanceled, depth)
			break
		}

		r.frontier = nil
		if batch.Len() == 0 {
			r.log.Debug("no new records, skipping classification", zap.Int("depth", depth))
		} else {
			cands := r.extract(ctx, depth, batch)
			r.transition(StateExpanding, depth)
			cands.Each(func(t domain.IDType, v string) {
				r.enqueue(domain.Identifier{Value: v, Type: t, Depth: depth + 1})
			})
		}
		depth++
	}

	return r.result(), nil
}

// check evaluates the stop conditions that apply before a depth starts
func (r *run) check(ctx context.Context, depth int) (State, bool) {
	switch {
	case ctx.Err() != nil:
		return StateCanceled, true
	case len(r.frontier) == 0:
		return StateDrained, true
	case depth > r.cfg.MaxDepth:
		return StateDepthExceeded, true
	case r.agg.Total() >= r.cfg.MaxTotalHits:
		return StateCapReached, true
	}
	return "", false
}

func (r *run) process(ctx context.Context, depth int) aggregate.Batch {
	r.transition(StateProcessing, depth)
	r.deepest = depth

	window := r.agg.Window()
	var targets []domain.SearchTarget
	for _, id := range r.frontier {
		targets = append(targets, r.expander.Expand(id, r.cfg.Scope, window)...)
	}
	r.observer.DepthStarted(depth, r.frontier, targets)
	r.log.Info("processing depth",
		zap.Int("depth", depth),
		zap.Int("identifiers", len(r.frontier)),
		zap.Int("targets", len(targets)))

	outcomes := make([]aggregate.Outcome, len(targets))
	var g errgroup.Group
	if r.cfg.Concurrency > 0 {
		g.SetLimit(r.cfg.Concurrency)
	}
	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			hits, err := r.searcher.Execute(ctx, t.Index, t.Query)
			outcomes[i] = aggregate.Outcome{Target: t, Hits: hits, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	before := len(r.agg.History())
	batch := r.agg.Fold(depth, outcomes)
	r.observer.DepthDone(depth, batch, r.agg.History()[before:])
	r.log.Info("depth done",
		zap.Int("depth", depth),
		zap.Int("new_records", batch.Len()),
		zap.Int("total_records", r.agg.Total()))
	return batch
}

func (r *run) extract(ctx context.Context, depth int, batch aggregate.Batch) classify.Candidates {
	r.transition(StateExtracting, depth)
	cands, err := r.classifier.Classify(ctx, classify.Batch{
		Depth:   depth,
		Summary: r.agg.Describe(batch),
		Records: r.agg.Condense(batch.Records),
	})
	if err != nil {
		r.log.Warn("classifier failed, no expansion from this batch",
			zap.Int("depth", depth), zap.Error(err))
		return classify.Candidates{}
	}
	return cands.Restrict(r.cfg.IncludeTypes)
}

// enqueue admits id to the next frontier if it passes the filter and has
// not been visited
func (r *run) enqueue(id domain.Identifier) bool {
	id.Value = strings.TrimSpace(id.Value)
	if !r.filter.Match(id.Value) {
		r.log.Debug("candidate filtered", zap.String("value", id.Value))
		return false
	}
	if _, seen := r.visited[id.Value]; seen {
		return false
	}
	r.visited[id.Value] = struct{}{}
	r.order = append(r.order, id)
	r.frontier = append(r.frontier, id)
	if id.Depth > 0 {
		r.observer.Discovered(id)
	}
	return true
}

func (r *run) transition(s State, depth int) {
	r.state = s
	r.observer.StateChanged(s, depth)
	if s.Terminal() {
		r.log.Info("traversal stopped", zap.String("reason", string(s)), zap.Int("depth", depth))
	}
}

func (r *run) result() *domain.Result {
	visited := make([]domain.Identifier, len(r.order))
	copy(visited, r.order)
	return &domain.Result{
		RunID:    r.id,
		Records:  r.agg.Records(),
		History:  r.agg.History(),
		Visited:  visited,
		MaxDepth: r.deepest,
		Window:   r.agg.Window(),
		Stop:     stopReason(r.state),
	}
}
