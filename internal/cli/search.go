package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vburojevic/calltrace/internal/aggregate"
	"github.com/vburojevic/calltrace/internal/domain"
	"github.com/vburojevic/calltrace/internal/frontier"
	"github.com/vburojevic/calltrace/internal/output"
)

// SearchCmd runs a breadth-first correlation search
type SearchCmd struct {
	RequestFlags `embed:""`

	MaxDepth        int           `default:"${config_max_depth}" help:"Deepest BFS level to search (0 is the seed level)"`
	MaxHits         int           `default:"${config_max_hits}" help:"Stop starting new depths once this many records are collected"`
	Concurrency     int           `default:"${config_concurrency}" help:"In-flight searches per depth (0 = unbounded)"`
	ClassifierCmd   string        `help:"External classifier run through sh -c; gets condensed records on stdin, prints id lists as JSON"`
	Records         bool          `default:"true" negatable:"" help:"Emit every collected record before the summary"`
	MetricsTextfile string        `type:"path" help:"Write search metrics in Prometheus text format to this file"`
	Timeout         time.Duration `help:"Overall deadline for the search (0 = none)"`
}

// Run executes the search command
func (c *SearchCmd) Run(globals *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return c.run(ctx, globals, nil)
}

// run is Run with an injectable context and searcher
func (c *SearchCmd) run(ctx context.Context, globals *Globals, searcher frontier.Searcher) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	w := globals.Writer()
	cfg := globals.Config
	log := globals.logger()

	seeds, scope, err := c.resolve(ctx, cfg)
	if err != nil {
		return outputErrorCommon(globals, CodeInvalidFlags, err)
	}

	eng, err := newEngine(cfg, log, c.ClassifierCmd)
	if err != nil {
		return outputErrorCommon(globals, CodeInvalidConfig, err)
	}
	if searcher == nil {
		searcher = eng.executor
	}

	maxDepth, maxHits, concurrency := c.limits(globals)
	if !globals.Quiet {
		if err := w.WriteInfo(&output.InfoOutput{
			Message:      "search started",
			Seeds:        seeds,
			Environments: envNames(scope.Environments),
			Regions:      scope.Regions,
			MaxDepth:     maxDepth,
			MaxTotalHits: maxHits,
		}); err != nil {
			return outputErrorCommon(globals, CodeOutputFailed, err)
		}
	}

	opts := []frontier.Option{
		frontier.WithFilter(eng.filter),
		frontier.WithLogger(log.Named("frontier")),
	}
	if !globals.Quiet {
		opts = append(opts, frontier.WithObserver(&progressObserver{w: w, log: log}))
	}
	ctrl := frontier.New(eng.planner, searcher, eng.classifier, frontier.Config{
		MaxDepth:     maxDepth,
		MaxTotalHits: maxHits,
		Concurrency:  concurrency,
		Scope:        scope,
		IncludeTypes: cfg.IncludeTypes(),
		Aggregate:    eng.aggregateOptions(log),
	}, opts...)

	result, err := ctrl.Run(ctx, seeds)
	if err != nil {
		return outputErrorCommon(globals, CodeNoSeeds, err)
	}

	switch result.Stop {
	case domain.StopCanceled:
		emitWarning(globals, w, "search canceled; results are partial")
	case domain.StopCapReached:
		emitWarning(globals, w, "record cap reached; raise --max-hits to go further")
	case domain.StopDepthExceeded:
		emitWarning(globals, w, "depth limit reached; raise --max-depth to go further")
	}
	if failed := result.Summary().FailedSearches(); failed > 0 && failed == len(result.History) {
		emitWarning(globals, w, "every search failed; check credentials with `calltrace token` and the configured endpoints")
	}

	if err := output.EmitResult(w, result, c.Records); err != nil {
		return outputErrorCommon(globals, CodeOutputFailed, err)
	}

	if c.MetricsTextfile != "" {
		if err := prometheus.WriteToTextfile(c.MetricsTextfile, eng.metrics); err != nil {
			return outputErrorCommon(globals, CodeMetricsFailed, err)
		}
	}

	if errors.Is(ctx.Err(), context.Canceled) && result.Stop == domain.StopCanceled {
		return &CLIError{Code: CodeTraversalCanceled, Message: "search canceled"}
	}
	return nil
}

// limits returns the flag values, falling back to the config for unset ones.
// A max depth of 0 is a real setting (seeds only), so only a negative depth
// counts as unset.
func (c *SearchCmd) limits(globals *Globals) (maxDepth, maxHits, concurrency int) {
	s := globals.Config.Search
	maxDepth, maxHits, concurrency = c.MaxDepth, c.MaxHits, c.Concurrency
	if maxDepth < 0 {
		maxDepth = s.MaxDepth
	}
	if maxHits <= 0 {
		maxHits = s.MaxTotalHits
	}
	if concurrency <= 0 {
		concurrency = s.Concurrency
	}
	return maxDepth, maxHits, concurrency
}

func envNames(envs []domain.Environment) []string {
	out := make([]string, len(envs))
	for i, e := range envs {
		out[i] = string(e)
	}
	return out
}

// progressObserver streams depth, history and discovery events
type progressObserver struct {
	w   output.Writer
	log *zap.Logger
}

func (o *progressObserver) StateChanged(state frontier.State, depth int) {
	o.log.Debug("state", zap.String("state", string(state)), zap.Int("depth", depth))
}

func (o *progressObserver) DepthStarted(depth int, ids []domain.Identifier, targets []domain.SearchTarget) {
	o.check(o.w.WriteDepthStart(depth, ids, len(targets)))
}

func (o *progressObserver) DepthDone(depth int, batch aggregate.Batch, history []domain.HistoryEntry) {
	failed := 0
	for i := range history {
		if history[i].Failed {
			failed++
		}
		o.check(o.w.WriteHistory(&history[i]))
	}
	o.check(o.w.WriteDepthDone(depth, batch.Len(), failed))
}

func (o *progressObserver) Discovered(id domain.Identifier) {
	o.check(o.w.WriteIdentifier(id))
}

func (o *progressObserver) check(err error) {
	if err != nil {
		o.log.Warn("progress output failed", zap.Error(err))
	}
}
