package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vburojevic/calltrace/internal/aggregate"
	"github.com/vburojevic/calltrace/internal/auth"
	"github.com/vburojevic/calltrace/internal/classify"
	"github.com/vburojevic/calltrace/internal/config"
	"github.com/vburojevic/calltrace/internal/filter"
	"github.com/vburojevic/calltrace/internal/plan"
	"github.com/vburojevic/calltrace/internal/query"
	"github.com/vburojevic/calltrace/internal/search"
)

// engine is the set of components a command needs, built from config
type engine struct {
	cfg        *config.Config
	tokens     *auth.Registry
	planner    *plan.Planner
	executor   *search.Executor
	classifier classify.Classifier
	filter     *filter.Chain
	metrics    *prometheus.Registry
}

// newEngine wires the components. classifierCmd overrides classifier.command
// when set.
func newEngine(cfg *config.Config, logger *zap.Logger, classifierCmd string) (*engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &CLIError{Code: CodeInvalidConfig, Message: err.Error(), Hint: "Check the file shown by `calltrace config path`", Err: err}
	}
	targets, err := cfg.TargetTable()
	if err != nil {
		return nil, &CLIError{Code: CodeInvalidConfig, Message: err.Error(), Err: err}
	}
	chain, err := filter.New(cfg.Filters.Sentinels, cfg.Filters.SkipPrefixes, cfg.Filters.ExcludePatterns)
	if err != nil {
		return nil, &CLIError{Code: CodeInvalidConfig, Message: "filters.exclude_patterns: " + err.Error(), Err: err}
	}

	tokens := auth.FromCredentials(cfg.CredentialsByEnv(), auth.Settings{
		RefreshBuffer:   cfg.Credentials.RefreshBuffer,
		DefaultLifetime: cfg.Credentials.DefaultLifetime,
		HTTPTimeout:     cfg.Credentials.HTTPTimeout,
		Logger:          logger.Named("auth"),
	})

	reg := prometheus.NewRegistry()
	executor := search.NewExecutor(search.Config{
		Backend:   search.NewOpenSearchBackend(nil),
		Tokens:    tokens,
		Endpoints: cfg.Endpoints,
		Timeout:   cfg.Search.Timeout,
		Metrics:   search.NewMetrics(reg),
		Logger:    logger.Named("search"),
	})

	planner := plan.NewPlanner(
		plan.NewResolver(cfg.Indexes, logger.Named("plan")),
		targets,
		query.NewBuilder(cfg.Search.ResultSize),
		logger.Named("plan"),
	)

	if classifierCmd == "" {
		classifierCmd = cfg.Classifier.Command
	}
	var classifier classify.Classifier = classify.Rules{}
	if classifierCmd != "" {
		classifier = classify.Merge{
			classify.Rules{},
			&classify.Command{
				Line:    classifierCmd,
				Timeout: cfg.Classifier.Timeout,
				Logger:  logger.Named("classify"),
			},
		}
	}

	return &engine{
		cfg:        cfg,
		tokens:     tokens,
		planner:    planner,
		executor:   executor,
		classifier: classifier,
		filter:     chain,
		metrics:    reg,
	}, nil
}

// aggregateOptions carries the condensing settings into the frontier
func (e *engine) aggregateOptions(logger *zap.Logger) aggregate.Options {
	return aggregate.Options{
		TimePadding:   e.cfg.Search.TimePadding,
		MessagePrefix: e.cfg.Search.MessagePrefix,
		Sentinels:     filter.NewSentinelFilter(e.cfg.Filters.Sentinels),
		Logger:        logger.Named("aggregate"),
	}
}
