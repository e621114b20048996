package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vburojevic/calltrace/internal/config"
	"github.com/vburojevic/calltrace/internal/domain"
	"github.com/vburojevic/calltrace/internal/intent"
	"github.com/vburojevic/calltrace/internal/plan"
)

// RequestFlags select what to search for and where. Shared by search and plan.
type RequestFlags struct {
	IDs    []string `arg:"" optional:"" help:"Identifiers; prefix with a type to skip guessing (session_id=abc123)"`
	Type   string   `short:"t" help:"Type of unlabelled identifiers (tracking_id, session_id, mobius_call_id, sip_call_id, sse_call_id, call_id, trace_id)"`
	Query  string   `short:"Q" help:"Free-text or JSON request, e.g. 'session id abc123 in int eu'"`
	Env    []string `short:"e" help:"Environments to search (prod, int)"`
	Region []string `short:"r" help:"Regions to search (us, eu)"`
}

// resolve turns flags, arguments and the free-text query into seeds and a
// scope. Flags win over the query, which wins over the config file.
func (f *RequestFlags) resolve(ctx context.Context, cfg *config.Config) ([]domain.Identifier, plan.Scope, error) {
	var scope plan.Scope

	defaultType := domain.IDType("")
	if f.Type != "" {
		defaultType = domain.ParseIDType(f.Type)
		if defaultType == domain.IDTypeUnknown && !strings.EqualFold(f.Type, string(domain.IDTypeUnknown)) {
			return nil, scope, &CLIError{
				Code:    CodeInvalidFlags,
				Message: fmt.Sprintf("unknown identifier type %q", f.Type),
				Hint:    "Use one of tracking_id, session_id, mobius_call_id, sip_call_id, sse_call_id, call_id, trace_id, user_id, device_id",
			}
		}
	}

	var seeds []domain.Identifier
	seen := make(map[string]bool)
	add := func(id domain.Identifier) {
		id.Value = strings.TrimSpace(id.Value)
		if id.Value == "" || seen[id.Value] {
			return
		}
		seen[id.Value] = true
		seeds = append(seeds, id)
	}

	for _, arg := range f.IDs {
		add(parseSeedArg(arg, defaultType))
	}

	var fromQuery intent.Request
	if strings.TrimSpace(f.Query) != "" {
		req, err := intent.Rules{}.Parse(ctx, f.Query)
		if err != nil && !(errors.Is(err, intent.ErrNoIdentifiers) && len(seeds) > 0) {
			return nil, scope, err
		}
		for _, id := range req.Seeds {
			add(id)
		}
		fromQuery = req
	}

	if len(seeds) == 0 {
		return nil, scope, intent.ErrNoIdentifiers
	}

	envs, err := f.environments(cfg, fromQuery)
	if err != nil {
		return nil, scope, err
	}
	scope.Environments = envs
	scope.Regions = f.regions(cfg, fromQuery)
	return seeds, scope, nil
}

func (f *RequestFlags) environments(cfg *config.Config, req intent.Request) ([]domain.Environment, error) {
	if len(f.Env) > 0 {
		out := make([]domain.Environment, 0, len(f.Env))
		for _, s := range f.Env {
			env, ok := domain.ParseEnvironment(s)
			if !ok {
				return nil, &CLIError{
					Code:    CodeInvalidFlags,
					Message: fmt.Sprintf("unknown environment %q", s),
					Hint:    "Use --env prod or --env int",
				}
			}
			out = append(out, env)
		}
		return out, nil
	}
	if len(req.Environments) > 0 {
		return req.Environments, nil
	}
	envs, err := cfg.Environments()
	if err != nil {
		return nil, &CLIError{Code: CodeInvalidConfig, Message: err.Error(), Err: err}
	}
	return envs, nil
}

func (f *RequestFlags) regions(cfg *config.Config, req intent.Request) []string {
	src := cfg.Search.Regions
	switch {
	case len(f.Region) > 0:
		src = f.Region
	case len(req.Regions) > 0:
		src = req.Regions
	}
	out := make([]string, 0, len(src))
	for _, r := range src {
		out = append(out, strings.ToLower(strings.TrimSpace(r)))
	}
	return out
}

// parseSeedArg reads "type=value", "type:value" or a bare value. Bare values
// take defaultType when set and a guessed type otherwise.
func parseSeedArg(arg string, defaultType domain.IDType) domain.Identifier {
	arg = strings.TrimSpace(arg)
	if idx := strings.IndexAny(arg, "=:"); idx > 0 && idx < len(arg)-1 {
		if t := domain.ParseIDType(arg[:idx]); t != domain.IDTypeUnknown {
			return domain.Identifier{Value: arg[idx+1:], Type: t}
		}
	}
	if defaultType != "" {
		return domain.Identifier{Value: arg, Type: defaultType}
	}
	return domain.Identifier{Value: arg, Type: intent.Guess(arg)}
}
