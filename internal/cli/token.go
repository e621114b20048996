package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/vburojevic/calltrace/internal/domain"
	"github.com/vburojevic/calltrace/internal/output"
)

// TokenCmd obtains a token for each environment and reports its state.
// The token itself is never printed.
type TokenCmd struct {
	Env []string `short:"e" help:"Environments to check (default: prod and int)"`
}

// Run executes the token command
func (c *TokenCmd) Run(globals *Globals) error {
	ctx := context.Background()
	w := globals.Writer()
	cfg := globals.Config

	envs := []domain.Environment{domain.EnvProd, domain.EnvInt}
	if len(c.Env) > 0 {
		envs = envs[:0]
		for _, s := range c.Env {
			env, ok := domain.ParseEnvironment(s)
			if !ok {
				return emitError(globals, w, CodeInvalidFlags, fmt.Sprintf("unknown environment %q", s), "Use --env prod or --env int")
			}
			envs = append(envs, env)
		}
	}

	eng, err := newEngine(cfg, globals.logger(), "")
	if err != nil {
		return outputErrorCommon(globals, CodeInvalidConfig, err)
	}
	creds := cfg.CredentialsByEnv()

	failed := 0
	for _, env := range envs {
		cr := creds[env]
		configured := cr.Complete() || cr.Token != ""

		_, tokenErr := eng.tokens.Token(ctx, env)
		var state domain.TokenState
		if m, ok := eng.tokens.Manager(env); ok {
			state = m.State()
		}

		out := output.NewTokenOutput(env, configured, state, time.Now(), cfg.Credentials.RefreshBuffer)
		if tokenErr != nil {
			failed++
			out.Error = tokenErr.Error()
			if missing := cr.Missing(); len(missing) > 0 && cr.Token == "" {
				out.Error += fmt.Sprintf(" (missing: %v)", missing)
			}
		}
		if err := w.WriteToken(out); err != nil {
			return outputErrorCommon(globals, CodeOutputFailed, err)
		}
	}

	if failed > 0 {
		return &CLIError{Code: CodeTokenFailed, Message: fmt.Sprintf("%d of %d environments have no usable token", failed, len(envs)), Hint: hintForCredentials()}
	}
	return nil
}
