package cli

import (
	"context"

	"github.com/vburojevic/calltrace/internal/frontier"
)

// PlanCmd shows what a search would query without contacting any cluster
type PlanCmd struct {
	RequestFlags `embed:""`
}

// Run executes the plan command
func (c *PlanCmd) Run(globals *Globals) error {
	ctx := context.Background()
	w := globals.Writer()

	seeds, scope, err := c.resolve(ctx, globals.Config)
	if err != nil {
		return outputErrorCommon(globals, CodeInvalidFlags, err)
	}
	eng, err := newEngine(globals.Config, globals.logger(), "")
	if err != nil {
		return outputErrorCommon(globals, CodeInvalidConfig, err)
	}

	planned := 0
	for _, seed := range seeds {
		if !eng.filter.Match(seed.Value) {
			emitWarning(globals, w, "skipping placeholder identifier "+seed.Value)
			continue
		}
		targets := eng.planner.Expand(seed, scope, nil)
		if len(targets) == 0 {
			emitWarning(globals, w, "no index resolves for "+seed.Value+" ("+string(seed.Type)+") in this scope")
		}
		for i := range targets {
			if err := w.WriteTarget(&targets[i]); err != nil {
				return outputErrorCommon(globals, CodeOutputFailed, err)
			}
			planned++
		}
	}
	if planned == 0 {
		return outputErrorCommon(globals, CodeNoSeeds, frontier.ErrNoSeeds)
	}
	return nil
}
