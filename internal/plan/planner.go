// Package plan turns identifiers into concrete search targets.
package plan

import (
	"go.uber.org/zap"

	"github.com/vburojevic/calltrace/internal/domain"
	"github.com/vburojevic/calltrace/internal/query"
)

// Scope is the set of environments and regions a traversal searches
type Scope struct {
	Environments []domain.Environment
	Regions      []string
}

// DefaultScope is production/us
func DefaultScope() Scope {
	return Scope{Environments: []domain.Environment{domain.EnvProd}, Regions: []string{"us"}}
}

// Planner expands identifiers into search targets
type Planner struct {
	resolver *Resolver
	targets  TargetTable
	builder  *query.Builder
	logger   *zap.Logger
}

// NewPlanner wires a resolver, target table and query builder together
func NewPlanner(resolver *Resolver, targets TargetTable, builder *query.Builder, logger *zap.Logger) *Planner {
	if targets == nil {
		targets = DefaultTargets()
	}
	if builder == nil {
		builder = query.NewBuilder(query.DefaultSize)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = NewResolver(nil, logger)
	}
	return &Planner{resolver: resolver, targets: targets, builder: builder, logger: logger}
}

// Expand returns every search target for id. The window is passed through to
// the query builder, which only applies it to free-text lookups.
func (p *Planner) Expand(id domain.Identifier, scope Scope, window *domain.TimeWindow) []domain.SearchTarget {
	specs := p.targets.Specs(id.Type)
	var out []domain.SearchTarget
	for _, spec := range specs {
		indexes := p.resolver.ResolveAll(spec.Service, scope.Environments, scope.Regions)
		if len(indexes) == 0 {
			p.logger.Debug("target unresolved, skipping",
				zap.String("id", id.Value),
				zap.String("service", spec.Service))
			continue
		}
		body := p.builder.Build(query.Request{
			Value:    id.Value,
			Kind:     spec.Kind,
			Field:    spec.Field,
			AltField: spec.AltField,
			Tags:     spec.Tags,
			Window:   window,
		})
		for _, idx := range indexes {
			out = append(out, domain.SearchTarget{
				Index:    idx,
				Service:  spec.Service,
				Category: spec.Category,
				Query:    body,
				Source:   id,
			})
		}
	}
	return out
}
