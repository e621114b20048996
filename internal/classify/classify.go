// Package classify proposes new identifiers from a batch of log records.
package classify

import (
	"context"
	"strings"

	"github.com/vburojevic/calltrace/internal/aggregate"
	"github.com/vburojevic/calltrace/internal/domain"
)

// Batch is what a classifier sees for one depth
type Batch struct {
	Depth   int                   `json:"depth"`
	Summary string                `json:"summary"`
	Records []aggregate.Condensed `json:"records"`
}

// Candidates are proposed identifier values grouped by type. Order within a
// type is preserved.
type Candidates map[domain.IDType][]string

// Add appends value under t unless it is already listed there
func (c Candidates) Add(t domain.IDType, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	for _, v := range c[t] {
		if v == value {
			return
		}
	}
	c[t] = append(c[t], value)
}

// Len counts all proposed values
func (c Candidates) Len() int {
	n := 0
	for _, vs := range c {
		n += len(vs)
	}
	return n
}

// Each calls fn for every value, types in domain.AllIDTypes order
func (c Candidates) Each(fn func(t domain.IDType, value string)) {
	for _, t := range domain.AllIDTypes {
		for _, v := range c[t] {
			fn(t, v)
		}
	}
	for _, v := range c[domain.IDTypeUnknown] {
		fn(domain.IDTypeUnknown, v)
	}
}

// Restrict drops every type not in include. An empty include keeps all.
func (c Candidates) Restrict(include []domain.IDType) Candidates {
	if len(include) == 0 {
		return c
	}
	allowed := make(map[domain.IDType]bool, len(include))
	for _, t := range include {
		allowed[t] = true
	}
	out := make(Candidates, len(c))
	for t, vs := range c {
		if allowed[t] {
			out[t] = vs
		}
	}
	return out
}

// DefaultIncludeTypes is every type except user and device ids, which tie
// together unrelated calls
func DefaultIncludeTypes() []domain.IDType {
	var out []domain.IDType
	for _, t := range domain.AllIDTypes {
		if t == domain.IDTypeUser || t == domain.IDTypeDevice {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Classifier extracts candidate identifiers from a batch
type Classifier interface {
	Classify(ctx context.Context, batch Batch) (Candidates, error)
}

// Func adapts a function to Classifier
type Func func(ctx context.Context, batch Batch) (Candidates, error)

// Classify calls f
func (f Func) Classify(ctx context.Context, batch Batch) (Candidates, error) { return f(ctx, batch) }
