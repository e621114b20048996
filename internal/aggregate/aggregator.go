// Package aggregate folds search results into the traversal's record set.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vburojevic/calltrace/internal/domain"
	"github.com/vburojevic/calltrace/internal/filter"
)

// Defaults
const (
	DefaultTimePadding   = 2 * time.Hour
	DefaultMessagePrefix = 1500
)

// Outcome is the result of executing one search target
type Outcome struct {
	Target domain.SearchTarget
	Hits   []domain.RawHit
	Err    error
}

// Batch holds the records that were new at one depth
type Batch struct {
	Depth   int
	Records []domain.LogRecord
}

// Len returns the number of new records
func (b Batch) Len() int { return len(b.Records) }

// Options configures an Aggregator
type Options struct {
	TimePadding   time.Duration
	MessagePrefix int
	Sentinels     filter.Filter // values failing the filter are left out of condensed views
	Logger        *zap.Logger
}

// Aggregator owns the deduplicated record set, the search history and the
// time window. It is not safe for concurrent use; the frontier calls it
// between depth barriers only.
type Aggregator struct {
	opts    Options
	seen    map[string]struct{}
	records map[domain.Category][]domain.LogRecord
	history []domain.HistoryEntry
	window  *domain.TimeWindow
	total   int
	logger  *zap.Logger
}

// New creates an empty aggregator
func New(opts Options) *Aggregator {
	if opts.TimePadding <= 0 {
		opts.TimePadding = DefaultTimePadding
	}
	if opts.MessagePrefix <= 0 {
		opts.MessagePrefix = DefaultMessagePrefix
	}
	if opts.Sentinels == nil {
		opts.Sentinels = filter.NewSentinelFilter(filter.DefaultSentinels)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Aggregator{
		opts:    opts,
		seen:    make(map[string]struct{}),
		records: make(map[domain.Category][]domain.LogRecord),
		logger:  opts.Logger,
	}
}

// Fold merges the outcomes of one depth. Hits already seen earlier in the
// traversal (or earlier in this batch) are dropped; the first occurrence
// keeps its category. One history entry is recorded per outcome.
func (a *Aggregator) Fold(depth int, outcomes []Outcome) Batch {
	batch := Batch{Depth: depth}

	for _, o := range outcomes {
		entry := domain.HistoryEntry{
			Depth:      depth,
			Index:      o.Target.Index,
			Identifier: o.Target.Source.Value,
			IDType:     o.Target.Source.Type,
			Category:   o.Target.Category,
			Hits:       len(o.Hits),
		}
		if o.Err != nil {
			entry.Failed = true
			entry.Error = o.Err.Error()
		}
		a.history = append(a.history, entry)

		for _, h := range o.Hits {
			if h.ID == "" {
				continue
			}
			if _, dup := a.seen[h.ID]; dup {
				continue
			}
			a.seen[h.ID] = struct{}{}

			index := h.Index
			if index == "" {
				index = o.Target.Index
			}
			rec := domain.LogRecord{
				ID:        h.ID,
				Timestamp: h.Timestamp,
				Category:  o.Target.Category,
				Index:     index,
				Source:    h.Source,
			}
			a.records[rec.Category] = append(a.records[rec.Category], rec)
			batch.Records = append(batch.Records, rec)
			a.total++
		}
	}

	if a.window == nil && len(batch.Records) > 0 {
		if w, ok := deriveWindow(batch.Records, a.opts.TimePadding); ok {
			a.window = &w
			a.logger.Debug("time window derived",
				zap.Time("start", w.Start),
				zap.Time("end", w.End))
		}
	}

	return batch
}

// Window returns the derived time window, nil until one exists
func (a *Aggregator) Window() *domain.TimeWindow {
	if a.window == nil {
		return nil
	}
	w := *a.window
	return &w
}

// Total returns the number of unique records
func (a *Aggregator) Total() int { return a.total }

// History returns the search history in execution order
func (a *Aggregator) History() []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, len(a.history))
	copy(out, a.history)
	return out
}

// Records returns a copy of the categorized records. Every built-in
// category is present, possibly empty.
func (a *Aggregator) Records() map[domain.Category][]domain.LogRecord {
	out := make(map[domain.Category][]domain.LogRecord, len(a.records)+len(domain.Categories))
	for _, cat := range domain.Categories {
		out[cat] = []domain.LogRecord{}
	}
	for cat, recs := range a.records {
		cp := make([]domain.LogRecord, len(recs))
		copy(cp, recs)
		out[cat] = cp
	}
	return out
}

// Describe renders a short human readable description of batch for the
// classifier
func (a *Aggregator) Describe(b Batch) string {
	counts := make(map[domain.Category]int)
	for _, r := range b.Records {
		counts[r.Category]++
	}
	cats := make([]string, 0, len(counts))
	for c := range counts {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)

	parts := make([]string, 0, len(cats))
	for _, c := range cats {
		parts = append(parts, fmt.Sprintf("%s=%d", c, counts[domain.Category(c)]))
	}
	return fmt.Sprintf("depth %d: %d new records (%s), %d total",
		b.Depth, b.Len(), strings.Join(parts, ", "), a.total)
}
