package output

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vburojevic/calltrace/internal/aggregate"
	"github.com/vburojevic/calltrace/internal/domain"
)

var (
	hexPattern  = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	uuidPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	numPattern  = regexp.MustCompile(`\d+`)
)

// Analyzer condenses a traversal result into per-category digests
type Analyzer struct {
	errorPatterns []*regexp.Regexp
	topN          int
}

// NewAnalyzer creates a new record analyzer
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		errorPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)error[:\s]`),
			regexp.MustCompile(`(?i)fail(?:ed|ure)?[:\s]`),
			regexp.MustCompile(`(?i)exception[:\s]`),
			regexp.MustCompile(`(?i)timeout[:\s]`),
			regexp.MustCompile(`(?i)\b[45]\d\d\b`),
			regexp.MustCompile(`(?i)reject(?:ed)?`),
		},
		topN: 5,
	}
}

// Digest summarizes the records of one category
type Digest struct {
	Type          string          `json:"type"` // Always "digest"
	SchemaVersion int             `json:"schemaVersion"`
	Category      domain.Category `json:"category"`
	Records       int             `json:"records"`
	Errors        int             `json:"errors"`
	First         string          `json:"first,omitempty"`
	Last          string          `json:"last,omitempty"`
	Indexes       map[string]int  `json:"indexes,omitempty"`
	Patterns      []PatternMatch  `json:"patterns,omitempty"`
}

// PatternMatch represents a recurring message shape
type PatternMatch struct {
	Pattern string   `json:"pattern"`
	Count   int      `json:"count"`
	Samples []string `json:"samples"`
}

// Analyze builds one digest per category in canonical category order.
// Categories without records still get an empty digest.
func (a *Analyzer) Analyze(result *domain.Result) []Digest {
	digests := make([]Digest, 0, len(domain.Categories))
	for _, cat := range domain.Categories {
		digests = append(digests, a.digest(cat, result.Records[cat]))
	}
	return digests
}

func (a *Analyzer) digest(cat domain.Category, records []domain.LogRecord) Digest {
	d := Digest{
		Type:          "digest",
		SchemaVersion: SchemaVersion,
		Category:      cat,
		Records:       len(records),
	}
	if len(records) == 0 {
		return d
	}

	d.Indexes = make(map[string]int)
	var first, last time.Time
	groups := make(map[string][]string)

	for _, rec := range records {
		d.Indexes[rec.Index]++

		if ts, ok := aggregate.ParseTimestamp(rec.Timestamp); ok {
			if first.IsZero() || ts.Before(first) {
				first = ts
			}
			if last.IsZero() || ts.After(last) {
				last = ts
			}
		}

		msg := gjson.GetBytes(rec.Source, "message").String()
		if msg == "" {
			continue
		}
		if a.isError(msg) {
			d.Errors++
		}
		pattern := a.normalizeMessage(msg)
		groups[pattern] = append(groups[pattern], msg)
	}

	if !first.IsZero() {
		d.First = first.UTC().Format(time.RFC3339Nano)
		d.Last = last.UTC().Format(time.RFC3339Nano)
	}
	d.Patterns = a.topPatterns(groups)
	return d
}

func (a *Analyzer) isError(msg string) bool {
	for _, re := range a.errorPatterns {
		if re.MatchString(msg) {
			return true
		}
	}
	return false
}

// normalizeMessage removes variable parts to group similar messages
func (a *Analyzer) normalizeMessage(msg string) string {
	msg = uuidPattern.ReplaceAllString(msg, "<uuid>")
	msg = hexPattern.ReplaceAllString(msg, "<addr>")
	msg = numPattern.ReplaceAllString(msg, "<n>")

	if len(msg) > 100 {
		msg = msg[:100] + "..."
	}
	return strings.TrimSpace(msg)
}

// topPatterns keeps shapes seen at least twice, most frequent first
func (a *Analyzer) topPatterns(groups map[string][]string) []PatternMatch {
	var patterns []PatternMatch
	for pattern, messages := range groups {
		if len(messages) < 2 {
			continue
		}
		samples := messages
		if len(samples) > 3 {
			samples = samples[:3]
		}
		patterns = append(patterns, PatternMatch{
			Pattern: pattern,
			Count:   len(messages),
			Samples: samples,
		})
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Count != patterns[j].Count {
			return patterns[i].Count > patterns[j].Count
		}
		return patterns[i].Pattern < patterns[j].Pattern
	})

	if len(patterns) > a.topN {
		patterns = patterns[:a.topN]
	}
	return patterns
}
