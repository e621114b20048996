// Package query builds OpenSearch DSL bodies for identifier lookups.
package query

import (
	"strings"
	"time"

	"github.com/vburojevic/calltrace/internal/domain"
)

// Kind selects how an identifier value is matched
type Kind string

const (
	KindExact    Kind = "exact"    // term on a structured field
	KindPrefix   Kind = "prefix"   // wildcard with a trailing *
	KindContains Kind = "contains" // *value* over the free-text message
	KindEither   Kind = "either"   // term on either of two fields
)

// ParseKind converts a string to Kind. The legacy search-type names
// (term, wildcard, wildcard_message, session_id) are accepted too.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(s) {
	case "exact", "term":
		return KindExact, true
	case "prefix", "wildcard":
		return KindPrefix, true
	case "contains", "wildcard_message", "message":
		return KindContains, true
	case "either", "dual", "session_id":
		return KindEither, true
	default:
		return "", false
	}
}

// Body is a query document ready to be JSON encoded
type Body = map[string]any

// Default field names and limits of the log indexes
const (
	DefaultSize           = 10000
	DefaultTimestampField = "@timestamp"
	DefaultMessageField   = "message"
	DefaultTagField       = "tags"
)

// Request describes one lookup
type Request struct {
	Value    string
	Kind     Kind
	Field    string   // structured field for exact/prefix, first field for either
	AltField string   // second field for either
	Tags     []string // any-of service tag restriction
	Window   *domain.TimeWindow
}

// Builder produces query bodies with a fixed envelope
type Builder struct {
	Size           int
	TimestampField string
	MessageField   string
	TagField       string
}

// NewBuilder creates a builder with the default field names
func NewBuilder(size int) *Builder {
	if size <= 0 {
		size = DefaultSize
	}
	return &Builder{
		Size:           size,
		TimestampField: DefaultTimestampField,
		MessageField:   DefaultMessageField,
		TagField:       DefaultTagField,
	}
}

// Build returns the query body for req. Every body asks for Size hits sorted
// by timestamp ascending.
func (b *Builder) Build(req Request) Body {
	must := []any{b.idClause(req)}

	if tags := b.tagClause(req.Tags); tags != nil {
		must = append(must, tags)
	}

	// Structured lookups stay unscoped so late-arriving records are not lost.
	if req.Window != nil && req.Kind == KindContains {
		must = append(must, Body{
			"range": Body{
				b.TimestampField: Body{
					"gte": req.Window.Start.UTC().Format(time.RFC3339Nano),
					"lte": req.Window.End.UTC().Format(time.RFC3339Nano),
				},
			},
		})
	}

	return Body{
		"query": Body{"bool": Body{"must": must}},
		"size":  b.Size,
		"sort": []any{
			Body{b.TimestampField: Body{"order": "asc"}},
		},
	}
}

func (b *Builder) idClause(req Request) Body {
	switch req.Kind {
	case KindExact:
		return term(req.Field, req.Value)
	case KindPrefix:
		val := req.Value
		if !strings.Contains(val, "*") {
			val += "*"
		}
		return wildcard(req.Field, val)
	case KindEither:
		return anyOf(term(req.Field, req.Value), term(req.AltField, req.Value))
	default:
		field := b.MessageField
		if req.Kind == KindContains && req.Field != "" {
			field = req.Field
		}
		return wildcard(field, "*"+req.Value+"*")
	}
}

func (b *Builder) tagClause(tags []string) Body {
	switch len(tags) {
	case 0:
		return nil
	case 1:
		return wildcard(b.TagField, "*"+tags[0]+"*")
	}
	clauses := make([]Body, 0, len(tags))
	for _, t := range tags {
		clauses = append(clauses, wildcard(b.TagField, "*"+t+"*"))
	}
	return anyOf(clauses...)
}

func term(field, value string) Body {
	return Body{"term": Body{field: value}}
}

func wildcard(field, pattern string) Body {
	return Body{"wildcard": Body{field: pattern}}
}

func anyOf(clauses ...Body) Body {
	should := make([]any, len(clauses))
	for i, c := range clauses {
		should[i] = c
	}
	return Body{
		"bool": Body{
			"should":               should,
			"minimum_should_match": 1,
		},
	}
}
