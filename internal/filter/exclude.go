package filter

import (
	"strings"
)

// DefaultSentinels are placeholder values upstream producers use to mean
// "no real id"
var DefaultSentinels = []string{
	"0000000000000000",
	"00000000000000000000000000000000",
	"00000000-0000-0000-0000-000000000000",
	"",
	"null",
	"None",
	"none",
	"N/A",
	"n/a",
	"unknown",
}

// DefaultSkipPrefixes mark values that are explicitly not applicable
var DefaultSkipPrefixes = []string{"NA_"}

// SentinelFilter rejects reserved placeholder values (exact match)
type SentinelFilter struct {
	values map[string]struct{}
}

// NewSentinelFilter creates a filter rejecting any of values
func NewSentinelFilter(values []string) *SentinelFilter {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return &SentinelFilter{values: set}
}

// Match returns true if the value is non-empty and not a sentinel
func (f *SentinelFilter) Match(value string) bool {
	if value == "" {
		return false
	}
	_, reserved := f.values[value]
	return !reserved
}

// PrefixFilter rejects values carrying a not-applicable prefix
type PrefixFilter struct {
	prefixes []string
}

// NewPrefixFilter creates a prefix exclusion filter
func NewPrefixFilter(prefixes []string) *PrefixFilter {
	return &PrefixFilter{prefixes: prefixes}
}

// Match returns true if the value starts with none of the prefixes
func (f *PrefixFilter) Match(value string) bool {
	for _, p := range f.prefixes {
		if p != "" && strings.HasPrefix(value, p) {
			return false
		}
	}
	return true
}
