package filter

import (
	"regexp"
)

// ExcludePatternFilter rejects values matching a regex pattern
type ExcludePatternFilter struct {
	pattern *regexp.Regexp
}

// NewExcludePatternFilter creates an exclusion filter from a pattern string
func NewExcludePatternFilter(pattern string) (*ExcludePatternFilter, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &ExcludePatternFilter{pattern: re}, nil
}

// Match returns true if the value does NOT match the exclusion pattern
func (f *ExcludePatternFilter) Match(value string) bool {
	if f.pattern == nil {
		return true
	}
	return !f.pattern.MatchString(value)
}

// New builds the standard identifier chain: sentinels, skip prefixes, then
// any exclusion patterns
func New(sentinels, skipPrefixes, excludePatterns []string) (*Chain, error) {
	chain := NewChain(NewSentinelFilter(sentinels), NewPrefixFilter(skipPrefixes))
	for _, p := range excludePatterns {
		f, err := NewExcludePatternFilter(p)
		if err != nil {
			return nil, err
		}
		chain.Add(f)
	}
	return chain, nil
}

// Default returns the chain built from DefaultSentinels and DefaultSkipPrefixes
func Default() *Chain {
	return NewChain(NewSentinelFilter(DefaultSentinels), NewPrefixFilter(DefaultSkipPrefixes))
}
