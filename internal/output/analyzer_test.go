package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/calltrace/internal/domain"
)

func TestAnalyzer_Analyze(t *testing.T) {
	digests := NewAnalyzer().Analyze(sampleResult())
	require.Len(t, digests, 3)

	mobius := digests[0]
	assert.Equal(t, domain.CategoryMobius, mobius.Category)
	assert.Equal(t, 2, mobius.Records)
	assert.Equal(t, 2, mobius.Errors)
	assert.Equal(t, "2025-12-11T10:00:00Z", mobius.First)
	assert.Equal(t, "2025-12-11T10:05:00Z", mobius.Last)
	assert.Equal(t, map[string]int{"logstash-wxm-app": 2}, mobius.Indexes)
	require.Len(t, mobius.Patterns, 1)
	assert.Equal(t, 2, mobius.Patterns[0].Count)
	assert.Equal(t, "register <sip:alice@example.com> failed: <n>", mobius.Patterns[0].Pattern)

	sse := digests[1]
	assert.Equal(t, domain.CategorySSEMSE, sse.Category)
	assert.Zero(t, sse.Records)
	assert.Nil(t, sse.Patterns)

	wxcas := digests[2]
	assert.Equal(t, 1, wxcas.Records)
	assert.Zero(t, wxcas.Errors)
	assert.Empty(t, wxcas.Patterns)
}

func TestAnalyzer_NormalizeMessage(t *testing.T) {
	a := NewAnalyzer()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"numbers", "retry 3 of 5", "retry <n> of <n>"},
		{"uuid", "call 123e4567-e89b-12d3-a456-426614174000 ended", "call <uuid> ended"},
		{"hex", "ptr 0xdeadbeef", "ptr <addr>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.normalizeMessage(tt.in))
		})
	}
}
