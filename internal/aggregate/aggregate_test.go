package aggregate

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/calltrace/internal/domain"
)

func target(index string, cat domain.Category, value string) domain.SearchTarget {
	return domain.SearchTarget{
		Index:    index,
		Category: cat,
		Source:   domain.Identifier{Value: value, Type: domain.IDTypeSession},
	}
}

func hit(id, ts, source string) domain.RawHit {
	return domain.RawHit{ID: id, Timestamp: ts, Source: json.RawMessage(source)}
}

func TestFoldDedupesFirstWins(t *testing.T) {
	a := New(Options{})

	batch := a.Fold(0, []Outcome{
		{Target: target("logstash-wxm-app", domain.CategoryMobius, "S1"), Hits: []domain.RawHit{
			hit("h1", "", `{}`), hit("h2", "", `{}`), hit("h1", "", `{}`),
		}},
		{Target: target("logstash-wxcalling", domain.CategorySSEMSE, "S1"), Hits: []domain.RawHit{
			hit("h2", "", `{}`), hit("h3", "", `{}`), hit("", "", `{}`),
		}},
	})

	require.Equal(t, 3, batch.Len())
	assert.Equal(t, 3, a.Total())

	recs := a.Records()
	require.Len(t, recs[domain.CategoryMobius], 2)
	require.Len(t, recs[domain.CategorySSEMSE], 1)
	assert.Equal(t, "h3", recs[domain.CategorySSEMSE][0].ID)
	assert.Empty(t, recs[domain.CategoryWxCAS])

	again := a.Fold(1, []Outcome{
		{Target: target("logstash-wxcalling", domain.CategoryWxCAS, "C1"), Hits: []domain.RawHit{hit("h1", "", `{}`)}},
	})
	assert.Zero(t, again.Len())
	assert.Equal(t, 3, a.Total())
}

func TestFoldIsDeterministic(t *testing.T) {
	outcomes := []Outcome{
		{Target: target("i1", domain.CategoryMobius, "A"), Hits: []domain.RawHit{hit("x", "", `{}`), hit("y", "", `{}`)}},
		{Target: target("i2", domain.CategoryWxCAS, "A"), Hits: []domain.RawHit{hit("y", "", `{}`), hit("z", "", `{}`)}},
	}

	first := New(Options{})
	first.Fold(0, outcomes)
	second := New(Options{})
	second.Fold(0, outcomes)

	assert.Equal(t, first.Records(), second.Records())
}

func TestFoldHistory(t *testing.T) {
	a := New(Options{})
	a.Fold(2, []Outcome{
		{Target: target("i1", domain.CategoryMobius, "A")},
		{Target: target("i2", domain.CategoryWxCAS, "A"), Err: errors.New("status 503")},
		{Target: target("i3", domain.CategoryWxCAS, "A"), Hits: []domain.RawHit{hit("x", "", `{}`)}},
	})

	h := a.History()
	require.Len(t, h, 3)
	assert.Equal(t, domain.HistoryEntry{Depth: 2, Index: "i1", Identifier: "A", IDType: domain.IDTypeSession, Category: domain.CategoryMobius}, h[0])
	assert.True(t, h[1].Failed)
	assert.Equal(t, "status 503", h[1].Error)
	assert.Equal(t, 1, h[2].Hits)
}

func TestWindowDerivedOnce(t *testing.T) {
	a := New(Options{})

	a.Fold(0, []Outcome{{Target: target("i", domain.CategoryMobius, "A"), Hits: []domain.RawHit{hit("u", "garbage", `{}`)}}})
	assert.Nil(t, a.Window(), "no parseable timestamps yet")

	a.Fold(1, []Outcome{{Target: target("i", domain.CategoryMobius, "A"), Hits: []domain.RawHit{
		hit("a", "2025-03-01T10:00:00Z", `{}`),
		hit("b", "2025-03-01T12:30:00.250Z", `{}`),
	}}})
	w := a.Window()
	require.NotNil(t, w)
	assert.Equal(t, time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2025, 3, 1, 14, 30, 0, 250_000_000, time.UTC), w.End)

	a.Fold(2, []Outcome{{Target: target("i", domain.CategoryMobius, "A"), Hits: []domain.RawHit{
		hit("c", "2025-03-05T00:00:00Z", `{}`),
	}}})
	assert.Equal(t, w, a.Window())
}

func TestCondense(t *testing.T) {
	a := New(Options{MessagePrefix: 10})
	src := `{
		"message": "0123456789abcdef",
		"tags": ["mobius", "prod"],
		"fields": {
			"localSessionId": "S1",
			"remoteSessionId": "00000000-0000-0000-0000-000000000000",
			"mobiusCallId": ["M1", "M2"],
			"WEBEX_TRACKINGID": "trk_abc_9",
			"USER_ID": "null",
			"other": "ignored"
		},
		"callId": "C1",
		"traceId": "N/A",
		"sessionId": []
	}`

	out := a.Condense([]domain.LogRecord{{ID: "r", Timestamp: "t", Category: domain.CategoryMobius, Source: json.RawMessage(src)}})
	require.Len(t, out, 1)
	c := out[0]

	assert.Equal(t, "0123456789", c.Message)
	assert.Equal(t, []any{"mobius", "prod"}, c.Tags)
	assert.Equal(t, map[string]string{
		"localSessionId":   "S1",
		"mobiusCallId":     "M1",
		"WEBEX_TRACKINGID": "trk_abc_9",
	}, c.Fields)
	assert.Equal(t, "C1", c.CallID)
	assert.Empty(t, c.TraceID)
	assert.Empty(t, c.SessionID)
}

func TestCondenseMultibyteMessage(t *testing.T) {
	a := New(Options{MessagePrefix: 3})
	out := a.Condense([]domain.LogRecord{{Source: json.RawMessage(`{"message":"äöüß"}`)}})
	require.Len(t, out, 1)
	assert.Equal(t, "äöü", out[0].Message)
}

func TestDescribe(t *testing.T) {
	a := New(Options{})
	b := a.Fold(0, []Outcome{
		{Target: target("i", domain.CategoryWxCAS, "A"), Hits: []domain.RawHit{hit("1", "", `{}`)}},
		{Target: target("i", domain.CategoryMobius, "A"), Hits: []domain.RawHit{hit("2", "", `{}`), hit("3", "", `{}`)}},
	})
	d := a.Describe(b)
	assert.True(t, strings.HasPrefix(d, "depth 0: 3 new records"))
	assert.Contains(t, d, "mobius=2, wxcas=1")
}

func TestParseTimestamp(t *testing.T) {
	for _, s := range []string{
		"2025-03-01T10:00:00Z",
		"2025-03-01T10:00:00.123+01:00",
		"2025-03-01T10:00:00",
		"2025-03-01 10:00:00.123",
	} {
		_, ok := ParseTimestamp(s)
		assert.True(t, ok, s)
	}
	_, ok := ParseTimestamp("yesterday")
	assert.False(t, ok)
}
