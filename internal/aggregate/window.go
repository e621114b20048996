package aggregate

import (
	"time"

	"github.com/vburojevic/calltrace/internal/domain"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses the timestamp formats seen in log records
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// deriveWindow returns [min-padding, max+padding] over the parseable
// timestamps of records
func deriveWindow(records []domain.LogRecord, padding time.Duration) (domain.TimeWindow, bool) {
	var lo, hi time.Time
	found := false
	for _, r := range records {
		t, ok := ParseTimestamp(r.Timestamp)
		if !ok {
			continue
		}
		if !found || t.Before(lo) {
			lo = t
		}
		if !found || t.After(hi) {
			hi = t
		}
		found = true
	}
	if !found {
		return domain.TimeWindow{}, false
	}
	return domain.TimeWindow{Start: lo.Add(-padding), End: hi.Add(padding)}, true
}
