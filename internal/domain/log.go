package domain

import (
	"encoding/json"
	"time"
)

// SearchTarget is one concrete (index, query) pair derived from an identifier
type SearchTarget struct {
	Index    string     `json:"index"`
	Service  string     `json:"service"`
	Category Category   `json:"category"`
	Query    any        `json:"query"`
	Source   Identifier `json:"source"`
}

// RawHit is a single hit returned by the search backend
type RawHit struct {
	ID        string          `json:"_id"`
	Index     string          `json:"_index"`
	Timestamp string          `json:"timestamp,omitempty"`
	Source    json.RawMessage `json:"_source"`
}

// LogRecord is a deduplicated hit owned by the aggregator
type LogRecord struct {
	ID        string          `json:"id"`
	Timestamp string          `json:"timestamp,omitempty"`
	Category  Category        `json:"category"`
	Index     string          `json:"index"`
	Source    json.RawMessage `json:"source"`
}

// TimeWindow bounds free-text searches once it has been derived
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window (inclusive)
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// TokenState is the cached credential of one environment
type TokenState struct {
	Token     string
	FetchedAt time.Time
	Lifetime  time.Duration
}

// Age returns how long ago the token was obtained
func (s TokenState) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

// Fresh reports whether the token can be served without a refresh, treating
// it as expired buffer before its nominal lifetime ends
func (s TokenState) Fresh(now time.Time, buffer time.Duration) bool {
	if s.Token == "" {
		return false
	}
	return s.Age(now) < s.Lifetime-buffer
}

// HistoryEntry records one executed search target
type HistoryEntry struct {
	Depth      int      `json:"depth"`
	Index      string   `json:"index"`
	Identifier string   `json:"identifier"`
	IDType     IDType   `json:"id_type"`
	Category   Category `json:"category"`
	Hits       int      `json:"hits"`
	Failed     bool     `json:"failed,omitempty"`
	Error      string   `json:"error,omitempty"`
}
