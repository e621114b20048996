package domain

// StopReason explains why a traversal ended
type StopReason string

const (
	StopDrained       StopReason = "drained"
	StopDepthExceeded StopReason = "depth_exceeded"
	StopCapReached    StopReason = "cap_reached"
	StopCanceled      StopReason = "canceled"
)

// Result is everything a traversal produced, whichever way it ended
type Result struct {
	RunID    string                   `json:"run_id"`
	Records  map[Category][]LogRecord `json:"records"`
	History  []HistoryEntry           `json:"history"`
	Visited  []Identifier             `json:"visited"`
	MaxDepth int                      `json:"max_depth"`
	Window   *TimeWindow              `json:"window,omitempty"`
	Stop     StopReason               `json:"stop"`
}

// TotalRecords counts records across all categories
func (r *Result) TotalRecords() int {
	n := 0
	for _, recs := range r.Records {
		n += len(recs)
	}
	return n
}

// Summary builds the caller-facing summary object
func (r *Result) Summary() *Summary {
	s := NewSummary()
	for cat, recs := range r.Records {
		s.TotalHitsPerCategory[cat] = len(recs)
	}
	for _, cat := range Categories {
		if _, ok := s.TotalHitsPerCategory[cat]; !ok {
			s.TotalHitsPerCategory[cat] = 0
		}
	}
	s.MaxDepthReached = r.MaxDepth
	s.TotalIdentifiersSearched = len(r.Visited)
	s.SearchHistory = r.History
	s.Stop = r.Stop
	s.RunID = r.RunID
	s.Window = r.Window
	return s
}

// Summary provides aggregated traversal statistics
type Summary struct {
	Type          string `json:"type"`          // Always "summary"
	SchemaVersion int    `json:"schemaVersion"` // Schema version for compatibility

	RunID                    string           `json:"run_id,omitempty"`
	TotalHitsPerCategory     map[Category]int `json:"total_hits_per_category"`
	MaxDepthReached          int              `json:"max_depth_reached"`
	TotalIdentifiersSearched int              `json:"total_identifiers_searched"`
	SearchHistory            []HistoryEntry   `json:"search_history"`
	Stop                     StopReason       `json:"stop"`
	Window                   *TimeWindow      `json:"window,omitempty"`
}

// NewSummary creates a new empty summary
func NewSummary() *Summary {
	return &Summary{
		Type:                 "summary",
		TotalHitsPerCategory: make(map[Category]int),
	}
}

// FailedSearches counts history entries that ended in an error
func (s *Summary) FailedSearches() int {
	n := 0
	for _, h := range s.SearchHistory {
		if h.Failed {
			n++
		}
	}
	return n
}

// ErrorOutput represents a structured error for NDJSON output
type ErrorOutput struct {
	Type          string `json:"type"`           // Always "error"
	SchemaVersion int    `json:"schemaVersion"`  // Schema version for compatibility
	Code          string `json:"code"`           // Machine-readable error code
	Message       string `json:"message"`        // Human-readable message
	Hint          string `json:"hint,omitempty"` // Suggested next step
}

// NewErrorOutput creates a new error output
// Note: SchemaVersion should be set by the caller (output package)
func NewErrorOutput(code, message string) *ErrorOutput {
	return &ErrorOutput{
		Type:    "error",
		Code:    code,
		Message: message,
	}
}
