package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/vburojevic/calltrace/internal/domain"
)

// NDJSONWriter writes traversal events as NDJSON
type NDJSONWriter struct {
	w       io.Writer
	encoder *json.Encoder
}

// NewNDJSONWriter creates a new NDJSON writer
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false) // log messages carry SIP headers with <, > and &
	return &NDJSONWriter{
		w:       w,
		encoder: enc,
	}
}

// InfoOutput announces the start of a traversal
type InfoOutput struct {
	Type          string              `json:"type"` // Always "info"
	SchemaVersion int                 `json:"schemaVersion"`
	Message       string              `json:"message"`
	Seeds         []domain.Identifier `json:"seeds,omitempty"`
	Environments  []string            `json:"environments,omitempty"`
	Regions       []string            `json:"regions,omitempty"`
	MaxDepth      int                 `json:"max_depth,omitempty"`
	MaxTotalHits  int                 `json:"max_total_hits,omitempty"`
}

// WarningOutput represents a warning message
type WarningOutput struct {
	Type          string `json:"type"` // Always "warning"
	SchemaVersion int    `json:"schemaVersion"`
	Message       string `json:"message"`
}

// DepthOutput marks the start or the end of one BFS depth
type DepthOutput struct {
	Type          string              `json:"type"` // Always "depth"
	SchemaVersion int                 `json:"schemaVersion"`
	Phase         string              `json:"phase"` // "start" or "done"
	Depth         int                 `json:"depth"`
	Identifiers   []domain.Identifier `json:"identifiers,omitempty"`
	Targets       int                 `json:"targets,omitempty"`
	NewRecords    int                 `json:"new_records"`
	Failed        int                 `json:"failed,omitempty"`
}

// IdentifierOutput reports a newly discovered identifier
type IdentifierOutput struct {
	Type          string        `json:"type"` // Always "identifier"
	SchemaVersion int           `json:"schemaVersion"`
	Value         string        `json:"value"`
	IDType        domain.IDType `json:"id_type"`
	Depth         int           `json:"depth"`
}

// RecordOutput is one collected log record
type RecordOutput struct {
	Type          string          `json:"type"` // Always "record"
	SchemaVersion int             `json:"schemaVersion"`
	ID            string          `json:"id"`
	Timestamp     string          `json:"timestamp,omitempty"`
	Category      domain.Category `json:"category"`
	Index         string          `json:"index"`
	Source        json.RawMessage `json:"source"`
}

// HistoryOutput records one executed search target
type HistoryOutput struct {
	Type          string `json:"type"` // Always "history"
	SchemaVersion int    `json:"schemaVersion"`
	domain.HistoryEntry
}

// TargetOutput is one planned search target
type TargetOutput struct {
	Type          string          `json:"type"` // Always "target"
	SchemaVersion int             `json:"schemaVersion"`
	Identifier    string          `json:"identifier"`
	IDType        domain.IDType   `json:"id_type"`
	Index         string          `json:"index"`
	Service       string          `json:"service"`
	Category      domain.Category `json:"category"`
	Query         any             `json:"query"`
}

// TokenOutput describes the cached credential of one environment
type TokenOutput struct {
	Type            string             `json:"type"` // Always "token"
	SchemaVersion   int                `json:"schemaVersion"`
	Environment     domain.Environment `json:"environment"`
	Configured      bool               `json:"configured"`
	Cached          bool               `json:"cached"`
	Fresh           bool               `json:"fresh"`
	FetchedAt       string             `json:"fetched_at,omitempty"`
	AgeSeconds      int64              `json:"age_seconds,omitempty"`
	LifetimeSeconds int64              `json:"lifetime_seconds,omitempty"`
	Error           string             `json:"error,omitempty"`
}

// MetadataOutput describes the tool build
type MetadataOutput struct {
	Type          string `json:"type"` // Always "metadata"
	SchemaVersion int    `json:"schemaVersion"`
	Version       string `json:"version"`
	Commit        string `json:"commit"`
}

// WriteInfo outputs the traversal preamble
func (w *NDJSONWriter) WriteInfo(info *InfoOutput) error {
	info.Type = "info"
	info.SchemaVersion = SchemaVersion
	return w.encoder.Encode(info)
}

// WriteWarning outputs a warning message
func (w *NDJSONWriter) WriteWarning(message string) error {
	return w.encoder.Encode(&WarningOutput{
		Type:          "warning",
		SchemaVersion: SchemaVersion,
		Message:       message,
	})
}

// WriteDepthStart outputs the frontier about to be searched
func (w *NDJSONWriter) WriteDepthStart(depth int, ids []domain.Identifier, targets int) error {
	return w.encoder.Encode(&DepthOutput{
		Type:          "depth",
		SchemaVersion: SchemaVersion,
		Phase:         "start",
		Depth:         depth,
		Identifiers:   ids,
		Targets:       targets,
	})
}

// WriteDepthDone outputs how a depth went
func (w *NDJSONWriter) WriteDepthDone(depth, newRecords, failed int) error {
	return w.encoder.Encode(&DepthOutput{
		Type:          "depth",
		SchemaVersion: SchemaVersion,
		Phase:         "done",
		Depth:         depth,
		NewRecords:    newRecords,
		Failed:        failed,
	})
}

// WriteIdentifier outputs a discovered identifier
func (w *NDJSONWriter) WriteIdentifier(id domain.Identifier) error {
	return w.encoder.Encode(&IdentifierOutput{
		Type:          "identifier",
		SchemaVersion: SchemaVersion,
		Value:         id.Value,
		IDType:        id.Type,
		Depth:         id.Depth,
	})
}

// WriteRecord outputs a single collected record
func (w *NDJSONWriter) WriteRecord(rec *domain.LogRecord) error {
	return w.encoder.Encode(&RecordOutput{
		Type:          "record",
		SchemaVersion: SchemaVersion,
		ID:            rec.ID,
		Timestamp:     rec.Timestamp,
		Category:      rec.Category,
		Index:         rec.Index,
		Source:        rec.Source,
	})
}

// WriteHistory outputs one executed search target
func (w *NDJSONWriter) WriteHistory(h *domain.HistoryEntry) error {
	return w.encoder.Encode(&HistoryOutput{
		Type:          "history",
		SchemaVersion: SchemaVersion,
		HistoryEntry:  *h,
	})
}

// WriteTarget outputs a planned search target
func (w *NDJSONWriter) WriteTarget(t *domain.SearchTarget) error {
	return w.encoder.Encode(&TargetOutput{
		Type:          "target",
		SchemaVersion: SchemaVersion,
		Identifier:    t.Source.Value,
		IDType:        t.Source.Type,
		Index:         t.Index,
		Service:       t.Service,
		Category:      t.Category,
		Query:         t.Query,
	})
}

// WriteToken outputs the state of one environment's token
func (w *NDJSONWriter) WriteToken(t *TokenOutput) error {
	t.Type = "token"
	t.SchemaVersion = SchemaVersion
	return w.encoder.Encode(t)
}

// WriteDigest outputs a per-category digest
func (w *NDJSONWriter) WriteDigest(d *Digest) error {
	d.Type = "digest"
	d.SchemaVersion = SchemaVersion
	return w.encoder.Encode(d)
}

// WriteSummary outputs the traversal summary
func (w *NDJSONWriter) WriteSummary(summary *domain.Summary) error {
	summary.SchemaVersion = SchemaVersion
	return w.encoder.Encode(summary)
}

// WriteMetadata outputs build metadata
func (w *NDJSONWriter) WriteMetadata(version, commit string) error {
	return w.encoder.Encode(&MetadataOutput{
		Type:          "metadata",
		SchemaVersion: SchemaVersion,
		Version:       version,
		Commit:        commit,
	})
}

// WriteError outputs an error
func (w *NDJSONWriter) WriteError(code, message string, hint ...string) error {
	err := domain.NewErrorOutput(code, message)
	if len(hint) > 0 {
		err.Hint = hint[0]
	}
	err.SchemaVersion = SchemaVersion
	return w.encoder.Encode(err)
}

// WriteRaw outputs raw JSON data
func (w *NDJSONWriter) WriteRaw(v interface{}) error {
	return w.encoder.Encode(v)
}

// NewTokenOutput converts a cached token state for output. A zero state
// means nothing has been fetched yet.
func NewTokenOutput(env domain.Environment, configured bool, state domain.TokenState, now time.Time, buffer time.Duration) *TokenOutput {
	out := &TokenOutput{
		Environment: env,
		Configured:  configured,
		Cached:      state.Token != "",
	}
	if !out.Cached {
		return out
	}
	out.Fresh = state.Fresh(now, buffer)
	out.FetchedAt = state.FetchedAt.UTC().Format(time.RFC3339)
	out.AgeSeconds = int64(state.Age(now).Seconds())
	out.LifetimeSeconds = int64(state.Lifetime.Seconds())
	return out
}
