package output

import (
	"fmt"
	"io"

	"github.com/vburojevic/calltrace/internal/domain"
)

// Writer is the set of events a command can emit, whatever the format
type Writer interface {
	WriteInfo(info *InfoOutput) error
	WriteWarning(message string) error
	WriteDepthStart(depth int, ids []domain.Identifier, targets int) error
	WriteDepthDone(depth, newRecords, failed int) error
	WriteIdentifier(id domain.Identifier) error
	WriteRecord(rec *domain.LogRecord) error
	WriteHistory(h *domain.HistoryEntry) error
	WriteTarget(t *domain.SearchTarget) error
	WriteToken(t *TokenOutput) error
	WriteDigest(d *Digest) error
	WriteSummary(s *domain.Summary) error
	WriteMetadata(version, commit string) error
	WriteError(code, message string, hint ...string) error
}

var (
	_ Writer = (*NDJSONWriter)(nil)
	_ Writer = (*TextWriter)(nil)
)

// Output formats
const (
	FormatNDJSON = "ndjson"
	FormatText   = "text"
)

// NewWriter returns the writer for a resolved format
func NewWriter(format string, w io.Writer) (Writer, error) {
	switch format {
	case FormatNDJSON:
		return NewNDJSONWriter(w), nil
	case FormatText:
		return NewTextWriter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// EmitResult writes the records, digests and summary of a finished traversal.
// Records follow canonical category order.
func EmitResult(w Writer, result *domain.Result, withRecords bool) error {
	if withRecords {
		for _, cat := range domain.Categories {
			for i := range result.Records[cat] {
				if err := w.WriteRecord(&result.Records[cat][i]); err != nil {
					return err
				}
			}
		}
	}
	digests := NewAnalyzer().Analyze(result)
	for i := range digests {
		if err := w.WriteDigest(&digests[i]); err != nil {
			return err
		}
	}
	return w.WriteSummary(result.Summary())
}
