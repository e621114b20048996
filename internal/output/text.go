package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/tidwall/gjson"

	"github.com/vburojevic/calltrace/internal/domain"
)

const textMessageWidth = 160

// TextWriter writes traversal events as styled text
type TextWriter struct {
	w io.Writer
}

// NewTextWriter creates a new text writer
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w}
}

func (w *TextWriter) line(s string) error {
	_, err := io.WriteString(w.w, s+"\n")
	return err
}

// WriteInfo outputs the traversal preamble
func (w *TextWriter) WriteInfo(info *InfoOutput) error {
	line := Styles.Info.Render(info.Message)
	if len(info.Seeds) > 0 {
		seeds := make([]string, 0, len(info.Seeds))
		for _, s := range info.Seeds {
			seeds = append(seeds, s.Value+"("+string(s.Type)+")")
		}
		line += " " + Styles.Label.Render("seeds=") + Styles.Value.Render(strings.Join(seeds, ","))
	}
	if len(info.Environments) > 0 {
		line += " " + Styles.Label.Render("env=") + Styles.Value.Render(strings.Join(info.Environments, ","))
	}
	if len(info.Regions) > 0 {
		line += " " + Styles.Label.Render("region=") + Styles.Value.Render(strings.Join(info.Regions, ","))
	}
	return w.line(line)
}

// WriteWarning outputs a styled warning
func (w *TextWriter) WriteWarning(message string) error {
	return w.line(Styles.Warning.Render("Warning") + ": " + message)
}

// WriteDepthStart outputs the frontier about to be searched
func (w *TextWriter) WriteDepthStart(depth int, ids []domain.Identifier, targets int) error {
	header := Styles.Header.Render("Depth " + strconv.Itoa(depth))
	line := "\n" + header + "\n" + Styles.Label.Render("identifiers: ") + Styles.Value.Render(strconv.Itoa(len(ids))) +
		" | " + Styles.Label.Render("targets: ") + Styles.Value.Render(strconv.Itoa(targets))
	return w.line(line)
}

// WriteDepthDone outputs how a depth went
func (w *TextWriter) WriteDepthDone(depth, newRecords, failed int) error {
	line := Styles.Label.Render("depth "+strconv.Itoa(depth)+" new records: ") + Styles.Value.Render(strconv.Itoa(newRecords))
	if failed > 0 {
		line += " | " + Styles.Warning.Render("failed searches: "+strconv.Itoa(failed))
	}
	return w.line(line)
}

// WriteIdentifier outputs a discovered identifier
func (w *TextWriter) WriteIdentifier(id domain.Identifier) error {
	return w.line(Styles.Success.Render("+") + " " + Styles.Label.Render(string(id.Type)+" ") + Styles.Value.Render(id.Value) +
		Styles.Label.Render(" (depth "+strconv.Itoa(id.Depth)+")"))
}

// WriteRecord outputs a single record on one line
func (w *TextWriter) WriteRecord(rec *domain.LogRecord) error {
	msg := gjson.GetBytes(rec.Source, "message").String()
	if len(msg) > textMessageWidth {
		msg = msg[:textMessageWidth] + "..."
	}
	line := Styles.Timestamp.Render(rec.Timestamp) + " " +
		CategoryStyle(rec.Category).Render("["+string(rec.Category)+"]") + " " +
		Styles.Index.Render(rec.Index) + " " + Styles.Message.Render(strings.ReplaceAll(msg, "\n", " "))
	return w.line(line)
}

// WriteHistory outputs one executed search target
func (w *TextWriter) WriteHistory(h *domain.HistoryEntry) error {
	line := Styles.Label.Render("  "+h.Index+" ") + Styles.Value.Render(h.Identifier)
	if h.Failed {
		line += " " + Styles.Danger.Render("FAILED") + " " + h.Error
	} else {
		line += Styles.Label.Render(" hits=") + Styles.Value.Render(strconv.Itoa(h.Hits))
	}
	return w.line(line)
}

// WriteTarget outputs a planned search target
func (w *TextWriter) WriteTarget(t *domain.SearchTarget) error {
	line := CategoryStyle(t.Category).Render("["+string(t.Category)+"]") + " " +
		Styles.Index.Render(t.Index) + " " + Styles.Label.Render(string(t.Source.Type)+"=") + Styles.Value.Render(t.Source.Value)
	return w.line(line)
}

// WriteToken outputs the state of one environment's token
func (w *TextWriter) WriteToken(t *TokenOutput) error {
	line := Styles.Label.Render("env=") + Styles.Value.Render(string(t.Environment)) + " "
	switch {
	case t.Error != "":
		line += Styles.Danger.Render("ERROR") + " " + t.Error
	case !t.Configured && !t.Cached:
		line += Styles.Warning.Render("NOT CONFIGURED")
	case !t.Cached:
		line += Styles.Label.Render("no token fetched")
	case t.Fresh:
		line += Styles.Success.Render("FRESH") + Styles.Label.Render(fmt.Sprintf(" age=%ds lifetime=%ds", t.AgeSeconds, t.LifetimeSeconds))
	default:
		line += Styles.Warning.Render("STALE") + Styles.Label.Render(fmt.Sprintf(" age=%ds lifetime=%ds", t.AgeSeconds, t.LifetimeSeconds))
	}
	return w.line(line)
}

// WriteDigest outputs a per-category digest
func (w *TextWriter) WriteDigest(d *Digest) error {
	line := CategoryStyle(d.Category).Render(string(d.Category)) + " " +
		Styles.Label.Render("records: ") + Styles.Value.Render(strconv.Itoa(d.Records))
	if d.Errors > 0 {
		line += " | " + Styles.Warning.Render("errors: "+strconv.Itoa(d.Errors))
	}
	if d.First != "" {
		line += " | " + Styles.Label.Render(d.First+" .. "+d.Last)
	}
	for _, p := range d.Patterns {
		line += "\n  " + Styles.Value.Render(strconv.Itoa(p.Count)+"x") + " " + p.Pattern
	}
	return w.line(line)
}

// WriteSummary outputs a styled summary with the search history as a table
func (w *TextWriter) WriteSummary(summary *domain.Summary) error {
	header := Styles.Header.Render("Summary")
	line := "\n" + header + "\n"
	for i, cat := range domain.Categories {
		if i > 0 {
			line += " | "
		}
		line += Styles.Label.Render(string(cat)+": ") + Styles.Value.Render(strconv.Itoa(summary.TotalHitsPerCategory[cat]))
	}
	line += "\n" + Styles.Label.Render("depth: ") + Styles.Value.Render(strconv.Itoa(summary.MaxDepthReached)) +
		" | " + Styles.Label.Render("identifiers: ") + Styles.Value.Render(strconv.Itoa(summary.TotalIdentifiersSearched)) +
		" | " + Styles.Label.Render("stop: ") + StopText(summary.Stop)
	if failed := summary.FailedSearches(); failed > 0 {
		line += " | " + Styles.Warning.Render("failed: "+strconv.Itoa(failed))
	}
	if err := w.line(line); err != nil {
		return err
	}
	if len(summary.SearchHistory) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(w.w)
	table.Header("Depth", "Identifier", "Type", "Index", "Hits", "Error")
	for _, h := range summary.SearchHistory {
		if err := table.Append([]string{
			strconv.Itoa(h.Depth),
			h.Identifier,
			string(h.IDType),
			h.Index,
			strconv.Itoa(h.Hits),
			h.Error,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// WriteMetadata outputs build metadata
func (w *TextWriter) WriteMetadata(version, commit string) error {
	return w.line(Styles.Label.Render("version: ") + Styles.Value.Render(version) + " " +
		Styles.Label.Render("commit: ") + Styles.Value.Render(commit))
}

// WriteError outputs a styled error
func (w *TextWriter) WriteError(code, message string, hint ...string) error {
	errorLabel := Styles.Danger.Render("Error")
	codeStr := Styles.Warning.Render("[" + code + "]")
	line := errorLabel + " " + codeStr + ": " + message
	if len(hint) > 0 && hint[0] != "" {
		line += "\n" + Styles.Label.Render("hint: ") + hint[0]
	}
	return w.line(line)
}
