package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/vburojevic/calltrace/internal/domain"
)

// DefaultCommandTimeout bounds one classifier run
const DefaultCommandTimeout = 2 * time.Minute

// Command runs an external classifier. The batch is written to its stdin as
// JSON; stdout must contain a JSON object keyed by session_ids,
// tracking_ids and so on, possibly wrapped in prose or a fenced block.
type Command struct {
	Line    string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Classify implements Classifier
func (c *Command) Classify(ctx context.Context, batch Batch) (Candidates, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	input, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("%w: encode batch: %v", domain.ErrClassifier, err)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", c.Line)
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrClassifier, msg)
	}

	cands, err := ParseCandidates(stdout.String())
	if err != nil {
		if c.Logger != nil {
			c.Logger.Warn("classifier output not understood", zap.Int("bytes", stdout.Len()))
		}
		return nil, err
	}
	return cands, nil
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSON finds a JSON object in free text: the whole text, then a
// fenced code block, then the outermost braces
func ExtractJSON(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if gjson.Valid(text) && gjson.Parse(text).IsObject() {
		return text, true
	}
	if m := fencedJSON.FindStringSubmatch(text); m != nil && gjson.Valid(m[1]) {
		return m[1], true
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		candidate := text[start : end+1]
		if gjson.Valid(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// ParseCandidates reads classifier output. Unknown keys are ignored; values
// may be a list of strings or a single string.
func ParseCandidates(text string) (Candidates, error) {
	obj, ok := ExtractJSON(text)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in output", domain.ErrClassifier)
	}

	out := make(Candidates)
	gjson.Parse(obj).ForEach(func(key, value gjson.Result) bool {
		t, ok := domain.IDTypeFromExtractorKey(key.String())
		if !ok {
			return true
		}
		if value.IsArray() {
			for _, v := range value.Array() {
				if v.Type == gjson.String || v.Type == gjson.Number {
					out.Add(t, v.String())
				}
			}
			return true
		}
		if value.Type == gjson.String {
			out.Add(t, value.String())
		}
		return true
	})
	return out, nil
}
