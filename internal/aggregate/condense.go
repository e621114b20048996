package aggregate

import (
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/vburojevic/calltrace/internal/domain"
)

// Identifier-bearing fields kept by Condense
var (
	nestedFields = []string{
		"localSessionId",
		"remoteSessionId",
		"mobiusCallId",
		"sipCallId",
		"WEBEX_TRACKINGID",
		"USER_ID",
		"DEVICE_ID",
	}
	topLevelFields = []string{"callId", "traceId", "sessionId"}
)

// Condensed is the reduced view of one record handed to the classifier
type Condensed struct {
	Timestamp string            `json:"timestamp,omitempty"`
	Category  domain.Category   `json:"category"`
	Tags      any               `json:"tags,omitempty"`
	Message   string            `json:"message,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	CallID    string            `json:"callId,omitempty"`
	TraceID   string            `json:"traceId,omitempty"`
	SessionID string            `json:"sessionId,omitempty"`
}

// Condense reduces records to the fields that can carry identifiers. The
// message is cut to the configured prefix, list values collapse to their
// first element and sentinel values are left out.
func (a *Aggregator) Condense(records []domain.LogRecord) []Condensed {
	out := make([]Condensed, 0, len(records))
	for _, r := range records {
		src := gjson.ParseBytes(r.Source)
		c := Condensed{
			Timestamp: r.Timestamp,
			Category:  r.Category,
			Message:   truncate(src.Get("message").String(), a.opts.MessagePrefix),
		}
		if tags := src.Get("tags"); tags.Exists() {
			c.Tags = tags.Value()
		}

		fields := src.Get("fields")
		for _, name := range nestedFields {
			if v, ok := a.scalar(fields.Get(name)); ok {
				if c.Fields == nil {
					c.Fields = make(map[string]string)
				}
				c.Fields[name] = v
			}
		}

		top := make(map[string]string, len(topLevelFields))
		for _, name := range topLevelFields {
			if v, ok := a.scalar(src.Get(name)); ok {
				top[name] = v
			}
		}
		c.CallID = top["callId"]
		c.TraceID = top["traceId"]
		c.SessionID = top["sessionId"]

		out = append(out, c)
	}
	return out
}

func (a *Aggregator) scalar(v gjson.Result) (string, bool) {
	if !v.Exists() {
		return "", false
	}
	if v.IsArray() {
		arr := v.Array()
		if len(arr) == 0 {
			return "", false
		}
		v = arr[0]
	}
	s := v.String()
	if !a.opts.Sentinels.Match(s) {
		return "", false
	}
	return s, true
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
