package classify

import (
	"context"
	"regexp"

	"github.com/vburojevic/calltrace/internal/domain"
)

// EdgeCallPattern matches session border controller call ids in free text
var EdgeCallPattern = regexp.MustCompile(`SSE\d+@[\d.]+`)

var fieldTypes = []struct {
	name string
	typ  domain.IDType
}{
	{"localSessionId", domain.IDTypeSession},
	{"remoteSessionId", domain.IDTypeSession},
	{"mobiusCallId", domain.IDTypeMobiusCall},
	{"sipCallId", domain.IDTypeSIPCall},
	{"WEBEX_TRACKINGID", domain.IDTypeTracking},
	{"USER_ID", domain.IDTypeUser},
	{"DEVICE_ID", domain.IDTypeDevice},
}

// Rules pulls identifiers out of the structured fields of condensed records
// and edge call ids out of their messages
type Rules struct{}

// Classify implements Classifier
func (Rules) Classify(ctx context.Context, batch Batch) (Candidates, error) {
	out := make(Candidates)
	for _, r := range batch.Records {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		for _, f := range fieldTypes {
			if v, ok := r.Fields[f.name]; ok {
				out.Add(f.typ, v)
			}
		}
		if r.SessionID != "" {
			out.Add(domain.IDTypeSession, r.SessionID)
		}
		if r.CallID != "" {
			if EdgeCallPattern.MatchString(r.CallID) {
				out.Add(domain.IDTypeEdgeCall, r.CallID)
			} else {
				out.Add(domain.IDTypeGenericCall, r.CallID)
			}
		}
		if r.TraceID != "" {
			out.Add(domain.IDTypeTrace, r.TraceID)
		}
		for _, m := range EdgeCallPattern.FindAllString(r.Message, -1) {
			out.Add(domain.IDTypeEdgeCall, m)
		}
	}
	return out, nil
}
