package search

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/vburojevic/calltrace/internal/domain"
)

// ParseHits extracts hits.hits from a search response. Entries keep their
// _source verbatim; the timestamp is read from @timestamp, then timestamp.
func ParseHits(raw []byte) ([]domain.RawHit, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errInvalidResponse
	}
	hits := gjson.GetBytes(raw, "hits.hits")
	if !hits.Exists() {
		return nil, nil
	}

	arr := hits.Array()
	out := make([]domain.RawHit, 0, len(arr))
	for _, h := range arr {
		src := h.Get("_source")
		hit := domain.RawHit{
			ID:    h.Get("_id").String(),
			Index: h.Get("_index").String(),
		}
		if src.Exists() {
			hit.Source = json.RawMessage(src.Raw)
			hit.Timestamp = Timestamp(src)
		}
		out = append(out, hit)
	}
	return out, nil
}

// Timestamp returns the record time of a _source object
func Timestamp(src gjson.Result) string {
	// gjson treats a leading @ as a modifier, so go through the map
	fields := src.Map()
	if ts, ok := fields["@timestamp"]; ok && ts.String() != "" {
		return ts.String()
	}
	return fields["timestamp"].String()
}
