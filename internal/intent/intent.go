// Package intent turns a free-text search request into seeds and scope.
package intent

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/vburojevic/calltrace/internal/classify"
	"github.com/vburojevic/calltrace/internal/domain"
)

// ErrNoIdentifiers means the text named nothing to search for
var ErrNoIdentifiers = errors.New("no identifiers found in request")

// Request is a parsed search request
type Request struct {
	Seeds        []domain.Identifier  `json:"identifiers"`
	Environments []domain.Environment `json:"environments"`
	Regions      []string             `json:"regions"`
}

// Parser turns text into a Request
type Parser interface {
	Parse(ctx context.Context, text string) (Request, error)
}

var (
	uuidPattern       = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	hex32Pattern      = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)
	trackingMarkers   = []string{"sdk", "webex-web-client_", "MOBIUS_"}
	labelWords        = map[string]domain.IDType{}
	knownRegions      = map[string]string{"us": "us", "eu": "eu", "europe": "eu"}
	tokenSplitPattern = regexp.MustCompile(`[\s,;]+`)
)

func init() {
	for _, t := range domain.AllIDTypes {
		labelWords[strings.TrimSuffix(string(t), "_id")] = t
	}
	delete(labelWords, "call")
	labelWords["sse"] = domain.IDTypeEdgeCall
	labelWords["sip"] = domain.IDTypeSIPCall
	labelWords["mobius"] = domain.IDTypeMobiusCall
}

// Rules is a rule-based parser. It understands JSON requests shaped like
// Request, labelled tokens (session_id=abc, tracking:xyz), label phrases
// ("session id abc"), and recognises common id shapes in bare tokens.
type Rules struct{}

// Parse implements Parser
func (Rules) Parse(_ context.Context, text string) (Request, error) {
	text = strings.TrimSpace(text)
	var req Request
	if gjson.Valid(text) && gjson.Parse(text).IsObject() {
		req = parseJSON(gjson.Parse(text))
	} else {
		req = parseText(text)
	}

	if len(req.Environments) == 0 {
		req.Environments = []domain.Environment{domain.EnvProd}
	}
	if len(req.Regions) == 0 {
		req.Regions = []string{"us"}
	}
	if len(req.Seeds) == 0 {
		return req, ErrNoIdentifiers
	}
	return req, nil
}

func parseJSON(obj gjson.Result) Request {
	var req Request
	seen := make(map[string]bool)
	obj.Get("identifiers").ForEach(func(_, v gjson.Result) bool {
		value := strings.TrimSpace(v.Get("value").String())
		if value == "" || seen[value] {
			return true
		}
		seen[value] = true
		t := domain.ParseIDType(v.Get("type").String())
		if t == domain.IDTypeUnknown {
			t = Guess(value)
		}
		req.Seeds = append(req.Seeds, domain.Identifier{Value: value, Type: t})
		return true
	})
	obj.Get("environments").ForEach(func(_, v gjson.Result) bool {
		if env, ok := domain.ParseEnvironment(v.String()); ok {
			req.Environments = appendEnv(req.Environments, env)
		}
		return true
	})
	obj.Get("regions").ForEach(func(_, v gjson.Result) bool {
		if r, ok := knownRegions[strings.ToLower(v.String())]; ok {
			req.Regions = appendRegion(req.Regions, r)
		}
		return true
	})
	return req
}

func parseText(text string) Request {
	var req Request
	seen := make(map[string]bool)
	add := func(value string, t domain.IDType) {
		value = strings.Trim(value, `"'()[]<>.`)
		if value == "" || seen[value] {
			return
		}
		seen[value] = true
		req.Seeds = append(req.Seeds, domain.Identifier{Value: value, Type: t})
	}

	tokens := tokenSplitPattern.Split(text, -1)
	pending := domain.IDType("")
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok == "" {
			continue
		}
		lower := strings.ToLower(tok)

		if label, value, ok := splitLabel(tok); ok {
			t := domain.ParseIDType(label)
			if t == domain.IDTypeUnknown {
				t = Guess(value)
			}
			add(value, t)
			pending = ""
			continue
		}

		if env, ok := domain.ParseEnvironment(lower); ok {
			req.Environments = appendEnv(req.Environments, env)
			continue
		}
		if r, ok := knownRegions[lower]; ok {
			req.Regions = appendRegion(req.Regions, r)
			continue
		}

		if t, ok := labelWords[lower]; ok {
			pending = t
			continue
		}
		if lower == "id" || lower == "ids" || lower == "call" {
			if lower == "call" && pending == "" {
				pending = domain.IDTypeGenericCall
			}
			continue
		}

		if !looksLikeID(tok) {
			pending = ""
			continue
		}
		if pending != "" {
			add(tok, pending)
			continue
		}
		add(tok, Guess(tok))
	}
	return req
}

func splitLabel(tok string) (label, value string, ok bool) {
	idx := strings.IndexAny(tok, "=:")
	if idx <= 0 || idx == len(tok)-1 {
		return "", "", false
	}
	label = tok[:idx]
	if domain.ParseIDType(label) == domain.IDTypeUnknown && !strings.EqualFold(label, "unknown") && !strings.EqualFold(label, "id") {
		return "", "", false
	}
	return label, tok[idx+1:], true
}

// looksLikeID accepts tokens that carry at least one digit and are long
// enough not to be ordinary words
func looksLikeID(tok string) bool {
	if len(tok) < 6 {
		return false
	}
	return strings.ContainsAny(tok, "0123456789")
}

// Guess infers a type from the shape of value
func Guess(value string) domain.IDType {
	switch {
	case classify.EdgeCallPattern.MatchString(value):
		return domain.IDTypeEdgeCall
	case containsAny(value, trackingMarkers):
		return domain.IDTypeTracking
	case hex32Pattern.MatchString(value):
		return domain.IDTypeSession
	case uuidPattern.MatchString(value):
		return domain.IDTypeGenericCall
	default:
		return domain.IDTypeUnknown
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func appendEnv(list []domain.Environment, env domain.Environment) []domain.Environment {
	for _, e := range list {
		if e == env {
			return list
		}
	}
	return append(list, env)
}

func appendRegion(list []string, r string) []string {
	for _, x := range list {
		if x == r {
			return list
		}
	}
	return append(list, r)
}
