package domain

import "strings"

// IDType classifies an identifier by the backend field it is expected to live in
type IDType string

const (
	IDTypeTracking    IDType = "tracking_id"
	IDTypeSession     IDType = "session_id"
	IDTypeMobiusCall  IDType = "mobius_call_id"
	IDTypeSIPCall     IDType = "sip_call_id"
	IDTypeEdgeCall    IDType = "sse_call_id"
	IDTypeGenericCall IDType = "call_id"
	IDTypeUser        IDType = "user_id"
	IDTypeDevice      IDType = "device_id"
	IDTypeTrace       IDType = "trace_id"
	IDTypeUnknown     IDType = "unknown"
)

// AllIDTypes lists every identifier type in classifier output order
var AllIDTypes = []IDType{
	IDTypeSession,
	IDTypeTracking,
	IDTypeMobiusCall,
	IDTypeSIPCall,
	IDTypeEdgeCall,
	IDTypeGenericCall,
	IDTypeUser,
	IDTypeDevice,
	IDTypeTrace,
}

// ParseIDType converts a string to IDType. Short aliases ("session", "sse", ...)
// are accepted; anything unrecognised is IDTypeUnknown.
func ParseIDType(s string) IDType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tracking_id", "tracking", "trackingid":
		return IDTypeTracking
	case "session_id", "session", "sessionid":
		return IDTypeSession
	case "mobius_call_id", "mobius_call", "mobius":
		return IDTypeMobiusCall
	case "sip_call_id", "sip_call", "sip":
		return IDTypeSIPCall
	case "sse_call_id", "sse_call", "sse", "edge":
		return IDTypeEdgeCall
	case "call_id", "call", "callid":
		return IDTypeGenericCall
	case "user_id", "user":
		return IDTypeUser
	case "device_id", "device":
		return IDTypeDevice
	case "trace_id", "trace", "traceid":
		return IDTypeTrace
	default:
		return IDTypeUnknown
	}
}

// ExtractorKey returns the plural key used for this type in classifier JSON
// output (e.g. "session_ids")
func (t IDType) ExtractorKey() string {
	if t == IDTypeUnknown {
		return ""
	}
	return string(t) + "s"
}

// IDTypeFromExtractorKey is the inverse of ExtractorKey
func IDTypeFromExtractorKey(key string) (IDType, bool) {
	for _, t := range AllIDTypes {
		if t.ExtractorKey() == key {
			return t, true
		}
	}
	return IDTypeUnknown, false
}

// Identifier is one traversal node. Unique by Value within a traversal.
type Identifier struct {
	Value string `json:"value"`
	Type  IDType `json:"type"`
	Depth int    `json:"depth"`
}

// Environment selects which deployment a search index belongs to
type Environment string

const (
	EnvProd Environment = "prod"
	EnvInt  Environment = "int"
)

// ParseEnvironment converts a string to Environment
func ParseEnvironment(s string) (Environment, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prod", "production":
		return EnvProd, true
	case "int", "integration":
		return EnvInt, true
	default:
		return "", false
	}
}

// Category buckets log records by the part of the call path that produced them
type Category string

const (
	CategoryMobius Category = "mobius"  // client-facing signalling edge
	CategorySSEMSE Category = "sse_mse" // session border / media edge
	CategoryWxCAS  Category = "wxcas"   // call server
)

// Categories lists the built-in categories in report order
var Categories = []Category{CategoryMobius, CategorySSEMSE, CategoryWxCAS}
