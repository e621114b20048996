package plan

import (
	"github.com/vburojevic/calltrace/internal/domain"
	"github.com/vburojevic/calltrace/internal/query"
)

// TargetSpec is one entry of the type -> target table
type TargetSpec struct {
	Service  string          `mapstructure:"service" json:"service"`
	Kind     query.Kind      `mapstructure:"kind" json:"kind"`
	Field    string          `mapstructure:"field" json:"field,omitempty"`
	AltField string          `mapstructure:"alt_field" json:"alt_field,omitempty"`
	Tags     []string        `mapstructure:"tags" json:"tags,omitempty"`
	Category domain.Category `mapstructure:"category" json:"category"`
}

// TargetTable maps an identifier type to the searches it triggers. A type
// with several entries fans out to all of them in parallel.
type TargetTable map[domain.IDType][]TargetSpec

var (
	mobiusTags = []string{"mobius"}
	edgeTags   = []string{"sse", "mse"}
)

func mobiusExact(field string) TargetSpec {
	return TargetSpec{Service: ServiceMobius, Kind: query.KindExact, Field: field, Tags: mobiusTags, Category: domain.CategoryMobius}
}

func callingExact(field string) TargetSpec {
	return TargetSpec{Service: ServiceCalling, Kind: query.KindExact, Field: field, Category: domain.CategoryWxCAS}
}

// DefaultTargets is the built-in table
func DefaultTargets() TargetTable {
	messageBoth := []TargetSpec{
		{Service: ServiceMobius, Kind: query.KindContains, Field: query.DefaultMessageField, Tags: mobiusTags, Category: domain.CategoryMobius},
		{Service: ServiceCalling, Kind: query.KindContains, Field: query.DefaultMessageField, Category: domain.CategoryWxCAS},
	}

	return TargetTable{
		domain.IDTypeTracking: {
			{Service: ServiceMobius, Kind: query.KindPrefix, Field: "fields.WEBEX_TRACKINGID.keyword", Tags: mobiusTags, Category: domain.CategoryMobius},
		},
		domain.IDTypeSession: {
			{Service: ServiceMobius, Kind: query.KindEither, Field: "fields.localSessionId.keyword", AltField: "fields.remoteSessionId.keyword", Tags: mobiusTags, Category: domain.CategoryMobius},
			{Service: ServiceCalling, Kind: query.KindContains, Field: query.DefaultMessageField, Tags: edgeTags, Category: domain.CategorySSEMSE},
		},
		domain.IDTypeMobiusCall:  {mobiusExact("fields.mobiusCallId.keyword")},
		domain.IDTypeSIPCall:     {mobiusExact("fields.sipCallId.keyword")},
		domain.IDTypeEdgeCall:    {callingExact("callId.keyword")},
		domain.IDTypeGenericCall: {callingExact("callId.keyword")},
		domain.IDTypeUser:        {mobiusExact("fields.USER_ID.keyword")},
		domain.IDTypeDevice:      {mobiusExact("fields.DEVICE_ID.keyword")},
		domain.IDTypeTrace:       messageBoth,
		domain.IDTypeUnknown:     messageBoth,
	}
}

// Specs returns the entries for t, falling back to the unknown entry
func (t TargetTable) Specs(idType domain.IDType) []TargetSpec {
	if specs, ok := t[idType]; ok && len(specs) > 0 {
		return specs
	}
	return t[domain.IDTypeUnknown]
}
