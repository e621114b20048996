package plan

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/calltrace/internal/domain"
	"github.com/vburojevic/calltrace/internal/query"
)

func TestResolve(t *testing.T) {
	r := NewResolver(nil, nil)

	tests := []struct {
		service string
		env     domain.Environment
		region  string
		want    string
		ok      bool
	}{
		{ServiceMobius, domain.EnvProd, "us", "logstash-wxm-app", true},
		{ServiceMobius, domain.EnvProd, "EU", "logstash-wxm-app-eu1", true},
		{ServiceMobius, domain.EnvInt, "eu", "logstash-wxm-appeu-int", true},
		{ServiceCalling, domain.EnvProd, "eu", "logstash-wxcallingeuc1", true},
		{ServiceCalling, domain.EnvInt, "us", "logstash-wxcalling-int", true},
		{ServiceMobius, domain.EnvProd, "apac", "", false},
		{"nope", domain.EnvProd, "us", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.service+"/"+string(tt.env)+"/"+tt.region, func(t *testing.T) {
			got, ok := r.Resolve(tt.service, tt.env, tt.region)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveAllDedupes(t *testing.T) {
	r := NewResolver(nil, nil)

	got := r.ResolveAll(ServiceCalling, []domain.Environment{domain.EnvInt}, []string{"us", "eu"})
	assert.Equal(t, []string{"logstash-wxcalling-int"}, got)

	got = r.ResolveAll(ServiceMobius, []domain.Environment{domain.EnvProd, domain.EnvInt}, []string{"us", "apac"})
	assert.Equal(t, []string{"logstash-wxm-app", "logstash-wxm-app-int"}, got)
}

func TestEnvironmentOf(t *testing.T) {
	assert.Equal(t, domain.EnvInt, EnvironmentOf("logstash-wxm-app-int"))
	assert.Equal(t, domain.EnvProd, EnvironmentOf("logstash-wxm-app"))
	assert.Equal(t, domain.EnvProd, EnvironmentOf("logstash-int-archive"))
}

func TestDefaultEndpointsCoverIndexes(t *testing.T) {
	endpoints := DefaultEndpoints()
	for service, byEnv := range DefaultIndexes() {
		for env, byRegion := range byEnv {
			for region, idx := range byRegion {
				_, ok := endpoints[idx]
				assert.True(t, ok, "no endpoint for %s/%s/%s (%s)", service, env, region, idx)
			}
		}
	}
}

func TestTargetSpecsFallback(t *testing.T) {
	targets := DefaultTargets()

	assert.Len(t, targets.Specs(domain.IDTypeSession), 2)
	assert.Equal(t, targets[domain.IDTypeUnknown], targets.Specs(domain.IDType("bogus")))
	assert.Equal(t, targets[domain.IDTypeUnknown], targets.Specs(domain.IDTypeTrace))
}

func TestExpand(t *testing.T) {
	p := NewPlanner(nil, nil, nil, nil)

	t.Run("session fans out to both services", func(t *testing.T) {
		id := domain.Identifier{Value: "S1", Type: domain.IDTypeSession, Depth: 1}
		got := p.Expand(id, DefaultScope(), nil)
		require.Len(t, got, 2)

		assert.Equal(t, "logstash-wxm-app", got[0].Index)
		assert.Equal(t, domain.CategoryMobius, got[0].Category)
		assert.Equal(t, "logstash-wxcalling", got[1].Index)
		assert.Equal(t, domain.CategorySSEMSE, got[1].Category)
		assert.Equal(t, id, got[1].Source)
	})

	t.Run("generic call goes to call server", func(t *testing.T) {
		got := p.Expand(domain.Identifier{Value: "C1", Type: domain.IDTypeGenericCall}, DefaultScope(), nil)
		require.Len(t, got, 1)
		assert.Equal(t, domain.CategoryWxCAS, got[0].Category)

		raw, err := json.Marshal(got[0].Query)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"callId.keyword":"C1"`)
	})

	t.Run("multi region multiplies targets", func(t *testing.T) {
		scope := Scope{Environments: []domain.Environment{domain.EnvProd}, Regions: []string{"us", "eu"}}
		got := p.Expand(domain.Identifier{Value: "T1", Type: domain.IDTypeTracking}, scope, nil)
		require.Len(t, got, 2)
		assert.Equal(t, "logstash-wxm-app-eu1", got[1].Index)
	})

	t.Run("unresolved scope yields nothing", func(t *testing.T) {
		scope := Scope{Environments: []domain.Environment{domain.EnvProd}, Regions: []string{"apac"}}
		got := p.Expand(domain.Identifier{Value: "T1", Type: domain.IDTypeTracking}, scope, nil)
		assert.Empty(t, got)
	})

	t.Run("window only on free text", func(t *testing.T) {
		start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
		window := &domain.TimeWindow{Start: start, End: start.Add(4 * time.Hour)}
		got := p.Expand(domain.Identifier{Value: "X", Type: domain.IDTypeUnknown}, DefaultScope(), window)
		require.Len(t, got, 2)
		for _, target := range got {
			raw, err := json.Marshal(target.Query)
			require.NoError(t, err)
			assert.Contains(t, string(raw), `"range"`)
		}

		got = p.Expand(domain.Identifier{Value: "M", Type: domain.IDTypeMobiusCall}, DefaultScope(), window)
		require.Len(t, got, 1)
		raw, err := json.Marshal(got[0].Query)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), `"range"`)
	})

	t.Run("custom size", func(t *testing.T) {
		small := NewPlanner(nil, nil, query.NewBuilder(50), nil)
		got := small.Expand(domain.Identifier{Value: "M", Type: domain.IDTypeMobiusCall}, DefaultScope(), nil)
		require.Len(t, got, 1)
		assert.Equal(t, 50, got[0].Query.(query.Body)["size"])
	})
}
