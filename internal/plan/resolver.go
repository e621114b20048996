package plan

import (
	"strings"

	"go.uber.org/zap"

	"github.com/vburojevic/calltrace/internal/domain"
)

// Service names of the logical log sources
const (
	ServiceMobius  = "wxm_app"
	ServiceCalling = "wxcalling"
)

// IntSuffix marks integration indexes
const IntSuffix = "-int"

// IndexTable maps service -> environment -> region -> physical index
type IndexTable map[string]map[string]map[string]string

// DefaultIndexes is the built-in production/integration layout
func DefaultIndexes() IndexTable {
	return IndexTable{
		ServiceMobius: {
			"prod": {"us": "logstash-wxm-app", "eu": "logstash-wxm-app-eu1"},
			"int":  {"us": "logstash-wxm-app-int", "eu": "logstash-wxm-appeu-int"},
		},
		ServiceCalling: {
			"prod": {"us": "logstash-wxcalling", "eu": "logstash-wxcallingeuc1"},
			"int":  {"us": "logstash-wxcalling-int", "eu": "logstash-wxcalling-int"},
		},
	}
}

// DefaultEndpoints maps each built-in index to its search endpoint
func DefaultEndpoints() map[string]string {
	return map[string]string{
		"logstash-wxm-app":       "https://logs-api-ci-wxm-app.o.webex.com/",
		"logstash-wxcalling":     "https://logs-api-ci-wxcalling.o.webex.com/",
		"logstash-wxm-app-eu1":   "https://logs-api-ci-wxm-app-eu1.o.webex.com/",
		"logstash-wxcallingeuc1": "https://logs-api-ci-wxcalling-euc1.o.webex.com/",
		"logstash-wbx2-access":   "https://logs-api-ci-wbx2-access.o.webex.com/",
		"logstash-wxm-app-int":   "https://logs-api-ci-wxm-app.o-int.webex.com/",
		"logstash-wxcalling-int": "https://logs-api-ci-wxcalling.o-int.webex.com/",
		"logstash-wxm-appeu-int": "https://logs-api-ci-wxm-appeu.o-int.webex.com/",
	}
}

// Resolver looks up physical index names
type Resolver struct {
	table  IndexTable
	logger *zap.Logger
}

// NewResolver creates a resolver over table
func NewResolver(table IndexTable, logger *zap.Logger) *Resolver {
	if table == nil {
		table = DefaultIndexes()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{table: table, logger: logger}
}

// Resolve returns the index for (service, env, region). Unknown combinations
// return ok=false and are meant to be skipped.
func (r *Resolver) Resolve(service string, env domain.Environment, region string) (string, bool) {
	byEnv, ok := r.table[service]
	if !ok {
		return "", false
	}
	byRegion, ok := byEnv[string(env)]
	if !ok {
		return "", false
	}
	idx, ok := byRegion[strings.ToLower(region)]
	if !ok || idx == "" {
		return "", false
	}
	return idx, true
}

// ResolveAll resolves every env/region combination for service, in order,
// without duplicates
func (r *Resolver) ResolveAll(service string, envs []domain.Environment, regions []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, env := range envs {
		for _, region := range regions {
			idx, ok := r.Resolve(service, env, region)
			if !ok {
				r.logger.Debug("no index mapped",
					zap.String("service", service),
					zap.String("env", string(env)),
					zap.String("region", region))
				continue
			}
			if seen[idx] {
				continue
			}
			seen[idx] = true
			out = append(out, idx)
		}
	}
	return out
}

// EnvironmentOf derives the environment from an index name
func EnvironmentOf(index string) domain.Environment {
	if strings.HasSuffix(index, IntSuffix) {
		return domain.EnvInt
	}
	return domain.EnvProd
}
