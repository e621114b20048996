package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vburojevic/calltrace/internal/auth"
	"github.com/vburojevic/calltrace/internal/classify"
	"github.com/vburojevic/calltrace/internal/domain"
	"github.com/vburojevic/calltrace/internal/filter"
	"github.com/vburojevic/calltrace/internal/plan"
	"github.com/vburojevic/calltrace/internal/query"
)

// Config holds application configuration
type Config struct {
	// Global settings
	Format  string `mapstructure:"format"`
	Quiet   bool   `mapstructure:"quiet"`
	Verbose bool   `mapstructure:"verbose"`

	Search      SearchConfig      `mapstructure:"search"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Filters     FiltersConfig     `mapstructure:"filters"`
	Classifier  ClassifierConfig  `mapstructure:"classifier"`

	// service -> env -> region -> index; a service listed here replaces
	// its built-in layout
	Indexes plan.IndexTable `mapstructure:"indexes"`
	// index -> base URL, merged over the built-in endpoints
	Endpoints map[string]string `mapstructure:"endpoints"`
	// identifier type -> targets, replacing the built-in entry for that type
	Targets map[string][]plan.TargetSpec `mapstructure:"targets"`
}

// SearchConfig bounds a traversal
type SearchConfig struct {
	MaxDepth      int           `mapstructure:"max_depth"`
	MaxTotalHits  int           `mapstructure:"max_total_hits"`
	ResultSize    int           `mapstructure:"result_size"`
	Timeout       time.Duration `mapstructure:"timeout"`
	TimePadding   time.Duration `mapstructure:"time_padding"`
	MessagePrefix int           `mapstructure:"message_prefix"`
	Concurrency   int           `mapstructure:"concurrency"`
	Environments  []string      `mapstructure:"environments"`
	Regions       []string      `mapstructure:"regions"`
	IncludeTypes  []string      `mapstructure:"include_types"`
}

// CredentialsConfig holds the per-environment service credentials
type CredentialsConfig struct {
	RefreshBuffer   time.Duration    `mapstructure:"refresh_buffer"`
	DefaultLifetime time.Duration    `mapstructure:"default_lifetime"`
	HTTPTimeout     time.Duration    `mapstructure:"http_timeout"`
	Prod            auth.Credentials `mapstructure:"prod"`
	Int             auth.Credentials `mapstructure:"int"`
}

// FiltersConfig lists the placeholder conventions of the log producers
type FiltersConfig struct {
	Sentinels       []string `mapstructure:"sentinels"`
	SkipPrefixes    []string `mapstructure:"skip_prefixes"`
	ExcludePatterns []string `mapstructure:"exclude_patterns"`
}

// ClassifierConfig selects the identifier classifier
type ClassifierConfig struct {
	// Command is run through sh -c; empty means rule-based only
	Command string        `mapstructure:"command"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Format: "ndjson",
		Search: SearchConfig{
			MaxDepth:      3,
			MaxTotalHits:  1000,
			ResultSize:    query.DefaultSize,
			Timeout:       50 * time.Minute,
			TimePadding:   2 * time.Hour,
			MessagePrefix: 1500,
			Environments:  []string{string(domain.EnvProd)},
			Regions:       []string{"us"},
			IncludeTypes:  typeNames(classify.DefaultIncludeTypes()),
		},
		Credentials: CredentialsConfig{
			RefreshBuffer:   auth.DefaultRefreshBuffer,
			DefaultLifetime: auth.DefaultLifetime,
			HTTPTimeout:     auth.DefaultHTTPTimeout,
		},
		Filters: FiltersConfig{
			Sentinels:    append([]string(nil), filter.DefaultSentinels...),
			SkipPrefixes: append([]string(nil), filter.DefaultSkipPrefixes...),
		},
		Classifier: ClassifierConfig{
			Timeout: 2 * time.Minute,
		},
		Indexes:   plan.DefaultIndexes(),
		Endpoints: plan.DefaultEndpoints(),
	}
}

func typeNames(types []domain.IDType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

// Load loads configuration from files and environment
// Config file search order (highest precedence first):
// 1. ./.calltrace.yaml or ./.calltrace.yml
// 2. ~/.calltrace.yaml or ~/.calltrace.yml
// 3. $XDG_CONFIG_HOME/calltrace/config.yaml (or ~/.config/calltrace/config.yaml)
// 4. /etc/calltrace/config.yaml
func Load() (*Config, error) {
	cfg := Default()

	if configFile := findConfigFile(); configFile != "" {
		if err := readInto(cfg, configFile); err != nil {
			return nil, err
		}
	}

	// Override with environment variables
	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	if err := readInto(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readInto(cfg *Config, path string) error {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	return v.Unmarshal(cfg)
}

// ConfigFile returns the path to the config file that would be loaded
func ConfigFile() string {
	return findConfigFile()
}

// findConfigFile searches for config file in standard locations
func findConfigFile() string {
	names := []string{".calltrace.yaml", ".calltrace.yml", "calltrace.yaml", "calltrace.yml"}

	var searchPaths []string

	// 1. Current directory
	if cwd, err := os.Getwd(); err == nil {
		searchPaths = append(searchPaths, cwd)
	}

	// 2. Home directory
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, home)
	}

	// 3. Config directory (e.g., ~/.config/calltrace/)
	if configDir, err := os.UserConfigDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(configDir, "calltrace"))
	}

	// 4. System config
	searchPaths = append(searchPaths, "/etc/calltrace")

	for i, dir := range searchPaths {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
		// config.yaml only counts inside the dedicated directories
		if i >= len(searchPaths)-2 {
			path := filepath.Join(dir, "config.yaml")
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}

	return ""
}

// credentialVars maps OPENSEARCH_OAUTH_<NAME> to the field it sets
var credentialVars = map[string]func(c *auth.Credentials, v string){
	"NAME":             func(c *auth.Credentials, v string) { c.Name = v },
	"PASSWORD":         func(c *auth.Credentials, v string) { c.Password = v },
	"CLIENT_ID":        func(c *auth.Credentials, v string) { c.ClientID = v },
	"CLIENT_SECRET":    func(c *auth.Credentials, v string) { c.ClientSecret = v },
	"SCOPE":            func(c *auth.Credentials, v string) { c.Scope = v },
	"BEARER_TOKEN_URL": func(c *auth.Credentials, v string) { c.BearerTokenURL = v },
	"TOKEN_URL":        func(c *auth.Credentials, v string) { c.TokenURL = v },
	"TOKEN":            func(c *auth.Credentials, v string) { c.Token = v },
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CALLTRACE_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("CALLTRACE_QUIET"); v == "true" || v == "1" {
		cfg.Quiet = true
	}
	if v := os.Getenv("CALLTRACE_VERBOSE"); v == "true" || v == "1" {
		cfg.Verbose = true
	}
	if n, err := strconv.Atoi(os.Getenv("CALLTRACE_MAX_DEPTH")); err == nil && n >= 0 {
		cfg.Search.MaxDepth = n
	}
	if n, err := strconv.Atoi(os.Getenv("CALLTRACE_MAX_TOTAL_HITS")); err == nil && n > 0 {
		cfg.Search.MaxTotalHits = n
	}
	if v := os.Getenv("CALLTRACE_CLASSIFIER_COMMAND"); v != "" {
		cfg.Classifier.Command = v
	}

	for name, set := range credentialVars {
		if v := os.Getenv("OPENSEARCH_OAUTH_" + name); v != "" {
			set(&cfg.Credentials.Prod, v)
		}
		if v := os.Getenv("OPENSEARCH_OAUTH_" + name + auth.EnvSuffix(domain.EnvInt)); v != "" {
			set(&cfg.Credentials.Int, v)
		}
	}
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	switch c.Format {
	case "ndjson", "text", "auto":
	default:
		return fmt.Errorf("format must be ndjson, text or auto, got %q", c.Format)
	}
	if c.Search.MaxDepth < 0 {
		return fmt.Errorf("search.max_depth must not be negative")
	}
	if c.Search.MaxTotalHits < 0 {
		return fmt.Errorf("search.max_total_hits must not be negative")
	}
	if _, err := c.Environments(); err != nil {
		return err
	}
	if _, err := c.TargetTable(); err != nil {
		return err
	}
	return nil
}

// Environments returns the configured search environments
func (c *Config) Environments() ([]domain.Environment, error) {
	out := make([]domain.Environment, 0, len(c.Search.Environments))
	for _, s := range c.Search.Environments {
		env, ok := domain.ParseEnvironment(s)
		if !ok {
			return nil, fmt.Errorf("unknown environment %q (want prod or int)", s)
		}
		out = append(out, env)
	}
	return out, nil
}

// IncludeTypes returns the identifier types the traversal expands
func (c *Config) IncludeTypes() []domain.IDType {
	out := make([]domain.IDType, 0, len(c.Search.IncludeTypes))
	for _, s := range c.Search.IncludeTypes {
		if t := domain.ParseIDType(s); t != domain.IDTypeUnknown {
			out = append(out, t)
		}
	}
	return out
}

// CredentialsByEnv returns credentials keyed by environment
func (c *Config) CredentialsByEnv() map[domain.Environment]auth.Credentials {
	return map[domain.Environment]auth.Credentials{
		domain.EnvProd: c.Credentials.Prod,
		domain.EnvInt:  c.Credentials.Int,
	}
}

// TargetTable returns the built-in target table with configured overrides
func (c *Config) TargetTable() (plan.TargetTable, error) {
	table := plan.DefaultTargets()
	for name, specs := range c.Targets {
		t := domain.ParseIDType(name)
		if t == domain.IDTypeUnknown && !strings.EqualFold(name, string(domain.IDTypeUnknown)) {
			return nil, fmt.Errorf("targets: unknown identifier type %q", name)
		}
		normalized := make([]plan.TargetSpec, 0, len(specs))
		for _, s := range specs {
			kind, ok := query.ParseKind(string(s.Kind))
			if !ok {
				return nil, fmt.Errorf("targets.%s: unknown kind %q", name, s.Kind)
			}
			s.Kind = kind
			normalized = append(normalized, s)
		}
		table[t] = normalized
	}
	return table, nil
}
