package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/vburojevic/calltrace/internal/config"
	"github.com/vburojevic/calltrace/internal/domain"
)

// ConfigCmd shows or manages configuration
type ConfigCmd struct {
	Show     ConfigShowCmd     `cmd:"" default:"withargs" help:"Show current configuration"`
	Path     ConfigPathCmd     `cmd:"" help:"Show configuration file path"`
	Generate ConfigGenerateCmd `cmd:"" help:"Generate sample configuration file"`
}

// ConfigShowCmd shows current configuration. Secrets are never printed.
type ConfigShowCmd struct{}

// credentialStatus reports which credential sources an environment has
func credentialStatus(cfg *config.Config) map[string]string {
	out := make(map[string]string)
	for env, c := range cfg.CredentialsByEnv() {
		switch {
		case c.Complete():
			out[string(env)] = "exchange"
		case c.Token != "":
			out[string(env)] = "preset_token"
		default:
			out[string(env)] = "missing"
		}
	}
	return out
}

// Run executes the config show command
func (c *ConfigShowCmd) Run(globals *Globals) error {
	cfg := globals.Config
	if cfg == nil {
		cfg = config.Default()
	}

	if globals.Format == "ndjson" {
		output := map[string]interface{}{
			"type":        "config",
			"format":      cfg.Format,
			"quiet":       cfg.Quiet,
			"verbose":     cfg.Verbose,
			"search":      cfg.Search,
			"filters":     cfg.Filters,
			"classifier":  cfg.Classifier,
			"credentials": credentialStatus(cfg),
			"indexes":     cfg.Indexes,
			"endpoints":   cfg.Endpoints,
			"config_file": config.ConfigFile(),
		}
		encoder := json.NewEncoder(globals.Stdout)
		encoder.SetEscapeHTML(false)
		return encoder.Encode(output)
	}

	// Text output
	s := cfg.Search
	fmt.Fprintln(globals.Stdout, "Current Configuration:")
	fmt.Fprintln(globals.Stdout, "")
	fmt.Fprintf(globals.Stdout, "  format:  %s\n", cfg.Format)
	fmt.Fprintf(globals.Stdout, "  quiet:   %v\n", cfg.Quiet)
	fmt.Fprintf(globals.Stdout, "  verbose: %v\n", cfg.Verbose)
	fmt.Fprintln(globals.Stdout, "")
	fmt.Fprintln(globals.Stdout, "Search:")
	fmt.Fprintf(globals.Stdout, "  max_depth:      %d\n", s.MaxDepth)
	fmt.Fprintf(globals.Stdout, "  max_total_hits: %d\n", s.MaxTotalHits)
	fmt.Fprintf(globals.Stdout, "  result_size:    %d\n", s.ResultSize)
	fmt.Fprintf(globals.Stdout, "  timeout:        %s\n", s.Timeout)
	fmt.Fprintf(globals.Stdout, "  time_padding:   %s\n", s.TimePadding)
	fmt.Fprintf(globals.Stdout, "  concurrency:    %d\n", s.Concurrency)
	fmt.Fprintf(globals.Stdout, "  environments:   %s\n", strings.Join(s.Environments, ","))
	fmt.Fprintf(globals.Stdout, "  regions:        %s\n", strings.Join(s.Regions, ","))
	fmt.Fprintf(globals.Stdout, "  include_types:  %s\n", strings.Join(s.IncludeTypes, ","))
	fmt.Fprintln(globals.Stdout, "")
	fmt.Fprintln(globals.Stdout, "Credentials:")
	status := credentialStatus(cfg)
	for _, env := range []domain.Environment{domain.EnvProd, domain.EnvInt} {
		fmt.Fprintf(globals.Stdout, "  %-5s %s\n", env+":", status[string(env)])
	}
	fmt.Fprintln(globals.Stdout, "")
	fmt.Fprintf(globals.Stdout, "Filters:\n  sentinels: %v\n  skip_prefixes: %v\n", cfg.Filters.Sentinels, cfg.Filters.SkipPrefixes)
	if len(cfg.Filters.ExcludePatterns) > 0 {
		fmt.Fprintf(globals.Stdout, "  exclude_patterns: %v\n", cfg.Filters.ExcludePatterns)
	}
	if cfg.Classifier.Command != "" {
		fmt.Fprintf(globals.Stdout, "\nClassifier:\n  command: %s\n  timeout: %s\n", cfg.Classifier.Command, cfg.Classifier.Timeout)
	}

	fmt.Fprintln(globals.Stdout, "")
	fmt.Fprintln(globals.Stdout, "Endpoints:")
	indexes := make([]string, 0, len(cfg.Endpoints))
	for idx := range cfg.Endpoints {
		indexes = append(indexes, idx)
	}
	sort.Strings(indexes)
	for _, idx := range indexes {
		fmt.Fprintf(globals.Stdout, "  %s -> %s\n", idx, cfg.Endpoints[idx])
	}

	if path := config.ConfigFile(); path != "" {
		fmt.Fprintln(globals.Stdout, "")
		fmt.Fprintf(globals.Stdout, "Loaded from: %s\n", path)
	}

	return nil
}

// ConfigPathCmd shows config file path
type ConfigPathCmd struct{}

// Run executes the config path command
func (c *ConfigPathCmd) Run(globals *Globals) error {
	path := config.ConfigFile()

	if globals.Format == "ndjson" {
		output := map[string]interface{}{
			"type": "config_path",
			"path": path,
		}
		encoder := json.NewEncoder(globals.Stdout)
		return encoder.Encode(output)
	}

	if path == "" {
		fmt.Fprintln(globals.Stdout, "No configuration file found")
		fmt.Fprintln(globals.Stdout, "")
		fmt.Fprintln(globals.Stdout, "Create one at:")
		fmt.Fprintln(globals.Stdout, "  ./.calltrace.yaml")
		fmt.Fprintln(globals.Stdout, "  ~/.calltrace.yaml")
		fmt.Fprintln(globals.Stdout, "  ~/.config/calltrace/config.yaml")
	} else {
		fmt.Fprintf(globals.Stdout, "Config file: %s\n", path)
	}

	return nil
}

// ConfigGenerateCmd generates a sample configuration file
type ConfigGenerateCmd struct{}

// Run executes the config generate command
func (c *ConfigGenerateCmd) Run(globals *Globals) error {
	sampleConfig := `# calltrace configuration file
# Place this file at ./.calltrace.yaml, ~/.calltrace.yaml or ~/.config/calltrace/config.yaml

# Output format: "ndjson" (default), "text" or "auto"
format: ndjson

# Suppress progress output (records and the summary are still written)
quiet: false

# Enable debug logs on stderr
verbose: false

search:
  # Deepest BFS level; the seeds are level 0
  max_depth: 3

  # No new depth starts once this many records are collected
  max_total_hits: 1000

  # Hits requested per search
  result_size: 10000

  # Deadline of a single search request
  timeout: 50m

  # Padding around the first batch's timestamps for free-text searches
  time_padding: 2h

  # Message prefix kept when records are handed to the classifier
  message_prefix: 1500

  # In-flight searches per depth, 0 = unbounded
  concurrency: 0

  environments: [prod]
  regions: [us]

  # Identifier types followed after the seed level
  # include_types: [tracking_id, session_id, mobius_call_id, sip_call_id, sse_call_id, call_id, trace_id]

credentials:
  refresh_buffer: 5m
  default_lifetime: 1h
  http_timeout: 30s
  # Usually set through OPENSEARCH_OAUTH_* (and OPENSEARCH_OAUTH_*_INT) instead
  # prod:
  #   name: machine-account
  #   password: secret
  #   client_id: client
  #   client_secret: secret
  #   scope: "spark:all"
  #   bearer_token_url: https://idbroker.example.com/idb/token/v2/actions/GetBearerToken/invoke
  #   token_url: https://idbroker.example.com/idb/oauth2/v1/access_token
  #   token: pre-issued-access-token

filters:
  # Placeholder values never searched for (exact match)
  sentinels:
    - "0000000000000000"
    - "00000000000000000000000000000000"
    - "00000000-0000-0000-0000-000000000000"
    - ""
    - "null"
    - None
    - none
    - N/A
    - n/a
    - unknown
  skip_prefixes: [NA_]
  # exclude_patterns: ["^test-"]

classifier:
  # Run through sh -c with condensed records on stdin; must print
  # {"session_ids": [...], "tracking_ids": [...], ...}
  # command: ./bin/extract-ids
  timeout: 2m

# Extra or replacement index URLs
# endpoints:
#   logstash-wxm-app: https://logs.example.com/esapi

# Replace the built-in targets of one identifier type
# targets:
#   trace_id:
#     - service: wxm_app
#       kind: contains
#       field: message
#       category: mobius
`

	fmt.Fprint(globals.Stdout, sampleConfig)
	return nil
}
