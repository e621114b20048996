package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vburojevic/calltrace/internal/config"
	"github.com/vburojevic/calltrace/internal/domain"
	"github.com/vburojevic/calltrace/internal/intent"
)

// testGlobals creates a Globals struct with captured stdout/stderr
func testGlobals(format string) (*Globals, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return &Globals{
		Format:  format,
		Quiet:   false,
		Verbose: false,
		Stdout:  stdout,
		Stderr:  stderr,
		Config:  config.Default(),
		Logger:  zap.NewNop(),
	}, stdout, stderr
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	dec := json.NewDecoder(bytes.NewReader(buf.Bytes()))
	var out []map[string]interface{}
	for {
		var m map[string]interface{}
		err := dec.Decode(&m)
		if err == nil {
			out = append(out, m)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
	}
	return out
}

func byType(items []map[string]interface{}, typ string) []map[string]interface{} {
	var out []map[string]interface{}
	for _, m := range items {
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

// --- Config Command Tests ---

func TestConfigShowCmd_Run(t *testing.T) {
	t.Run("outputs config in text format", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")
		cmd := &ConfigShowCmd{}

		err := cmd.Run(globals)
		require.NoError(t, err)

		output := stdout.String()
		assert.Contains(t, output, "Current Configuration:")
		assert.Contains(t, output, "max_depth:")
		assert.Contains(t, output, "Credentials:")
		assert.Contains(t, output, "logstash-wxm-app ->")
	})

	t.Run("outputs config in NDJSON format", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &ConfigShowCmd{}

		err := cmd.Run(globals)
		require.NoError(t, err)

		var result map[string]interface{}
		err = json.Unmarshal(stdout.Bytes(), &result)
		require.NoError(t, err)

		assert.Equal(t, "config", result["type"])
		assert.Contains(t, result, "search")
		assert.Contains(t, result, "endpoints")
		creds := result["credentials"].(map[string]interface{})
		assert.Equal(t, "missing", creds["prod"])
	})

	t.Run("never prints secrets", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		globals.Config.Credentials.Prod.Password = "hunter2"
		globals.Config.Credentials.Int.Token = "secret-token"

		require.NoError(t, (&ConfigShowCmd{}).Run(globals))

		assert.NotContains(t, stdout.String(), "hunter2")
		assert.NotContains(t, stdout.String(), "secret-token")
		assert.Contains(t, stdout.String(), "preset_token")
	})
}

func TestConfigPathCmd_Run(t *testing.T) {
	t.Run("outputs path info in text format when no config", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")
		cmd := &ConfigPathCmd{}

		err := cmd.Run(globals)
		require.NoError(t, err)

		output := stdout.String()
		// Either shows the path or says no config found
		assert.True(t, strings.Contains(output, "Config file:") || strings.Contains(output, "No configuration file found"))
	})

	t.Run("outputs path in NDJSON format", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &ConfigPathCmd{}

		err := cmd.Run(globals)
		require.NoError(t, err)

		var result map[string]interface{}
		err = json.Unmarshal(stdout.Bytes(), &result)
		require.NoError(t, err)

		assert.Equal(t, "config_path", result["type"])
		assert.Contains(t, result, "path")
	})
}

func TestConfigGenerateCmd_Run(t *testing.T) {
	globals, stdout, _ := testGlobals("text")
	require.NoError(t, (&ConfigGenerateCmd{}).Run(globals))

	output := stdout.String()
	assert.Contains(t, output, "# calltrace configuration file")
	assert.Contains(t, output, "format: ndjson")
	assert.Contains(t, output, "max_depth: 3")

	// The sample must load back as a valid config
	path := filepath.Join(t.TempDir(), "calltrace.yaml")
	require.NoError(t, os.WriteFile(path, stdout.Bytes(), 0o600))
	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1000, cfg.Search.MaxTotalHits)
}

func TestVersionCmd_Run(t *testing.T) {
	globals, stdout, _ := testGlobals("ndjson")
	require.NoError(t, (&VersionCmd{}).Run(globals))

	items := decodeLines(t, stdout)
	require.Len(t, items, 1)
	assert.Equal(t, "metadata", items[0]["type"])
	assert.Equal(t, Version, items[0]["version"])
}

func TestResolveFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	assert.Equal(t, "ndjson", resolveFormat("ndjson", buf))
	assert.Equal(t, "text", resolveFormat("text", buf))
	assert.Equal(t, "ndjson", resolveFormat("auto", buf), "a buffer is not a terminal")
	assert.Equal(t, "ndjson", resolveFormat("", buf))
}

func TestNewGlobalsWithConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Quiet = true

	g := NewGlobalsWithConfig(&CLI{Format: "text"}, cfg)
	assert.True(t, g.Quiet)
	assert.Equal(t, "text", g.Format)
	assert.NotNil(t, g.Logger)
}

// --- Request parsing ---

func TestParseSeedArg(t *testing.T) {
	tests := []struct {
		name        string
		arg         string
		defaultType domain.IDType
		want        domain.Identifier
	}{
		{"labelled with equals", "session_id=abc123", "", domain.Identifier{Value: "abc123", Type: domain.IDTypeSession}},
		{"labelled with colon", "tracking:trk_abc_9", "", domain.Identifier{Value: "trk_abc_9", Type: domain.IDTypeTracking}},
		{"default type", "abc123", domain.IDTypeMobiusCall, domain.Identifier{Value: "abc123", Type: domain.IDTypeMobiusCall}},
		{"guessed edge call", "SSE0520080392@10.249.187.80", "", domain.Identifier{Value: "SSE0520080392@10.249.187.80", Type: domain.IDTypeEdgeCall}},
		{"unknown label stays in value", "foo=bar1", "", domain.Identifier{Value: "foo=bar1", Type: domain.IDTypeUnknown}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSeedArg(tt.arg, tt.defaultType))
		})
	}
}

func TestRequestFlags_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("config scope by default", func(t *testing.T) {
		cfg := config.Default()
		cfg.Search.Regions = []string{"EU"}
		f := &RequestFlags{IDs: []string{"session_id=abc123", "session_id=abc123"}}

		seeds, scope, err := f.resolve(ctx, cfg)
		require.NoError(t, err)
		require.Len(t, seeds, 1)
		assert.Equal(t, []domain.Environment{domain.EnvProd}, scope.Environments)
		assert.Equal(t, []string{"eu"}, scope.Regions)
	})

	t.Run("query adds seeds and scope", func(t *testing.T) {
		f := &RequestFlags{Query: "session id abc123 in int eu"}

		seeds, scope, err := f.resolve(ctx, config.Default())
		require.NoError(t, err)
		assert.Equal(t, []domain.Identifier{{Value: "abc123", Type: domain.IDTypeSession}}, seeds)
		assert.Equal(t, []domain.Environment{domain.EnvInt}, scope.Environments)
		assert.Equal(t, []string{"eu"}, scope.Regions)
	})

	t.Run("flags win over query", func(t *testing.T) {
		f := &RequestFlags{Query: "session id abc123 in int eu", Env: []string{"prod"}, Region: []string{"us"}}

		_, scope, err := f.resolve(ctx, config.Default())
		require.NoError(t, err)
		assert.Equal(t, []domain.Environment{domain.EnvProd}, scope.Environments)
		assert.Equal(t, []string{"us"}, scope.Regions)
	})

	t.Run("query without ids is fine when args name some", func(t *testing.T) {
		f := &RequestFlags{IDs: []string{"trace_id=tr-001122"}, Query: "in int"}

		seeds, _, err := f.resolve(ctx, config.Default())
		require.NoError(t, err)
		assert.Len(t, seeds, 1)
	})

	t.Run("nothing to search", func(t *testing.T) {
		_, _, err := (&RequestFlags{}).resolve(ctx, config.Default())
		assert.ErrorIs(t, err, intent.ErrNoIdentifiers)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, _, err := (&RequestFlags{IDs: []string{"x"}, Type: "bogus"}).resolve(ctx, config.Default())
		var cliErr *CLIError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, CodeInvalidFlags, cliErr.Code)
	})

	t.Run("unknown environment", func(t *testing.T) {
		_, _, err := (&RequestFlags{IDs: []string{"abc123"}, Env: []string{"staging"}}).resolve(ctx, config.Default())
		var cliErr *CLIError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, CodeInvalidFlags, cliErr.Code)
	})
}

// --- Error mapping ---

func TestCodeAndHint(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     string
		hintPart string
	}{
		{"no identifiers", intent.ErrNoIdentifiers, CodeNoIdentifiers, "calltrace search"},
		{"no credentials", domain.ErrNoCredentials, CodeNoCredentials, "OPENSEARCH_OAUTH_NAME"},
		{"unresolved", domain.ErrUnresolvedTarget, CodeUnresolvedTarget, "endpoints"},
		{"forbidden", &domain.TransportError{Index: "i", Status: 403, Err: errors.New("denied")}, CodeSearchFailed, "rejected the token"},
		{"unreachable", &domain.TransportError{Index: "i", Err: errors.New("dial")}, CodeSearchFailed, "could not be reached"},
		{"classifier", domain.ErrClassifier, CodeClassifierFailed, "JSON object"},
		{"cli error", &CLIError{Code: "X", Message: "m", Hint: "h"}, "X", "h"},
		{"other", errors.New("boom"), "FALLBACK", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, codeFor(tt.err, "FALLBACK"))
			if tt.hintPart == "" {
				assert.Empty(t, hintFor(tt.err))
			} else {
				assert.Contains(t, hintFor(tt.err), tt.hintPart)
			}
		})
	}
}

func TestOutputErrorCommon(t *testing.T) {
	t.Run("ndjson", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		err := outputErrorCommon(globals, "FALLBACK", domain.ErrNoCredentials)

		var cliErr *CLIError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, CodeNoCredentials, cliErr.Code)

		items := decodeLines(t, stdout)
		require.Len(t, items, 1)
		assert.Equal(t, "error", items[0]["type"])
		assert.Equal(t, CodeNoCredentials, items[0]["code"])
		assert.NotEmpty(t, items[0]["hint"])
	})

	t.Run("text", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")
		_ = outputErrorCommon(globals, "FALLBACK", errors.New("boom"))
		assert.Contains(t, stdout.String(), "[FALLBACK]")
		assert.Contains(t, stdout.String(), "boom")
	})
}

// --- Search and plan against a fake cluster ---

type fakeCluster struct {
	mu    sync.Mutex
	auth  []string
	paths []string
}

func hitsJSON(hits ...string) string {
	return `{"hits":{"total":{"value":` + strconv.Itoa(len(hits)) + `},"hits":[` + strings.Join(hits, ",") + `]}}`
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	index := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")[0]

	f.mu.Lock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	f.paths = append(f.paths, r.URL.Path)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	q := string(body)
	switch {
	case index == "logstash-wxm-app" && strings.Contains(q, "trk_abc_9"):
		io.WriteString(w, hitsJSON(`{"_id":"h1","_source":{"@timestamp":"2025-12-11T10:00:00Z","message":"register","fields":{"localSessionId":"SESS-0001","remoteSessionId":"null"}}}`))
	case index == "logstash-wxm-app" && strings.Contains(q, "SESS-0001"):
		io.WriteString(w, hitsJSON(`{"_id":"h2","_source":{"@timestamp":"2025-12-11T10:00:01Z","message":"session up"}}`))
	case index == "logstash-wxcalling" && strings.Contains(q, "SESS-0001"):
		io.WriteString(w, hitsJSON(`{"_id":"h3","_source":{"@timestamp":"2025-12-11T10:00:02Z","message":"INVITE from SSE0520080392@10.1.2.3","tags":["sse"]}}`))
	default:
		io.WriteString(w, hitsJSON())
	}
}

func clusterConfig(t *testing.T, handler http.Handler) *config.Config {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	for idx := range cfg.Endpoints {
		cfg.Endpoints[idx] = srv.URL
	}
	cfg.Credentials.Prod.Token = "test-token"
	return cfg
}

func TestSearchCmd_FollowsIdentifiers(t *testing.T) {
	cluster := &fakeCluster{}
	globals, stdout, _ := testGlobals("ndjson")
	globals.Config = clusterConfig(t, cluster)
	metricsPath := filepath.Join(t.TempDir(), "calltrace.prom")

	cmd := &SearchCmd{
		RequestFlags:    RequestFlags{IDs: []string{"tracking_id=trk_abc_9"}},
		MaxDepth:        -1,
		Records:         true,
		MetricsTextfile: metricsPath,
	}
	require.NoError(t, cmd.run(context.Background(), globals, nil))

	items := decodeLines(t, stdout)
	require.NotEmpty(t, items)
	assert.Equal(t, "info", items[0]["type"])
	assert.Equal(t, "summary", items[len(items)-1]["type"])

	assert.Len(t, byType(items, "record"), 3)

	var discovered []string
	for _, id := range byType(items, "identifier") {
		discovered = append(discovered, id["value"].(string))
	}
	assert.Equal(t, []string{"SESS-0001", "SSE0520080392@10.1.2.3"}, discovered, "sentinel remoteSessionId is never followed")

	summary := byType(items, "summary")[0]
	assert.Equal(t, "drained", summary["stop"])
	assert.EqualValues(t, 2, summary["max_depth_reached"])
	assert.EqualValues(t, 3, summary["total_identifiers_searched"])
	perCat := summary["total_hits_per_category"].(map[string]interface{})
	assert.EqualValues(t, 2, perCat["mobius"])
	assert.EqualValues(t, 1, perCat["sse_mse"])
	assert.EqualValues(t, 0, perCat["wxcas"])

	for _, a := range cluster.auth {
		assert.Equal(t, "Bearer test-token", a)
	}

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "calltrace_search_requests_total")
}

func TestSearchCmd_QuietSkipsProgress(t *testing.T) {
	globals, stdout, _ := testGlobals("ndjson")
	globals.Quiet = true
	globals.Config = clusterConfig(t, &fakeCluster{})

	cmd := &SearchCmd{RequestFlags: RequestFlags{IDs: []string{"tracking_id=trk_abc_9"}}, MaxDepth: -1}
	require.NoError(t, cmd.run(context.Background(), globals, nil))

	items := decodeLines(t, stdout)
	assert.Empty(t, byType(items, "info"))
	assert.Empty(t, byType(items, "depth"))
	assert.Empty(t, byType(items, "record"), "records are off unless requested")
	assert.Len(t, byType(items, "summary"), 1)
}

func TestSearchCmd_NoCredentialsStillSummarizes(t *testing.T) {
	globals, stdout, _ := testGlobals("ndjson")
	globals.Config = clusterConfig(t, &fakeCluster{})
	globals.Config.Credentials.Prod.Token = ""

	cmd := &SearchCmd{RequestFlags: RequestFlags{IDs: []string{"tracking_id=trk_abc_9"}}, MaxDepth: -1}
	require.NoError(t, cmd.run(context.Background(), globals, nil))

	items := decodeLines(t, stdout)
	warnings := byType(items, "warning")
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[0]["message"], "every search failed")

	history := byType(items, "history")
	require.Len(t, history, 1)
	assert.Equal(t, true, history[0]["failed"])

	summary := byType(items, "summary")
	require.Len(t, summary, 1)
	assert.EqualValues(t, 0, summary[0]["max_depth_reached"])
}

func TestSearchCmd_NoIdentifiers(t *testing.T) {
	globals, stdout, _ := testGlobals("ndjson")

	err := (&SearchCmd{MaxDepth: -1}).run(context.Background(), globals, nil)
	var cliErr *CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, CodeNoIdentifiers, cliErr.Code)
	assert.Equal(t, "error", decodeLines(t, stdout)[0]["type"])
}

func TestSearchCmd_OnlySentinelSeeds(t *testing.T) {
	globals, _, _ := testGlobals("ndjson")
	globals.Config = clusterConfig(t, &fakeCluster{})

	err := (&SearchCmd{RequestFlags: RequestFlags{IDs: []string{"session_id=null"}}, MaxDepth: -1}).run(context.Background(), globals, nil)
	var cliErr *CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, CodeNoSeeds, cliErr.Code)
}

func TestSearchCmd_Canceled(t *testing.T) {
	globals, stdout, _ := testGlobals("ndjson")
	globals.Config = clusterConfig(t, &fakeCluster{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := (&SearchCmd{RequestFlags: RequestFlags{IDs: []string{"tracking_id=trk_abc_9"}}, MaxDepth: -1}).run(ctx, globals, nil)
	var cliErr *CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, CodeTraversalCanceled, cliErr.Code)

	summary := byType(decodeLines(t, stdout), "summary")
	require.Len(t, summary, 1)
	assert.Equal(t, "canceled", summary[0]["stop"])
}

func TestSearchCmd_Limits(t *testing.T) {
	globals, _, _ := testGlobals("ndjson")
	globals.Config.Search.MaxDepth = 5
	globals.Config.Search.Concurrency = 4

	depth, hits, conc := (&SearchCmd{MaxDepth: -1, MaxHits: 10}).limits(globals)
	assert.Equal(t, 5, depth)
	assert.Equal(t, 10, hits)
	assert.Equal(t, 4, conc)

	t.Run("zero depth is kept", func(t *testing.T) {
		depth, _, _ := (&SearchCmd{MaxDepth: 0}).limits(globals)
		assert.Equal(t, 0, depth)
	})
}

func TestPlanCmd_Run(t *testing.T) {
	t.Run("session fans out to two services", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &PlanCmd{RequestFlags: RequestFlags{IDs: []string{"session_id=SESS-0001"}}}
		require.NoError(t, cmd.Run(globals))

		targets := byType(decodeLines(t, stdout), "target")
		require.Len(t, targets, 2)
		assert.Equal(t, "logstash-wxm-app", targets[0]["index"])
		assert.Equal(t, "mobius", targets[0]["category"])
		assert.Equal(t, "logstash-wxcalling", targets[1]["index"])
		assert.Equal(t, "sse_mse", targets[1]["category"])
	})

	t.Run("both environments", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &PlanCmd{RequestFlags: RequestFlags{IDs: []string{"abc123"}, Type: "tracking_id", Env: []string{"prod", "int"}}}
		require.NoError(t, cmd.Run(globals))

		var indexes []string
		for _, target := range byType(decodeLines(t, stdout), "target") {
			indexes = append(indexes, target["index"].(string))
		}
		assert.Equal(t, []string{"logstash-wxm-app", "logstash-wxm-app-int"}, indexes)
	})

	t.Run("placeholder only", func(t *testing.T) {
		globals, _, _ := testGlobals("ndjson")
		err := (&PlanCmd{RequestFlags: RequestFlags{IDs: []string{"session_id=N/A"}}}).Run(globals)
		var cliErr *CLIError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, CodeNoSeeds, cliErr.Code)
	})
}

func TestTokenCmd_Run(t *testing.T) {
	t.Run("preset token is fresh", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		globals.Config.Credentials.Prod.Token = "preset"

		require.NoError(t, (&TokenCmd{Env: []string{"prod"}}).Run(globals))

		items := byType(decodeLines(t, stdout), "token")
		require.Len(t, items, 1)
		assert.Equal(t, "prod", items[0]["environment"])
		assert.Equal(t, true, items[0]["fresh"])
		assert.NotContains(t, stdout.String(), "preset\"")
	})

	t.Run("missing credentials", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")

		err := (&TokenCmd{}).Run(globals)
		var cliErr *CLIError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, CodeTokenFailed, cliErr.Code)

		items := byType(decodeLines(t, stdout), "token")
		require.Len(t, items, 2)
		for _, item := range items {
			assert.Equal(t, false, item["configured"])
			assert.Contains(t, item["error"], "missing")
		}
	})

	t.Run("bad environment", func(t *testing.T) {
		globals, _, _ := testGlobals("ndjson")
		err := (&TokenCmd{Env: []string{"dev"}}).Run(globals)
		var cliErr *CLIError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, CodeInvalidFlags, cliErr.Code)
	})
}
