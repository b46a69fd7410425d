package openapi2mcp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"
)

// remote is an httptest double that counts and records requests.
type remote struct {
	*httptest.Server
	hits atomic.Int64

	mu   sync.Mutex
	last recorded
}

type recorded struct {
	method string
	uri    string
	auth   string
	body   string
}

func newRemote(t testing.TB, status int, body string) *remote {
	t.Helper()
	r := &remote{}
	r.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.hits.Add(1)
		payload, _ := io.ReadAll(req.Body)
		r.mu.Lock()
		r.last = recorded{method: req.Method, uri: req.RequestURI, auth: req.Header.Get("Authorization"), body: string(payload)}
		r.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(r.Close)
	return r
}

func (r *remote) lastRequest() recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

type recordingMetrics struct {
	mu       sync.Mutex
	outcomes map[string]string
	denied   []string
}

func (m *recordingMetrics) ObserveInvocation(tool, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = map[string]string{}
	}
	m.outcomes[tool] = outcome
}

func (m *recordingMetrics) PolicyDenied(tool string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied = append(m.denied, tool)
}

const sitesSpec = `{
  "openapi": "3.0.0",
  "info": {"title": "Sites", "version": "1"},
  "paths": {
    "/orgs/{orgId}/sites": {"get": {"parameters": [{"name": "orgId", "in": "path", "required": true, "schema": {"type": "string"}}]}},
    "/orgs/{orgId}": {"delete": {"parameters": [{"name": "orgId", "in": "path", "required": true, "schema": {"type": "string"}}]}}
  }
}`

func newBridge(t testing.TB, spec, baseURL string, readOnly bool, opts ...Option) *Bridge {
	t.Helper()
	reg, err := Synthesize(loadFixture(t, spec), nil)
	require.NoError(t, err)
	b, err := New(reg, Config{BaseURL: baseURL, APIKey: testAPIKey, ReadOnly: readOnly}, opts...)
	require.NoError(t, err)
	return b
}

func TestBridge_ReadOnlyGet(t *testing.T) {
	r := newRemote(t, http.StatusOK, `{"sites":[]}`)
	b := newBridge(t, sitesSpec, r.URL+"/v1", true)

	out, err := b.Invoke(context.Background(), "orgs_by_orgId_sites", map[string]any{"orgId": "42"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"sites":[]}`, string(out.Body))

	got := r.lastRequest()
	assert.Equal(t, int64(1), r.hits.Load())
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/v1/orgs/42/sites", got.uri)
	assert.Equal(t, "Bearer "+testAPIKey, got.auth)
	assert.Empty(t, got.body)
}

func TestBridge_ReadOnlyDeleteDenied(t *testing.T) {
	r := newRemote(t, http.StatusOK, `{}`)
	metrics := &recordingMetrics{}
	b := newBridge(t, sitesSpec, r.URL, true, WithMetrics(metrics))

	_, err := b.Invoke(context.Background(), "delete_orgs_by_orgId", map[string]any{"orgId": "42"})
	var denied *PolicyDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "write operation not allowed in read-only mode", err.Error())
	assert.Equal(t, KindPolicyDenied, ErrorKind(err))
	assert.Zero(t, r.hits.Load())
	assert.Equal(t, []string{"delete_orgs_by_orgId"}, metrics.denied)
	assert.Equal(t, KindPolicyDenied, metrics.outcomes["delete_orgs_by_orgId"])
}

func TestBridge_DeniedBeforeValidation(t *testing.T) {
	r := newRemote(t, http.StatusOK, `{}`)
	b := newBridge(t, sitesSpec, r.URL, true)

	_, err := b.Invoke(context.Background(), "delete_orgs_by_orgId", nil)
	assert.Equal(t, KindPolicyDenied, ErrorKind(err))
	assert.Zero(t, r.hits.Load())
}

func TestBridge_ReadWriteDelete(t *testing.T) {
	r := newRemote(t, http.StatusOK, ``)
	b := newBridge(t, sitesSpec, r.URL, false)

	out, err := b.Invoke(context.Background(), "delete_orgs_by_orgId", map[string]any{"orgId": "42"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success"}`, string(out.Body))
	assert.Equal(t, http.MethodDelete, r.lastRequest().method)
}

func TestBridge_MissingRequiredArgument(t *testing.T) {
	r := newRemote(t, http.StatusOK, `{}`)
	b := newBridge(t, sitesSpec, r.URL, true)

	_, err := b.Invoke(context.Background(), "orgs_by_orgId_sites", map[string]any{})
	var invalid *InvalidArgumentError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "orgId", invalid.Name)
	assert.Zero(t, r.hits.Load())
}

func TestBridge_EmptyRequiredQueryArray(t *testing.T) {
	r := newRemote(t, http.StatusOK, `{}`)
	b := newBridge(t, `{
  "openapi": "3.0.0",
  "paths": {"/x": {"get": {"parameters": [
    {"name": "ids", "in": "query", "required": true, "schema": {"type": "array", "items": {"type": "string"}}}
  ]}}}
}`, r.URL, true)

	_, err := b.Invoke(context.Background(), "x", map[string]any{"ids": []any{}})
	var invalid *InvalidArgumentError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "ids", invalid.Name)
	assert.Equal(t, "required parameter is missing", invalid.Reason)
	assert.Zero(t, r.hits.Load())

	_, err = b.Invoke(context.Background(), "x", map[string]any{"ids": []any{"a"}})
	require.NoError(t, err)
	assert.Equal(t, "/x?ids=a", r.lastRequest().uri)
}

func TestBridge_HeaderInjectionIsInvalidArgument(t *testing.T) {
	r := newRemote(t, http.StatusOK, `{}`)
	b := newBridge(t, pangolinSpec, r.URL, true)

	_, err := b.Invoke(context.Background(), "orgs_by_orgId_sites", map[string]any{
		"orgId":            "42",
		"X-Request-Source": "a\r\nX-Injected: 1",
	})
	assert.Equal(t, KindInvalidArgument, ErrorKind(err))
	var transportErr *TransportError
	assert.NotErrorAs(t, err, &transportErr)
	assert.Zero(t, r.hits.Load())
}

func TestBridge_APIError401(t *testing.T) {
	r := newRemote(t, http.StatusUnauthorized, `{"error":"Unauthorized"}`)
	b := newBridge(t, sitesSpec, r.URL, true)

	_, err := b.Invoke(context.Background(), "orgs_by_orgId_sites", map[string]any{"orgId": "42"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, `{"error":"Unauthorized"}`, string(apiErr.Body))
	var transportErr *TransportError
	assert.NotErrorAs(t, err, &transportErr)
}

func TestBridge_UnknownTool(t *testing.T) {
	m := &recordingMetrics{}
	b := newBridge(t, sitesSpec, "https://api.example.com", false, WithMetrics(m))
	for _, name := range []string{"drop_everything", "drop_everything_else"} {
		_, err := b.Invoke(context.Background(), name, nil)
		assert.ErrorIs(t, err, ErrUnknownTool)
		assert.Equal(t, KindUnknownTool, ErrorKind(err))
	}
	assert.Equal(t, map[string]string{UnknownToolLabel: KindUnknownTool}, m.outcomes)
}

func TestBridge_AuditLogNeverCarriesKey(t *testing.T) {
	r := newRemote(t, http.StatusOK, `{}`)
	core, logs := observer.New(zap.InfoLevel)
	b := newBridge(t, sitesSpec, r.URL, true, WithLogger(zap.New(core)))

	_, err := b.Invoke(context.Background(), "orgs_by_orgId_sites", map[string]any{"orgId": "42"})
	require.NoError(t, err)
	_, _ = b.Invoke(context.Background(), "delete_orgs_by_orgId", map[string]any{"orgId": "42"})

	entries := logs.FilterMessage("tool invocation").All()
	require.Len(t, entries, 2)
	first := entries[0].ContextMap()
	assert.Equal(t, "orgs_by_orgId_sites", first["tool"])
	assert.Equal(t, "GET", first["method"])
	assert.Equal(t, "allowed", first["decision"])
	assert.Equal(t, OutcomeSuccess, first["outcome"])
	assert.NotEmpty(t, first["call_id"])
	assert.Equal(t, "denied", entries[1].ContextMap()["decision"])
	assert.NotEqual(t, first["call_id"], entries[1].ContextMap()["call_id"])

	for _, e := range logs.All() {
		for _, v := range e.ContextMap() {
			assert.NotContains(t, fmt.Sprint(v), testAPIKey)
		}
	}
}

func TestBridge_ConcurrentInvocations(t *testing.T) {
	r := newRemote(t, http.StatusOK, `{"ok":true}`)
	b := newBridge(t, sitesSpec, r.URL, true)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Invoke(context.Background(), "orgs_by_orgId_sites", map[string]any{"orgId": "42"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(16), r.hits.Load())
}

func TestBridge_ReadOnlyNeverSendsWrites(t *testing.T) {
	r := newRemote(t, http.StatusOK, `{}`)
	b := newBridge(t, pangolinSpec, r.URL, true)

	rapid.Check(t, func(t *rapid.T) {
		name := rapid.SampledFrom(pangolinToolNames).Draw(t, "tool")
		before := r.hits.Load()
		_, err := b.Invoke(context.Background(), name, map[string]any{
			"orgId":  rapid.StringMatching(`[a-z0-9]{1,8}`).Draw(t, "orgId"),
			"siteId": float64(rapid.IntRange(1, 1000).Draw(t, "siteId")),
		})
		tool, _ := b.Registry().Lookup(name)
		if tool.Method == MethodGet {
			if err != nil {
				t.Fatalf("GET tool %s failed: %v", name, err)
			}
			return
		}
		if ErrorKind(err) != KindPolicyDenied {
			t.Fatalf("write tool %s not denied: %v", name, err)
		}
		if r.hits.Load() != before {
			t.Fatalf("write tool %s reached the remote", name)
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no base", Config{APIKey: "k"}},
		{"relative base", Config{BaseURL: "/v1", APIKey: "k"}},
		{"query in base", Config{BaseURL: "https://api.example.com/v1?x=1", APIKey: "k"}},
		{"no key", Config{BaseURL: "https://api.example.com/v1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.cfg.Validate(), ErrConfig)
		})
	}
	assert.NoError(t, Config{BaseURL: "https://api.example.com/v1", APIKey: "k"}.Validate())
}
