package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/mcp-pangolin/mcp-pangolin/pkg/openapi2mcp"
)

var _ openapi2mcp.MetricsRecorder = (*Collector)(nil)

func TestNewCollector(t *testing.T) {
	c := NewCollector(DefaultNamespace, zap.NewNop())

	assert.NotNil(t, c.invocationsTotal)
	assert.NotNil(t, c.invocationDuration)
	assert.NotNil(t, c.policyDenials)
	assert.NotNil(t, c.Registry())
}

func TestNewCollector_Independent(t *testing.T) {
	a := NewCollector(DefaultNamespace, nil)
	b := NewCollector(DefaultNamespace, nil)

	a.PolicyDenied("delete_org_by_orgId")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.policyDenials.WithLabelValues("delete_org_by_orgId")))
	assert.Equal(t, 0, testutil.CollectAndCount(b.policyDenials))
}

func TestCollector_ObserveInvocation(t *testing.T) {
	c := NewCollector(DefaultNamespace, zap.NewNop())

	c.ObserveInvocation("orgs", openapi2mcp.OutcomeSuccess, 120*time.Millisecond)
	c.ObserveInvocation("orgs", openapi2mcp.OutcomeSuccess, 80*time.Millisecond)
	c.ObserveInvocation("orgs", openapi2mcp.KindAPI, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.invocationsTotal.WithLabelValues("orgs", openapi2mcp.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.invocationsTotal.WithLabelValues("orgs", openapi2mcp.KindAPI)))
	assert.Equal(t, 1, testutil.CollectAndCount(c.invocationDuration))
}

func TestCollector_SetRegistryTools(t *testing.T) {
	c := NewCollector(DefaultNamespace, zap.NewNop())

	c.SetRegistryTools(map[string]int{"GET": 4, "DELETE": 3})
	assert.Equal(t, 4.0, testutil.ToFloat64(c.registryTools.WithLabelValues("GET")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.registryTools))

	c.SetRegistryTools(map[string]int{"GET": 1})
	assert.Equal(t, 1, testutil.CollectAndCount(c.registryTools))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector(DefaultNamespace, zap.NewNop())
	c.ObserveInvocation("site_by_siteId", openapi2mcp.OutcomeSuccess, time.Second)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `mcp_pangolin_tool_invocations_total{outcome="success",tool="site_by_siteId"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
