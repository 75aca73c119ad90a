package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder()

	r.CacheLookup("profiles", "hit")
	r.CacheLookup("profiles", "hit")
	r.CacheLookup("profiles", "fallback")
	r.CacheEvicted("profiles", 3)
	r.CacheEvicted("profiles", 0)
	r.DiffDecision(true)
	r.DiffDecision(false)
	r.DiffDecision(false)
	r.TaskSubmitted("async")
	r.TaskRejected("named")
	r.ScheduledSkipped("animation_tick")
	r.AnimationsAdvanced(4)
	r.RefreshCompleted(12, 0.002)

	expected := `
# HELP tabrefresh_cache_lookups_total Cache lookups by cache and outcome (hit, loaded, fallback)
# TYPE tabrefresh_cache_lookups_total counter
tabrefresh_cache_lookups_total{cache="profiles",outcome="fallback"} 1
tabrefresh_cache_lookups_total{cache="profiles",outcome="hit"} 2
`
	require.NoError(t, testutil.GatherAndCompare(r.Registry(), strings.NewReader(expected), "tabrefresh_cache_lookups_total"))

	assert.Equal(t, 3.0, testutil.ToFloat64(r.cacheEvictions.WithLabelValues("profiles")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.framesAdvanced))
	assert.Equal(t, 12.0, testutil.ToFloat64(r.refreshClients))

	count, err := testutil.GatherAndCount(r.Registry(), "tabrefresh_diff_decisions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.TaskFailed("one_shot")
	r.RequestsTotal().WithLabelValues("GET", "/health", "200").Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `tabrefresh_tasks_failed_total{kind="one_shot"} 1`)
	assert.Contains(t, body, `http_requests_total{endpoint="/health",method="GET",status="200"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
