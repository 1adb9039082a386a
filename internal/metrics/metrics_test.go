package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selimozcann/qrlens/internal/model"
)

func TestObservers(t *testing.T) {
	m := New()

	m.ObserveVerdict(model.VerdictDanger, model.StageHeuristics)
	m.ObserveVerdict(model.VerdictDanger, model.StageHeuristics)
	m.ObserveVerdict(model.VerdictSafe, model.StageStatistical)
	m.ObserveResolution(3, "timeout")
	m.ObserveResolution(2, "")
	m.ObserveReputation("safe")
	m.ObserveStage(model.StageResolve, 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Verdicts.WithLabelValues("DANGER", "heuristics")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Verdicts.WithLabelValues("SAFE", "statistical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RedirectErrors.WithLabelValues("timeout")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RedirectErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReputationChecks.WithLabelValues("safe")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveVerdict(model.VerdictSuspicious, model.StageHeuristics)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `qrlens_verdicts_total{stage="heuristics",verdict="SUSPICIOUS"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestIndependentRegistries(t *testing.T) {
	// each instance owns its registry, so creating two must not panic
	a, b := New(), New()
	a.ObserveReputation("timeout")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ReputationChecks.WithLabelValues("timeout")))
}
