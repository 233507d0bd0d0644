package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapml/pkg/core"
)

func TestMetrics_ObserveRun(t *testing.T) {
	m := New()
	m.ObserveRun(core.DecisionTree, OutcomeSuccess, 20*time.Millisecond)
	m.ObserveRun(core.DecisionTree, OutcomeSuccess, 30*time.Millisecond)
	m.ObserveRun("", OutcomeError, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("decision_tree", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("unknown", OutcomeError)))
}

func TestMetrics_ObserveError(t *testing.T) {
	m := New()
	m.ObserveError("train", core.SchemaErrorf("x"))
	m.ObserveError("train", errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("train", "SchemaError")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("train", "internal")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Datasets.Set(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "leapml_datasets_registered 3")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.Artifacts.Set(1)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Artifacts))
}
