package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/prisme/backend/internal/contracts"
)

func summary() *contracts.RunSummary {
	started := time.Date(2026, 3, 2, 18, 30, 0, 0, time.UTC)
	return &contracts.RunSummary{
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Outcomes: []contracts.Outcome{
			{Status: contracts.StatusSuccess, Duration: time.Second},
			{Status: contracts.StatusSuccess, Duration: 2 * time.Second},
			{Status: contracts.StatusSkippedEmpty, Duration: time.Second},
			{Status: contracts.StatusFailed, Stage: "extract", Duration: 30 * time.Second},
		},
	}
}

func TestRecord(t *testing.T) {
	r := NewRegistry()
	s := summary()

	require.NoError(t, r.Record(context.Background(), s))
	require.NoError(t, r.Record(context.Background(), s))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Runs))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.Instruments.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Instruments.WithLabelValues("skipped_empty")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Instruments.WithLabelValues("failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Failures.WithLabelValues("extract")))
	assert.Equal(t, float64(s.FinishedAt.Unix()), testutil.ToFloat64(r.LastRun))
	assert.Equal(t, 90.0, testutil.ToFloat64(r.LastRunDuration))
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Record(context.Background(), summary()))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `prisme_instruments_total{status="success"} 2`), body)
	assert.Contains(t, body, "prisme_runs_total 1")
	assert.Contains(t, body, "prisme_instrument_duration_seconds_bucket")
	assert.Contains(t, body, "go_goroutines")
}

func TestGatherer(t *testing.T) {
	r := NewRegistry()
	count, err := testutil.GatherAndCount(r.Gatherer(), "prisme_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
