package metrics

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coupn-app/coupn/internal/llm"
	"github.com/coupn-app/coupn/internal/model"
)

func TestObserveCallOutcomes(t *testing.T) {
	m := New()

	m.ObserveCall("cerebras", "chat completion", 120*time.Millisecond, nil)
	m.ObserveCall("cerebras", "chat completion", time.Second, &llm.OracleError{Kind: llm.KindTimeout})
	m.ObserveCall("openai", "transcription", time.Second, errors.New("plain"))

	assert.InDelta(t, 1, testutil.ToFloat64(m.upstreamCalls.WithLabelValues("cerebras", "chat completion", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.upstreamCalls.WithLabelValues("cerebras", "chat completion", "timeout")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.upstreamCalls.WithLabelValues("openai", "transcription", "error")), 0)
}

func TestObserveRequestAndSearch(t *testing.T) {
	m := New()

	m.ObserveRequest(http.MethodPost, "/api/search", http.StatusOK, 10*time.Millisecond)
	m.ObserveSearch(SearchMatched)
	m.ObserveSearch(SearchMatched)
	m.ObserveSearch(SearchFailed)
	m.AddIngested(3)
	m.AddIngested(0)

	assert.InDelta(t, 1, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/api/search", "200")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.searches.WithLabelValues(SearchMatched)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.searches.WithLabelValues(SearchFailed)), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.ingested), 0)
}

type fakeCounter struct {
	counts map[model.Category]int
	err    error
}

func (f fakeCounter) CategoryCounts(context.Context) (map[model.Category]int, error) {
	return f.counts, f.err
}

func TestStoreCollector(t *testing.T) {
	m := New()
	require.NoError(t, m.RegisterStore(fakeCounter{counts: map[model.Category]int{
		model.CategoryGrocery: 2,
		model.CategoryDining:  1,
	}}))

	expected := `
# HELP coupn_promotions_stored Stored promotions by category
# TYPE coupn_promotions_stored gauge
coupn_promotions_stored{category="dining"} 1
coupn_promotions_stored{category="grocery"} 2
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), MetricPromotionsStored))
}

func TestStoreCollectorError(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	var logs bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))

	m := New()
	require.NoError(t, m.RegisterStore(fakeCounter{err: errors.New("db closed")}))

	count, err := testutil.GatherAndCount(m.Registry(), MetricPromotionsStored)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Contains(t, logs.String(), "failed to collect promotion metrics")
	assert.Contains(t, logs.String(), "error=\"db closed\"")
	assert.Contains(t, logs.String(), "metric="+MetricPromotionsStored)
}

func TestHandlerServesMetrics(t *testing.T) {
	m := New()
	m.ObserveSearch(SearchEmpty)

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `coupn_searches_total{outcome="empty"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
