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
)

func TestObserveQuery(t *testing.T) {
	m := New()
	m.ObserveQuery("vectorstore", 10*time.Millisecond, nil)
	m.ObserveQuery("vectorstore", 20*time.Millisecond, nil)
	m.ObserveQuery("wiki_search", time.Millisecond, nil)
	m.ObserveQuery("", 0, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Queries.WithLabelValues("vectorstore")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Queries.WithLabelValues("wiki_search")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryErrors))
}

func TestIngestAndCache(t *testing.T) {
	m := New()
	m.AddIngested(12)
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)

	assert.Equal(t, 12.0, testutil.ToFloat64(m.IngestedChunks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveQuery("vectorstore", time.Second, nil)
		m.AddIngested(1)
		m.ObserveCache(true)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.AddIngested(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "ragrouter_ingested_chunks_total 3")
}
