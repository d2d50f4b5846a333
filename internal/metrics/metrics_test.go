package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeBuffer struct {
	length   int
	capacity int
	evicted  uint64
}

func (f *fakeBuffer) Len() int        { return f.length }
func (f *fakeBuffer) Capacity() int   { return f.capacity }
func (f *fakeBuffer) Evicted() uint64 { return f.evicted }

func TestMetrics_SampleIngested(t *testing.T) {
	m := New(&fakeBuffer{})

	m.SampleIngested("http", 0.25)
	m.SampleIngested("http", 0.5)
	m.SampleIngested("mqtt", 0.75)

	if got := testutil.ToFloat64(m.ingested.WithLabelValues("http")); got != 2 {
		t.Errorf("ingested{source=http} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ingested.WithLabelValues("mqtt")); got != 1 {
		t.Errorf("ingested{source=mqtt} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.lastValue); got != 0.75 {
		t.Errorf("last_value = %v, want 0.75", got)
	}
}

func TestMetrics_SampleRejected(t *testing.T) {
	m := New(&fakeBuffer{})

	m.SampleRejected("http", ReasonMissingValue)
	m.SampleRejected("http", ReasonMissingValue)
	m.SampleRejected("http", ReasonRateLimited)

	if got := testutil.ToFloat64(m.rejected.WithLabelValues("http", ReasonMissingValue)); got != 2 {
		t.Errorf("rejected{reason=missing_value} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.rejected.WithLabelValues("http", ReasonRateLimited)); got != 1 {
		t.Errorf("rejected{reason=rate_limited} = %v, want 1", got)
	}
}

func TestMetrics_HandlerExposesBufferGauges(t *testing.T) {
	buf := &fakeBuffer{length: 12, capacity: 3600, evicted: 4}
	m := New(buf)
	m.ObserveRequest(http.MethodGet, "/data", http.StatusOK, 3*time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	out := string(body)

	for _, want := range []string{
		"mqmon_buffer_samples 12",
		"mqmon_buffer_capacity 3600",
		"mqmon_evicted_samples_total 4",
		`mqmon_http_request_duration_seconds_count{method="GET",route="/data",status_code="200"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}

	// gauges are read at scrape time
	buf.length = 13
	resp2, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer func() { _ = resp2.Body.Close() }()
	body2, _ := io.ReadAll(resp2.Body)
	if !strings.Contains(string(body2), "mqmon_buffer_samples 13") {
		t.Error("buffer_samples gauge not refreshed on scrape")
	}
}
