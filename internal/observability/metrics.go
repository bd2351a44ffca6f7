package observability

import (
	"io"
	"net/http"
	"strings"
	"time"
)

// Metrics holds the storage service's request and progress counters.
type Metrics struct {
	apiRequests     *CounterVec
	apiLatency      *HistogramVec
	apiInflight     *Gauge
	progressWrites  *CounterVec
	metadataUpdates *CounterVec
	eventsPublished *CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests:     NewCounterVec("pathprogress_api_requests_total", "HTTP requests served.", []string{"method", "route", "status"}),
		apiLatency:      NewHistogramVec("pathprogress_api_request_duration_seconds", "HTTP request latency.", []string{"method", "route"}, nil),
		apiInflight:     NewGauge("pathprogress_api_inflight_requests", "HTTP requests in flight."),
		progressWrites:  NewCounterVec("pathprogress_progress_writes_total", "Progress snapshots stored.", []string{"status"}),
		metadataUpdates: NewCounterVec("pathprogress_metadata_updates_total", "Path metadata updates applied.", []string{"status"}),
		eventsPublished: NewCounterVec("pathprogress_events_published_total", "Progress events published to the bus.", []string{"result"}),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, wr := range []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight, m.progressWrites, m.metadataUpdates, m.eventsPublished,
	} {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(strings.ToUpper(method), route, status)
	m.apiLatency.Observe(dur.Seconds(), strings.ToUpper(method), route)
}

func (m *Metrics) InflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Add(1)
}

func (m *Metrics) InflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Add(-1)
}

func (m *Metrics) IncProgressWrite(status string) {
	if m == nil {
		return
	}
	m.progressWrites.Inc(status)
}

func (m *Metrics) IncMetadataUpdate(status string) {
	if m == nil {
		return
	}
	m.metadataUpdates.Inc(status)
}

func (m *Metrics) IncEventPublished(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.eventsPublished.Inc(result)
}

// ProgressWrites reads the progress write counter for status.
func (m *Metrics) ProgressWrites(status string) float64 {
	if m == nil {
		return 0
	}
	return m.progressWrites.Value(status)
}
