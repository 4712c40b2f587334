package server

import (
	"fmt"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// serverMetrics groups the metric constructors of the server, all metrics live
// in the default VictoriaMetrics set
var serverMetrics = struct {
	requests       func(route string, status int) *metrics.Counter
	duration       func(route string) *metrics.Histogram
	rangesGranted  func(database string) *metrics.Counter
	rangesReturned func(database string) *metrics.Counter
}{
	requests: func(route string, status int) *metrics.Counter {
		return metrics.GetOrCreateCounter(fmt.Sprintf(`ddoc_server_requests_total{route=%q,status="%d"}`, route, status))
	},
	duration: func(route string) *metrics.Histogram {
		return metrics.GetOrCreateHistogram(fmt.Sprintf(`ddoc_server_request_duration_seconds{route=%q}`, route))
	},
	rangesGranted: func(database string) *metrics.Counter {
		return metrics.GetOrCreateCounter(fmt.Sprintf(`ddoc_server_ranges_granted_total{database=%q}`, database))
	},
	rangesReturned: func(database string) *metrics.Counter {
		return metrics.GetOrCreateCounter(fmt.Sprintf(`ddoc_server_ranges_returned_total{database=%q}`, database))
	},
}

// observe records a finished request
func observe(route string, status int, start time.Time) {
	serverMetrics.requests(route, status).Inc()
	serverMetrics.duration(route).UpdateDuration(start)
}

// writeMetrics writes all metrics, including the Go runtime metrics, in Prometheus text format
func writeMetrics(w io.Writer) {
	metrics.WritePrometheus(w, true)
}
