package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the client-side metrics of a single tool run.
var Registry = prometheus.NewRegistry()

var (
	clientInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fastjob_client_in_flight_requests",
		Help: "In-flight requests against the fastjob API.",
	})

	clientRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fastjob_client_requests_total",
			Help: "Requests sent to the fastjob API.",
		},
		[]string{"code", "method"},
	)

	clientRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fastjob_client_request_duration_seconds",
			Help:    "Latency of requests sent to the fastjob API.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"code", "method"},
	)

	serverRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fastjob_stub_requests_total",
			Help: "Requests served by the stub API.",
		},
		[]string{"code", "method"},
	)

	serverRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fastjob_stub_request_duration_seconds",
			Help:    "Latency of requests served by the stub API.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"code", "method"},
	)
)

func init() {
	Registry.MustRegister(
		clientInFlight, clientRequestsTotal, clientRequestDuration,
		serverRequestsTotal, serverRequestDuration,
		buildInfo,
	)
}

// Handler exposes Registry for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// InstrumentHandler wraps next with server-side counter and latency metrics.
func InstrumentHandler(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(serverRequestsTotal,
		promhttp.InstrumentHandlerDuration(serverRequestDuration, next),
	)
}

// InstrumentTransport wraps next with in-flight, counter and latency metrics.
// A nil next uses http.DefaultTransport.
func InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperInFlight(clientInFlight,
		promhttp.InstrumentRoundTripperCounter(clientRequestsTotal,
			promhttp.InstrumentRoundTripperDuration(clientRequestDuration, next),
		),
	)
}

// WriteMetrics dumps the registry to path in the Prometheus text format.
// An empty path is a no-op.
func WriteMetrics(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, Registry)
}
