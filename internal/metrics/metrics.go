package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/PythonCoderAS/wayback-archiver-go/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// URL worker metrics

	JobPickupLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "archiver",
		Name:      "job_pickup_latency_seconds",
		Help:      "Time from job creation to the worker selecting it.",
		Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	CaptureDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "archiver",
		Name:      "capture_duration_seconds",
		Help:      "Duration of one job selection's capture attempts, including backoff waits, by final outcome.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"outcome"})

	JobsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "archiver",
		Name:      "worker_jobs_in_flight",
		Help:      "1 while the worker is driving a job to a terminal or delayed state, 0 otherwise.",
	})

	JobsCompletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "archiver",
		Name:      "jobs_completed_total",
		Help:      "Total jobs that reached a terminal state, by outcome.",
	}, []string{"outcome"})

	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "archiver",
		Name:      "queue_depth",
		Help:      "Number of jobs still pending (not completed or failed) as of the last worker poll that saw none runnable.",
	})

	// Repeat-URL planner metrics

	PlannerTickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "archiver",
		Name:      "planner_tick_duration_seconds",
		Help:      "Time taken for one repeat-URL planner tick.",
		Buckets:   prometheus.DefBuckets,
	})

	PlannerExpansionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "archiver",
		Name:      "planner_expansions_total",
		Help:      "Total jobs the planner has created from active repeat URLs.",
	})

	PlannerSkippedInFlightTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "archiver",
		Name:      "planner_skipped_in_flight_total",
		Help:      "Total repeat URLs skipped in a tick because a job was already in flight for that URL.",
	})

	// Worker lifecycle

	WorkerStartTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "archiver",
		Name:      "worker_start_time_seconds",
		Help:      "Unix timestamp when the worker started.",
	})

	WorkerShutdownsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "archiver",
		Name:      "worker_shutdowns_total",
		Help:      "Number of times the worker has shut down.",
	})

	// Collaborator HTTP surface metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "archiver",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "archiver",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		JobPickupLatency,
		CaptureDuration,
		JobsInFlight,
		JobsCompletedTotal,
		QueueDepth,
		PlannerTickDuration,
		PlannerExpansionsTotal,
		PlannerSkippedInFlightTotal,
		WorkerStartTime,
		WorkerShutdownsTotal,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// NewServer builds the process-internal server exposing /metrics and the
// liveness/readiness endpoints backed by checker.
func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz/live", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Liveness(r.Context()))
	})
	mux.HandleFunc("/healthz/ready", func(w http.ResponseWriter, r *http.Request) {
		result := checker.Readiness(r.Context())
		if result.Status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		writeHealth(w, result)
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeHealth(w http.ResponseWriter, result health.HealthResult) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}
