package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PlanRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "threadloom_plan_runs_total",
		Help: "Total weekly plan generation runs",
	})
	PlanErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "threadloom_plan_errors_total",
		Help: "Total fatal plan generation errors",
	})
	PlanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "threadloom_plan_duration_seconds",
		Help:    "Weekly plan generation duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	SlotErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "threadloom_slot_errors_total",
		Help: "Total non-fatal per-slot errors",
	})
	GenRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threadloom_generation_retries_total",
		Help: "Total generation API retry attempts",
	}, []string{"op"})
	GenFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threadloom_generation_fallbacks_total",
		Help: "Total generation calls substituted with a deterministic fallback",
	}, []string{"op"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threadloom_command_runs_total",
		Help: "Total CLI command invocations",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threadloom_command_errors_total",
		Help: "Total CLI command failures",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(PlanRuns, PlanErrors, PlanDuration, SlotErrors, GenRetries, GenFallbacks, CommandRuns, CommandErrors)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, nil) }()
}

// ObservePlanDuration records a run duration.
func ObservePlanDuration(start time.Time) {
	PlanDuration.Observe(time.Since(start).Seconds())
}

// IncGenRetry increments the retry counter for a generation op.
func IncGenRetry(op string) { GenRetries.WithLabelValues(op).Inc() }

// IncGenFallback increments the fallback counter for a generation op.
func IncGenFallback(op string) { GenFallbacks.WithLabelValues(op).Inc() }

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
