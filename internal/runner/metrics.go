package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Branches of a generation call.
const (
	branchDryRun  = "dry_run"
	branchFixture = "fixture"
	branchLive    = "live"
	branchNone    = "none"
)

var (
	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "innerbloom_generations_total",
			Help: "Generation calls by mode, resolved source, branch and status.",
		},
		[]string{"mode", "source", "branch", "status"},
	)
	generationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "innerbloom_generation_duration_seconds",
			Help:    "End-to-end duration of generation calls.",
			Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
		},
		[]string{"branch"},
	)
	validationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "innerbloom_validation_failures_total",
			Help: "Payloads rejected by validation, by mode.",
		},
		[]string{"mode"},
	)
	tasksPersistedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "innerbloom_tasks_persisted_total",
			Help: "Tasks stored by the interactive variant.",
		},
	)
	persistFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "innerbloom_persist_failures_total",
			Help: "Task batches whose transaction was rolled back.",
		},
	)
)
