package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "innerbloom_ai_requests_total",
			Help: "Total number of requests to the model backend.",
		},
		[]string{"model", "mode", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "innerbloom_ai_request_duration_seconds",
			Help:    "Histogram of model request durations.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 90, 120},
		},
		[]string{"model", "mode"},
	)
	aiPromptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "innerbloom_ai_prompt_tokens",
			Help:    "Histogram of prompt token counts.",
			Buckets: prometheus.LinearBuckets(500, 500, 16),
		},
		[]string{"model"},
	)
	aiCompletionTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "innerbloom_ai_completion_tokens",
			Help:    "Histogram of completion token counts.",
			Buckets: prometheus.LinearBuckets(250, 250, 16),
		},
		[]string{"model"},
	)
)

const (
	statusSuccess       = "success"
	statusError         = "error"
	statusEmptyResponse = "error_empty_response"
	statusTimeout       = "error_timeout"
)

func observeRequest(modelName, mode, status string, d time.Duration, usage Usage) {
	aiRequestsTotal.With(prometheus.Labels{"model": modelName, "mode": mode, "status": status}).Inc()
	if status != statusSuccess {
		return
	}
	aiRequestDuration.With(prometheus.Labels{"model": modelName, "mode": mode}).Observe(d.Seconds())
	if usage.TotalTokens > 0 {
		aiPromptTokens.With(prometheus.Labels{"model": modelName}).Observe(float64(usage.PromptTokens))
		aiCompletionTokens.With(prometheus.Labels{"model": modelName}).Observe(float64(usage.CompletionTokens))
	}
}
