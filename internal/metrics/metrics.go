// Package metrics provides Prometheus metrics for marketpulse.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marketpulse"

var (
	// LLMRequests counts provider calls by model, prompt kind and result.
	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM provider calls",
		},
		[]string{"model", "kind", "result"},
	)

	// LLMTokens counts tokens by model and direction (input, cached_input, output).
	LLMTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "Total number of LLM tokens consumed",
		},
		[]string{"model", "direction"},
	)

	// LLMCost accumulates estimated spend in USD.
	LLMCost = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_cost_usd_total",
			Help:      "Estimated LLM spend in USD",
		},
		[]string{"model"},
	)

	// CacheLookups counts response cache hits and misses.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_cache_lookups_total",
			Help:      "LLM response cache lookups",
		},
		[]string{"kind", "result"},
	)

	// TasksTotal counts finished tasks by kind and status.
	TasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Total number of processed tasks",
		},
		[]string{"kind", "status"},
	)

	// TaskDuration measures task handling time.
	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of task handling in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)

	// ArticlesScraped counts articles returned per source.
	ArticlesScraped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_scraped_total",
			Help:      "Articles extracted by source",
		},
		[]string{"source"},
	)

	// ArticlesStored counts scrape results by dedup outcome (created, existing, failed).
	ArticlesStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_stored_total",
			Help:      "Scrape results by storage outcome",
		},
		[]string{"outcome"},
	)

	// NotificationsTotal counts alert dispatch attempts.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "High-confidence alert dispatches",
		},
		[]string{"result"},
	)
)

// RecordLLMCall records one provider call with its token usage and cost.
func RecordLLMCall(model, kind, result string, input, cachedInput, output int, cost float64) {
	LLMRequests.WithLabelValues(model, kind, result).Inc()
	LLMTokens.WithLabelValues(model, "input").Add(float64(input))
	LLMTokens.WithLabelValues(model, "cached_input").Add(float64(cachedInput))
	LLMTokens.WithLabelValues(model, "output").Add(float64(output))
	LLMCost.WithLabelValues(model).Add(cost)
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(kind, result).Inc()
}

// RecordTask records a finished task.
func RecordTask(kind, status string, elapsed time.Duration) {
	TasksTotal.WithLabelValues(kind, status).Inc()
	TaskDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}
