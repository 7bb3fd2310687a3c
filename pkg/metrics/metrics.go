// Package metrics provides Prometheus metrics for taskmesh: counters,
// gauges and histograms for task dispatch, provider selection and the
// result cache.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TasksCompleted tracks completed tasks by agent.
var TasksCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "taskmesh",
	Name:      "tasks_completed_total",
	Help:      "Total completed tasks.",
}, []string{"agent"})

// TasksFailed tracks failed tasks by reason.
var TasksFailed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "taskmesh",
	Name:      "tasks_failed_total",
	Help:      "Total failed tasks.",
}, []string{"reason"})

// TasksActive tracks currently executing tasks.
var TasksActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "taskmesh",
	Name:      "tasks_active",
	Help:      "Number of currently executing tasks.",
})

// TaskDuration tracks task execution duration in seconds.
var TaskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "taskmesh",
	Name:      "task_duration_seconds",
	Help:      "Task execution duration in seconds.",
	Buckets:   prometheus.DefBuckets,
})

// ProviderSelected tracks provider choices by provider and strategy.
var ProviderSelected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "taskmesh",
	Name:      "provider_selected_total",
	Help:      "Total provider selections.",
}, []string{"provider", "strategy"})

// CacheHits tracks result-cache hits.
var CacheHits = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "taskmesh",
	Name:      "result_cache_hits_total",
	Help:      "Total result cache hits.",
})

// CacheMisses tracks result-cache misses.
var CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "taskmesh",
	Name:      "result_cache_misses_total",
	Help:      "Total result cache misses.",
})
