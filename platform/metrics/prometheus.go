// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LeadsReconciled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospecting_leads_reconciled_total",
			Help: "Leads processed by the upsert engine by outcome (created, updated, skipped, failed)",
		},
		[]string{"outcome"},
	)

	StatusesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospecting_lead_statuses_total",
			Help: "Status rows appended, or suppressed by the progression guard",
		},
		[]string{"status", "result"},
	)

	ChildRowsInserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospecting_lead_child_rows_total",
			Help: "Child rows inserted per kind",
		},
		[]string{"kind"},
	)

	WorkflowRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospecting_workflow_runs_total",
			Help: "Workflow runs by source and final status",
		},
		[]string{"source", "status"},
	)

	UpsertBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prospecting_upsert_batch_duration_seconds",
			Help:    "Wall time of one orchestrator batch",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		},
		[]string{"adapter"},
	)

	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospecting_provider_calls_total",
			Help: "Provider API calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prospecting_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status code",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
