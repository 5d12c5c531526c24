package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// Ledger writes
	TransfersApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hodl_transfers_applied_total",
			Help: "Transfers folded into the ledger",
		},
		[]string{"kind"}, // mint|burn|transfer
	)
	TransfersFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hodl_transfers_failed_total",
			Help: "Transfers rejected by the ledger",
		},
		[]string{"reason"}, // invariant|store|invalid|lost
	)
	TransfersDuplicate = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hodl_transfers_duplicate_total",
			Help: "Redelivered transfers skipped as already applied",
		},
	)
	CheckpointsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hodl_checkpoints_created_total",
			Help: "Checkpoints created",
		},
	)
	LastEventTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hodl_last_event_timestamp",
			Help: "Timestamp of the most recently applied transfer",
		},
	)

	// Queries
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hodl_queries_total",
			Help: "Score queries by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	// Single-writer queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)

	// Feed
	FeedMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hodl_feed_messages_total",
			Help: "Stream entries consumed by outcome",
		},
		[]string{"outcome"}, // applied|rejected|malformed|error
	)
)

// Handler serves /metrics.
var Handler = promhttp.Handler

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			TransfersApplied,
			TransfersFailed,
			TransfersDuplicate,
			CheckpointsCreated,
			LastEventTimestamp,
			QueriesTotal,
			WorkerQueueDepth,
			FeedMessages,
		)
	})
}
