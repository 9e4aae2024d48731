package monitor

import "github.com/prometheus/client_golang/prometheus"

var (
	// PairsDiscovered 扫描相关
	PairsDiscovered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dex_sentinel_pairs_discovered_total",
			Help: "Total number of pairs returned by the discovery feed.",
		},
	)
	PairsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dex_sentinel_pairs_rejected_total",
			Help: "Pairs rejected by the filter chain, by reason.",
		},
		[]string{"reason"},
	)
	PairsClassified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dex_sentinel_pairs_classified_total",
			Help: "Pairs classified, by status.",
		},
		[]string{"status"},
	)
	TradesDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dex_sentinel_trades_dispatched_total",
			Help: "Trade commands dispatched, by action and result.",
		},
		[]string{"action", "result"},
	)
	OracleErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dex_sentinel_oracle_errors_total",
			Help: "Risk oracle call failures, by oracle.",
		},
		[]string{"oracle"},
	)
	PersistenceErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dex_sentinel_persistence_errors_total",
			Help: "Failed classification writes.",
		},
	)
	ScanCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dex_sentinel_scan_cycle_duration_seconds",
			Help:    "Time taken by one scan cycle.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)
	BlacklistSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dex_sentinel_blacklist_size",
			Help: "Number of blacklisted symbols and developer addresses.",
		},
	)
	JobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dex_sentinel_job_runs_total",
			Help: "Scheduled job executions by result.",
		},
		[]string{"job", "result"},
	)

	// AsyncWriterMessagesQueued AsyncWriter 指标
	AsyncWriterMessagesQueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "async_writer_messages_queued_total",
			Help: "Total number of messages queued to async writer.",
		},
		[]string{"writer_id"},
	)
	AsyncWriterMessagesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "async_writer_messages_dropped_total",
			Help: "Total number of messages dropped due to full queue.",
		},
		[]string{"writer_id"},
	)
	AsyncWriterBatchSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "async_writer_batch_size",
			Help:    "Number of items in each batch submitted to the writer.",
			Buckets: []float64{1, 10, 50, 100, 200, 500},
		},
		[]string{"writer_id"},
	)
	AsyncWriterFlushDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "async_writer_flush_duration_seconds",
			Help:    "Time taken to flush a batch.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"writer_id"},
	)
	AsyncWriterItemsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "async_writer_items_written_total",
			Help: "Total number of items successfully written by the async writer.",
		},
		[]string{"writer_id"},
	)
)

func init() {
	prometheus.MustRegister(
		// 扫描指标
		PairsDiscovered,
		PairsRejected,
		PairsClassified,
		TradesDispatched,
		OracleErrors,
		PersistenceErrors,
		ScanCycleDuration,
		BlacklistSize,
		JobRuns,

		// async 写入指标
		AsyncWriterMessagesQueued,
		AsyncWriterMessagesDropped,
		AsyncWriterBatchSize,
		AsyncWriterFlushDuration,
		AsyncWriterItemsWritten,
	)
}
