package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ServiceName = "crmbackup"
)

var (
	SnapshotBuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    prometheus.BuildFQName(ServiceName, "snapshot", "build_duration_seconds"),
		Help:    "Duration of reading tables into a snapshot in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"backup_type"})
	SnapshotWriteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    prometheus.BuildFQName(ServiceName, "snapshot", "write_duration_seconds"),
		Help:    "Duration of serializing and uploading a snapshot in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"backup_type"})
	SnapshotSizeBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    prometheus.BuildFQName(ServiceName, "snapshot", "size_bytes"),
		Help:    "Size of uploaded snapshot payloads in bytes",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 12),
	}, []string{"backup_type"})
	SnapshotResult = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(ServiceName, "snapshot", "total"),
		Help: "Snapshots attempted by type and result",
	}, []string{"backup_type", "result"})
	SnapshotTruncatedTables = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(ServiceName, "snapshot", "truncated_tables_total"),
		Help: "Tables captured only partially because a page read failed",
	}, []string{"table"})
	RestoreDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    prometheus.BuildFQName(ServiceName, "restore", "duration_seconds"),
		Help:    "Duration of restore operations in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"result"})
	RestoreTableFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(ServiceName, "restore", "table_failures_total"),
		Help: "Tables that could not be cleared or repopulated during a restore",
	}, []string{"table"})
	RetentionPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(ServiceName, "retention", "pruned_total"),
		Help: "Backups removed by the retention pruner",
	})
	WorkerBackupDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: prometheus.BuildFQName(ServiceName, "worker", "backup_duration_seconds"),
		Help: "Duration of the last scheduled backup in seconds",
	})
	WorkerBackupLastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: prometheus.BuildFQName(ServiceName, "worker", "backup_last_success_timestamp_seconds"),
		Help: "Unix time of the last successful scheduled backup",
	})
)
