//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2025 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "raftapply"

type Config struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Port    int  `json:"port" yaml:"port"`
}

// Reasons an entry was skipped or failed, used as label values.
const (
	ReasonSnapshot      = "snapshot"
	ReasonApplied       = "already_applied"
	ReasonUnsupported   = "unsupported"
	ReasonListener      = "listener"
	ReasonOutOfSequence = "out_of_sequence"
	ReasonRead          = "read"
)

// Compaction outcomes, used as label values.
const (
	CompactionNoop    = "noop"
	CompactionSuccess = "success"
	CompactionFailure = "failure"
)

type PrometheusMetrics struct {
	Registerer prometheus.Registerer

	AppliedEntries    prometheus.Counter
	SkippedEntries    *prometheus.CounterVec
	FailedEntries     *prometheus.CounterVec
	LastAppliedIndex  prometheus.Gauge
	LastEnqueuedIndex prometheus.Gauge
	SnapshotIndex     prometheus.Gauge

	Compactions        *prometheus.CounterVec
	CompactionDuration prometheus.Histogram
	CompactedIndex     prometheus.Gauge

	SnapshotChunks         prometheus.Counter
	SnapshotChunkBytesRead prometheus.Counter
}

// NewPrometheusMetrics registers all metrics with reg. A nil reg registers
// nothing.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = noop
	}
	f := promauto.With(reg)

	return &PrometheusMetrics{
		Registerer: reg,

		AppliedEntries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "applied_entries_total",
			Help:      "Committed entries handed to commit listeners",
		}),
		SkippedEntries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_entries_total",
			Help:      "Committed entries skipped without invoking listeners",
		}, []string{"reason"}),
		FailedEntries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failed_entries_total",
			Help:      "Apply requests that failed",
		}, []string{"reason"}),
		LastAppliedIndex: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_applied_index",
			Help:      "Index of the last applied entry",
		}),
		LastEnqueuedIndex: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_enqueued_index",
			Help:      "Highest index scheduled for application",
		}),
		SnapshotIndex: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_index",
			Help:      "Index covered by the latest durable snapshot",
		}),

		Compactions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compactions_total",
			Help:      "Compaction cycles by outcome",
		}, []string{"status"}),
		CompactionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compaction_duration_seconds",
			Help:      "Duration of log compactions that reached the disk",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		CompactedIndex: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "compacted_index",
			Help:      "Truncation point of the last successful compaction",
		}),

		SnapshotChunks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_chunks_total",
			Help:      "Snapshot chunks built",
		}),
		SnapshotChunkBytesRead: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_chunk_bytes_read_total",
			Help:      "Bytes read from snapshot files while building chunks",
		}),
	}
}

func (pm *PrometheusMetrics) EntryApplied(index uint64) {
	if pm == nil {
		return
	}

	pm.AppliedEntries.Inc()
	pm.LastAppliedIndex.Set(float64(index))
}

func (pm *PrometheusMetrics) EntrySkipped(reason string) {
	if pm == nil {
		return
	}

	pm.SkippedEntries.WithLabelValues(reason).Inc()
}

func (pm *PrometheusMetrics) EntryFailed(reason string) {
	if pm == nil {
		return
	}

	pm.FailedEntries.WithLabelValues(reason).Inc()
}

// MarkerAdvanced records the last applied index without counting an apply,
// for entries that failed but were still marked as applied.
func (pm *PrometheusMetrics) MarkerAdvanced(index uint64) {
	if pm == nil {
		return
	}

	pm.LastAppliedIndex.Set(float64(index))
}

func (pm *PrometheusMetrics) Enqueued(index uint64) {
	if pm == nil {
		return
	}

	pm.LastEnqueuedIndex.Set(float64(index))
}

func (pm *PrometheusMetrics) SnapshotAdvanced(index uint64) {
	if pm == nil {
		return
	}

	pm.SnapshotIndex.Set(float64(index))
}

func (pm *PrometheusMetrics) CompactionSkipped() {
	if pm == nil {
		return
	}

	pm.Compactions.WithLabelValues(CompactionNoop).Inc()
}

func (pm *PrometheusMetrics) CompactionFinished(index uint64, took time.Duration, err error) {
	if pm == nil {
		return
	}

	pm.CompactionDuration.Observe(took.Seconds())
	if err != nil {
		pm.Compactions.WithLabelValues(CompactionFailure).Inc()
		return
	}
	pm.Compactions.WithLabelValues(CompactionSuccess).Inc()
	pm.CompactedIndex.Set(float64(index))
}

func (pm *PrometheusMetrics) ChunkBuilt() {
	if pm == nil {
		return
	}

	pm.SnapshotChunks.Inc()
}

func (pm *PrometheusMetrics) ChunkBytesRead(n int64) {
	if pm == nil {
		return
	}

	pm.SnapshotChunkBytesRead.Add(float64(n))
}
