package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	SnapshotsCreated  *prometheus.CounterVec
	SnapshotConflicts prometheus.Counter
	SnapshotBusy      prometheus.Counter
	SnapshotDuration  prometheus.Histogram
	RepriceMessages   *prometheus.CounterVec
}

// New builds the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SnapshotsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking_pricing",
			Name:      "snapshots_created_total",
			Help:      "Price snapshots committed, by source.",
		}, []string{"source"}),
		SnapshotConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "booking_pricing",
			Name:      "snapshot_version_conflicts_total",
			Help:      "Snapshot writes retried because the version was taken.",
		}),
		SnapshotBusy: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "booking_pricing",
			Name:      "snapshot_lock_timeouts_total",
			Help:      "Snapshot requests rejected while another write held the booking lock.",
		}),
		SnapshotDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "booking_pricing",
			Name:      "snapshot_write_seconds",
			Help:      "Time from lock acquisition to commit.",
			Buckets:   prometheus.DefBuckets,
		}),
		RepriceMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking_pricing",
			Name:      "reprice_messages_total",
			Help:      "Reprice jobs consumed, by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.SnapshotsCreated,
		m.SnapshotConflicts,
		m.SnapshotBusy,
		m.SnapshotDuration,
		m.RepriceMessages,
	)
	return m
}
