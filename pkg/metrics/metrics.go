// Package metrics exposes the core's failure-path counters and bounded
// data-structure gauges (spec.md §7, §8 Property 7) as Prometheus
// series, plus a chi-routed admin HTTP surface to scrape and probe
// them. Grounded on the teacher pack's pkg/metrics/prometheus counters
// (marmos91-dittofs: promauto.With(reg).NewCounterVec/NewGaugeVec) and
// pkg/api/router.go's chi middleware stack (ghjramos-aistore's admin
// listener follows the same shape with its own Prometheus counters).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/scenesync/core/internal/causal"
	"github.com/scenesync/core/internal/presence"
)

// Collector wraps a dedicated Prometheus registry with the gauges and
// counters one scenesyncd host reports. A dedicated registry (not the
// global default) keeps multiple in-process Cores (tests, multi-session
// hosts) from colliding on metric names.
type Collector struct {
	registry *prometheus.Registry

	badFrames            prometheus.Counter
	permDenied           prometheus.Counter
	applyFailed          prometheus.Counter
	pendingLocalEvicted  prometheus.Counter
	receiveBufferEvicted prometheus.Counter

	pendingLocalLen  prometheus.Gauge
	receiveBufferLen prometheus.Gauge
	historyLen       prometheus.Gauge
	activeUsers      prometheus.Gauge

	// last* remember the previous cumulative Stats values so Sample can
	// Add the delta into a monotonic Prometheus Counter, which (unlike
	// causal.Stats's plain uint64 fields) has no Set method.
	lastBadFrames            float64
	lastPermDenied           float64
	lastApplyFailed          float64
	lastPendingLocalEvicted  float64
	lastReceiveBufferEvicted float64
}

// New creates a Collector registered against a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	return &Collector{
		registry: reg,
		badFrames: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "scenesync_bad_frames_total",
			Help: "Frames dropped by DecodeFrame/DecodeOperation due to a malformed header or CRC mismatch.",
		}),
		permDenied: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "scenesync_permission_denied_total",
			Help: "Operations dropped by PermissionGate because the sender's role lacked the required capability.",
		}),
		applyFailed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "scenesync_apply_failed_total",
			Help: "Operations that reached EditorStore.Apply but were rejected (stale target, cyclic hierarchy, bad payload).",
		}),
		pendingLocalEvicted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "scenesync_pending_local_evicted_total",
			Help: "Locally-submitted operations dropped from PendingLocal by the bounded-queue or timeout-sweep eviction paths.",
		}),
		receiveBufferEvicted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "scenesync_receive_buffer_evicted_total",
			Help: "Causally-blocked remote operations dropped from ReceiveBuffer once it saturates.",
		}),
		pendingLocalLen: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "scenesync_pending_local_length",
			Help: "Current length of the local unacknowledged-operation queue.",
		}),
		receiveBufferLen: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "scenesync_receive_buffer_length",
			Help: "Current number of causally-blocked operations awaiting their predecessor.",
		}),
		historyLen: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "scenesync_history_length",
			Help: "Current number of operations retained in the bounded history ring.",
		}),
		activeUsers: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "scenesync_active_users",
			Help: "Current number of participants tracked by PresenceTracker.",
		}),
	}
}

// Registry exposes the underlying Prometheus registry for wiring into
// promhttp.HandlerFor.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Sample pulls the current values out of engine and pt and updates every
// gauge and counter delta. Called once per Dispatcher heartbeat tick
// rather than wired as live collectors, since Engine.Stats and
// Tracker's user slice aren't safe for concurrent Prometheus scrape-time
// reads (spec.md §5: single-threaded core).
func (c *Collector) Sample(engine *causal.Engine, pt *presence.Tracker) {
	c.pendingLocalLen.Set(float64(engine.PendingLocalLen()))
	c.receiveBufferLen.Set(float64(engine.ReceiveBufferLen()))
	c.historyLen.Set(float64(engine.HistoryLen()))
	c.activeUsers.Set(float64(len(pt.Users())))

	stats := engine.Stats
	c.badFrames.Add(float64(stats.BadFrames) - c.lastBadFrames)
	c.lastBadFrames = float64(stats.BadFrames)
	c.permDenied.Add(float64(stats.PermDenied) - c.lastPermDenied)
	c.lastPermDenied = float64(stats.PermDenied)
	c.applyFailed.Add(float64(stats.ApplyFailed) - c.lastApplyFailed)
	c.lastApplyFailed = float64(stats.ApplyFailed)
	c.pendingLocalEvicted.Add(float64(stats.PendingLocalEvicted) - c.lastPendingLocalEvicted)
	c.lastPendingLocalEvicted = float64(stats.PendingLocalEvicted)
	c.receiveBufferEvicted.Add(float64(stats.ReceiveBufferEvicted) - c.lastReceiveBufferEvicted)
	c.lastReceiveBufferEvicted = float64(stats.ReceiveBufferEvicted)
}
