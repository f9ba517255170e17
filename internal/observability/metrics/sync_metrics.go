package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config configures metric const labels.
type Config struct {
	ServiceName string
	Environment string
}

const (
	SyncErrorReasonDeadlineExceeded = "deadline_exceeded"
	SyncErrorReasonInvalidInput     = "invalid_input"
	SyncErrorReasonFetchFailed      = "fetch_failed"
	SyncErrorReasonReconcileFailed  = "reconcile_failed"
	SyncErrorReasonUnknown          = "unknown"
)

const (
	SyncItemOutcomeReconciled = "reconciled"
	SyncItemOutcomeSkipped    = "skipped"
	SyncItemOutcomeFailed     = "failed"
)

// SyncMetrics captures variant sync health signals.
type SyncMetrics struct {
	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	runTimeouts *prometheus.CounterVec
	runErrors   *prometheus.CounterVec
	items       *prometheus.CounterVec
	lockSkipped *prometheus.CounterVec
}

var (
	syncMetricsOnce sync.Once
	syncMetrics     *SyncMetrics
)

// Sync returns the singleton sync metrics registry.
func Sync() *SyncMetrics {
	return SyncWithConfig(Config{})
}

// SyncWithConfig returns the singleton sync metrics registry using config labels.
func SyncWithConfig(cfg Config) *SyncMetrics {
	syncMetricsOnce.Do(func() {
		syncMetrics = newSyncMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return syncMetrics
}

// ResetSyncMetricsForTest resets the sync metrics singleton for tests.
func ResetSyncMetricsForTest() {
	syncMetricsOnce = sync.Once{}
	syncMetrics = nil
}

func newSyncMetrics(registerer prometheus.Registerer, cfg Config) *SyncMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "stocksense"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "stocksense_sync_runs_total",
		Help:        "Variant sync runs by trigger.",
		ConstLabels: constLabels,
	}, []string{"trigger"})
	runDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "stocksense_sync_run_duration_seconds",
		Help:        "Variant sync run latency.",
		Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: constLabels,
	}, []string{"trigger"})
	runTimeouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "stocksense_sync_run_timeouts_total",
		Help:        "Variant sync runs cut off by their deadline.",
		ConstLabels: constLabels,
	}, []string{"trigger"})
	runErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "stocksense_sync_run_errors_total",
		Help:        "Variant sync run errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"trigger", "reason"})
	items := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "stocksense_sync_items_total",
		Help:        "Variant nodes processed by outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	lockSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "stocksense_sync_lock_skipped_total",
		Help:        "Sync runs skipped because another run held the shop lock.",
		ConstLabels: constLabels,
	}, []string{"trigger"})

	for _, collector := range []prometheus.Collector{runs, runDuration, runTimeouts, runErrors, items, lockSkipped} {
		if err := registerer.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				panic(err)
			}
		}
	}

	return &SyncMetrics{
		runs:        runs,
		runDuration: runDuration,
		runTimeouts: runTimeouts,
		runErrors:   runErrors,
		items:       items,
		lockSkipped: lockSkipped,
	}
}

// IncRun counts one sync run for the given trigger.
func (m *SyncMetrics) IncRun(trigger string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(trigger).Inc()
}

// ObserveRunDuration records the latency of one sync run.
func (m *SyncMetrics) ObserveRunDuration(trigger string, d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(trigger).Observe(d.Seconds())
}

// IncRunTimeout counts a deadline-terminated run.
func (m *SyncMetrics) IncRunTimeout(trigger string) {
	if m == nil {
		return
	}
	m.runTimeouts.WithLabelValues(trigger).Inc()
}

// IncRunError counts a failed run with a classified reason.
func (m *SyncMetrics) IncRunError(trigger string, err error) {
	if m == nil {
		return
	}
	m.runErrors.WithLabelValues(trigger, classifySyncError(err)).Inc()
}

// IncItems counts processed variant nodes by outcome.
func (m *SyncMetrics) IncItems(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.items.WithLabelValues(outcome).Add(float64(n))
}

// IncLockSkipped counts a run skipped on a held shop lock.
func (m *SyncMetrics) IncLockSkipped(trigger string) {
	if m == nil {
		return
	}
	m.lockSkipped.WithLabelValues(trigger).Inc()
}

func classifySyncError(err error) string {
	if err == nil {
		return SyncErrorReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return SyncErrorReasonDeadlineExceeded
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, SyncErrorReasonInvalidInput):
		return SyncErrorReasonInvalidInput
	case strings.Contains(msg, SyncErrorReasonFetchFailed):
		return SyncErrorReasonFetchFailed
	case strings.Contains(msg, SyncErrorReasonReconcileFailed):
		return SyncErrorReasonReconcileFailed
	default:
		return SyncErrorReasonUnknown
	}
}
