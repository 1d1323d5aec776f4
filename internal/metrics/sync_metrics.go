// Package metrics 同步与分析流程的 Prometheus 指标
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// 同步结果标签
const (
	OutcomeSuccess            = "success"
	OutcomeLockedOut          = "locked_out"
	OutcomeFatal              = "fatal"
	OutcomeMaxRetries         = "max_retries"
	OutcomeMissingCredentials = "missing_credentials"
	OutcomeCancelled          = "cancelled"
)

// 记录处理标签
const (
	RecordInserted = "inserted"
	RecordErrored  = "errored"
	RecordFiltered = "filtered"
)

// SyncMetrics 同步、回填、聚合指标；nil 接收者上的方法均为空操作
type SyncMetrics struct {
	runs            *prometheus.CounterVec
	retries         prometheus.Counter
	duration        prometheus.Histogram
	records         *prometheus.CounterVec
	ordersTotal     prometheus.Gauge
	lastSuccess     prometheus.Gauge
	backfillUpdated prometheus.Counter
	analyticsTime   prometheus.Histogram
}

// NewSyncMetrics 创建并注册指标；registerer 为 nil 时使用默认注册表
func NewSyncMetrics(registerer prometheus.Registerer) *SyncMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &SyncMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "optinsync_sync_runs_total",
			Help: "Order sync runs by outcome.",
		}, []string{"outcome"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "optinsync_sync_retries_total",
			Help: "Retry attempts scheduled after transient source failures.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "optinsync_sync_duration_seconds",
			Help:    "Wall time of a sync run including retry waits.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "optinsync_sync_records_total",
			Help: "Records handled by sync runs by result.",
		}, []string{"result"}),
		ordersTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "optinsync_orders_total",
			Help: "Orders stored after the last sync run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "optinsync_sync_last_success_timestamp_seconds",
			Help: "Unix time of the last successful sync run.",
		}),
		backfillUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "optinsync_geo_backfill_updated_total",
			Help: "Orders whose geography changed during a backfill.",
		}),
		analyticsTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "optinsync_analytics_duration_seconds",
			Help:    "Time to build an analytics snapshot.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	registerer.MustRegister(
		m.runs, m.retries, m.duration, m.records,
		m.ordersTotal, m.lastSuccess, m.backfillUpdated, m.analyticsTime,
	)
	return m
}

// ObserveRun 记录一次同步运行的结果与耗时
func (m *SyncMetrics) ObserveRun(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
	if outcome == OutcomeSuccess {
		m.lastSuccess.SetToCurrentTime()
	}
}

func (m *SyncMetrics) IncRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *SyncMetrics) AddRecords(result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.records.WithLabelValues(result).Add(float64(n))
}

func (m *SyncMetrics) SetOrdersTotal(n int64) {
	if m == nil {
		return
	}
	m.ordersTotal.Set(float64(n))
}

func (m *SyncMetrics) AddBackfillUpdated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.backfillUpdated.Add(float64(n))
}

func (m *SyncMetrics) ObserveAnalytics(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.analyticsTime.Observe(elapsed.Seconds())
}
