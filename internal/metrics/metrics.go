package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 花名册导入与批量删除的 Prometheus 指标
// 所有方法均允许 nil 接收者，未启用指标时直接忽略
type Metrics struct {
	// 导入行结果，按 outcome 区分
	ImportRows *prometheus.CounterVec

	// 整批导入耗时，按来源（json / xlsx）区分
	ImportDuration *prometheus.HistogramVec

	// 批量删除单项结果，按 result（deleted / failed）区分
	BulkDeleteItems *prometheus.CounterVec

	// 被限流拒绝的请求数，按路由区分
	RateLimited *prometheus.CounterVec
}

// New 在 reg 上注册并返回全部指标；reg 为 nil 时使用默认注册表
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ImportRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_import_rows_total",
			Help: "Roster import rows by terminal outcome",
		}, []string{"outcome"}),

		ImportDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roster_import_duration_seconds",
			Help:    "Duration of a whole roster import batch",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),

		BulkDeleteItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_bulk_delete_items_total",
			Help: "Bulk student delete items by result",
		}, []string{"result"}),

		RateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter",
		}, []string{"route"}),
	}
}

// IncImportRow 记录一行导入结果
func (m *Metrics) IncImportRow(outcome string) {
	if m != nil {
		m.ImportRows.WithLabelValues(outcome).Inc()
	}
}

// ObserveImportDuration 记录整批导入耗时
func (m *Metrics) ObserveImportDuration(source string, d time.Duration) {
	if m != nil {
		m.ImportDuration.WithLabelValues(source).Observe(d.Seconds())
	}
}

// IncBulkDelete 记录一项批量删除结果
func (m *Metrics) IncBulkDelete(result string) {
	if m != nil {
		m.BulkDeleteItems.WithLabelValues(result).Inc()
	}
}

// IncRateLimited 记录一次限流拒绝
func (m *Metrics) IncRateLimited(route string) {
	if m != nil {
		m.RateLimited.WithLabelValues(route).Inc()
	}
}
