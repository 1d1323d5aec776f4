package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"OptInSync/internal/config"
	"OptInSync/internal/metrics"
	"OptInSync/internal/model"

	"github.com/sirupsen/logrus"
)

const defaultAnalyticsPageSize = 1000

// orderPager 聚合只需要顺序分页读取
type orderPager interface {
	ListPage(ctx context.Context, offset, limit int) ([]*model.Order, error)
}

// AggregationEngine 全量扫描订单，计算看板与 AI 摘要使用的多维统计。只读，可与同步并发执行。
type AggregationEngine struct {
	store   orderPager
	cfg     config.AnalyticsConfig
	metrics *metrics.SyncMetrics
	logger  *logrus.Logger
	now     func() time.Time
}

func NewAggregationEngine(store orderPager, cfg config.AnalyticsConfig, m *metrics.SyncMetrics, logger *logrus.Logger) *AggregationEngine {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultAnalyticsPageSize
	}
	return &AggregationEngine{store: store, cfg: cfg, metrics: m, logger: logger, now: time.Now}
}

// Aggregate 按页顺序读取直到不足一页，每页一次累积
func (e *AggregationEngine) Aggregate(ctx context.Context) (*model.Snapshot, error) {
	start := e.now()
	acc := newAccumulator()
	pages := 0
	for offset := 0; ; offset += e.cfg.PageSize {
		page, err := e.store.ListPage(ctx, offset, e.cfg.PageSize)
		if err != nil {
			return nil, fmt.Errorf("读取订单分页失败(offset=%d): %w", offset, err)
		}
		pages++
		for _, o := range page {
			acc.add(o)
		}
		if len(page) < e.cfg.PageSize {
			break
		}
	}

	summary := acc.summary()
	snap := &model.Snapshot{
		Summary:     summary,
		Stores:      acc.storeMetrics(),
		Cities:      geoMetrics(acc.cities),
		Countries:   geoMetrics(acc.countries),
		Provinces:   geoMetrics(acc.provinces),
		Hierarchy:   acc.hierarchy(e.cfg.TopCountries, e.cfg.TopCitiesPerCountry, e.cfg.TopRegionsPerCity),
		DayOfWeek:   acc.dayOfWeek(),
		Months:      acc.monthly(),
		ValueRanges: acc.valueRanges(),
		GeneratedAt: e.now().UTC(),
	}
	snap.Insights = e.insights(snap)

	elapsed := e.now().Sub(start)
	e.metrics.ObserveAnalytics(elapsed)
	e.logger.WithFields(logrus.Fields{
		"orders":     summary.TotalOrders,
		"pages":      pages,
		"elapsed_ms": elapsed.Milliseconds(),
	}).Info("聚合分析完成")
	return snap, nil
}

// insights 最佳门店、最佳城市、客单价差异，按影响分降序
func (e *AggregationEngine) insights(snap *model.Snapshot) []model.Insight {
	overall := snap.Summary.OptInRate
	var out []model.Insight

	if best, ok := bestStore(snap.Stores, int64(e.cfg.MinStoreOrders)); ok {
		score := round2(best.OptInRate - overall)
		out = append(out, model.Insight{
			Type:  "best_store",
			Title: fmt.Sprintf("Store %s leads on reusable packaging", best.StoreID),
			Description: fmt.Sprintf("%.2f%% of %d orders opted in, against %.2f%% across all stores.",
				best.OptInRate, best.Total, overall),
			Impact: impactOf(score),
			Score:  score,
		})
	}

	if best, ok := bestGeo(snap.Cities, int64(e.cfg.MinCityOrders)); ok {
		score := round2(best.OptInRate - overall)
		out = append(out, model.Insight{
			Type:  "best_city",
			Title: fmt.Sprintf("%s has the highest opt-in rate", best.Name),
			Description: fmt.Sprintf("%.2f%% of %d orders from %s opted in, against %.2f%% overall.",
				best.OptInRate, best.Total, best.Name, overall),
			Impact: impactOf(score),
			Score:  score,
		})
	}

	s := snap.Summary
	if s.TotalOptIns > 0 && s.TotalOptOuts > 0 && s.AvgOrderValueOptOut > 0 {
		score := round2(math.Abs(s.ValueDifferential) / s.AvgOrderValueOptOut * 100)
		direction := "higher"
		if s.ValueDifferential < 0 {
			direction = "lower"
		}
		out = append(out, model.Insight{
			Type:  "value_differential",
			Title: fmt.Sprintf("Opt-in orders are worth %s on average", direction),
			Description: fmt.Sprintf("Average opt-in order is %.2f against %.2f for opt-out orders (%+.2f).",
				s.AvgOrderValueOptIn, s.AvgOrderValueOptOut, s.ValueDifferential),
			Impact: impactOf(score),
			Score:  score,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func bestStore(stores []model.StoreMetric, minOrders int64) (model.StoreMetric, bool) {
	var best model.StoreMetric
	found := false
	for _, st := range stores {
		if st.Total < minOrders {
			continue
		}
		if !found || st.OptInRate > best.OptInRate || (st.OptInRate == best.OptInRate && st.Total > best.Total) {
			best, found = st, true
		}
	}
	return best, found
}

func bestGeo(items []model.GeoMetric, minOrders int64) (model.GeoMetric, bool) {
	var best model.GeoMetric
	found := false
	for _, g := range items {
		if g.Total < minOrders {
			continue
		}
		if !found || g.OptInRate > best.OptInRate || (g.OptInRate == best.OptInRate && g.Total > best.Total) {
			best, found = g, true
		}
	}
	return best, found
}

func impactOf(score float64) string {
	switch a := math.Abs(score); {
	case a >= 20:
		return "high"
	case a >= 5:
		return "medium"
	default:
		return "low"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
