package service

import (
	"context"
	"fmt"

	"OptInSync/internal/geo"
	"OptInSync/internal/interfaces"
	"OptInSync/internal/metrics"

	"github.com/sirupsen/logrus"
)

// BackfillResult 回填统计
type BackfillResult struct {
	Scanned int    `json:"scanned"`
	Updated int    `json:"updated"`
	Failed  int    `json:"failed"`
	Version string `json:"vocabulary_version"`
}

// GeoBackfill 词表更新后，用落库的原始地理输入重新提取校验，只回写结果有变化的订单
type GeoBackfill struct {
	store    interfaces.OrderStore
	pageSize int
	metrics  *metrics.SyncMetrics
	logger   *logrus.Logger
}

func NewGeoBackfill(store interfaces.OrderStore, pageSize int, m *metrics.SyncMetrics, logger *logrus.Logger) *GeoBackfill {
	if pageSize <= 0 {
		pageSize = defaultAnalyticsPageSize
	}
	return &GeoBackfill{store: store, pageSize: pageSize, metrics: m, logger: logger}
}

// Run 按主键顺序分页扫描；单条更新失败只计数，不中断
func (b *GeoBackfill) Run(ctx context.Context) (*BackfillResult, error) {
	res := &BackfillResult{Version: geo.VocabularyVersion}
	for offset := 0; ; offset += b.pageSize {
		page, err := b.store.ListPage(ctx, offset, b.pageSize)
		if err != nil {
			return res, fmt.Errorf("读取订单分页失败(offset=%d): %w", offset, err)
		}
		for _, o := range page {
			res.Scanned++
			current := geo.Location{City: o.City, Province: o.Province, Country: o.Country}

			var next geo.Location
			if src, ok := sourceGeoOf(o); ok {
				next = reconcileSource(src)
			} else {
				next = geo.Revalidate(o.City, o.Province, o.Country)
			}
			if next.Equal(current) {
				continue
			}
			if err := b.store.UpdateGeo(ctx, o.ID, next); err != nil {
				res.Failed++
				b.logger.WithError(err).WithField("external_id", o.ExternalID).Warn("回写地理字段失败")
				continue
			}
			res.Updated++
		}
		if len(page) < b.pageSize {
			break
		}
	}

	b.metrics.AddBackfillUpdated(res.Updated)
	b.logger.WithFields(logrus.Fields{
		"scanned": res.Scanned,
		"updated": res.Updated,
		"failed":  res.Failed,
		"version": res.Version,
	}).Info("地理字段回填完成")
	return res, nil
}
