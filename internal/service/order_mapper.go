package service

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"OptInSync/internal/geo"
	"OptInSync/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

var errMissingExternalID = errors.New("订单缺少 external_id")

// 源系统时间格式不统一，依次尝试
var sourceTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02",
}

// buildOrder 原始记录 → 入库模型：地理字段经过提取与校验，价格与时间做宽松解析
func buildOrder(raw *model.RawOrder, now time.Time) (*model.Order, error) {
	key := raw.Key()
	if key == "" {
		return nil, errMissingExternalID
	}

	src := model.SourceGeo{
		City:        string(raw.City),
		Province:    string(raw.Province),
		Country:     string(raw.Country),
		Destination: raw.DestinationString(),
	}
	loc := reconcileSource(src)
	srcJSON, err := json.Marshal(src)
	if err != nil {
		return nil, err
	}

	return &model.Order{
		ExternalID:    key,
		StoreID:       strings.TrimSpace(string(raw.StoreID)),
		OptIn:         raw.OptIn.Bool(),
		TotalPrice:    parsePrice(string(raw.TotalPrice)),
		City:          loc.City,
		Province:      loc.Province,
		Country:       loc.Country,
		PaymentStatus: strings.TrimSpace(string(raw.PaymentStatus)),
		PlacedAt:      parseSourceTime(string(raw.CreatedAt), now),
		IngestedAt:    now,
		SourceGeo:     datatypes.JSON(srcJSON),
	}, nil
}

// reconcileSource 平铺列为空时用收货地址载荷补位，再统一提取
func reconcileSource(src model.SourceGeo) geo.Location {
	city, province, country := src.City, src.Province, src.Country
	if src.Destination != "" {
		if strings.TrimSpace(city) == "" {
			city = src.Destination
		}
		if strings.TrimSpace(province) == "" {
			province = src.Destination
		}
		if strings.TrimSpace(country) == "" {
			country = src.Destination
		}
	}
	return geo.Reconcile(city, province, country)
}

// parsePrice 去掉货币符号与千分位；无法解析或为负数时记为 0
func parsePrice(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$£€")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(2)
}

// parseSourceTime 支持常见字符串格式与 Unix 秒/毫秒；都失败时使用入库时间
func parseSourceTime(s string, fallback time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	for _, layout := range sourceTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
		if n > 1e12 {
			return time.UnixMilli(n).UTC()
		}
		return time.Unix(n, 0).UTC()
	}
	return fallback
}

// sourceGeoOf 读取已落库的原始地理输入
func sourceGeoOf(o *model.Order) (model.SourceGeo, bool) {
	var src model.SourceGeo
	if len(o.SourceGeo) == 0 {
		return src, false
	}
	if err := json.Unmarshal(o.SourceGeo, &src); err != nil {
		return src, false
	}
	return src, true
}
