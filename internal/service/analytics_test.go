package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"OptInSync/internal/config"
	"OptInSync/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPager struct {
	*memoryStore
	calls int
}

func (p *countingPager) ListPage(ctx context.Context, offset, limit int) ([]*model.Order, error) {
	p.calls++
	return p.memoryStore.ListPage(ctx, offset, limit)
}

func storedOrder(id, store string, optIn bool, price string, placed time.Time, city, province, country *string) *model.Order {
	return &model.Order{
		ExternalID: id,
		StoreID:    store,
		OptIn:      optIn,
		TotalPrice: decimal.RequireFromString(price),
		City:       city,
		Province:   province,
		Country:    country,
		PlacedAt:   placed,
	}
}

func analyticsConfig() config.AnalyticsConfig {
	return config.AnalyticsConfig{
		PageSize:            2,
		TopCountries:        10,
		TopCitiesPerCountry: 10,
		TopRegionsPerCity:   5,
		MinStoreOrders:      2,
		MinCityOrders:       2,
	}
}

// 2026-03-01 是周日
var sunday = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedAnalytics(store *memoryStore) {
	uk, fr := strPtr("United Kingdom"), strPtr("France")
	store.Upsert(context.Background(), []*model.Order{
		storedOrder("1", "s1", true, "10.00", sunday, strPtr("Leeds"), strPtr("England"), uk),
		storedOrder("2", "s1", true, "30.00", sunday.AddDate(0, 0, 1), strPtr("Leeds"), strPtr("England"), uk),
		storedOrder("3", "s1", false, "60.00", sunday.AddDate(0, 1, 0), strPtr("London"), nil, uk),
		storedOrder("4", "s2", false, "150.00", sunday, strPtr("Paris"), nil, fr),
		storedOrder("5", "s2", true, "600.00", sunday, strPtr("Wakanda City"), nil, strPtr("Wakanda")),
	})
}

func TestAggregate_ConservationAndSummary(t *testing.T) {
	store := newMemoryStore()
	seedAnalytics(store)
	engine := NewAggregationEngine(store, analyticsConfig(), nil, quietLogger())

	snap, err := engine.Aggregate(context.Background())
	require.NoError(t, err)

	s := snap.Summary
	assert.Equal(t, int64(5), s.TotalOrders)
	assert.Equal(t, int64(3), s.TotalOptIns)
	assert.Equal(t, int64(2), s.TotalOptOuts)
	assert.Equal(t, 60.0, s.OptInRate)
	assert.Equal(t, 640.0, s.OptInRevenue)
	assert.Equal(t, 210.0, s.OptOutRevenue)
	assert.InDelta(t, 213.33, s.AvgOrderValueOptIn, 1e-9)
	assert.InDelta(t, 105.0, s.AvgOrderValueOptOut, 1e-9)
	assert.InDelta(t, 108.33, s.ValueDifferential, 1e-9)

	var storeTotal int64
	for _, st := range snap.Stores {
		assert.Equal(t, st.Total, st.OptIns+st.OptOuts)
		storeTotal += st.Total
	}
	assert.Equal(t, s.TotalOrders, storeTotal)

	var dayTotal, monthTotal, bandTotal int64
	for _, b := range snap.DayOfWeek {
		assert.Equal(t, b.Total, b.OptIns+b.OptOuts)
		dayTotal += b.Total
	}
	for _, b := range snap.Months {
		monthTotal += b.Total
	}
	for _, b := range snap.ValueRanges {
		assert.Equal(t, b.Total, b.OptIns+b.OptOuts)
		bandTotal += b.Total
	}
	assert.Equal(t, s.TotalOrders, dayTotal)
	assert.Equal(t, s.TotalOrders, monthTotal)
	assert.Equal(t, s.TotalOrders, bandTotal)
}

func TestAggregate_OnlyValidatedGeography(t *testing.T) {
	store := newMemoryStore()
	seedAnalytics(store)
	engine := NewAggregationEngine(store, analyticsConfig(), nil, quietLogger())

	snap, err := engine.Aggregate(context.Background())
	require.NoError(t, err)

	var countries []string
	for _, c := range snap.Countries {
		countries = append(countries, c.Name)
	}
	assert.Equal(t, []string{"United Kingdom", "France"}, countries)
	assert.Equal(t, int64(5), snap.Summary.TotalOrders, "未通过校验的订单仍计入总数")

	require.Len(t, snap.Hierarchy, 2)
	uk := snap.Hierarchy[0]
	assert.Equal(t, "United Kingdom", uk.Name)
	assert.Equal(t, "country", uk.Level)
	assert.Equal(t, int64(3), uk.Total)
	require.Len(t, uk.Children, 2)
	assert.Equal(t, "Leeds", uk.Children[0].Name)
	require.Len(t, uk.Children[0].Children, 1)
	assert.Equal(t, "England", uk.Children[0].Children[0].Name)
	assert.Equal(t, "region", uk.Children[0].Children[0].Level)
}

func TestAggregate_HierarchyCaps(t *testing.T) {
	store := newMemoryStore()
	uk := strPtr("United Kingdom")
	var orders []*model.Order
	for i, city := range []string{"Leeds", "Leeds", "Leeds", "York", "York", "Bath"} {
		orders = append(orders, storedOrder(fmt.Sprint(i+1), "s1", true, "5", sunday, strPtr(city), nil, uk))
	}
	store.Upsert(context.Background(), orders)

	cfg := analyticsConfig()
	cfg.TopCitiesPerCountry = 2
	snap, err := NewAggregationEngine(store, cfg, nil, quietLogger()).Aggregate(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Hierarchy, 1)
	children := snap.Hierarchy[0].Children
	require.Len(t, children, 2)
	assert.Equal(t, "Leeds", children[0].Name)
	assert.Equal(t, "York", children[1].Name)
	assert.Equal(t, int64(6), snap.Hierarchy[0].Total, "截断只影响子节点列表，不影响上层计数")
}

func TestAggregate_TemporalAndValueBuckets(t *testing.T) {
	store := newMemoryStore()
	seedAnalytics(store)
	snap, err := NewAggregationEngine(store, analyticsConfig(), nil, quietLogger()).Aggregate(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.DayOfWeek, 7)
	assert.Equal(t, "0", snap.DayOfWeek[0].Key)
	assert.Equal(t, int64(3), snap.DayOfWeek[0].Total)
	assert.Equal(t, int64(1), snap.DayOfWeek[1].Total)

	require.Len(t, snap.Months, 2)
	assert.Equal(t, "2026-03", snap.Months[0].Key)
	assert.Equal(t, int64(4), snap.Months[0].Total)
	assert.Equal(t, "2026-04", snap.Months[1].Key)

	labels := make(map[string]int64)
	for _, b := range snap.ValueRanges {
		labels[b.Label] = b.Total
	}
	assert.Equal(t, map[string]int64{
		"0-25": 1, "25-50": 1, "50-100": 1, "100-200": 1, "200-500": 0, "500+": 1,
	}, labels)
}

func TestAggregate_EmptyStoreHasZeroRates(t *testing.T) {
	engine := NewAggregationEngine(newMemoryStore(), analyticsConfig(), nil, quietLogger())
	snap, err := engine.Aggregate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(0), snap.Summary.TotalOrders)
	assert.Equal(t, 0.0, snap.Summary.OptInRate)
	assert.Equal(t, 0.0, snap.Summary.AvgOrderValueOptIn)
	assert.Empty(t, snap.Insights)
	for _, b := range snap.ValueRanges {
		assert.Equal(t, 0.0, b.OptInRate)
	}
}

func TestAggregate_PaginatesUntilShortPage(t *testing.T) {
	pager := &countingPager{memoryStore: newMemoryStore()}
	seedAnalytics(pager.memoryStore)
	engine := NewAggregationEngine(pager, analyticsConfig(), nil, quietLogger())

	_, err := engine.Aggregate(context.Background())
	require.NoError(t, err)
	// 5 条、每页 2 条：2 + 2 + 1
	assert.Equal(t, 3, pager.calls)

	pager.calls = 0
	pager.Upsert(context.Background(), []*model.Order{storedOrder("6", "s1", true, "1", sunday, nil, nil, nil)})
	_, err = engine.Aggregate(context.Background())
	require.NoError(t, err)
	// 6 条：2 + 2 + 2 + 空页
	assert.Equal(t, 4, pager.calls)
}

func TestAggregate_InsightsRanked(t *testing.T) {
	store := newMemoryStore()
	seedAnalytics(store)
	snap, err := NewAggregationEngine(store, analyticsConfig(), nil, quietLogger()).Aggregate(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, snap.Insights)
	for i := 1; i < len(snap.Insights); i++ {
		assert.GreaterOrEqual(t, snap.Insights[i-1].Score, snap.Insights[i].Score)
	}
	types := map[string]model.Insight{}
	for _, in := range snap.Insights {
		types[in.Type] = in
	}
	assert.Contains(t, types, "best_store")
	assert.Contains(t, types, "best_city")
	assert.Contains(t, types, "value_differential")
	assert.Contains(t, types["best_city"].Title, "Leeds")
	assert.Equal(t, "high", types["value_differential"].Impact)
}
