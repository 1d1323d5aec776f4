package model

import "time"

// Snapshot 聚合分析快照，每次请求重新计算，不落库。
// 这是唯一对外（看板与 AI 摘要）暴露的产物，只包含计数、比率和已校验的地名，不含任何订单或顾客字段。
type Snapshot struct {
	Summary     Summary          `json:"summary"`
	Stores      []StoreMetric    `json:"stores"`
	Cities      []GeoMetric      `json:"cities"`
	Countries   []GeoMetric      `json:"countries"`
	Provinces   []GeoMetric      `json:"provinces"`
	Hierarchy   []HierarchyNode  `json:"hierarchy"`
	DayOfWeek   []TemporalBucket `json:"day_of_week"`
	Months      []TemporalBucket `json:"months"`
	ValueRanges []ValueRange     `json:"value_ranges"`
	Insights    []Insight        `json:"insights"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Summary 全局汇总
type Summary struct {
	TotalOrders         int64   `json:"total_orders"`
	TotalOptIns         int64   `json:"total_opt_ins"`
	TotalOptOuts        int64   `json:"total_opt_outs"`
	OptInRate           float64 `json:"opt_in_rate"`
	OptInRevenue        float64 `json:"opt_in_revenue"`
	OptOutRevenue       float64 `json:"opt_out_revenue"`
	AvgOrderValueOptIn  float64 `json:"avg_order_value_opt_in"`
	AvgOrderValueOptOut float64 `json:"avg_order_value_opt_out"`
	ValueDifferential   float64 `json:"value_differential"`
}

// StoreMetric 门店维度
type StoreMetric struct {
	StoreID       string  `json:"store_id"`
	Total         int64   `json:"total"`
	OptIns        int64   `json:"opt_ins"`
	OptOuts       int64   `json:"opt_outs"`
	OptInRate     float64 `json:"opt_in_rate"`
	AvgOrderValue float64 `json:"avg_order_value"`
	TotalRevenue  float64 `json:"total_revenue"`
}

// GeoMetric 城市/省份/国家维度（仅包含通过校验的地名）
type GeoMetric struct {
	Name      string  `json:"name"`
	Total     int64   `json:"total"`
	OptIns    int64   `json:"opt_ins"`
	OptOuts   int64   `json:"opt_outs"`
	OptInRate float64 `json:"opt_in_rate"`
}

// HierarchyNode 地理层级树节点：国家 → 城市 → 地区
type HierarchyNode struct {
	Name      string          `json:"name"`
	Level     string          `json:"level"`
	Total     int64           `json:"total"`
	OptIns    int64           `json:"opt_ins"`
	OptOuts   int64           `json:"opt_outs"`
	OptInRate float64         `json:"opt_in_rate"`
	Children  []HierarchyNode `json:"children,omitempty"`
}

// TemporalBucket 时间维度：星期（0=周日）或 YYYY-MM
type TemporalBucket struct {
	Key       string  `json:"key"`
	Total     int64   `json:"total"`
	OptIns    int64   `json:"opt_ins"`
	OptOuts   int64   `json:"opt_outs"`
	OptInRate float64 `json:"opt_in_rate"`
}

// ValueRange 订单金额区间
type ValueRange struct {
	Label     string  `json:"label"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max,omitempty"`
	Total     int64   `json:"total"`
	OptIns    int64   `json:"opt_ins"`
	OptOuts   int64   `json:"opt_outs"`
	OptInRate float64 `json:"opt_in_rate"`
}

// Insight 派生结论
type Insight struct {
	Type        string  `json:"type"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Impact      string  `json:"impact"`
	Score       float64 `json:"score"`
}
