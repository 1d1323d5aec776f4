package service

import (
	"sort"

	"OptInSync/internal/geo"
	"OptInSync/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// valueBand 订单金额区间，Max 为 0 表示无上限
type valueBand struct {
	label string
	min   decimal.Decimal
	max   decimal.Decimal
}

var valueBands = []valueBand{
	{"0-25", decimal.NewFromInt(0), decimal.NewFromInt(25)},
	{"25-50", decimal.NewFromInt(25), decimal.NewFromInt(50)},
	{"50-100", decimal.NewFromInt(50), decimal.NewFromInt(100)},
	{"100-200", decimal.NewFromInt(100), decimal.NewFromInt(200)},
	{"200-500", decimal.NewFromInt(200), decimal.NewFromInt(500)},
	{"500+", decimal.NewFromInt(500), decimal.Zero},
}

// tally 计数与金额
type tally struct {
	total   int64
	optIns  int64
	revenue decimal.Decimal
}

func (t *tally) add(optIn bool, price decimal.Decimal) {
	t.total++
	if optIn {
		t.optIns++
	}
	t.revenue = t.revenue.Add(price)
}

func (t *tally) optOuts() int64 { return t.total - t.optIns }

// rate optIns/total*100，保留两位小数，total 为 0 时为 0
func rate(optIns, total int64) float64 {
	if total == 0 {
		return 0
	}
	return decimal.NewFromInt(optIns).Mul(hundred).Div(decimal.NewFromInt(total)).Round(2).InexactFloat64()
}

func average(sum decimal.Decimal, n int64) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(n)).Round(2)
}

type cityNode struct {
	tally
	regions map[string]*tally
}

type countryNode struct {
	tally
	cities map[string]*cityNode
}

// accumulator 单次扫描内累积所有维度
type accumulator struct {
	optIn, optOut tally

	stores    map[string]*tally
	cities    map[string]*tally
	countries map[string]*tally
	provinces map[string]*tally
	tree      map[string]*countryNode
	weekdays  [7]tally
	months    map[string]*tally
	bands     []tally
}

func newAccumulator() *accumulator {
	return &accumulator{
		stores:    map[string]*tally{},
		cities:    map[string]*tally{},
		countries: map[string]*tally{},
		provinces: map[string]*tally{},
		tree:      map[string]*countryNode{},
		months:    map[string]*tally{},
		bands:     make([]tally, len(valueBands)),
	}
}

func bump(m map[string]*tally, key string, optIn bool, price decimal.Decimal) {
	t, ok := m[key]
	if !ok {
		t = &tally{}
		m[key] = t
	}
	t.add(optIn, price)
}

// add 计入一条订单；地理字段用当前词表重新校验，未通过的维度不计入但仍计入总数
func (a *accumulator) add(o *model.Order) {
	price := o.TotalPrice
	if price.IsNegative() {
		price = decimal.Zero
	}
	if o.OptIn {
		a.optIn.add(true, price)
	} else {
		a.optOut.add(false, price)
	}

	store := o.StoreID
	if store == "" {
		store = "unknown"
	}
	bump(a.stores, store, o.OptIn, price)

	loc := geo.Revalidate(o.City, o.Province, o.Country)
	if loc.City != nil {
		bump(a.cities, *loc.City, o.OptIn, price)
	}
	if loc.Province != nil {
		bump(a.provinces, *loc.Province, o.OptIn, price)
	}
	if loc.Country != nil {
		bump(a.countries, *loc.Country, o.OptIn, price)
		a.addToTree(loc, o.OptIn, price)
	}

	if !o.PlacedAt.IsZero() {
		placed := o.PlacedAt.UTC()
		a.weekdays[placed.Weekday()].add(o.OptIn, price)
		bump(a.months, placed.Format("2006-01"), o.OptIn, price)
	}

	a.bands[bandIndex(price)].add(o.OptIn, price)
}

func (a *accumulator) addToTree(loc geo.Location, optIn bool, price decimal.Decimal) {
	country, ok := a.tree[*loc.Country]
	if !ok {
		country = &countryNode{cities: map[string]*cityNode{}}
		a.tree[*loc.Country] = country
	}
	country.add(optIn, price)
	if loc.City == nil {
		return
	}
	city, ok := country.cities[*loc.City]
	if !ok {
		city = &cityNode{regions: map[string]*tally{}}
		country.cities[*loc.City] = city
	}
	city.add(optIn, price)
	if loc.Province != nil {
		bump(city.regions, *loc.Province, optIn, price)
	}
}

func bandIndex(price decimal.Decimal) int {
	for i, b := range valueBands {
		if b.max.IsZero() || price.LessThan(b.max) {
			return i
		}
	}
	return len(valueBands) - 1
}

func (a *accumulator) summary() model.Summary {
	total := a.optIn.total + a.optOut.total
	aovIn := average(a.optIn.revenue, a.optIn.total)
	aovOut := average(a.optOut.revenue, a.optOut.total)
	return model.Summary{
		TotalOrders:         total,
		TotalOptIns:         a.optIn.total,
		TotalOptOuts:        a.optOut.total,
		OptInRate:           rate(a.optIn.total, total),
		OptInRevenue:        a.optIn.revenue.Round(2).InexactFloat64(),
		OptOutRevenue:       a.optOut.revenue.Round(2).InexactFloat64(),
		AvgOrderValueOptIn:  aovIn.InexactFloat64(),
		AvgOrderValueOptOut: aovOut.InexactFloat64(),
		ValueDifferential:   aovIn.Sub(aovOut).Round(2).InexactFloat64(),
	}
}

func (a *accumulator) storeMetrics() []model.StoreMetric {
	out := make([]model.StoreMetric, 0, len(a.stores))
	for id, t := range a.stores {
		out = append(out, model.StoreMetric{
			StoreID:       id,
			Total:         t.total,
			OptIns:        t.optIns,
			OptOuts:       t.optOuts(),
			OptInRate:     rate(t.optIns, t.total),
			AvgOrderValue: average(t.revenue, t.total).InexactFloat64(),
			TotalRevenue:  t.revenue.Round(2).InexactFloat64(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].StoreID < out[j].StoreID
	})
	return out
}

func geoMetrics(m map[string]*tally) []model.GeoMetric {
	out := make([]model.GeoMetric, 0, len(m))
	for name, t := range m {
		out = append(out, model.GeoMetric{
			Name:      name,
			Total:     t.total,
			OptIns:    t.optIns,
			OptOuts:   t.optOuts(),
			OptInRate: rate(t.optIns, t.total),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func node(name, level string, t *tally) model.HierarchyNode {
	return model.HierarchyNode{
		Name:      name,
		Level:     level,
		Total:     t.total,
		OptIns:    t.optIns,
		OptOuts:   t.optOuts(),
		OptInRate: rate(t.optIns, t.total),
	}
}

// hierarchy 国家 → 城市 → 地区，每层按订单数降序截断
func (a *accumulator) hierarchy(maxCountries, maxCities, maxRegions int) []model.HierarchyNode {
	countries := make([]model.HierarchyNode, 0, len(a.tree))
	for _, c := range capped(rankedCountries(a.tree), maxCountries) {
		cn := a.tree[c]
		n := node(c, "country", &cn.tally)

		cityTallies := make(map[string]*tally, len(cn.cities))
		for name, city := range cn.cities {
			cityTallies[name] = &city.tally
		}
		for _, cityName := range capped(rankedNames(cityTallies), maxCities) {
			city := cn.cities[cityName]
			child := node(cityName, "city", &city.tally)
			for _, region := range capped(rankedNames(city.regions), maxRegions) {
				child.Children = append(child.Children, node(region, "region", city.regions[region]))
			}
			n.Children = append(n.Children, child)
		}
		countries = append(countries, n)
	}
	return countries
}

func rankedCountries(tree map[string]*countryNode) []string {
	tallies := make(map[string]*tally, len(tree))
	for name, c := range tree {
		tallies[name] = &c.tally
	}
	return rankedNames(tallies)
}

func rankedNames(m map[string]*tally) []string {
	names := make([]string, 0, len(m))
	for _, g := range geoMetrics(m) {
		names = append(names, g.Name)
	}
	return names
}

func capped(names []string, limit int) []string {
	if limit > 0 && len(names) > limit {
		return names[:limit]
	}
	return names
}

func (a *accumulator) dayOfWeek() []model.TemporalBucket {
	out := make([]model.TemporalBucket, 0, len(a.weekdays))
	for day := range a.weekdays {
		t := &a.weekdays[day]
		out = append(out, temporal(string(rune('0'+day)), t))
	}
	return out
}

func (a *accumulator) monthly() []model.TemporalBucket {
	keys := make([]string, 0, len(a.months))
	for k := range a.months {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]model.TemporalBucket, 0, len(keys))
	for _, k := range keys {
		out = append(out, temporal(k, a.months[k]))
	}
	return out
}

func temporal(key string, t *tally) model.TemporalBucket {
	return model.TemporalBucket{
		Key:       key,
		Total:     t.total,
		OptIns:    t.optIns,
		OptOuts:   t.optOuts(),
		OptInRate: rate(t.optIns, t.total),
	}
}

func (a *accumulator) valueRanges() []model.ValueRange {
	out := make([]model.ValueRange, 0, len(valueBands))
	for i, b := range valueBands {
		t := &a.bands[i]
		out = append(out, model.ValueRange{
			Label:     b.label,
			Min:       b.min.InexactFloat64(),
			Max:       b.max.InexactFloat64(),
			Total:     t.total,
			OptIns:    t.optIns,
			OptOuts:   t.optOuts(),
			OptInRate: rate(t.optIns, t.total),
		})
	}
	return out
}
