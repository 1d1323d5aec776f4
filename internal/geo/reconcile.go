// Package geo 从订单原始数据中提取并校验城市/省份/国家。
// 源数据中的地理列可能是干净值、JSON 字符串、多重转义的 JSON，甚至整段收货地址落在错误的列里；
// 任何分支都不返回错误，提取或校验失败一律置空。
package geo

const (
	FieldCity     = "city"
	FieldProvince = "province"
	FieldCountry  = "country"
)

// Location 校验后的地理三元组，各字段可独立为空
type Location struct {
	City     *string `json:"city"`
	Province *string `json:"province"`
	Country  *string `json:"country"`
}

// Equal 三个字段逐一比较（nil 与 nil 相等）
func (l Location) Equal(other Location) bool {
	return sameValue(l.City, other.City) &&
		sameValue(l.Province, other.Province) &&
		sameValue(l.Country, other.Country)
}

// Reconcile 从三列原始值中提取并校验地理信息
func Reconcile(rawCity, rawProvince, rawCountry string) Location {
	columns := map[string]string{
		FieldCity:     rawCity,
		FieldProvince: rawProvince,
		FieldCountry:  rawCountry,
	}

	city := extractField(FieldCity, columns)
	province := extractField(FieldProvince, columns)
	country := extractField(FieldCountry, columns)

	var loc Location
	if v, ok := ValidateCity(city); ok {
		loc.City = &v
	}
	if v, ok := ValidateProvince(province); ok {
		loc.Province = &v
	}
	if v, ok := ValidateCountry(country); ok {
		loc.Country = &v
	}
	return loc
}

// extractField 先在字段自身列提取，失败后到其他列的 JSON 中找回（源数据存在错列）
func extractField(field string, columns map[string]string) string {
	if v, ok := firstMatch(columns[field], field, columnStrategies); ok {
		return v
	}
	for _, other := range []string{FieldCity, FieldProvince, FieldCountry} {
		if other == field {
			continue
		}
		if v, ok := firstMatch(columns[other], field, crossFieldStrategies); ok {
			return v
		}
	}
	return ""
}

// Revalidate 对已落库的值重新套用当前词表（历史数据可能早于词表更新）
func Revalidate(city, province, country *string) Location {
	var loc Location
	if city != nil {
		if v, ok := ValidateCity(*city); ok {
			loc.City = &v
		}
	}
	if province != nil {
		if v, ok := ValidateProvince(*province); ok {
			loc.Province = &v
		}
	}
	if country != nil {
		if v, ok := ValidateCountry(*country); ok {
			loc.Country = &v
		}
	}
	return loc
}

func sameValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
