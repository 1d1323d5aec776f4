package geo

import (
	"regexp"
	"strings"
)

var (
	leadingDigit = regexp.MustCompile(`^\s*\d`)
	// 街道类词汇：命中即视为详细地址而非城市名
	streetTokens = regexp.MustCompile(`(?i)\b(street|road|lane|close|drive|avenue|court|place|flat|floor|unit|apartment|building|house|estate|rd|ln|dr|ave|apt|blvd)\b`)
)

// ValidateCountry 国家必须命中参考表（含别名/历史名称），返回规范名称；未命中返回 false，不做猜测
func ValidateCountry(raw string) (string, bool) {
	key := normalizeKey(raw)
	if key == "" {
		return "", false
	}
	name, ok := countryIndex[key]
	return name, ok
}

// ValidateProvince 省/州/地区必须命中行政区划参考表，返回规范名称
func ValidateProvince(raw string) (string, bool) {
	key := normalizeKey(raw)
	if key == "" {
		return "", false
	}
	name, ok := subdivisionIndex[key]
	return name, ok
}

// ValidateCity 城市名不能像街道地址（数字开头或包含街道类词汇）
func ValidateCity(raw string) (string, bool) {
	city := strings.Join(strings.Fields(raw), " ")
	if city == "" {
		return "", false
	}
	if leadingDigit.MatchString(city) || streetTokens.MatchString(city) {
		return "", false
	}
	if looksLikeJSON(city) {
		return "", false
	}
	return city, true
}
