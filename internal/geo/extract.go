package geo

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Strategy 单个提取策略：从原始值中提取指定字段，未命中返回 false
type Strategy func(raw, field string) (string, bool)

// maxUnescapeRounds 反转义最多轮数，足以处理多重编码
const maxUnescapeRounds = 5

var (
	// 泄漏到地理列中的其他收货字段
	leakedField = regexp.MustCompile(`(?i)\b(address[12]?|phone|zip|postcode|postal_code|first_name|last_name)\b\s*"?\s*[:=]`)
	unescaper   = strings.NewReplacer(`\\`, `\`, `\"`, `"`)
)

// columnStrategies 字段自身所在列的提取顺序
var columnStrategies = []Strategy{literalValue, parseJSON, regexField, unwrappedLiteral}

// crossFieldStrategies 跨列找回只信任 JSON 结构，纯文本属于别的字段
var crossFieldStrategies = []Strategy{parseJSON, regexField}

// firstMatch 依次尝试策略，返回第一个命中的非空值
func firstMatch(raw, field string, strategies []Strategy) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}
	for _, strategy := range strategies {
		if v, ok := strategy(raw, field); ok {
			return v, true
		}
	}
	return "", false
}

// looksLikeJSON 值中是否带有 JSON 痕迹
func looksLikeJSON(s string) bool {
	if strings.ContainsAny(s, "{}\"\\") {
		return true
	}
	return leakedField.MatchString(s)
}

// literalValue 无 JSON 痕迹时按字面值处理
func literalValue(raw, _ string) (string, bool) {
	if looksLikeJSON(raw) {
		return "", false
	}
	v := strings.TrimSpace(raw)
	return v, v != ""
}

// parseJSON 先剥外层引号，再循环反转义，每一轮都尝试按 JSON 对象解析
func parseJSON(raw, field string) (string, bool) {
	s := strings.TrimSpace(raw)
	for round := 0; round <= maxUnescapeRounds; round++ {
		if v, ok := lookupField(s, field); ok {
			return v, true
		}
		// 整体是一个 JSON 字符串："{\"city\":...}"
		var inner string
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			s = strings.TrimSpace(inner)
			continue
		}
		next := unwrapQuotes(unescaper.Replace(s))
		if next == s {
			break
		}
		s = next
	}
	return "", false
}

// regexField 容错正则提取 "field":"value" 以及转义引号形式
func regexField(raw, field string) (string, bool) {
	for _, re := range fieldPatterns(field) {
		m := re.FindStringSubmatch(raw)
		if len(m) < 2 {
			continue
		}
		v := strings.TrimSpace(m[1])
		if v != "" && !looksLikeJSON(v) {
			return v, true
		}
	}
	return "", false
}

// unwrappedLiteral 被引号包裹或转义过的纯文本，如 "\"Leeds\""
func unwrappedLiteral(raw, _ string) (string, bool) {
	s := strings.TrimSpace(raw)
	for round := 0; round < maxUnescapeRounds; round++ {
		next := unwrapQuotes(unescaper.Replace(s))
		if next == s {
			break
		}
		s = next
	}
	if s == "" || looksLikeJSON(s) {
		return "", false
	}
	return s, true
}

func lookupField(s, field string) (string, bool) {
	if !strings.HasPrefix(s, "{") {
		return "", false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return "", false
	}
	return findField(obj, field, 0)
}

// findField 在对象中查找字段，允许一层嵌套（如 {"destination":{"city":...}}）
func findField(obj map[string]any, field string, depth int) (string, bool) {
	if v, ok := obj[field]; ok && v != nil {
		str, isString := v.(string)
		if !isString {
			str = fmt.Sprint(v)
		}
		str = strings.TrimSpace(str)
		if str != "" {
			return str, true
		}
	}
	if depth > 0 {
		return "", false
	}
	for _, v := range obj {
		if nested, ok := v.(map[string]any); ok {
			if str, found := findField(nested, field, depth+1); found {
				return str, true
			}
		}
	}
	return "", false
}

func unwrapQuotes(s string) string {
	s = strings.TrimSpace(s)
	for len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

var patternCache = map[string][]*regexp.Regexp{}

func init() {
	for _, field := range []string{FieldCity, FieldProvince, FieldCountry} {
		patternCache[field] = buildPatterns(field)
	}
}

func fieldPatterns(field string) []*regexp.Regexp {
	if p, ok := patternCache[field]; ok {
		return p
	}
	return buildPatterns(field)
}

func buildPatterns(field string) []*regexp.Regexp {
	name := regexp.QuoteMeta(field)
	return []*regexp.Regexp{
		regexp.MustCompile(`"` + name + `"\s*:\s*"([^"\\]*)"`),
		regexp.MustCompile(`\\+"` + name + `\\+"\s*:\s*\\+"([^"\\]*)\\+"`),
	}
}
