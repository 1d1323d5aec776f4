package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// RawOrder 订单源系统返回的原始记录；字段类型在源系统中并不稳定，统一用宽松类型接收
type RawOrder struct {
	ID            FlexString      `json:"id"`
	ExternalID    FlexString      `json:"external_id"`
	StoreID       FlexString      `json:"store_id"`
	OptIn         *FlexBool       `json:"opt_in"`
	TotalPrice    FlexString      `json:"total_price"`
	City          FlexString      `json:"city"`
	Province      FlexString      `json:"province"`
	Country       FlexString      `json:"country"`
	Destination   json.RawMessage `json:"destination"`
	PaymentStatus FlexString      `json:"payment_status"`
	CreatedAt     FlexString      `json:"created_at"`
}

// Key 外部订单号：优先 external_id，缺省时用 id
func (r *RawOrder) Key() string {
	if k := strings.TrimSpace(string(r.ExternalID)); k != "" {
		return k
	}
	return strings.TrimSpace(string(r.ID))
}

// DestinationString 收货地址载荷统一转为字符串：JSON 字符串取其内容，对象保持原文
func (r *RawOrder) DestinationString() string {
	raw := bytes.TrimSpace(r.Destination)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

// SourceEnvelope 源系统的封装响应：{status, count, data, last_updated}
type SourceEnvelope struct {
	Status      string     `json:"status"`
	Count       *int       `json:"count"`
	Data        []RawOrder `json:"data"`
	LastUpdated string     `json:"last_updated"`
}

// FlexString 同时接受 JSON 字符串、数字、布尔；null 视为空串
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	// 数字、布尔、对象/数组原样保留，对象交给地理提取逻辑处理
	*f = FlexString(data)
	return nil
}

// FlexBool 接受 true/false、"true"/"false"、"yes"/"no"、1/0
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.ToLower(strings.TrimSpace(string(data))), `"`)
	switch s {
	case "yes", "y", "on":
		*b = true
		return nil
	}
	v, err := strconv.ParseBool(s)
	*b = FlexBool(err == nil && v)
	return nil
}

// Bool 空值视为 false
func (b *FlexBool) Bool() bool {
	return b != nil && bool(*b)
}
