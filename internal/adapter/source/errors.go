package source

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind 源系统失败分类
type ErrorKind string

const (
	KindAuth                 ErrorKind = "auth"                  // 401/403，鉴权失败，不重试
	KindCacheWarming         ErrorKind = "cache_warming"         // 503，源系统缓存预热中，可重试
	KindUnavailable          ErrorKind = "unavailable"           // 其他 5xx 或网络错误，可重试
	KindWatermarkUnsupported ErrorKind = "watermark_unsupported" // 增量请求被 4xx 拒绝，需回退全量
	KindClient               ErrorKind = "client"                // 其他 4xx，不重试
	KindPayload              ErrorKind = "payload"               // 响应体无法解析，不重试
)

// FetchError 拉取失败
type FetchError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("订单源系统请求失败[%s] status=%d: %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("订单源系统请求失败[%s]: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable 是否属于可重试的临时性失败
func (e *FetchError) Retryable() bool {
	return e.Kind == KindCacheWarming || e.Kind == KindUnavailable
}

// IsRetryable 判断任意错误是否为可重试的拉取失败
func IsRetryable(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Retryable()
}

// IsKind 判断错误是否为指定分类
func IsKind(err error, kind ErrorKind) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == kind
}

// classifyStatus 按状态码分类；incremental 表示该请求带有水位线
func classifyStatus(status int, incremental bool) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusServiceUnavailable:
		return KindCacheWarming
	case status >= 500:
		return KindUnavailable
	case incremental:
		return KindWatermarkUnsupported
	default:
		return KindClient
	}
}
