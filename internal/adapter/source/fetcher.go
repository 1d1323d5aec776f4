// Package source 订单源系统（记录系统）适配器
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"OptInSync/internal/config"
	"OptInSync/internal/interfaces"
	"OptInSync/internal/model"
	"OptInSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

// maxErrorBody 错误响应最多读取的字节数（仅用于日志）
const maxErrorBody = 512

type Fetcher struct {
	cfg        *config.SourceConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewFetcher 创建订单源系统适配器
func NewFetcher(cfg *config.SourceConfig, logger *logrus.Logger) *Fetcher {
	return NewFetcherWithClient(cfg, httpclient.NewHTTPClient(cfg, logger), logger)
}

// NewFetcherWithClient 使用指定的 HTTP 客户端（测试用）
func NewFetcherWithClient(cfg *config.SourceConfig, client *http.Client, logger *logrus.Logger) *Fetcher {
	return &Fetcher{cfg: cfg, httpClient: client, logger: logger}
}

var _ interfaces.OrderFetcher = (*Fetcher)(nil)

// Fetch 拉取订单：全量或增量（since_id=水位线）
func (f *Fetcher) Fetch(ctx context.Context, req interfaces.FetchRequest) (*interfaces.FetchResult, error) {
	incremental := req.Mode == interfaces.FetchIncremental && req.Watermark != ""
	reqURL, err := f.buildURL(req, incremental)
	if err != nil {
		return nil, &FetchError{Kind: KindClient, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindClient, Err: err}
	}

	start := time.Now()
	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &FetchError{Kind: KindUnavailable, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			f.logger.WithError(err).Warn("关闭订单源响应体失败")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		kind := classifyStatus(resp.StatusCode, incremental)
		f.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"kind":   kind,
			"mode":   req.Mode,
			"body":   string(snippet),
		}).Warn("订单源系统返回错误状态")
		return nil, &FetchError{
			Kind:       kind,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: KindUnavailable, StatusCode: resp.StatusCode, Err: err}
	}
	result, err := decodeBody(body)
	if err != nil {
		return nil, &FetchError{Kind: KindPayload, StatusCode: resp.StatusCode, Err: err}
	}

	f.logger.WithFields(logrus.Fields{
		"mode":         req.Mode,
		"watermark":    req.Watermark,
		"records":      len(result.Records),
		"remote_count": result.TotalRemoteCount,
		"elapsed_ms":   time.Since(start).Milliseconds(),
	}).Info("订单拉取完成")
	return result, nil
}

func (f *Fetcher) buildURL(req interfaces.FetchRequest, incremental bool) (string, error) {
	if f.cfg.BaseURL == "" {
		return "", errors.New("订单源地址未配置")
	}
	u, err := url.Parse(f.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("解析订单源地址失败: %w", err)
	}
	q := u.Query()
	if incremental {
		q.Set("mode", string(interfaces.FetchIncremental))
		q.Set("since_id", req.Watermark)
	} else {
		q.Set("mode", string(interfaces.FetchFull))
		if req.Refresh {
			q.Set("refresh", "true")
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// decodeBody 响应体可能是裸数组，也可能是 {status, count, data, last_updated} 封装
func decodeBody(body []byte) (*interfaces.FetchResult, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("响应体为空")
	}

	switch trimmed[0] {
	case '[':
		var records []model.RawOrder
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("解析订单数组失败: %w", err)
		}
		return &interfaces.FetchResult{Records: records, TotalRemoteCount: len(records)}, nil
	case '{':
		var env model.SourceEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("解析订单封装响应失败: %w", err)
		}
		if env.Data == nil && env.Status != "" && env.Status != "ok" && env.Status != "success" {
			return nil, fmt.Errorf("订单源返回状态 %q 且无数据", env.Status)
		}
		res := &interfaces.FetchResult{Records: env.Data, TotalRemoteCount: len(env.Data)}
		if env.Count != nil {
			res.TotalRemoteCount = *env.Count
		}
		if env.LastUpdated != "" {
			if t, err := time.Parse(time.RFC3339, env.LastUpdated); err == nil {
				res.LastUpdated = &t
			}
		}
		return res, nil
	default:
		return nil, fmt.Errorf("无法识别的响应格式: %q", trimmed[:min(len(trimmed), 32)])
	}
}
