package httpclient

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/url"
	"time"

	"OptInSync/internal/config"

	"github.com/sirupsen/logrus"
)

const userAgent = "OptInSync/1.0"

// NewHTTPClient 订单源系统客户端（代理、超时、API Key 请求头、gzip 解压）
func NewHTTPClient(cfg *config.SourceConfig, logger *logrus.Logger) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		// 由 sourceTransport 自行处理 gzip，确保返回体已解压
		DisableCompression: true,
	}

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			logger.WithError(err).WithField("proxy", cfg.Proxy).Warn("代理地址解析失败，将不使用代理")
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
			logger.WithField("proxy", cfg.Proxy).Info("HTTP客户端已配置代理")
		}
	}

	header := cfg.APIKeyHeader
	if header == "" {
		header = "X-API-Key"
	}
	return &http.Client{
		Timeout: time.Duration(cfg.Timeout) * time.Second,
		Transport: &sourceTransport{
			base:   transport,
			header: header,
			apiKey: cfg.APIKey,
			logger: logger,
		},
	}
}

// sourceTransport 为每个请求补充鉴权头并解压 gzip 响应
type sourceTransport struct {
	base   http.RoundTripper
	header string
	apiKey string
	logger *logrus.Logger
}

func (t *sourceTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTripper 不能修改原请求
	req = req.Clone(req.Context())
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if t.apiKey != "" {
		req.Header.Set(t.header, t.apiKey)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			t.logger.WithError(err).Warn("gzip解压失败，返回原始响应")
			return resp, nil
		}
		resp.Body = &gzipReadCloser{Reader: gzReader, closer: resp.Body}
		resp.Header.Del("Content-Encoding")
		resp.Header.Del("Content-Length")
		resp.ContentLength = -1
	}
	return resp, nil
}

// gzipReadCloser 关闭时同时关闭解压器和原始响应体
type gzipReadCloser struct {
	*gzip.Reader
	closer io.ReadCloser
}

func (g *gzipReadCloser) Close() error {
	if err := g.Reader.Close(); err != nil {
		_ = g.closer.Close()
		return err
	}
	return g.closer.Close()
}
