package transport

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"linuxFileSentry/internal/config"
)

// ==========================================
// 采集端 HTTPS 客户端
// ==========================================

// StatusError 服务端返回非 2xx 时的错误，调用方据此决定是否入队重试
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Body)
}

// Client 面向采集端的 HTTPS 客户端，复用连接并自动维持会话 Cookie
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewClient 创建客户端实例
// userAgent 由 identity 模块按设备信息拼装，注册前允许为空
func NewClient(cfg *config.ServerConfig, userAgent string) (*Client, error) {
	tlsConfig, err := buildTLSConfig(TLSOptions{
		CAPath:   cfg.CACert,
		CertPath: cfg.ClientCert,
		KeyPath:  cfg.ClientKey,
	})
	if err != nil {
		return nil, fmt.Errorf("tls config build failed: %v", err)
	}

	// CookieJar 用于会话保持，注册成功后服务端可能下发 Session Cookie
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %v", err)
	}

	transport := &http.Transport{
		TLSClientConfig: tlsConfig,
		MaxIdleConns:    cfg.MaxIdleConns,
		IdleConnTimeout: cfg.IdleConnTimeout,
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Jar:       jar,
			Transport: transport,
		},
		baseURL:   strings.TrimRight(cfg.URL, "/"),
		userAgent: userAgent,
	}, nil
}

// PostJSON 向相对路径发送 JSON POST 请求
// 非 2xx 一律返回 *StatusError，网络层错误原样返回
func (c *Client) PostJSON(ctx context.Context, path string, body []byte, opts ...RequestOption) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")

	for _, opt := range opts {
		opt(req)
	}

	// Options 里标记了 gzip 时才真正压缩请求体
	if req.Header.Get("Content-Encoding") == "gzip" {
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		if _, err := gw.Write(body); err != nil {
			return nil, err
		}
		gw.Close() // 必须 Close 才能写入 Footer

		req.Body = io.NopCloser(&buf)
		req.ContentLength = int64(buf.Len())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var reader io.ReadCloser = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gzReader.Close()
		reader = gzReader
	}

	respData, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       truncateBody(respData),
		}
	}
	return respData, nil
}

// SetUserAgent 注册完成后更新 UA，携带真实设备 ID
func (c *Client) SetUserAgent(ua string) {
	c.userAgent = ua
}

// truncateBody 错误响应体截断后进日志，防止超长 HTML 错误页刷屏
func truncateBody(body []byte) string {
	const limit = 256
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}
