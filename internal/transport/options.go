package transport

import "net/http"

// RequestOption 定义一个函数类型，用于修改 http.Request
type RequestOption func(*http.Request)

// ===========================
// 常用选项定义
// ===========================

// WithHeader 添加或覆盖自定义 Header
func WithHeader(key, value string) RequestOption {
	return func(req *http.Request) {
		req.Header.Set(key, value)
	}
}

// WithContentType 快捷设置 Content-Type
func WithContentType(contentType string) RequestOption {
	return func(req *http.Request) {
		req.Header.Set("Content-Type", contentType)
	}
}

// WithAPIKey 携带设备注册后颁发的 API 凭证
func WithAPIKey(key string) RequestOption {
	return func(req *http.Request) {
		req.Header.Set("X-API-Key", key)
	}
}

// WithGzipRequest 标记这个请求体需要 Gzip 压缩
// 这里只设置 Header，实际压缩逻辑由 Client 内部读到标记后执行
func WithGzipRequest() RequestOption {
	return func(req *http.Request) {
		req.Header.Set("Content-Encoding", "gzip")
	}
}
