package httpclient

import "net/http"

// Middleware 是请求预处理钩子，用于注入鉴权头、UA、Accept 等。
type Middleware func(req *http.Request) error

// PrepareChain 代表按顺序执行的中间件集合。
type PrepareChain []Middleware

// Apply 依次执行链路中的中间件，遇到错误立即返回。
func (c PrepareChain) Apply(req *http.Request) error {
	for _, mw := range c {
		if mw == nil {
			continue
		}
		if err := mw(req); err != nil {
			return err
		}
	}
	return nil
}

// WithHeader 设置请求头。
func WithHeader(key, value string) Middleware {
	return func(req *http.Request) error {
		req.Header.Set(key, value)
		return nil
	}
}

// WithUserAgent 设置 User-Agent。
func WithUserAgent(ua string) Middleware {
	return WithHeader("User-Agent", ua)
}

// WithDefaultAccept 仅在调用方未指定时补充 Accept。
func WithDefaultAccept(accept string) Middleware {
	return func(req *http.Request) error {
		if req.Header.Get("Accept") == "" {
			req.Header.Set("Accept", accept)
		}
		return nil
	}
}
