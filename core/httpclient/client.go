package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Logger 由外部注入，满足 core 层无输出原则。*zap.SugaredLogger 可直接满足该接口。
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger 默认空日志实现。
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Warnf(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}

// errorBodyLimit 读取错误响应体的上限。
const errorBodyLimit = 4 << 10

// Client 为统一 HTTP 客户端封装。
type Client struct {
	HTTP    *http.Client
	Prepare PrepareChain
	Retry   RetryPolicy
	Limiter RateLimiter
	Logger  Logger
}

// Option 配置客户端。
type Option func(*Client)

// WithHTTPClient 自定义 http.Client。
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.HTTP = httpClient
	}
}

// WithTimeout 设置单次请求超时，0 表示不限制。
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if c.HTTP == nil {
			c.HTTP = &http.Client{}
		}
		c.HTTP.Timeout = timeout
	}
}

// WithRetryPolicy 设置重试策略，传入 nil 表示不重试。
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.Retry = policy
	}
}

// WithRateLimiter 设置限流。
func WithRateLimiter(limiter RateLimiter) Option {
	return func(c *Client) {
		c.Limiter = limiter
	}
}

// WithLogger 注入日志。
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.Logger = logger
	}
}

// WithMiddlewares 设置请求中间件链。
func WithMiddlewares(mw ...Middleware) Option {
	return func(c *Client) {
		c.Prepare = append(c.Prepare, mw...)
	}
}

// NewClient 创建带默认指数退避重试的客户端。
func NewClient(opts ...Option) *Client {
	client := &Client{
		HTTP:    &http.Client{},
		Prepare: PrepareChain{},
		Logger:  NopLogger{},
	}
	client.Retry = NewExponentialBackoffRetry(DefaultRetryConfig())
	for _, opt := range opts {
		opt(client)
	}
	if client.HTTP == nil {
		client.HTTP = &http.Client{}
	}
	if client.Logger == nil {
		client.Logger = NopLogger{}
	}
	return client
}

// Use 添加中间件，需在并发使用客户端之前调用。
func (c *Client) Use(mw ...Middleware) {
	c.Prepare = append(c.Prepare, mw...)
}

// Do 发送请求并按需解码 JSON，包含重试、限流、中间件。
func (c *Client) Do(req *http.Request, out any) error {
	if req == nil {
		return errors.New("httpclient: 请求为空")
	}
	if c.HTTP == nil {
		return errors.New("httpclient: http.Client 未配置")
	}
	attempt := 0
	for {
		clonedReq, cloneErr := c.cloneRequest(req, attempt)
		if cloneErr != nil {
			return cloneErr
		}
		resp, err := c.execute(clonedReq, out)
		if err == nil {
			return nil
		}
		if c.Retry == nil {
			return err
		}
		retry, wait, refreshErr := c.Retry.ShouldRetry(clonedReq, resp, err, attempt)
		if refreshErr != nil {
			return refreshErr
		}
		if !retry {
			if attempt > 0 {
				return fmt.Errorf("httpclient: 第 %d 次请求后放弃: %w", attempt+1, err)
			}
			return err
		}
		c.Logger.Warnf("请求 %s 失败（第 %d 次）: %v，%s 后重试", req.URL.Redacted(), attempt+1, err, wait)
		attempt++
		if err := sleepContext(req.Context(), wait); err != nil {
			return err
		}
	}
}

// Open 发送单次请求并返回未读取的响应体，用于流式下载，调用方负责关闭 Body。
// 非 2xx 响应会被转换为 *ErrCode，且不做重试。
func (c *Client) Open(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("httpclient: 请求为空")
	}
	if c.HTTP == nil {
		return nil, errors.New("httpclient: http.Client 未配置")
	}
	if err := c.prepare(req); err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return resp, parseErrorBody(resp.StatusCode, body)
	}
	return resp, nil
}

func (c *Client) prepare(req *http.Request) error {
	if c.Prepare != nil {
		if err := c.Prepare.Apply(req); err != nil {
			return err
		}
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(req.Context(), req); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) execute(req *http.Request, out any) (*http.Response, error) {
	if err := c.prepare(req); err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return resp, parseErrorBody(resp.StatusCode, body)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return resp, nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if decodeErr := dec.Decode(out); decodeErr != nil {
		if decodeErr == io.EOF {
			// 空响应体，视为成功
			return resp, nil
		}
		return resp, &DecodeError{Status: resp.StatusCode, Err: decodeErr}
	}
	return resp, nil
}

func (c *Client) cloneRequest(req *http.Request, attempt int) (*http.Request, error) {
	cloned := req.Clone(req.Context())
	cloned.Header = req.Header.Clone()
	cloned.GetBody = req.GetBody
	cloned.ContentLength = req.ContentLength
	if req.Body != nil && req.Body != http.NoBody {
		if attempt == 0 {
			cloned.Body = req.Body
		} else {
			if req.GetBody == nil {
				return nil, fmt.Errorf("httpclient: 请求体不可重试")
			}
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			cloned.Body = body
		}
	}
	return cloned, nil
}

// sleepContext 等待指定时长，上下文取消时提前返回。
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Sleep 供外部重试循环复用的可取消等待。
func Sleep(ctx context.Context, d time.Duration) error {
	return sleepContext(ctx, d)
}
