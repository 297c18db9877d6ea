package httpclient

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// RetryPolicy 定义重试策略。attempt 从 0 开始，表示已失败的那次请求序号。
type RetryPolicy interface {
	ShouldRetry(req *http.Request, resp *http.Response, err error, attempt int) (bool, time.Duration, error)
}

// RetryConfig 配置指数退避重试。
type RetryConfig struct {
	// MaxAttempts 为总尝试次数（含首次），小于 1 时按 1 处理。
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Refresh 在 401 时调用，用于作废缓存的访问令牌。
	Refresh func() error
	Logger  Logger
}

// ExponentialBackoffRetry 实现指数退避重试。
type ExponentialBackoffRetry struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	refresh     func() error
	logger      Logger
}

// DefaultRetryConfig 默认 5 次尝试，等待 2s、4s、8s...，上限 60s。
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   2 * time.Second,
		MaxDelay:    60 * time.Second,
	}
}

// NewExponentialBackoffRetry 创建重试策略。
func NewExponentialBackoffRetry(cfg RetryConfig) *ExponentialBackoffRetry {
	logger := cfg.Logger
	if logger == nil {
		logger = NopLogger{}
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &ExponentialBackoffRetry{
		maxAttempts: maxAttempts,
		baseDelay:   cfg.BaseDelay,
		maxDelay:    cfg.MaxDelay,
		refresh:     cfg.Refresh,
		logger:      logger,
	}
}

// MaxAttempts 返回总尝试次数。
func (r *ExponentialBackoffRetry) MaxAttempts() int {
	if r == nil {
		return 1
	}
	return r.maxAttempts
}

// ShouldRetry 网络错误与任意非成功状态码均视为瞬时错误，解码失败和上下文取消不重试。
func (r *ExponentialBackoffRetry) ShouldRetry(req *http.Request, resp *http.Response, err error, attempt int) (bool, time.Duration, error) {
	if r == nil {
		return false, 0, nil
	}
	if attempt+1 >= r.maxAttempts {
		return false, 0, nil
	}
	if errors.Is(err, context.Canceled) {
		return false, 0, nil
	}
	if req != nil && req.Context().Err() != nil {
		return false, 0, nil
	}
	delay := Backoff(r.baseDelay, r.maxDelay, attempt)

	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return false, 0, nil
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		r.logger.Debugf("网络错误，第 %d 次重试", attempt+1)
		return true, delay, nil
	}

	var ec *ErrCode
	if errors.As(err, &ec) {
		if ec.Status == http.StatusUnauthorized && r.refresh != nil {
			if refreshErr := r.refresh(); refreshErr != nil {
				return false, 0, refreshErr
			}
			r.logger.Debugf("访问令牌失效，刷新后重试，第 %d 次", attempt+1)
			return true, delay, nil
		}
		r.logger.Debugf("非成功状态(code=%d)，第 %d 次重试", ec.Status, attempt+1)
		return true, delay, nil
	}

	if resp != nil && (resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices) {
		return true, delay, nil
	}
	return false, 0, nil
}

// Backoff 计算第 attempt 次失败后的等待时长：base × 2^attempt，不超过 max。
func Backoff(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 2 * time.Second
	}
	if max <= 0 {
		max = 60 * time.Second
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 30 {
		return max
	}
	delay := base << attempt
	if delay <= 0 || delay > max {
		delay = max
	}
	return delay
}
