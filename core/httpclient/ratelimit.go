package httpclient

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limit 每秒产生的令牌数。
type Limit float64

// Limiter 令牌桶实现。
type Limiter struct {
	limit  Limit
	burst  int
	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewLimiter 创建 limiter，burst 小于 1 时按 1 处理。
func NewLimiter(limit Limit, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limit:  limit,
		burst:  burst,
		tokens: float64(burst),
		last:   time.Now(),
	}
}

// Wait 阻塞直到获得令牌或上下文取消。
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		wait := l.reserve(time.Now())
		if wait <= 0 {
			return nil
		}
		if err := sleepContext(ctx, wait); err != nil {
			return err
		}
	}
}

func (l *Limiter) reserve(now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.limit <= 0 {
		return 0
	}
	l.tokens += now.Sub(l.last).Seconds() * float64(l.limit)
	if l.tokens > float64(l.burst) {
		l.tokens = float64(l.burst)
	}
	l.last = now
	if l.tokens >= 1 {
		l.tokens--
		return 0
	}
	seconds := (1 - l.tokens) / float64(l.limit)
	return time.Duration(seconds * float64(time.Second))
}

// RateLimiter 请求发出前的限流钩子。
type RateLimiter interface {
	Wait(ctx context.Context, req *http.Request) error
}

// RouteLimiter 按路由分组的令牌桶，元数据接口与内容下载互不抢占配额。
type RouteLimiter struct {
	limiters map[string]*Limiter
	mu       sync.Mutex
	keyFn    func(*http.Request) string
	limit    Limit
	burst    int
}

// NewRouteLimiter 创建限流器，keyFn 为空时使用 RouteKey。qps <= 0 表示不限流。
func NewRouteLimiter(qps float64, burst int, keyFn func(*http.Request) string) *RouteLimiter {
	if keyFn == nil {
		keyFn = RouteKey
	}
	return &RouteLimiter{
		limiters: make(map[string]*Limiter),
		keyFn:    keyFn,
		limit:    Limit(qps),
		burst:    burst,
	}
}

// Wait 在发起请求前阻塞，直到当前路由拿到令牌。
func (l *RouteLimiter) Wait(ctx context.Context, req *http.Request) error {
	if l == nil || l.limit <= 0 {
		return nil
	}
	return l.get(l.keyFn(req)).Wait(ctx)
}

func (l *RouteLimiter) get(key string) *Limiter {
	if key == "" {
		key = "default"
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok := l.limiters[key]; ok {
		return limiter
	}
	limiter := NewLimiter(l.limit, l.burst)
	l.limiters[key] = limiter
	return limiter
}

// RouteKey 取 host 加路径首段作为分组键，例如 "ocm.example.com/management"。
func RouteKey(req *http.Request) string {
	if req == nil || req.URL == nil {
		return ""
	}
	segment := strings.TrimPrefix(req.URL.Path, "/")
	if idx := strings.Index(segment, "/"); idx >= 0 {
		segment = segment[:idx]
	}
	return req.URL.Host + "/" + segment
}
