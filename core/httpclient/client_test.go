package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type mockPage struct {
	Items []struct {
		ID string `json:"id"`
	} `json:"items"`
}

func fastRetry(attempts int) *ExponentialBackoffRetry {
	return NewExponentialBackoffRetry(RetryConfig{
		MaxAttempts: attempts,
		BaseDelay:   1 * time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Logger:      NopLogger{},
	})
}

func TestDoSuccess(t *testing.T) {
	client := NewClient(WithHTTPClient(&http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"items":[{"id":"a1"},{"id":"a2"}]}`), nil
		}),
	}))
	req, _ := http.NewRequest(http.MethodGet, "http://mock/management/api/v1.1/assets", nil)
	var page mockPage
	if err := client.Do(req, &page); err != nil {
		t.Fatalf("预期成功，得到错误: %v", err)
	}
	if len(page.Items) != 2 || page.Items[1].ID != "a2" {
		t.Fatalf("响应解析错误: %+v", page)
	}
}

func TestServerErrorRetriedUntilSuccess(t *testing.T) {
	calls := 0
	client := NewClient(
		WithRetryPolicy(fastRetry(3)),
		WithHTTPClient(&http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return jsonResponse(http.StatusServiceUnavailable, ``), nil
			}
			return jsonResponse(http.StatusOK, `{"items":[]}`), nil
		})}),
	)
	req, _ := http.NewRequest(http.MethodGet, "http://mock/page", nil)
	if err := client.Do(req, &mockPage{}); err != nil {
		t.Fatalf("第三次应成功: %v", err)
	}
	if calls != 3 {
		t.Fatalf("请求次数应为 3，实际 %d", calls)
	}
}

func TestClientErrorIsTransient(t *testing.T) {
	calls := 0
	client := NewClient(
		WithRetryPolicy(fastRetry(2)),
		WithHTTPClient(&http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			calls++
			return jsonResponse(http.StatusNotFound, `{"title":"Not Found","detail":"资产不存在","o:errorCode":"OCE-DOCS-001"}`), nil
		})}),
	)
	req, _ := http.NewRequest(http.MethodGet, "http://mock/missing", nil)
	err := client.Do(req, &mockPage{})
	if err == nil {
		t.Fatal("预期返回错误")
	}
	if calls != 2 {
		t.Fatalf("4xx 也应重试直到耗尽，实际请求 %d 次", calls)
	}
	var ec *ErrCode
	if !errors.As(err, &ec) {
		t.Fatalf("错误类型应为 ErrCode，实际: %v", err)
	}
	if ec.Code != "OCE-DOCS-001" || ec.Message != "资产不存在" || ec.Status != http.StatusNotFound {
		t.Fatalf("错误体解析不正确: %+v", ec)
	}
}

func TestAuthRefresh(t *testing.T) {
	attempt := 0
	refreshCalled := 0
	policy := NewExponentialBackoffRetry(RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Refresh: func() error {
			refreshCalled++
			return nil
		},
	})

	client := NewClient(
		WithRetryPolicy(policy),
		WithHTTPClient(&http.Client{
			Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
				attempt++
				if attempt == 1 {
					return jsonResponse(http.StatusUnauthorized, `{"title":"Unauthorized"}`), nil
				}
				return jsonResponse(http.StatusOK, `{"items":[]}`), nil
			}),
		}),
	)
	req, _ := http.NewRequest(http.MethodGet, "http://mock/auth", nil)
	if err := client.Do(req, &mockPage{}); err != nil {
		t.Fatalf("刷新后应重试成功: %v", err)
	}
	if refreshCalled != 1 {
		t.Fatalf("刷新调用次数不正确，得到 %d", refreshCalled)
	}
	if attempt != 2 {
		t.Fatalf("请求次数不正确，得到 %d", attempt)
	}
}

func TestNetworkRetry(t *testing.T) {
	transport := &flakyTransport{
		failures: 1,
		inner: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"items":[]}`), nil
		}),
	}
	client := NewClient(
		WithHTTPClient(&http.Client{Transport: transport}),
		WithRetryPolicy(fastRetry(2)),
	)
	req, _ := http.NewRequest(http.MethodGet, "http://mock/network", nil)
	if err := client.Do(req, &mockPage{}); err != nil {
		t.Fatalf("网络错误后应重试成功: %v", err)
	}
	if transport.attempts != 2 {
		t.Fatalf("应尝试 2 次，实际 %d", transport.attempts)
	}
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	client := NewClient(
		WithRetryPolicy(NewExponentialBackoffRetry(RetryConfig{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour})),
		WithHTTPClient(&http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			calls++
			cancel()
			return jsonResponse(http.StatusBadGateway, ``), nil
		})}),
	)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://mock/cancel", nil)
	err := client.Do(req, &mockPage{})
	if !errors.Is(err, context.Canceled) && StatusOf(err) != http.StatusBadGateway {
		t.Fatalf("取消后应立即返回，实际: %v", err)
	}
	if calls != 1 {
		t.Fatalf("取消后不应继续请求，实际 %d 次", calls)
	}
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRouteLimiter(5, 1, nil)
	client := NewClient(
		WithRateLimiter(limiter),
		WithHTTPClient(&http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"items":[]}`), nil
		})}),
	)
	start := time.Now()
	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodGet, "http://mock/management/assets", nil)
		if err := client.Do(req, &mockPage{}); err != nil {
			t.Fatalf("限流请求失败: %v", err)
		}
	}
	elapsed := time.Since(start)
	if elapsed < 150*time.Millisecond {
		t.Fatalf("限流未生效，耗时过短: %v", elapsed)
	}
}

func TestRouteKey(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://ocm.example.com/published/api/v1.1/assets/x/native", nil)
	if key := RouteKey(req); key != "ocm.example.com/published" {
		t.Fatalf("路由键不正确: %s", key)
	}
}

func TestDecodeError(t *testing.T) {
	calls := 0
	client := NewClient(
		WithRetryPolicy(fastRetry(3)),
		WithHTTPClient(&http.Client{
			Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
				calls++
				return jsonResponse(http.StatusOK, `invalid json`), nil
			}),
		}),
	)
	req, _ := http.NewRequest(http.MethodGet, "http://mock/decode", nil)
	err := client.Do(req, &mockPage{})
	if err == nil {
		t.Fatal("预期解码失败错误")
	}
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("错误类型应为 DecodeError，实际: %v", err)
	}
	if calls != 1 {
		t.Fatalf("解码错误不应重试，实际请求 %d 次", calls)
	}
}

func TestOpenStreamsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/octet-stream" {
			t.Errorf("Accept 头不正确: %s", r.Header.Get("Accept"))
		}
		w.Write([]byte("binary-content"))
	}))
	defer srv.Close()

	client := NewClient(WithMiddlewares(WithDefaultAccept("application/octet-stream")))
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/native", nil)
	resp, err := client.Open(req)
	if err != nil {
		t.Fatalf("打开下载流失败: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if string(data) != "binary-content" {
		t.Fatalf("下载内容不正确: %q", data)
	}
}

func TestOpenNonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	client := NewClient()
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/native", nil)
	_, err := client.Open(req)
	if StatusOf(err) != http.StatusGone {
		t.Fatalf("应返回 410 错误，实际: %v", err)
	}
	if !IsTransient(err) {
		t.Fatal("非成功状态码应视为瞬时错误")
	}
	if !strings.Contains(err.Error(), "gone") {
		t.Fatalf("错误信息应包含响应体: %v", err)
	}
}

func TestBodyWithoutGetBodyCannotRetry(t *testing.T) {
	client := NewClient(
		WithRetryPolicy(fastRetry(2)),
		WithHTTPClient(&http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusInternalServerError, ``), nil
		})}),
	)

	req, _ := http.NewRequest(http.MethodPost, "http://mock/body", bytes.NewBufferString("data"))
	req.GetBody = nil // 模拟无法重试的场景
	err := client.Do(req, &mockPage{})
	if err == nil {
		t.Fatal("预期因无法重试请求体而失败")
	}
	if err.Error() != "httpclient: 请求体不可重试" {
		t.Fatalf("错误信息不符合预期: %v", err)
	}
}

type flakyTransport struct {
	failures int
	inner    http.RoundTripper
	attempts int
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.attempts++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("模拟网络失败")
	}
	return f.inner.RoundTrip(req)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	rec := httptest.NewRecorder()
	rec.Header().Set("Content-Type", "application/json")
	rec.WriteHeader(status)
	rec.Body.WriteString(body)
	return rec.Result()
}
