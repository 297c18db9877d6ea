package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestStaticTokenMiddleware(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://mock/assets", nil)
	if err := Middleware(StaticToken("abc"))(req); err != nil {
		t.Fatalf("注入令牌失败: %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer abc" {
		t.Fatalf("Authorization 头不正确: %s", got)
	}
}

func TestStaticTokenEmpty(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://mock/assets", nil)
	err := Middleware(StaticToken("  "))(req)
	if !errors.Is(err, ErrTokenEmpty) {
		t.Fatalf("空令牌应返回 ErrTokenEmpty，实际: %v", err)
	}
}

func TestFileTokenReloadAfterInvalidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("first\n"), 0o600); err != nil {
		t.Fatalf("写入令牌文件失败: %v", err)
	}
	src := NewFileToken(path)
	tok, err := src.Token(context.Background())
	if err != nil || tok != "first" {
		t.Fatalf("首次读取令牌不正确: %q, %v", tok, err)
	}

	if err := os.WriteFile(path, []byte("second"), 0o600); err != nil {
		t.Fatalf("轮换令牌文件失败: %v", err)
	}
	if tok, _ := src.Token(context.Background()); tok != "first" {
		t.Fatalf("未作废前应返回缓存令牌，实际 %q", tok)
	}
	if err := Invalidate(src); err != nil {
		t.Fatalf("作废令牌失败: %v", err)
	}
	if tok, _ := src.Token(context.Background()); tok != "second" {
		t.Fatalf("作废后应重新读取，实际 %q", tok)
	}
}

func TestFileTokenMissing(t *testing.T) {
	src := NewFileToken(filepath.Join(t.TempDir(), "missing"))
	if _, err := src.Token(context.Background()); err == nil {
		t.Fatal("文件不存在应返回错误")
	}
}

func TestClientCredentialsCachesToken(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("解析表单失败: %v", err)
		}
		if r.Form.Get("grant_type") != "client_credentials" {
			t.Errorf("grant_type 不正确: %s", r.Form.Get("grant_type"))
		}
		w.Header().Set("Content-Type", "application/json")
		if n == 1 {
			w.Write([]byte(`{"access_token":"tok-1","token_type":"bearer","expires_in":3600}`))
			return
		}
		w.Write([]byte(`{"access_token":"tok-2","token_type":"bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	src := NewClientCredentialsSource(ClientCredentialsConfig{
		TokenURL:     srv.URL + "/oauth2/v1/token",
		ClientID:     "client",
		ClientSecret: "secret",
		Scopes:       []string{"urn:opc:cec:all"},
	}, srv.Client())

	for i := 0; i < 3; i++ {
		tok, err := src.Token(context.Background())
		if err != nil {
			t.Fatalf("获取令牌失败: %v", err)
		}
		if tok != "tok-1" {
			t.Fatalf("缓存期内应复用令牌，实际 %s", tok)
		}
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("令牌端点应只调用一次，实际 %d", calls)
	}

	src.Invalidate()
	tok, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("作废后获取令牌失败: %v", err)
	}
	if tok != "tok-2" {
		t.Fatalf("作废后应重新交换令牌，实际 %s", tok)
	}
}

func TestClientCredentialsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	src := NewClientCredentialsSource(ClientCredentialsConfig{
		TokenURL:     srv.URL,
		ClientID:     "client",
		ClientSecret: "bad",
	}, srv.Client())
	req, _ := http.NewRequest(http.MethodGet, "http://mock/assets", nil)
	if err := Middleware(src)(req); err == nil {
		t.Fatal("凭据错误时应返回错误")
	}
}
