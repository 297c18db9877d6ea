package auth

import (
	"context"
	"os"
	"strings"
	"sync"

	coreerrors "github.com/dnslin/ocm-export/core/errors"
)

// StaticToken 固定令牌。
type StaticToken string

// Token 实现 TokenSource。
func (t StaticToken) Token(context.Context) (string, error) {
	if strings.TrimSpace(string(t)) == "" {
		return "", ErrTokenEmpty
	}
	return string(t), nil
}

// FileToken 从文件读取令牌并缓存，作废后重新读取，便于外部进程轮换令牌。
type FileToken struct {
	path string

	mu     sync.Mutex
	cached string
}

// NewFileToken 创建文件令牌来源。
func NewFileToken(path string) *FileToken {
	return &FileToken{path: path}
}

// Token 实现 TokenSource。
func (f *FileToken) Token(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cached != "" {
		return f.cached, nil
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", coreerrors.Wrap(coreerrors.ErrCodeInvalidConfig, "auth: 读取令牌文件失败", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrTokenEmpty
	}
	f.cached = token
	return token, nil
}

// Invalidate 实现 Invalidator。
func (f *FileToken) Invalidate() {
	f.mu.Lock()
	f.cached = ""
	f.mu.Unlock()
}
