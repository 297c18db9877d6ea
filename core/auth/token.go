// Package auth 提供 bearer 访问令牌来源及注入请求的中间件。
package auth

import (
	"context"
	"net/http"
	"strings"

	coreerrors "github.com/dnslin/ocm-export/core/errors"
	"github.com/dnslin/ocm-export/core/httpclient"
)

var (
	// ErrTokenEmpty 在令牌来源返回空值时返回。
	ErrTokenEmpty = coreerrors.New(coreerrors.ErrCodeInvalidConfig, "auth: 访问令牌为空")
	// ErrSourceNil 在未注入令牌来源时返回。
	ErrSourceNil = coreerrors.New(coreerrors.ErrCodeInvalidConfig, "auth: 未配置令牌来源")
)

// TokenSource 提供 bearer 访问令牌。实现需并发安全。
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Invalidator 可作废缓存令牌的来源，下一次 Token 调用将重新获取。
type Invalidator interface {
	Invalidate()
}

// Invalidate 若来源支持则作废缓存令牌，供 401 重试回调使用。
func Invalidate(src TokenSource) error {
	if inv, ok := src.(Invalidator); ok {
		inv.Invalidate()
	}
	return nil
}

// Middleware 为请求注入 Authorization 头，令牌获取使用请求自身的上下文。
func Middleware(src TokenSource) httpclient.Middleware {
	return func(req *http.Request) error {
		if src == nil {
			return ErrSourceNil
		}
		token, err := src.Token(req.Context())
		if err != nil {
			return err
		}
		token = strings.TrimSpace(token)
		if token == "" {
			return ErrTokenEmpty
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
}
