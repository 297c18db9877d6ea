package auth

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	coreerrors "github.com/dnslin/ocm-export/core/errors"
)

// ClientCredentialsConfig OAuth2 客户端凭据模式参数。
type ClientCredentialsConfig struct {
	TokenURL     string   `mapstructure:"token_url" validate:"required,url"`
	ClientID     string   `mapstructure:"client_id" validate:"required"`
	ClientSecret string   `mapstructure:"client_secret" validate:"required"`
	Scopes       []string `mapstructure:"scopes"`
}

// ClientCredentialsSource 通过客户端凭据交换获取令牌，到期前复用缓存。
type ClientCredentialsSource struct {
	cfg     clientcredentials.Config
	baseCtx context.Context

	mu  sync.Mutex
	src oauth2.TokenSource
}

// NewClientCredentialsSource 创建令牌来源，httpClient 为空时使用默认客户端。
func NewClientCredentialsSource(cfg ClientCredentialsConfig, httpClient *http.Client) *ClientCredentialsSource {
	baseCtx := context.Background()
	if httpClient != nil {
		baseCtx = context.WithValue(baseCtx, oauth2.HTTPClient, httpClient)
	}
	return &ClientCredentialsSource{
		cfg: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		},
		baseCtx: baseCtx,
	}
}

// Token 实现 TokenSource。令牌交换不随单个请求取消，只在调用前检查上下文。
func (s *ClientCredentialsSource) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	if s.src == nil {
		s.src = oauth2.ReuseTokenSource(nil, s.cfg.TokenSource(s.baseCtx))
	}
	src := s.src
	s.mu.Unlock()

	tok, err := src.Token()
	if err != nil {
		return "", coreerrors.Wrap(coreerrors.ErrCodeInvalidConfig, "auth: 获取访问令牌失败", err)
	}
	if tok.AccessToken == "" {
		return "", ErrTokenEmpty
	}
	return tok.AccessToken, nil
}

// Invalidate 丢弃缓存令牌。
func (s *ClientCredentialsSource) Invalidate() {
	s.mu.Lock()
	s.src = nil
	s.mu.Unlock()
}
