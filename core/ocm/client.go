// Package ocm 封装内容目录的列表、原始文件下载与成员查询接口。
package ocm

import (
	"github.com/dnslin/ocm-export/core/auth"
	"github.com/dnslin/ocm-export/core/httpclient"
)

// Client 是显式传递的目录会话句柄，组合 HTTP 客户端与令牌来源。
type Client struct {
	http         *httpclient.Client
	download     *httpclient.Client
	tokens       auth.TokenSource
	logger       httpclient.Logger
	baseURL      string
	repositoryID string
}

// Option 自定义客户端配置。
type Option func(*Client)

// WithHTTPClient 注入元数据请求使用的 httpclient.Client。
func WithHTTPClient(cli *httpclient.Client) Option {
	return func(c *Client) {
		if cli != nil {
			c.http = cli
		}
	}
}

// WithDownloadClient 注入下载专用客户端，通常具有更长的超时。
func WithDownloadClient(cli *httpclient.Client) Option {
	return func(c *Client) {
		if cli != nil {
			c.download = cli
		}
	}
}

// WithLogger 注入日志接口。
func WithLogger(logger httpclient.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient 创建客户端，令牌中间件会追加到所有内部 HTTP 客户端上。
func NewClient(baseURL, repositoryID string, tokens auth.TokenSource, opts ...Option) *Client {
	cli := &Client{
		tokens:       tokens,
		logger:       httpclient.NopLogger{},
		baseURL:      baseURL,
		repositoryID: repositoryID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cli)
		}
	}
	if cli.http == nil {
		cli.http = httpclient.NewClient()
	}
	if cli.download == nil {
		cli.download = cli.http
	}
	cli.http.Logger = cli.logger
	cli.http.Use(httpclient.WithUserAgent(UserAgent), auth.Middleware(tokens))
	if cli.download != cli.http {
		cli.download.Logger = cli.logger
		cli.download.Use(httpclient.WithUserAgent(UserAgent), auth.Middleware(tokens))
	}
	return cli
}

// RepositoryID 返回当前导出的仓库 ID。
func (c *Client) RepositoryID() string {
	return c.repositoryID
}

// InvalidateToken 作废缓存令牌，供下载重试在 401 后调用。
func (c *Client) InvalidateToken() {
	auth.Invalidate(c.tokens)
}
