package main

import (
	"net/http"

	"github.com/dnslin/ocm-export/core/auth"
	"github.com/dnslin/ocm-export/core/config"
	"github.com/dnslin/ocm-export/core/export"
	"github.com/dnslin/ocm-export/core/httpclient"
	"github.com/dnslin/ocm-export/core/logging"
	"github.com/dnslin/ocm-export/core/ocm"
	"github.com/dnslin/ocm-export/core/store"
	"github.com/dnslin/ocm-export/core/task"
)

// newCatalog 组装目录客户端：元数据请求带重试与限流，下载请求使用独立超时且由协调器重试。
func newCatalog(cfg *config.Config, logger *logging.Logger) (*ocm.Client, error) {
	tokens, err := config.CreateTokenSource(&cfg.Auth, &http.Client{Timeout: cfg.OCM.RequestTimeout})
	if err != nil {
		return nil, err
	}

	var limiter httpclient.RateLimiter
	if cfg.OCM.RateLimitQPS > 0 {
		limiter = httpclient.NewRouteLimiter(cfg.OCM.RateLimitQPS, cfg.OCM.RateLimitBurst, httpclient.RouteKey)
	}

	retry := httpclient.NewExponentialBackoffRetry(httpclient.RetryConfig{
		MaxAttempts: cfg.OCM.MaxRetries,
		BaseDelay:   cfg.OCM.RetryBaseDelay,
		MaxDelay:    cfg.OCM.RetryMaxDelay,
		Refresh:     func() error { return auth.Invalidate(tokens) },
		Logger:      logger.Named("retry"),
	})
	api := httpclient.NewClient(
		httpclient.WithTimeout(cfg.OCM.RequestTimeout),
		httpclient.WithRetryPolicy(retry),
		httpclient.WithRateLimiter(limiter),
		httpclient.WithMiddlewares(httpclient.WithDefaultAccept("application/json")),
	)
	download := httpclient.NewClient(
		httpclient.WithTimeout(cfg.OCM.DownloadTimeout),
		httpclient.WithRetryPolicy(nil),
		httpclient.WithRateLimiter(limiter),
	)

	return ocm.NewClient(cfg.OCM.BaseURL, cfg.OCM.RepositoryID, tokens,
		ocm.WithHTTPClient(api),
		ocm.WithDownloadClient(download),
		ocm.WithLogger(logger.Named("ocm")),
	), nil
}

func exportOptions(cfg *config.Config, catalog *ocm.Client, logger *logging.Logger) export.Options {
	return export.Options{
		Paths:      store.Paths{FilesDir: cfg.Output.FilesDir, MetaDir: cfg.Output.MetaDir},
		PageLimit:  cfg.OCM.PageLimit,
		MaxWorkers: cfg.OCM.MaxWorkers,
		ChunkSize:  cfg.OCM.ChunkSizeMB << 20,
		Retry: task.RetryConfig{
			MaxAttempts: cfg.OCM.MaxRetries,
			BaseDelay:   cfg.OCM.RetryBaseDelay,
			MaxDelay:    cfg.OCM.RetryMaxDelay,
		},
		CheckpointMode:   cfg.Export.CheckpointMode,
		Force:            cfg.Export.Force,
		ExportMembers:    cfg.Export.ExportMembers,
		ProgressInterval: cfg.Export.ProgressInterval,
		OnUnauthorized:   catalog.InvalidateToken,
		Logger:           logger.Named("export"),
	}
}
