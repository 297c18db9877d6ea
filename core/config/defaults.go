package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/dnslin/ocm-export/core/logging"
)

// Default 返回带默认值的配置，连接与认证信息需使用方补充。
func Default() Config {
	return Config{
		OCM: OCMConfig{
			PageLimit:       100,
			MaxRetries:      5,
			RetryBaseDelay:  2 * time.Second,
			RetryMaxDelay:   60 * time.Second,
			RequestTimeout:  60 * time.Second,
			DownloadTimeout: 120 * time.Second,
			ChunkSizeMB:     1,
			MaxWorkers:      8,
		},
		Output: OutputConfig{
			RootDir: "ocm_export",
		},
		Export: ExportConfig{
			CheckpointMode:   CheckpointPageBarrier,
			ProgressInterval: 30 * time.Second,
			ExportMembers:    true,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}

// ApplyDefaults 为零值字段补默认值，显式设置的值保持不变。
func ApplyDefaults(cfg *Config) {
	d := Default()
	applyOCMDefaults(&cfg.OCM, d.OCM)
	applyAuthDefaults(cfg)
	applyOutputDefaults(&cfg.Output, d.Output)

	if cfg.Export.CheckpointMode == "" {
		cfg.Export.CheckpointMode = d.Export.CheckpointMode
	}
	cfg.Export.CheckpointMode = strings.ToLower(cfg.Export.CheckpointMode)

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = d.Logging.Format
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = d.Logging.Output
	}
}

func applyOCMDefaults(cfg *OCMConfig, d OCMConfig) {
	if cfg.PageLimit == 0 {
		cfg.PageLimit = d.PageLimit
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = d.MaxRetries
	}
	if cfg.RetryBaseDelay == 0 {
		cfg.RetryBaseDelay = d.RetryBaseDelay
	}
	if cfg.RetryMaxDelay == 0 {
		cfg.RetryMaxDelay = d.RetryMaxDelay
	}
	if cfg.ChunkSizeMB == 0 {
		cfg.ChunkSizeMB = d.ChunkSizeMB
	}
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = d.MaxWorkers
	}
	if cfg.RateLimitQPS > 0 && cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 1
	}
}

// applyAuthDefaults 未指定认证类型但给出 ocm.token 时按静态令牌处理。
func applyAuthDefaults(cfg *Config) {
	cfg.Auth.Type = strings.ToLower(cfg.Auth.Type)
	if cfg.Auth.Type == "" && cfg.OCM.Token != "" {
		cfg.Auth.Type = AuthStatic
		if cfg.Auth.Static == nil {
			cfg.Auth.Static = map[string]any{}
		}
		if tok, _ := cfg.Auth.Static["token"].(string); tok == "" {
			cfg.Auth.Static["token"] = cfg.OCM.Token
		}
	}
}

func applyOutputDefaults(cfg *OutputConfig, d OutputConfig) {
	if cfg.RootDir == "" {
		cfg.RootDir = d.RootDir
	}
	if cfg.FilesDir == "" {
		cfg.FilesDir = filepath.Join(cfg.RootDir, "files")
	}
	if cfg.MetaDir == "" {
		cfg.MetaDir = filepath.Join(cfg.RootDir, "meta")
	}
}
