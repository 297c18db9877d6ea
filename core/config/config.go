// Package config 加载导出工具配置：YAML 文件、OCMEXPORT_* 环境变量与命令行覆盖。
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dnslin/ocm-export/core/logging"
)

// EnvPrefix 环境变量前缀，例如 OCMEXPORT_OCM_BASE_URL。
const EnvPrefix = "OCMEXPORT"

// 检查点模式。
const (
	CheckpointPageBarrier = "page-barrier"
	CheckpointEnumeration = "enumeration"
)

// 认证类型。
const (
	AuthStatic            = "static"
	AuthFile              = "file"
	AuthClientCredentials = "client_credentials"
)

// Config 顶层配置。
type Config struct {
	OCM     OCMConfig      `mapstructure:"ocm" yaml:"ocm"`
	Auth    AuthConfig     `mapstructure:"auth" yaml:"auth"`
	Output  OutputConfig   `mapstructure:"output" yaml:"output"`
	Export  ExportConfig   `mapstructure:"export" yaml:"export"`
	Logging logging.Config `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// OCMConfig 目录服务连接与抓取参数。
type OCMConfig struct {
	BaseURL      string `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`
	RepositoryID string `mapstructure:"repository_id" yaml:"repository_id" validate:"required"`
	// Token 兼容旧配置，等价于 auth.type=static。
	Token string `mapstructure:"token" yaml:"token,omitempty"`

	PageLimit int `mapstructure:"page_limit" yaml:"page_limit" validate:"gt=0,lte=1000"`
	// MaxRetries 为每次请求的总尝试次数（含首次）。
	MaxRetries      int           `mapstructure:"max_retries" yaml:"max_retries" validate:"gte=1,lte=20"`
	RetryBaseDelay  time.Duration `mapstructure:"retry_base_delay" yaml:"retry_base_delay" validate:"gt=0"`
	RetryMaxDelay   time.Duration `mapstructure:"retry_max_delay" yaml:"retry_max_delay" validate:"gtefield=RetryBaseDelay"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" yaml:"request_timeout" validate:"gte=0"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout" yaml:"download_timeout" validate:"gte=0"`
	ChunkSizeMB     int           `mapstructure:"chunk_size_mb" yaml:"chunk_size_mb" validate:"gt=0,lte=64"`
	MaxWorkers      int           `mapstructure:"max_workers" yaml:"max_workers" validate:"gt=0,lte=256"`
	RateLimitQPS    float64       `mapstructure:"rate_limit_qps" yaml:"rate_limit_qps" validate:"gte=0"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst" validate:"gte=0"`
}

// AuthConfig 认证方式，具体参数位于与类型同名的小节中。
type AuthConfig struct {
	Type              string         `mapstructure:"type" yaml:"type" validate:"required,oneof=static file client_credentials"`
	Static            map[string]any `mapstructure:"static" yaml:"static,omitempty"`
	File              map[string]any `mapstructure:"file" yaml:"file,omitempty"`
	ClientCredentials map[string]any `mapstructure:"client_credentials" yaml:"client_credentials,omitempty"`
}

// OutputConfig 输出目录布局。
type OutputConfig struct {
	RootDir  string `mapstructure:"root_dir" yaml:"root_dir" validate:"required"`
	FilesDir string `mapstructure:"files_dir" yaml:"files_dir"`
	MetaDir  string `mapstructure:"meta_dir" yaml:"meta_dir"`
}

// ExportConfig 导出流程行为。
type ExportConfig struct {
	CheckpointMode   string        `mapstructure:"checkpoint_mode" yaml:"checkpoint_mode" validate:"oneof=page-barrier enumeration"`
	ProgressInterval time.Duration `mapstructure:"progress_interval" yaml:"progress_interval" validate:"gte=0"`
	ExportMembers    bool          `mapstructure:"export_members" yaml:"export_members"`
	Force            bool          `mapstructure:"force" yaml:"force"`
}

// MetricsConfig Prometheus 暴露地址，为空表示不启动。
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr" validate:"omitempty,hostname_port"`
}

// Load 读取配置文件（可为空）并叠加环境变量，随后补默认值并校验。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: 解析配置失败: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: 校验失败: %w", err)
	}
	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// setDefaults 注册全部键，使仅通过环境变量提供的值也能被 Unmarshal 读取。
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("ocm.base_url", "")
	v.SetDefault("ocm.repository_id", "")
	v.SetDefault("ocm.token", "")
	v.SetDefault("ocm.page_limit", d.OCM.PageLimit)
	v.SetDefault("ocm.max_retries", d.OCM.MaxRetries)
	v.SetDefault("ocm.retry_base_delay", d.OCM.RetryBaseDelay)
	v.SetDefault("ocm.retry_max_delay", d.OCM.RetryMaxDelay)
	v.SetDefault("ocm.request_timeout", d.OCM.RequestTimeout)
	v.SetDefault("ocm.download_timeout", d.OCM.DownloadTimeout)
	v.SetDefault("ocm.chunk_size_mb", d.OCM.ChunkSizeMB)
	v.SetDefault("ocm.max_workers", d.OCM.MaxWorkers)
	v.SetDefault("ocm.rate_limit_qps", d.OCM.RateLimitQPS)
	v.SetDefault("ocm.rate_limit_burst", d.OCM.RateLimitBurst)
	v.SetDefault("auth.type", "")
	v.SetDefault("auth.static.token", "")
	v.SetDefault("auth.file.path", "")
	v.SetDefault("auth.client_credentials.token_url", "")
	v.SetDefault("auth.client_credentials.client_id", "")
	v.SetDefault("auth.client_credentials.client_secret", "")
	v.SetDefault("output.root_dir", d.Output.RootDir)
	v.SetDefault("output.files_dir", "")
	v.SetDefault("output.meta_dir", "")
	v.SetDefault("export.checkpoint_mode", d.Export.CheckpointMode)
	v.SetDefault("export.progress_interval", d.Export.ProgressInterval)
	v.SetDefault("export.export_members", d.Export.ExportMembers)
	v.SetDefault("export.force", false)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("metrics.addr", "")
}

func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && configPath == "" {
			return nil
		}
		return fmt.Errorf("config: 读取配置文件失败: %w", err)
	}
	return nil
}
