package config

import (
	"fmt"
	"net/http"

	"github.com/mitchellh/mapstructure"

	"github.com/dnslin/ocm-export/core/auth"
)

// StaticAuthConfig auth.static 小节。
type StaticAuthConfig struct {
	Token string `mapstructure:"token" validate:"required"`
}

// FileAuthConfig auth.file 小节。
type FileAuthConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// decodeAuth 按类型解码并校验认证小节，返回对应的强类型配置。
func decodeAuth(cfg *AuthConfig) (any, error) {
	var (
		target  any
		section map[string]any
	)
	switch cfg.Type {
	case AuthStatic:
		target, section = &StaticAuthConfig{}, cfg.Static
	case AuthFile:
		target, section = &FileAuthConfig{}, cfg.File
	case AuthClientCredentials:
		target, section = &auth.ClientCredentialsConfig{}, cfg.ClientCredentials
	default:
		return nil, fmt.Errorf("auth.type: 未知的认证类型 %q", cfg.Type)
	}
	if err := mapstructure.Decode(section, target); err != nil {
		return nil, fmt.Errorf("auth.%s: 解析失败: %w", cfg.Type, err)
	}
	if err := validate.Struct(target); err != nil {
		return nil, fmt.Errorf("auth.%s: %w", cfg.Type, formatValidationError(err))
	}
	return target, nil
}

// CreateTokenSource 根据认证配置创建令牌来源，httpClient 仅用于客户端凭据交换。
func CreateTokenSource(cfg *AuthConfig, httpClient *http.Client) (auth.TokenSource, error) {
	decoded, err := decodeAuth(cfg)
	if err != nil {
		return nil, err
	}
	switch c := decoded.(type) {
	case *StaticAuthConfig:
		return auth.StaticToken(c.Token), nil
	case *FileAuthConfig:
		return auth.NewFileToken(c.Path), nil
	case *auth.ClientCredentialsConfig:
		return auth.NewClientCredentialsSource(*c, httpClient), nil
	}
	return nil, fmt.Errorf("auth.type: 不支持的认证类型 %q", cfg.Type)
}
