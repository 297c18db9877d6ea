package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const header = `# ocm-export 配置文件
# 所有键都可以通过 OCMEXPORT_<节>_<键> 环境变量覆盖，例如 OCMEXPORT_OCM_BASE_URL。
`

// ErrConfigExists 目标配置文件已存在。
var ErrConfigExists = errors.New("config: 配置文件已存在")

// WriteDefault 写入一份带默认值的初始配置，force 为 false 时不覆盖已有文件。
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}
	cfg := Default()
	cfg.OCM.BaseURL = "https://example.ocecdn.oraclecloud.com/content/"
	cfg.OCM.RepositoryID = "REPLACE_WITH_REPOSITORY_ID"
	cfg.Auth = AuthConfig{
		Type:   AuthStatic,
		Static: map[string]any{"token": "REPLACE_WITH_TOKEN"},
	}

	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return fmt.Errorf("config: 生成配置失败: %w", err)
	}
	humanizeDurations(&doc)

	var buf bytes.Buffer
	buf.WriteString(header)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("config: 生成配置失败: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("config: 生成配置失败: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: 创建目录失败: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("config: 写入配置失败: %w", err)
	}
	return nil
}

// humanizeDurations 将时长字段从纳秒整数改写为 "2s" 形式。
func humanizeDurations(node *yaml.Node) {
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i], node.Content[i+1]
			if val.Kind == yaml.ScalarNode && isDurationKey(key.Value) {
				if n, err := strconv.ParseInt(val.Value, 10, 64); err == nil {
					val.Value = time.Duration(n).String()
					val.Tag = "!!str"
				}
			}
		}
	}
	for _, child := range node.Content {
		humanizeDurations(child)
	}
}

func isDurationKey(key string) bool {
	return strings.HasSuffix(key, "_delay") ||
		strings.HasSuffix(key, "_timeout") ||
		strings.HasSuffix(key, "_interval")
}
