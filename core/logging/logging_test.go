package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/dnslin/ocm-export/core/httpclient"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.log")
	logger, err := New(Config{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)

	var _ httpclient.Logger = logger.Named("export")
	logger.Named("export").Infof("已获取 %d 条记录", 3)
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"logger":"export"`))
	assert.True(t, strings.Contains(string(data), "已获取 3 条记录"))
}

func TestLevelFallbackAndSet(t *testing.T) {
	logger, err := New(Config{Level: "verbose", Output: filepath.Join(t.TempDir(), "x.log")})
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, logger.Level())

	logger.SetLevel("warn")
	assert.Equal(t, zapcore.WarnLevel, logger.Level())
	logger.SetLevel("nonsense")
	assert.Equal(t, zapcore.WarnLevel, logger.Level())
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Named("x").Warnf("丢弃 %s", "ok")
}
