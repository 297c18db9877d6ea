package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnslin/ocm-export/core/auth"
	"github.com/dnslin/ocm-export/core/config"
	"github.com/dnslin/ocm-export/core/export"
)

func TestExportFlagsOverrideConfig(t *testing.T) {
	flags, err := parseExportFlags([]string{"-force", "-workers", "12", "-log-level", "debug", "-metrics-addr", "127.0.0.1:9100"})
	require.NoError(t, err)

	cfg := config.Default()
	cfg.OCM.BaseURL = "https://ocm.example.com/"
	cfg.OCM.RepositoryID = "R"
	cfg.Auth = config.AuthConfig{Type: config.AuthStatic, Static: map[string]any{"token": "t"}}
	config.ApplyDefaults(&cfg)

	require.NoError(t, flags.apply(&cfg))
	assert.True(t, cfg.Export.Force)
	assert.Equal(t, 12, cfg.OCM.MaxWorkers)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
}

func TestExportFlagsRejectInvalid(t *testing.T) {
	_, err := parseExportFlags([]string{"extra"})
	assert.Error(t, err)

	flags, err := parseExportFlags([]string{"-log-level", "loud"})
	require.NoError(t, err)
	cfg := config.Default()
	cfg.OCM.BaseURL = "https://ocm.example.com/"
	cfg.OCM.RepositoryID = "R"
	cfg.Auth = config.AuthConfig{Type: config.AuthStatic, Static: map[string]any{"token": "t"}}
	assert.Error(t, flags.apply(&cfg))
}

func TestCmdInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.Equal(t, exitOK, cmdInit([]string{"-config", path}))
	_, err := os.Stat(path)
	require.NoError(t, err)

	assert.Equal(t, exitUsage, cmdInit([]string{"-config", path}))
	assert.Equal(t, exitOK, cmdInit([]string{"-config", path, "-force"}))
}

func TestCmdExportMissingConfig(t *testing.T) {
	code := cmdExport([]string{"-config", filepath.Join(t.TempDir(), "absent.yaml")})
	assert.Equal(t, exitUsage, code)
}

func TestExitCodeFor(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, exitOK, exitCodeFor(ctx, nil))
	assert.Equal(t, exitFailure, exitCodeFor(ctx, export.ErrEnumeration))
	assert.Equal(t, exitUsage, exitCodeFor(ctx, fmt.Errorf("run: %w", auth.ErrTokenEmpty)))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Equal(t, exitInterrupted, exitCodeFor(canceled, context.Canceled))
}
