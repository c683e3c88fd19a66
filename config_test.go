package runtest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/runtest/flags"
)

// parseConfig runs NewConfig inside a cli app built from the real flag set
func parseConfig(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	var (
		cfg    *Config
		cfgErr error
	)
	app := &cli.App{
		Flags: flags.Flags,
		Action: func(ctx *cli.Context) error {
			cfg, cfgErr = NewConfig(ctx, log.NewLogger(log.DiscardHandler()))
			return nil
		},
	}
	require.NoError(t, app.Run(append([]string{"runtest"}, args...)))
	return cfg, cfgErr
}

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := parseConfig(t)
	require.NoError(t, err)

	assert.Empty(t, cfg.Tests)
	assert.Empty(t, cfg.WorkDir, "work directory defaults to the current directory")
	assert.False(t, cfg.HealthzEnabled)
	assert.False(t, cfg.MetricsConfig.Enabled)
	assert.Empty(t, cfg.PushGatewayURL)
	assert.NotNil(t, cfg.Log)
}

func TestNewConfigTests(t *testing.T) {
	cfg, err := parseConfig(t, "tsquare", "tboard", "tsquare")
	require.NoError(t, err)
	assert.Equal(t, []string{"tsquare", "tboard", "tsquare"}, cfg.Tests, "order and duplicates are kept")

	cfg, err = parseConfig(t, "--", "-dash", "help")
	require.NoError(t, err)
	assert.Equal(t, []string{"-dash", "help"}, cfg.Tests)

	cfg, err = parseConfig(t, "tsquare", "", "tboard")
	require.NoError(t, err)
	assert.Equal(t, []string{"tsquare", "", "tboard"}, cfg.Tests, "empty paths are kept and fail when spawned")
}

func TestNewConfigWorkDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	cfg, err := parseConfig(t, "--workdir", dir, "tsquare")
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.WorkDir)
	assert.True(t, filepath.IsAbs(cfg.WorkDir))

	_, err = parseConfig(t, "--workdir", filepath.Join(dir, "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to stat work directory")

	_, err = parseConfig(t, "--workdir", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a directory")
}

func TestNewConfigInvalidPorts(t *testing.T) {
	_, err := parseConfig(t, "--healthz.port", "70000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid healthz port")

	_, err = parseConfig(t, "--metrics.enabled", "--metrics.port", "70000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid metrics config")
}

func TestNewConfigFromEnv(t *testing.T) {
	dir := t.TempDir()
	// urfave/cli writes env values back into the shared flag definitions
	workDir, healthz, port, pushURL := flags.WorkDir.Value, flags.HealthzEnabled.Value, flags.HealthzPort.Value, flags.PushGatewayURL.Value
	t.Cleanup(func() {
		flags.WorkDir.Value = workDir
		flags.HealthzEnabled.Value = healthz
		flags.HealthzPort.Value = port
		flags.PushGatewayURL.Value = pushURL
	})
	t.Setenv("RUNTEST_WORKDIR", dir)
	t.Setenv("RUNTEST_HEALTHZ_ENABLED", "true")
	t.Setenv("RUNTEST_HEALTHZ_PORT", "9090")
	t.Setenv("RUNTEST_METRICS_PUSH_URL", "http://localhost:9091")

	cfg, err := parseConfig(t, "tsquare")
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.WorkDir)
	assert.True(t, cfg.HealthzEnabled)
	assert.Equal(t, 9090, cfg.HealthzPort)
	assert.Equal(t, "http://localhost:9091", cfg.PushGatewayURL)
}
