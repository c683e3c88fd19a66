package runtest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/runtest/flags"
	"github.com/ethereum/go-ethereum/log"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

// Config holds the application configuration
type Config struct {
	Tests          []string // Test binary paths in invocation order
	WorkDir        string   // Directory the paths resolve against, empty for the current directory
	HealthzEnabled bool
	HealthzAddr    string
	HealthzPort    int
	MetricsConfig  opmetrics.CLIConfig
	PushGatewayURL string // Pushgateway to push run metrics to, if set
	Log            log.Logger
}

// NewConfig creates a new Config from cli context. Every positional argument
// is a test binary path.
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	tests := ctx.Args().Slice()

	workDir := ctx.String(flags.WorkDir.Name)
	if workDir != "" {
		absWorkDir, err := filepath.Abs(workDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for work directory '%s': %w", workDir, err)
		}
		info, err := os.Stat(absWorkDir)
		if err != nil {
			return nil, fmt.Errorf("failed to stat work directory '%s': %w", absWorkDir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("work directory '%s' is not a directory", absWorkDir)
		}
		workDir = absWorkDir
	}

	healthzPort := ctx.Int(flags.HealthzPort.Name)
	if healthzPort < 0 || healthzPort > 65535 {
		return nil, fmt.Errorf("invalid healthz port: %d", healthzPort)
	}

	metricsCfg := opmetrics.ReadCLIConfig(ctx)
	if err := metricsCfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid metrics config: %w", err)
	}

	return &Config{
		Tests:          tests,
		WorkDir:        workDir,
		HealthzEnabled: ctx.Bool(flags.HealthzEnabled.Name),
		HealthzAddr:    ctx.String(flags.HealthzAddr.Name),
		HealthzPort:    healthzPort,
		MetricsConfig:  metricsCfg,
		PushGatewayURL: ctx.String(flags.PushGatewayURL.Name),
		Log:            log,
	}, nil
}
