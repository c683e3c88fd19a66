package runtest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/ethereum-optimism/infra/runtest/exitcodes"
	"github.com/ethereum-optimism/infra/runtest/metrics"
	"github.com/ethereum-optimism/infra/runtest/runner"
	"github.com/ethereum-optimism/infra/runtest/service"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
)

// tester implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &tester{}

// tester runs the configured test binaries once and then asks the
// application to shut down.
type tester struct {
	config  *Config
	version string
	runner  runner.TestRunner
	service *service.Service
	result  *runner.RunnerResult

	running atomic.Bool

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*tester, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.Log == nil {
		return nil, errors.New("logger is required")
	}
	if shutdownCallback == nil {
		return nil, errors.New("shutdown callback is required")
	}

	config.Log.Debug("Creating runtest with config",
		"tests", config.Tests,
		"workDir", config.WorkDir,
		"healthz", config.HealthzEnabled,
		"metrics", config.MetricsConfig.Enabled,
		"pushGateway", config.PushGatewayURL)

	testRunner, err := runner.NewTestRunner(runner.Config{
		Tests:   config.Tests,
		WorkDir: config.WorkDir,
		Log:     config.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create test runner: %w", err)
	}

	return newTester(config, version, testRunner, shutdownCallback), nil
}

func newTester(config *Config, version string, testRunner runner.TestRunner, shutdownCallback func(error)) *tester {
	return &tester{
		config:  config,
		version: version,
		runner:  testRunner,
		service: service.New(service.Config{
			HealthzEnabled: config.HealthzEnabled,
			HealthzAddr:    config.HealthzAddr,
			HealthzPort:    config.HealthzPort,
			MetricsConfig:  config.MetricsConfig,
		}, config.Log),
		shutdownCallback: shutdownCallback,
	}
}

// Start runs every test binary once, then triggers shutdown.
// Start implements the cliapp.Lifecycle interface.
func (t *tester) Start(ctx context.Context) error {
	// Panics while driving the children exit with exitcodes.RuntimeErr
	defer func() {
		if r := recover(); r != nil {
			t.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	t.running.Store(true)

	if len(t.config.Tests) == 0 {
		t.config.Log.Debug("No test binaries given, nothing to run")
		go func() {
			t.shutdownCallback(nil)
		}()
		return nil
	}

	if err := t.service.Start(); err != nil {
		return NewRuntimeError(fmt.Errorf("failed to start service: %w", err))
	}

	if err := t.runTests(ctx); err != nil {
		return err
	}

	go func() {
		t.shutdownCallback(nil)
	}()
	return nil
}

// runTests runs all test binaries and pushes the run's metrics when configured
func (t *tester) runTests(ctx context.Context) error {
	result, err := t.runner.RunAll(ctx)
	t.result = result

	if t.config.PushGatewayURL != "" && result != nil {
		if pushErr := metrics.Push(ctx, t.config.PushGatewayURL, result.RunID); pushErr != nil {
			t.config.Log.Warn("Failed to push metrics", "url", t.config.PushGatewayURL, "err", pushErr)
			metrics.RecordErrorDetails("push", pushErr)
		}
	}

	if err != nil {
		t.config.Log.Error("Runtime error running test binaries", "error", err)
		return NewRuntimeError(err)
	}
	t.config.Log.Debug("Test run completed", "run_id", result.RunID, "duration", result.Duration)
	return nil
}

// Stop stops the side servers.
// Stop implements the cliapp.Lifecycle interface.
func (t *tester) Stop(ctx context.Context) error {
	if !t.running.Load() {
		t.config.Log.Debug("Already stopped, nothing to do")
		return nil
	}
	t.running.Store(false)

	if err := t.service.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop service: %w", err)
	}
	t.config.Log.Debug("runtest stopped")
	return nil
}

// Stopped returns true once Stop has been called.
// Stopped implements the cliapp.Lifecycle interface.
func (t *tester) Stopped() bool {
	return !t.running.Load()
}
