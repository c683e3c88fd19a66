package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/ethereum-optimism/infra/runtest/metrics"
	"github.com/ethereum-optimism/infra/runtest/types"
	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Banners printed around every test binary.
const (
	StartBannerFormat  = "Running Unit Tests for %s\n"
	FinishBannerFormat = "Unit Tests for %s Finished!\n"
)

// RunnerResult captures a test run
type RunnerResult struct {
	RunID    string
	Results  []*types.TestResult // In invocation order
	Duration time.Duration
}

// TestRunner defines the interface for running test binaries
type TestRunner interface {
	RunAll(ctx context.Context) (*RunnerResult, error)
}

// runner struct implements TestRunner interface
type runner struct {
	tests    []string
	workDir  string
	out      io.Writer
	executor TestExecutor
	log      log.Logger
	tracer   trace.Tracer
}

// Config holds configuration for creating a new runner
type Config struct {
	Tests    []string     // Test binary paths, run in this order
	WorkDir  string       // Directory the paths resolve against; empty means the current directory
	Out      io.Writer    // Destination of the banners, defaults to os.Stdout
	Executor TestExecutor // Defaults to an executor inheriting the process' stdio
	Log      log.Logger
}

// NewTestRunner creates a new test runner instance
func NewTestRunner(cfg Config) (TestRunner, error) {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}

	r := &runner{
		tests:   cfg.Tests,
		workDir: cfg.WorkDir,
		out:     cfg.Out,
		log:     cfg.Log,
		tracer:  otel.Tracer("test runner"),
	}

	if cfg.Executor == nil {
		executor, err := NewTestExecutor(os.Stdout, os.Stderr, os.Stdin, r.testCommandContext)
		if err != nil {
			return nil, fmt.Errorf("failed to create test executor: %w", err)
		}
		cfg.Executor = executor
	}
	r.executor = cfg.Executor

	cfg.Log.Debug("NewTestRunner()", "tests", len(cfg.Tests), "workDir", cfg.WorkDir)

	return r, nil
}

// RunAll runs every test binary in order. It stops at the first binary that
// cannot be spawned and returns the partial result together with the error.
func (r *runner) RunAll(ctx context.Context) (*RunnerResult, error) {
	runID := uuid.New().String()
	start := time.Now()

	ctx, span := r.tracer.Start(ctx, "run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("tests", len(r.tests)),
	))
	defer span.End()

	r.log.Debug("Running all test binaries", "run_id", runID, "count", len(r.tests))

	result := &RunnerResult{
		RunID:   runID,
		Results: make([]*types.TestResult, 0, len(r.tests)),
	}

	for i, path := range r.tests {
		testResult, err := r.runTest(ctx, runID, path)
		if err != nil {
			result.Duration = time.Since(start)
			span.RecordError(err)
			span.SetStatus(codes.Error, "spawn failed")
			metrics.RecordSpawnError(runID, err)
			metrics.RecordRun(runID, metrics.RunResultAborted, result.Duration)
			r.log.Debug("Aborting run", "run_id", runID, "index", i, "remaining", len(r.tests)-i-1)
			return result, fmt.Errorf("test binary %s: %w", path, err)
		}
		result.Results = append(result.Results, testResult)
	}

	result.Duration = time.Since(start)
	metrics.RecordRun(runID, metrics.RunResultCompleted, result.Duration)
	r.log.Debug("Test run completed", "run_id", runID, "duration", result.Duration)
	return result, nil
}

// runTest prints the banners around a single test binary. The finish banner
// is skipped when the binary could not be spawned.
func (r *runner) runTest(ctx context.Context, runID string, path string) (*types.TestResult, error) {
	ctx, span := r.tracer.Start(ctx, "test", trace.WithAttributes(
		attribute.String("path", path),
	))
	defer span.End()

	if _, err := fmt.Fprintf(r.out, StartBannerFormat, path); err != nil {
		return nil, fmt.Errorf("failed to write banner: %w", err)
	}

	result, err := r.executor.Execute(ctx, path)
	if err != nil {
		r.log.Error("Failed to spawn test binary", "run_id", runID, "path", path, "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "spawn failed")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("exit_code", result.ExitCode),
		attribute.String("status", string(result.Status)),
	)
	metrics.RecordTestBinary(runID, path, result.Status, result.ExitCode, result.Duration)
	r.log.Debug("Test binary exited", "run_id", runID, "path", path,
		"status", result.Status, "exit_code", result.ExitCode, "duration", result.Duration)

	if _, err := fmt.Fprintf(r.out, FinishBannerFormat, path); err != nil {
		return nil, fmt.Errorf("failed to write banner: %w", err)
	}
	return result, nil
}

// testCommandContext builds the command for a test binary. The trace context
// is handed to the child through its environment.
func (r *runner) testCommandContext(ctx context.Context, name string, arg ...string) (*exec.Cmd, func()) {
	cmd := exec.CommandContext(ctx, name, arg...)
	cmd.Dir = r.workDir
	cmd.Env = telemetry.InstrumentEnvironment(ctx, os.Environ())
	return cmd, func() {}
}

var _ TestRunner = &runner{}
