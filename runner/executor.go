package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/ethereum-optimism/infra/runtest/types"
	"github.com/ethereum/go-ethereum/log"
)

// BinaryPrefix is prepended to every test path so that it is resolved
// relative to the working directory rather than looked up in PATH.
const BinaryPrefix = "./"

var _ TestExecutor = (*testExecutor)(nil)

// CmdBuilder creates the command for a test binary. The returned func is
// called once the command has exited.
type CmdBuilder func(ctx context.Context, name string, arg ...string) (*exec.Cmd, func())

// TestExecutor spawns a single test binary and waits for it to exit.
type TestExecutor interface {
	// Execute runs the binary at BinaryPrefix+path with no arguments.
	// A non-zero exit of the binary is reported in the result, not as an error.
	// An error is returned only when the binary could not be run at all.
	Execute(ctx context.Context, path string) (*types.TestResult, error)
}

// testExecutor implements TestExecutor
type testExecutor struct {
	stdout     io.Writer
	stderr     io.Writer
	stdin      io.Reader
	cmdBuilder CmdBuilder
}

// NewTestExecutor creates a new test executor. The child's stdio is wired
// straight to the given streams; stdin may be nil.
func NewTestExecutor(stdout io.Writer, stderr io.Writer, stdin io.Reader, cmdBuilder CmdBuilder) (TestExecutor, error) {
	if stdout == nil {
		return nil, fmt.Errorf("stdout cannot be nil")
	}
	if stderr == nil {
		return nil, fmt.Errorf("stderr cannot be nil")
	}
	if cmdBuilder == nil {
		return nil, fmt.Errorf("cmdBuilder cannot be nil")
	}

	return &testExecutor{
		stdout:     stdout,
		stderr:     stderr,
		stdin:      stdin,
		cmdBuilder: cmdBuilder,
	}, nil
}

// Execute runs a single test binary
func (e *testExecutor) Execute(ctx context.Context, path string) (*types.TestResult, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	name := BinaryPrefix + path
	cmd, cleanup := e.cmdBuilder(ctx, name)
	defer cleanup()

	cmd.Stdout = e.stdout
	cmd.Stderr = e.stderr
	if e.stdin != nil {
		cmd.Stdin = e.stdin
	}

	log.Debug("Spawning test binary", "path", path, "cmd", name, "dir", cmd.Dir)

	startTime := time.Now()
	runErr := cmd.Run()
	duration := time.Since(startTime)

	if runErr != nil {
		exitErr := &exec.ExitError{}
		if !errors.As(runErr, &exitErr) {
			return nil, fmt.Errorf("failed to run %s: %w", name, runErr)
		}
	}

	exitCode := types.ExitCodeSignaled
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	return &types.TestResult{
		Path:     path,
		Status:   types.StatusFromExitCode(exitCode),
		ExitCode: exitCode,
		Duration: duration,
		Error:    runErr,
	}, nil
}
