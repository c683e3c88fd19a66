package types

import (
	"fmt"
	"time"
)

// TestStatus represents the possible states of a test binary execution
type TestStatus string

const (
	TestStatusPass TestStatus = "pass"
	TestStatusFail TestStatus = "fail"
)

// ExitCodeSignaled is reported when the test binary was terminated by a signal.
const ExitCodeSignaled = -1

// TestResult captures the outcome of a single test binary run.
// A failing result never influences the runner's own exit status.
type TestResult struct {
	Path     string        // Path as given on the command line
	Status   TestStatus
	ExitCode int           // Exit code of the child, or ExitCodeSignaled
	Duration time.Duration // Wall-clock time between spawn and exit
	Error    error         // Exit error reported by the child, if any
}

// StatusFromExitCode maps a child exit code to a TestStatus.
func StatusFromExitCode(code int) TestStatus {
	if code == 0 {
		return TestStatusPass
	}
	return TestStatusFail
}

func (r *TestResult) String() string {
	if r == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %s (exit code %d, %s)", r.Path, r.Status, r.ExitCode, r.Duration.Round(time.Millisecond))
}
