package metrics

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/runtest/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

const (
	MetricsNamespace = "runtest"

	// PushJobName is the Pushgateway job label for pushed run metrics.
	PushJobName = "runtest"

	RunResultCompleted = "completed"
	RunResultAborted   = "aborted"
)

var (
	validResults         = []types.TestStatus{types.TestStatusPass, types.TestStatusFail}
	nonAlphanumericRegex = regexp.MustCompile(`[^a-zA-Z ]+`)

	// Registry holds every runtest collector. It is served by the metrics
	// server and gathered by Push.
	Registry = opmetrics.NewRegistry()
	factory  = promauto.With(Registry)

	errorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	testBinariesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "test_binaries_total",
		Help:      "Count of test binaries run, by the result of their own exit code",
	}, []string{
		"run_id",
		"result",
	})

	testBinaryDuration = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "test_binary_duration_seconds",
		Help:      "Wall-clock duration of the last run of a test binary",
	}, []string{
		"run_id",
		"path",
	})

	testBinaryExitCode = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "test_binary_exit_code",
		Help:      "Exit code of the last run of a test binary (-1 when killed by a signal)",
	}, []string{
		"run_id",
		"path",
	})

	spawnErrorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "spawn_errors_total",
		Help:      "Count of test binaries that could not be spawned",
	}, []string{
		"run_id",
	})

	runsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "runs_total",
		Help:      "Count of runs, by whether every listed binary was spawned",
	}, []string{
		"result",
	})

	runDuration = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of a run",
	}, []string{
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	log.Debug("metric inc",
		"m", "errors_total",
		"error", error,
	)
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

func RecordTestBinary(runID string, path string, result types.TestStatus, exitCode int, duration time.Duration) {
	if !isValidResult(result) {
		log.Error("RecordTestBinary - invalid result", "result", result)
		return
	}
	log.Debug("metric inc",
		"m", "test_binaries_total",
		"run_id", runID,
		"path", path,
		"result", result,
		"exit_code", exitCode)
	testBinariesTotal.WithLabelValues(runID, string(result)).Inc()
	testBinaryDuration.WithLabelValues(runID, path).Set(duration.Seconds())
	testBinaryExitCode.WithLabelValues(runID, path).Set(float64(exitCode))
}

func RecordSpawnError(runID string, err error) {
	spawnErrorsTotal.WithLabelValues(runID).Inc()
	RecordErrorDetails("spawn", err)
}

func RecordRun(runID string, result string, duration time.Duration) {
	runsTotal.WithLabelValues(result).Inc()
	runDuration.WithLabelValues(runID).Set(duration.Seconds())
}

// Push sends the current contents of Registry to a Prometheus Pushgateway,
// grouped by run ID. The grouping key is "run" since the pushed metrics
// already carry a run_id label.
func Push(ctx context.Context, url string, runID string) error {
	if url == "" {
		return fmt.Errorf("pushgateway url cannot be empty")
	}
	pusher := push.New(url, PushJobName).Gatherer(Registry)
	if runID != "" {
		pusher = pusher.Grouping("run", runID)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}

func isValidResult(result types.TestStatus) bool {
	return slices.Contains(validResults, result)
}
