package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/runtest/metrics"
	"github.com/ethereum-optimism/optimism/op-service/httputil"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

// Config selects the side servers that run alongside the test binaries.
// Both are off by default.
type Config struct {
	HealthzEnabled bool
	HealthzAddr    string
	HealthzPort    int
	MetricsConfig  opmetrics.CLIConfig
}

type Service struct {
	Healthz *HealthzServer
	Metrics *httputil.HTTPServer

	cfg Config
	log log.Logger
}

func New(cfg Config, log log.Logger) *Service {
	return &Service{
		Healthz: &HealthzServer{},
		cfg:     cfg,
		log:     log,
	}
}

// Start starts the enabled servers. Nothing is started when neither is enabled.
func (s *Service) Start() error {
	if s.cfg.HealthzEnabled {
		addr := net.JoinHostPort(s.cfg.HealthzAddr, strconv.Itoa(s.cfg.HealthzPort))
		s.log.Info("Starting healthz server", "addr", addr)
		if err := s.Healthz.Start(addr); err != nil {
			metrics.RecordErrorDetails("healthz server", err)
			return fmt.Errorf("failed to start healthz server: %w", err)
		}
	}

	if s.cfg.MetricsConfig.Enabled {
		metricsCfg := s.cfg.MetricsConfig
		s.log.Info("Starting metrics server", "addr", metricsCfg.ListenAddr, "port", metricsCfg.ListenPort)
		metricsServer, err := opmetrics.StartServer(metrics.Registry, metricsCfg.ListenAddr, metricsCfg.ListenPort)
		if err != nil {
			metrics.RecordErrorDetails("metrics server", err)
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		s.log.Info("Started metrics server", "endpoint", metricsServer.Addr())
		s.Metrics = metricsServer
	}
	return nil
}

func (s *Service) Shutdown(ctx context.Context) error {
	var result error
	if err := s.Healthz.Shutdown(ctx); err != nil {
		result = errors.Join(result, fmt.Errorf("failed to stop healthz server: %w", err))
	}
	if s.Metrics != nil {
		if err := s.Metrics.Stop(ctx); err != nil {
			result = errors.Join(result, fmt.Errorf("failed to stop metrics server: %w", err))
		}
	}
	s.log.Debug("service stopped")
	return result
}
