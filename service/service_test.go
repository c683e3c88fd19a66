package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

func TestHealthzHandle(t *testing.T) {
	h := &HealthzServer{}
	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestHealthzServer(t *testing.T) {
	h := &HealthzServer{}
	assert.Nil(t, h.Addr())
	require.NoError(t, h.Shutdown(context.Background()), "shutdown before start is a no-op")

	require.NoError(t, h.Start("127.0.0.1:0"))
	defer h.Shutdown(context.Background()) //nolint:errcheck

	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("http://%s/healthz", h.Addr()), nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServiceDisabledByDefault(t *testing.T) {
	s := New(Config{}, log.NewLogger(log.DiscardHandler()))
	require.NoError(t, s.Start())
	assert.Nil(t, s.Healthz.Addr())
	assert.Nil(t, s.Metrics)
	require.NoError(t, s.Shutdown(context.Background()))
}

func TestServiceStartsEnabledServers(t *testing.T) {
	s := New(Config{
		HealthzEnabled: true,
		HealthzAddr:    "127.0.0.1",
		HealthzPort:    0,
		MetricsConfig: opmetrics.CLIConfig{
			Enabled:    true,
			ListenAddr: "127.0.0.1",
			ListenPort: 0,
		},
	}, log.NewLogger(log.DiscardHandler()))
	require.NoError(t, s.Start())

	require.NotNil(t, s.Healthz.Addr())
	require.NotNil(t, s.Metrics)

	resp, err := http.Get(fmt.Sprintf("http://%s/metrics", s.Metrics.Addr()))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")

	require.NoError(t, s.Shutdown(context.Background()))
}

func TestServiceHealthzListenError(t *testing.T) {
	s := New(Config{
		HealthzEnabled: true,
		HealthzAddr:    "256.0.0.1",
		HealthzPort:    1,
	}, log.NewLogger(log.DiscardHandler()))
	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start healthz server")
}
