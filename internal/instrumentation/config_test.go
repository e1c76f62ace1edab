package instrumentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "emailzen", cfg.ServiceName)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, ExporterPrometheus, cfg.MetricsExporter)
	assert.Equal(t, "/metrics", cfg.PrometheusEndpoint)
}

func TestDefaultConfigEnvOverrides(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "custom")
	t.Setenv("INSTRUMENTATION_ENABLED", "false")
	t.Setenv("METRICS_EXPORTER", ExporterStdout)

	cfg := DefaultConfig()
	assert.Equal(t, "custom", cfg.ServiceName)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, ExporterStdout, cfg.MetricsExporter)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.MetricsExporter = "graphite"
	assert.Error(t, cfg.Validate())

	cfg.MetricsExporter = ExporterOTLP
	cfg.OTLPEndpoint = ""
	assert.Error(t, cfg.Validate())

	cfg.OTLPEndpoint = "localhost:4318"
	assert.NoError(t, cfg.Validate())
}
