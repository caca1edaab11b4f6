package application

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attest-ml/go-attest/infrastructure/explain"
)

func newTestLoader(t *testing.T) *ConfigLoader {
	t.Helper()
	loader, err := NewConfigLoader()
	require.NoError(t, err)
	return loader
}

func TestLoadFromReaderAppliesDefaults(t *testing.T) {
	t.Parallel()

	// A minimal document only names what it changes; everything else
	// keeps the defaults.
	cfg, err := newTestLoader(t).LoadFromReader(strings.NewReader(`
server:
  addr: ":9090"
`))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "15s", cfg.Server.ReadTimeout)
	assert.Equal(t, explain.StrategyMean, cfg.Explain.Aggregator.Strategy)
	assert.Equal(t, 30, cfg.Uncertainty.Passes)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "attest.db", cfg.Storage.Path)
	require.Len(t, cfg.Model.Methods, 1)
	assert.Equal(t, "occlusion", cfg.Model.Methods[0].Type)
}

func TestLoadFromReaderOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := newTestLoader(t).LoadFromReader(strings.NewReader(`
server:
  addr: "0.0.0.0:8443"
model:
  endpoint: "http://model:9000"
  num_classes: 5
  methods:
    - type: occlusion
      name: occ_fine
      parameters:
        patch_size: 4
explain:
  aggregator:
    strategy: weighted
    top_k_percent: 10
    correlation_weight: 2
    iou_weight: 1
    dice_weight: 1
  method_timeout: 45s
uncertainty:
  passes: 50
  max_concurrency: 8
cache:
  backend: redis
  redis_addr: "redis:6379"
`))
	require.NoError(t, err)

	assert.Equal(t, "http://model:9000", cfg.Model.Endpoint)
	assert.Equal(t, 5, cfg.Model.NumClasses)
	require.Len(t, cfg.Model.Methods, 1)
	assert.Equal(t, "occ_fine", cfg.Model.Methods[0].Name)
	assert.Equal(t, 4, cfg.Model.Methods[0].Parameters["patch_size"])

	assert.Equal(t, explain.StrategyWeighted, cfg.Explain.Aggregator.Strategy)
	assert.InDelta(t, 10.0, cfg.Explain.Aggregator.TopKPercent, 1e-9)
	assert.Equal(t, 50, cfg.Uncertainty.Passes)
	assert.Equal(t, "redis", cfg.Cache.Backend)

	rc := cfg.Explain.RunnerConfig()
	assert.Equal(t, "45s", cfg.Explain.MethodTimeout)
	assert.Equal(t, 45.0, rc.MethodTimeout.Seconds())
}

func TestLoadFromReaderValidationFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "malformed duration",
			yaml: "explain:\n  method_timeout: \"soon\"\n",
		},
		{
			name: "negative duration",
			yaml: "metrics:\n  snapshot_ttl: \"-5m\"\n",
		},
		{
			name: "unknown cache backend",
			yaml: "cache:\n  backend: memcached\n",
		},
		{
			name: "redis backend without address",
			yaml: "cache:\n  backend: redis\n  redis_addr: \"\"\n",
		},
		{
			name: "endpoint without class count",
			yaml: "model:\n  endpoint: \"http://model:9000\"\n",
		},
		{
			name: "bad listen address",
			yaml: "server:\n  addr: \"not an address\"\n",
		},
		{
			name: "not yaml at all",
			yaml: "{{{",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := newTestLoader(t).LoadFromReader(strings.NewReader(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":7070\"\n"), 0o600))

	cfg, err := newTestLoader(t).LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)

	_, err = newTestLoader(t).LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
