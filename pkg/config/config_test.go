package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1e-9, cfg.Solver.Tolerance)
	assert.Equal(t, 50, cfg.Solver.MaxIterations)
	assert.Equal(t, 5*time.Second, cfg.Engine.EvalTimeout)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sketch.yaml")
	data := []byte(`
solver:
  tolerance: 1.0e-6
  max_iterations: 20
log:
  level: debug
  format: json
engine:
  eval_timeout: 250ms
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1e-6, cfg.Solver.Tolerance)
	assert.Equal(t, 20, cfg.Solver.MaxIterations)
	assert.Equal(t, Default().Solver.Rcond, cfg.Solver.Rcond, "unset fields keep defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.EvalTimeout)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("solver: [unclosed"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "load config file")
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sketch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("solver:\n  max_iterations: 20\n"), 0o644))
	t.Setenv("SKETCH_MAX_ITERATIONS", "7")
	t.Setenv("SKETCH_EVAL_TIMEOUT", "2s")
	t.Setenv("SKETCH_RCOND", "1e-6")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Solver.MaxIterations)
	assert.Equal(t, 2*time.Second, cfg.Engine.EvalTimeout)
	assert.Equal(t, 1e-6, cfg.Solver.Rcond)
}

func TestLoadRejectsMalformedEnv(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SKETCH_TOLERANCE", "not-a-number"},
		{"SKETCH_MIN_STEP", "half"},
		{"SKETCH_RCOND", "1e-"},
		{"SKETCH_MAX_ITERATIONS", "7.5"},
		{"SKETCH_EVAL_TIMEOUT", "5"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"tolerance", func(c *Config) { c.Solver.Tolerance = 0 }, "tolerance"},
		{"iterations", func(c *Config) { c.Solver.MaxIterations = 0 }, "max_iterations"},
		{"min step", func(c *Config) { c.Solver.MinStep = 2 }, "min_step"},
		{"rcond", func(c *Config) { c.Solver.Rcond = -1 }, "rcond"},
		{"level", func(c *Config) { c.Log.Level = "chatty" }, "log level"},
		{"format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
		{"timeout", func(c *Config) { c.Engine.EvalTimeout = 0 }, "eval_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestSolverSettings(t *testing.T) {
	s := Default().Solver
	s.MaxIterations = 12
	got := s.Settings()
	assert.Equal(t, 12, got.MaxIterations)
	assert.Equal(t, s.Tolerance, got.Tolerance)
}

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	log := Log{Level: "warn", Format: "json"}.Logger(&buf)
	log.Info("dropped")
	log.Warn("kept", "k", 1)
	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"msg":"kept"`)
}
