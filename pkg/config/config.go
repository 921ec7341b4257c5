// Package config loads sketch solver settings with priority env > file >
// defaults.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chazu/sketchsolver/pkg/newton"
)

// Config is the top-level configuration file.
type Config struct {
	Solver Solver `yaml:"solver"`
	Log    Log    `yaml:"log"`
	Engine Engine `yaml:"engine"`
}

// Solver tunes the Newton iteration.
type Solver struct {
	Tolerance     float64 `yaml:"tolerance"`
	MaxIterations int     `yaml:"max_iterations"`
	MinStep       float64 `yaml:"min_step"`
	Rcond         float64 `yaml:"rcond"`
}

// Log selects the slog handler.
type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Engine bounds script evaluation.
type Engine struct {
	EvalTimeout time.Duration `yaml:"eval_timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	s := newton.DefaultSettings()
	return Config{
		Solver: Solver{
			Tolerance:     s.Tolerance,
			MaxIterations: s.MaxIterations,
			MinStep:       s.MinStep,
			Rcond:         s.Rcond,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Engine: Engine{
			EvalTimeout: 5 * time.Second,
		},
	}
}

// Load reads path (optional; a missing file means defaults), applies SKETCH_*
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := loadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("load config env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// loadEnv applies SKETCH_* overrides. A set but unparseable value is an
// error rather than a silent fallback to the file or default value.
func loadEnv(cfg *Config) error {
	floats := []struct {
		key string
		dst *float64
	}{
		{"SKETCH_TOLERANCE", &cfg.Solver.Tolerance},
		{"SKETCH_MIN_STEP", &cfg.Solver.MinStep},
		{"SKETCH_RCOND", &cfg.Solver.Rcond},
	}
	for _, f := range floats {
		if v := os.Getenv(f.key); v != "" {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", f.key, err)
			}
			*f.dst = n
		}
	}
	if v := os.Getenv("SKETCH_MAX_ITERATIONS"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SKETCH_MAX_ITERATIONS: %w", err)
		}
		cfg.Solver.MaxIterations = i
	}
	if v := os.Getenv("SKETCH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SKETCH_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("SKETCH_EVAL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SKETCH_EVAL_TIMEOUT: %w", err)
		}
		cfg.Engine.EvalTimeout = d
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Solver.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be > 0")
	}
	if c.Solver.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be >= 1")
	}
	if c.Solver.MinStep <= 0 || c.Solver.MinStep > 1 {
		return fmt.Errorf("min_step must be in (0, 1]")
	}
	if c.Solver.Rcond <= 0 {
		return fmt.Errorf("rcond must be > 0")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log format %q must be text or json", c.Log.Format)
	}
	if c.Engine.EvalTimeout <= 0 {
		return fmt.Errorf("eval_timeout must be > 0")
	}
	return nil
}

// Settings converts the solver section for newton.Solve.
func (s Solver) Settings() newton.Settings {
	return newton.Settings{
		Tolerance:     s.Tolerance,
		MaxIterations: s.MaxIterations,
		MinStep:       s.MinStep,
		Rcond:         s.Rcond,
	}
}

// Logger builds a slog.Logger writing to w. An invalid level falls back to
// info; Load has already rejected it.
func (l Log) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(l.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return level, nil
}
