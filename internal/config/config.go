// Package config loads and validates the run configuration with the
// precedence flags > environment > defaults, and parses record files.
package config

import (
	"fmt"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/amunozj/ellery/internal/kernel"
)

// Record sources.
const (
	SourceSynthetic  = "synthetic"
	SourceFile       = "file"
	SourcePrometheus = "prometheus"
)

// Config is the unified run configuration.
type Config struct {
	// inference run
	Chains int    `mapstructure:"CHAINS"`
	Warmup int    `mapstructure:"WARMUP"`
	Draws  int    `mapstructure:"DRAWS"`
	Seed   uint64 `mapstructure:"SEED"`

	// signal model
	Period float64 `mapstructure:"PERIOD"`
	Q      float64 `mapstructure:"QUALITY_FACTOR"`

	// record source
	Source     string `mapstructure:"SOURCE"`
	RecordFile string `mapstructure:"RECORD_FILE"`

	// prometheus source
	PromURL           string        `mapstructure:"PROM_URL"`
	PromQuery         string        `mapstructure:"PROM_QUERY"`
	PromInstanceLabel string        `mapstructure:"PROM_INSTANCE_LABEL"`
	PromWindow        time.Duration `mapstructure:"PROM_WINDOW"`
	PromStep          time.Duration `mapstructure:"PROM_STEP"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
}

// flagBindings maps viper keys (= env var names without the prefix) to
// pflag names.
var flagBindings = map[string]string{
	"CONFIG":              "config",
	"CHAINS":              "chains",
	"WARMUP":              "warmup",
	"DRAWS":               "draws",
	"SEED":                "seed",
	"PERIOD":              "period",
	"QUALITY_FACTOR":      "quality-factor",
	"SOURCE":              "source",
	"RECORD_FILE":         "record-file",
	"PROM_URL":            "prom-url",
	"PROM_QUERY":          "prom-query",
	"PROM_INSTANCE_LABEL": "prom-instance-label",
	"PROM_WINDOW":         "prom-window",
	"PROM_STEP":           "prom-step",
	"LOG_LEVEL":           "log-level",
}

// RegisterFlags declares every configuration flag on the given set.
func RegisterFlags(fs *flag.FlagSet) {
	fs.String("config", "", "optional YAML config file; flags and env override it")
	fs.Int("chains", 4, "number of independent sampling chains")
	fs.Int("warmup", 500, "warmup draws per chain")
	fs.Int("draws", 1000, "retained draws per chain")
	fs.Uint64("seed", 0, "top-level random seed")
	fs.Float64("period", 11.0, "known signal period (time units of the records)")
	fs.Float64("quality-factor", kernel.DefaultQ, "fixed oscillator quality factor")
	fs.String("source", SourceSynthetic, "record source: synthetic, file or prometheus")
	fs.String("record-file", "", "YAML record file (source=file)")
	fs.String("prom-url", "", "Prometheus base URL (source=prometheus)")
	fs.String("prom-query", "", "Prometheus range query (source=prometheus)")
	fs.String("prom-instance-label", "instance", "label distinguishing observers")
	fs.Duration("prom-window", 30*24*time.Hour, "how far back to query")
	fs.Duration("prom-step", time.Hour, "range query resolution")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
}

// Load builds the configuration with precedence flags > env > config file >
// defaults. flagSet may be nil in tests that set no CLI flags.
func Load(flagSet *flag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("CONFIG", "")
	v.SetDefault("CHAINS", 4)
	v.SetDefault("WARMUP", 500)
	v.SetDefault("DRAWS", 1000)
	v.SetDefault("SEED", 0)
	v.SetDefault("PERIOD", 11.0)
	v.SetDefault("QUALITY_FACTOR", kernel.DefaultQ)
	v.SetDefault("SOURCE", SourceSynthetic)
	v.SetDefault("RECORD_FILE", "")
	v.SetDefault("PROM_URL", "")
	v.SetDefault("PROM_QUERY", "")
	v.SetDefault("PROM_INSTANCE_LABEL", "instance")
	v.SetDefault("PROM_WINDOW", 30*24*time.Hour)
	v.SetDefault("PROM_STEP", time.Hour)
	v.SetDefault("LOG_LEVEL", "info")

	v.SetEnvPrefix("ELLERY")
	v.AutomaticEnv()

	if flagSet != nil {
		for key, name := range flagBindings {
			f := flagSet.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %q: %w", name, err)
			}
		}
	}

	// the file layer sits between env and defaults; a file is only read
	// when a path was given, and then it must exist
	if path := v.GetString("CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate fails fast on an unusable configuration.
func Validate(cfg *Config) error {
	if cfg.Chains < 1 {
		return fmt.Errorf("chains must be >= 1, got %d", cfg.Chains)
	}
	if cfg.Warmup < 0 || cfg.Draws < 0 {
		return fmt.Errorf("warmup and draws must be non-negative, got %d and %d", cfg.Warmup, cfg.Draws)
	}
	if cfg.Period <= 0 {
		return fmt.Errorf("period must be positive, got %v", cfg.Period)
	}
	if cfg.Q <= 0.5 {
		return fmt.Errorf("quality factor must exceed 1/2, got %v", cfg.Q)
	}
	switch strings.ToLower(cfg.Source) {
	case SourceSynthetic:
	case SourceFile:
		if cfg.RecordFile == "" {
			return fmt.Errorf("source=file requires a record file")
		}
	case SourcePrometheus:
		if cfg.PromURL == "" || cfg.PromQuery == "" {
			return fmt.Errorf("source=prometheus requires a URL and a query")
		}
		if cfg.PromWindow <= 0 || cfg.PromStep <= 0 {
			return fmt.Errorf("invalid Prometheus window %v or step %v", cfg.PromWindow, cfg.PromStep)
		}
	default:
		return fmt.Errorf("unknown record source %q", cfg.Source)
	}
	return nil
}
