package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Chains)
	assert.Equal(t, 500, cfg.Warmup)
	assert.Equal(t, 1000, cfg.Draws)
	assert.Equal(t, 11.0, cfg.Period)
	assert.Equal(t, SourceSynthetic, cfg.Source)
	assert.Equal(t, "instance", cfg.PromInstanceLabel)
	assert.Equal(t, time.Hour, cfg.PromStep)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ELLERY_CHAINS", "8")
	t.Setenv("ELLERY_PERIOD", "27.3")
	t.Setenv("ELLERY_LOG_LEVEL", "debug")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Chains)
	assert.Equal(t, 27.3, cfg.Period)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "chains: 16\nperiod: 22.5\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config=" + path}))

	cfg, err := Load(fs)
	require.NoError(t, err)

	// file beats defaults; untouched keys keep their defaults
	assert.Equal(t, 16, cfg.Chains)
	assert.Equal(t, 22.5, cfg.Period)
	assert.Equal(t, 1000, cfg.Draws)
}

func TestLoadEnvBeatsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chains: 16\ndraws: 50\n"), 0o600))
	t.Setenv("ELLERY_CHAINS", "8")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config=" + path}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Chains)
	assert.Equal(t, 50, cfg.Draws)
}

func TestLoadFlagsBeatConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("warmup: 99\n"), 0o600))

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config=" + path, "--warmup=7"}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Warmup)
}

func TestLoadConfigFilePathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seed: 42\n"), 0o600))
	t.Setenv("ELLERY_CONFIG", path)

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), cfg.Seed)
}

func TestLoadMissingConfigFile(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config=" + filepath.Join(t.TempDir(), "absent.yaml")}))

	_, err := Load(fs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")

	// no file layer at all is fine
	_, err = Load(nil)
	assert.NoError(t, err)
}

func TestLoadFlagsBeatEnv(t *testing.T) {
	t.Setenv("ELLERY_DRAWS", "50")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--draws=2000"}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.Draws)
}

func TestLoadUnchangedFlagDoesNotOverride(t *testing.T) {
	t.Setenv("ELLERY_WARMUP", "123")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, 123, cfg.Warmup)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(nil)
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "zero chains",
			mutate: func(c *Config) { c.Chains = 0 },
			errMsg: "chains",
		},
		{
			name:   "negative draws",
			mutate: func(c *Config) { c.Draws = -1 },
			errMsg: "draws",
		},
		{
			name:   "non-positive period",
			mutate: func(c *Config) { c.Period = 0 },
			errMsg: "period",
		},
		{
			name:   "critically damped Q",
			mutate: func(c *Config) { c.Q = 0.5 },
			errMsg: "quality factor",
		},
		{
			name:   "file source without file",
			mutate: func(c *Config) { c.Source = SourceFile },
			errMsg: "record file",
		},
		{
			name:   "prometheus source without query",
			mutate: func(c *Config) { c.Source = SourcePrometheus; c.PromURL = "http://prom:9090" },
			errMsg: "requires a URL and a query",
		},
		{
			name:   "unknown source",
			mutate: func(c *Config) { c.Source = "csv" },
			errMsg: "unknown record source",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.yaml")
	content := `records:
  - name: station-a
    times: [0.0, 1.0, 2.5]
    values: [10.1, 10.4, 9.8]
    errs: [0.2, 0.2, 0.3]
  - name: station-b
    times: [1.5, 3.0]
    values: [8.0, 8.2]
    errs: [0.1, 0.1]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	records, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "station-a", records[0].Name)
	assert.Equal(t, []float64{0.0, 1.0, 2.5}, records[0].Times)
	assert.Equal(t, []float64{8.0, 8.2}, records[1].Values)
}

func TestLoadRecordsErrors(t *testing.T) {
	_, err := LoadRecords(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("records: []\n"), 0o600))
	_, err = LoadRecords(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no records")
}
