package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdouB/twindx/internal/inference"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "twindx.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "example_networks.json", cfg.Data.NetworksFile)
	assert.Equal(t, 5.0, cfg.Scoring.RiskBoost)
	assert.Equal(t, inference.PropagationLeaf, cfg.Scoring.PropagationMode())
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
data:
  path: /srv/data
scoring:
  propagation: propagate
  normalize: true
  workers: 4
log:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/data", cfg.Data.Path)
	assert.Equal(t, "vignettes.json", cfg.Data.VignettesFile)
	assert.Equal(t, inference.PropagationFull, cfg.Scoring.PropagationMode())
	assert.True(t, cfg.Scoring.Normalize)
	assert.Equal(t, 4, cfg.Scoring.Workers)
	assert.Equal(t, 1, cfg.Scoring.DiseaseWorkers)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "scoring:\n  risk_boost: 2.5\n  first: 3\n")
	t.Setenv("TWINDX_RISK_BOOST", "7")
	t.Setenv("TWINDX_FIRST", "10")
	t.Setenv("TWINDX_DISEASE_WORKERS", "3")
	t.Setenv("TWINDX_STORE", "false")
	t.Setenv("TWINDX_LOG_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7.0, cfg.Scoring.RiskBoost)
	assert.Equal(t, 10, cfg.Scoring.First)
	assert.Equal(t, 3, cfg.Scoring.DiseaseWorkers)
	assert.False(t, cfg.Output.Store)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("TWINDX_WORKERS", "many")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TWINDX_WORKERS")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown propagation", func(c *Config) { c.Scoring.Propagation = "sideways" }, "Propagation"},
		{"non-positive boost", func(c *Config) { c.Scoring.RiskBoost = 0 }, "RiskBoost"},
		{"negative workers", func(c *Config) { c.Scoring.Workers = -1 }, "Workers"},
		{"negative disease workers", func(c *Config) { c.Scoring.DiseaseWorkers = -1 }, "DiseaseWorkers"},
		{"missing data path", func(c *Config) { c.Data.Path = "" }, "Path"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "Level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "Format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestValidate_EmptyPropagationMeansLeaf(t *testing.T) {
	cfg := Default()
	cfg.Scoring.Propagation = ""
	require.NoError(t, cfg.Validate())
	assert.Equal(t, inference.PropagationLeaf, cfg.Scoring.PropagationMode())
}

func TestValidate_AutoLogFormat(t *testing.T) {
	cfg := Default()
	cfg.Log.Format = "auto"
	assert.NoError(t, cfg.Validate())
}
