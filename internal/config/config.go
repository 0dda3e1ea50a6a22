// Package config loads run settings with priority environment > file > defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AbdouB/twindx/internal/dataset"
	"github.com/AbdouB/twindx/internal/evidence"
	"github.com/AbdouB/twindx/internal/inference"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TWINDX_"

// Config is the full set of run settings.
type Config struct {
	Data    DataConfig    `yaml:"data"`
	Scoring ScoringConfig `yaml:"scoring"`
	Output  OutputConfig  `yaml:"output"`
	Log     LogConfig     `yaml:"log"`
}

// DataConfig locates the input documents.
type DataConfig struct {
	Path          string `yaml:"path" validate:"required"`
	NetworksFile  string `yaml:"networks_file" validate:"required"`
	VignettesFile string `yaml:"vignettes_file" validate:"required"`
}

// ScoringConfig tunes the engine.
type ScoringConfig struct {
	Propagation string  `yaml:"propagation" validate:"propagation"`
	Normalize   bool    `yaml:"normalize"`
	RiskBoost   float64 `yaml:"risk_boost" validate:"gt=0"`
	CycleCheck  bool    `yaml:"cycle_check"`
	Workers     int     `yaml:"workers" validate:"gte=0"`
	First       int     `yaml:"first" validate:"gte=0"`

	// DiseaseWorkers bounds twin evaluations inside one vignette. Workers
	// already fans out over vignettes, so the default stays serial.
	DiseaseWorkers int `yaml:"disease_workers" validate:"gte=0"`
}

// OutputConfig controls where results go.
type OutputConfig struct {
	ResultsDir  string `yaml:"results_dir" validate:"required"`
	DBPath      string `yaml:"db_path"`
	Store       bool   `yaml:"store"`
	MetricsFile string `yaml:"metrics_file"`
}

// LogConfig selects the slog handler. Format "auto" picks text on a terminal
// and JSON otherwise.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json auto"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Data: DataConfig{
			Path:          "data",
			NetworksFile:  dataset.NetworksFile,
			VignettesFile: dataset.VignettesFile,
		},
		Scoring: ScoringConfig{
			Propagation: string(inference.PropagationLeaf),
			RiskBoost:   evidence.DefaultRiskBoost,
			CycleCheck:  true,

			DiseaseWorkers: 1,
		},
		Output: OutputConfig{
			ResultsDir: "my_results",
			Store:      true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds a Config from defaults, then the YAML file at path when path is
// not empty, then TWINDX_* environment variables, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	var errs []error
	integer := func(name string, dst *int) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			i, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = i
		}
	}
	float := func(name string, dst *float64) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("DATA_PATH", &cfg.Data.Path)
	str("NETWORKS_FILE", &cfg.Data.NetworksFile)
	str("VIGNETTES_FILE", &cfg.Data.VignettesFile)

	str("PROPAGATION", &cfg.Scoring.Propagation)
	boolean("NORMALIZE", &cfg.Scoring.Normalize)
	float("RISK_BOOST", &cfg.Scoring.RiskBoost)
	boolean("CYCLE_CHECK", &cfg.Scoring.CycleCheck)
	integer("WORKERS", &cfg.Scoring.Workers)
	integer("DISEASE_WORKERS", &cfg.Scoring.DiseaseWorkers)
	integer("FIRST", &cfg.Scoring.First)

	str("RESULTS_DIR", &cfg.Output.ResultsDir)
	str("DB", &cfg.Output.DBPath)
	boolean("STORE", &cfg.Output.Store)
	str("METRICS_FILE", &cfg.Output.MetricsFile)

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	return errors.Join(errs...)
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("propagation", func(fl validator.FieldLevel) bool {
		_, err := inference.ParsePropagation(fl.Field().String())
		return err == nil
	})
}

// Validate checks every field constraint and reports all violations at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// SlogLevel maps the configured level name onto slog.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// PropagationMode returns the parsed propagation mode. Validate has already
// rejected unknown names.
func (s ScoringConfig) PropagationMode() inference.Propagation {
	p, _ := inference.ParsePropagation(s.Propagation)
	return p
}
