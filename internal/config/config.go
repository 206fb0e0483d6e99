// Package config loads and validates the batch configuration (spec.md
// §4.H): selected PSIs, evaluation flags, and input/output locations.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full batch configuration, loaded from YAML and
// overridable by CLI flags.
type Config struct {
	SelectedPSIs      []string `yaml:"selected_psis" validate:"dive,psiname"`
	DebugMode         bool     `yaml:"debug_mode"`
	ShowExclusions    bool     `yaml:"show_exclusions"`
	ValidateTiming    bool     `yaml:"validate_timing"`
	InputPath         string   `yaml:"input_path" validate:"required"`
	AppendixPath      string   `yaml:"appendix_path" validate:"required"`
	OutputParquetPath string   `yaml:"output_parquet_path"`
	PostgresDSN       string   `yaml:"postgres_dsn"`
	Workers           int      `yaml:"workers"`
}

var allPSINames = []string{
	"PSI_05", "PSI_06", "PSI_07", "PSI_08", "PSI_09",
	"PSI_10", "PSI_11", "PSI_12", "PSI_13", "PSI_14", "PSI_15",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("psiname", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		for _, n := range allPSINames {
			if n == name {
				return true
			}
		}
		return false
	})
	return v
}

// Load reads path as YAML, applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Config{
		ValidateTiming: true,
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in the engine-wide defaults (spec.md §4.H): all
// eleven PSIs selected when the field is left empty.
func applyDefaults(cfg *Config) {
	if len(cfg.SelectedPSIs) == 0 {
		cfg.SelectedPSIs = append([]string{}, allPSINames...)
	}
}

// Validate checks the struct tags only. The rule that at least one
// output sink is configured applies to the CLI alone (a library caller
// collecting results in memory may leave both empty), so it lives in
// RequireSink, not here and not as a struct tag.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RequireSink returns an error unless at least one output sink is set;
// called by the CLI, skipped by library callers that only want the
// in-memory result slice.
func RequireSink(cfg *Config) error {
	if cfg.OutputParquetPath == "" && cfg.PostgresDSN == "" {
		return fmt.Errorf("config: at least one of output_parquet_path or postgres_dsn must be set")
	}
	return nil
}
