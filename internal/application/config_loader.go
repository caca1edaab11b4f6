package application

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ConfigLoader parses, defaults, and validates engine configuration
// documents. Use ConfigLoader to load configuration from files or
// readers with struct-tag validation plus the custom rules registered
// by registerCustomValidators.
type ConfigLoader struct {
	validator *validator.Validate
}

// NewConfigLoader creates a loader with all custom validators
// registered. NewConfigLoader returns an error if validator
// registration fails.
func NewConfigLoader() (*ConfigLoader, error) {
	v := validator.New()
	if err := registerCustomValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	return &ConfigLoader{validator: v}, nil
}

// LoadFromFile loads an engine configuration from a YAML file, applying
// defaults for omitted sections and validating the result.
func (cl *ConfigLoader) LoadFromFile(path string) (EngineConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()
	cfg, err := cl.LoadFromReader(f)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader loads an engine configuration from YAML data. Omitted
// sections keep the defaults from DefaultEngineConfig, so a minimal
// document only has to name what it changes.
func (cl *ConfigLoader) LoadFromReader(r io.Reader) (EngineConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultEngineConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cl.validator.Struct(cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

// registerCustomValidators adds semantic validation rules that struct
// tags cannot express.
func registerCustomValidators(v *validator.Validate) error {
	// duration accepts any string time.ParseDuration accepts, with a
	// positive value.
	if err := v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d > 0
	}); err != nil {
		return fmt.Errorf("failed to register duration validator: %w", err)
	}
	return nil
}
