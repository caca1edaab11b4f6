package calibration

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/attest-ml/go-attest/internal/domain"
	"github.com/attest-ml/go-attest/internal/ports"
)

var validate = validator.New()

// Config configures the calibrator.
type Config struct {
	// Bins is the number of equal-width ECE bins B.
	Bins int `yaml:"bins" json:"bins" validate:"min=1,max=100"`

	// Threshold is the ECE value below which the model counts as
	// calibrated.
	Threshold float64 `yaml:"threshold" json:"threshold" validate:"gt=0,max=1"`

	// MinTemperature and MaxTemperature bound the temperature search.
	MinTemperature float64 `yaml:"min_temperature" json:"min_temperature" validate:"gt=0"`
	MaxTemperature float64 `yaml:"max_temperature" json:"max_temperature" validate:"gt=0,gtfield=MinTemperature"`
}

// DefaultConfig returns a Config with production-ready defaults:
// 10 bins, 0.05 calibration threshold, search bounds [0.05, 10].
func DefaultConfig() Config {
	return Config{
		Bins:           DefaultBins,
		Threshold:      0.05,
		MinTemperature: MinTemperature,
		MaxTemperature: MaxTemperature,
	}
}

// Calibrator computes calibration state from a held-out record batch.
// Fitting is a short on-demand batch job, not a per-inference step: it
// reads the batch once from the injected store, holds it read-only
// during the fit, and never blocks concurrent inference. A new
// CalibrationModel replaces the previous one wholesale.
type Calibrator struct {
	config  Config
	store   ports.CalibrationStore
	logger  *zap.Logger
	metrics ports.MetricsCollector
}

// NewCalibrator creates a Calibrator reading from the given store.
// metrics may be nil; a nil logger is replaced with a no-op logger.
func NewCalibrator(
	config Config,
	store ports.CalibrationStore,
	logger *zap.Logger,
	metrics ports.MetricsCollector,
) (*Calibrator, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	if store == nil {
		return nil, domain.NewValidationError("calibrator", "calibration store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calibrator{config: config, store: store, logger: logger.Named("calibration"), metrics: metrics}, nil
}

// Calibrate reads the held-out batch from the store and computes a
// fresh CalibrationModel. An empty batch is ErrInsufficientData,
// propagated explicitly rather than silently defaulted.
func (c *Calibrator) Calibrate(ctx context.Context) (domain.CalibrationModel, error) {
	records, err := c.store.Records(ctx)
	if err != nil {
		return domain.CalibrationModel{}, fmt.Errorf("reading calibration records: %w", err)
	}
	return c.CalibrateBatch(records)
}

// CalibrateBatch computes a CalibrationModel from an in-memory batch.
// It is a pure function of its input and is exposed for callers that
// manage history themselves.
func (c *Calibrator) CalibrateBatch(records []domain.CalibrationRecord) (domain.CalibrationModel, error) {
	if len(records) == 0 {
		return domain.CalibrationModel{}, fmt.Errorf("%w: empty calibration batch", domain.ErrInsufficientData)
	}

	ece, mce, curve := expectedCalibrationError(records, c.config.Bins)

	temperature, improved := 1.0, false
	if n := countFittable(records); n > 0 {
		temperature, improved = fitTemperature(records, c.config.MinTemperature, c.config.MaxTemperature)
		if !improved {
			c.logger.Warn("temperature fit did not improve on identity, falling back to T=1.0",
				zap.Int("fittable_records", n))
		}
	} else {
		c.logger.Warn("no records carry logits, temperature scaling skipped")
	}

	model := domain.CalibrationModel{
		Temperature:  temperature,
		ECE:          ece,
		MCE:          mce,
		Bins:         curve,
		IsCalibrated: ece < c.config.Threshold,
		Improved:     improved,
		NumSamples:   len(records),
		FittedAt:     time.Now().UTC(),
	}

	if c.metrics != nil {
		c.metrics.RecordGauge("calibration_ece", ece, nil)
		c.metrics.RecordGauge("calibration_temperature", temperature, nil)
	}
	c.logger.Info("calibration model computed",
		zap.Float64("ece", ece),
		zap.Float64("mce", mce),
		zap.Float64("temperature", temperature),
		zap.Bool("is_calibrated", model.IsCalibrated),
		zap.Int("num_samples", model.NumSamples))

	return model, nil
}

// countFittable returns how many records can participate in the
// temperature fit (logits plus a valid label).
func countFittable(records []domain.CalibrationRecord) int {
	n := 0
	for _, r := range records {
		if len(r.Logits) > 0 && r.TrueLabel >= 0 && r.TrueLabel < len(r.Logits) {
			n++
		}
	}
	return n
}
