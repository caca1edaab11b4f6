package evalmetrics

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/attest-ml/go-attest/internal/domain"
)

var validate = validator.New()

// Config configures the metrics reduction.
type Config struct {
	// PositiveLabel is the class that counts as a positive finding for
	// the confusion matrix (typically "defect").
	PositiveLabel string `yaml:"positive_label" json:"positive_label" validate:"required"`

	// IoUThreshold is the minimum box overlap for a detection to match
	// a ground truth under the business match policy and for mAP@0.5
	// semantics it is overridden per sweep point.
	IoUThreshold float64 `yaml:"iou_threshold" json:"iou_threshold" validate:"gt=0,max=1"`

	// SweepLow, SweepHigh and SweepStep define the COCO-style mAP IoU
	// sweep (defaults 0.5, 0.95, 0.05).
	SweepLow  float64 `yaml:"sweep_low" json:"sweep_low" validate:"gt=0,max=1"`
	SweepHigh float64 `yaml:"sweep_high" json:"sweep_high" validate:"gt=0,max=1,gtefield=SweepLow"`
	SweepStep float64 `yaml:"sweep_step" json:"sweep_step" validate:"gt=0,max=1"`
}

// DefaultConfig returns a Config with the conventional detection
// evaluation parameters.
func DefaultConfig() Config {
	return Config{
		PositiveLabel: "defect",
		IoUThreshold:  0.5,
		SweepLow:      0.5,
		SweepHigh:     0.95,
		SweepStep:     0.05,
	}
}

// Engine reduces a window of inspection records into a
// MetricsSnapshot. It holds only immutable configuration and is safe
// for concurrent use; snapshots are pure functions of the record set.
type Engine struct {
	config Config
}

// NewEngine creates an Engine with a validated configuration.
func NewEngine(config Config) (*Engine, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &Engine{config: config}, nil
}

// Compute reduces the record set into one snapshot for the given
// window. An empty record set is ErrInsufficientData: an operator
// should see "no data" rather than a page of zeros that look like a
// catastrophically bad model.
func (e *Engine) Compute(records []domain.InspectionRecord, from, to time.Time) (domain.MetricsSnapshot, error) {
	if len(records) == 0 {
		return domain.MetricsSnapshot{}, fmt.Errorf("%w: no records in window [%s, %s)",
			domain.ErrInsufficientData, from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	return domain.MetricsSnapshot{
		From:     from,
		To:       to,
		Business: businessMetrics(records, e.config.PositiveLabel, e.config.IoUThreshold),
		Detection: domain.DetectionMetrics{
			MAP50:   meanAveragePrecision(records, 0.5),
			MAP75:   meanAveragePrecision(records, 0.75),
			MAPCoco: cocoMAP(records, e.config.SweepLow, e.config.SweepHigh, e.config.SweepStep),
			AUROC:   auroc(records),
		},
		Segmentation: segmentationMetrics(records),
		TotalRecords: len(records),
		ComputedAt:   time.Now().UTC(),
	}, nil
}
