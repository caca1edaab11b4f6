// Package explain combines attribution maps from independent
// explainability methods into a single consensus explanation with a
// quantified agreement score.
package explain

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// Strategy selects how normalized maps are combined into one.
type Strategy string

// Supported combination strategies.
const (
	// StrategyMean averages the normalized maps pixel-by-pixel.
	StrategyMean Strategy = "mean"

	// StrategyMedian takes the per-pixel median, robust to one
	// outlier method dominating the combined map.
	StrategyMedian Strategy = "median"

	// StrategyWeighted averages with per-method weights: the method's
	// self-reported confidence when supplied, otherwise the configured
	// static prior.
	StrategyWeighted Strategy = "weighted"
)

// Common errors returned by the aggregation subsystem.
var (
	// ErrShapeMismatch is returned when input maps differ in spatial
	// resolution.
	ErrShapeMismatch = errors.New("attribution maps have mismatched shapes")

	// ErrNegativeWeight is returned when a configured prior or supplied
	// confidence is negative.
	ErrNegativeWeight = errors.New("negative method weight")
)

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()
