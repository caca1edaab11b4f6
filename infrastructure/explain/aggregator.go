package explain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/attest-ml/go-attest/internal/domain"
)

// AggregatorConfig defines the configuration parameters for consensus
// aggregation. All fields are validated during construction and the
// config is immutable afterwards, keeping the aggregator safe for
// concurrent use.
type AggregatorConfig struct {
	// Strategy selects the combination strategy for the consensus map.
	//
	// Supported values:
	//   - "mean": unweighted pixel average
	//   - "median": per-pixel median
	//   - "weighted": confidence-weighted average with static priors
	Strategy Strategy `yaml:"strategy" json:"strategy" validate:"required,oneof=mean median weighted"`

	// MethodPriors maps method identifiers to static prior weights used
	// by the weighted strategy when a method does not self-report a
	// confidence. Weights must be non-negative.
	MethodPriors map[string]float64 `yaml:"method_priors" json:"method_priors" validate:"omitempty,dive,min=0"`

	// TopKPercent is the percentile of most-activated pixels forming
	// the thresholded region compared by IoU and Dice.
	//
	// Range: (0, 100]. Default: 20.
	TopKPercent float64 `yaml:"top_k_percent" json:"top_k_percent" validate:"gt=0,max=100"`

	// CorrelationWeight, IoUWeight and DiceWeight combine the three
	// averaged pairwise metrics into the consensus score. Equal weights
	// by default; they need not sum to one, only be non-negative with a
	// positive total.
	CorrelationWeight float64 `yaml:"correlation_weight" json:"correlation_weight" validate:"min=0"`
	IoUWeight         float64 `yaml:"iou_weight" json:"iou_weight" validate:"min=0"`
	DiceWeight        float64 `yaml:"dice_weight" json:"dice_weight" validate:"min=0"`

	// IncludeDegenerate keeps constant (zero-signal) maps in the
	// combined map even though they are always excluded from agreement
	// scoring. Default: true.
	IncludeDegenerate bool `yaml:"include_degenerate" json:"include_degenerate"`
}

// DefaultAggregatorConfig returns an AggregatorConfig with
// production-ready defaults: mean combination, top 20% thresholding,
// equally weighted agreement metrics.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		Strategy:          StrategyMean,
		TopKPercent:       20,
		CorrelationWeight: 1,
		IoUWeight:         1,
		DiceWeight:        1,
		IncludeDegenerate: true,
	}
}

// Aggregator normalizes and combines attribution maps from independent
// methods into a ConsensusExplanation. It is stateless apart from its
// immutable configuration and safe for concurrent use.
type Aggregator struct {
	config AggregatorConfig
	logger *zap.Logger
}

// NewAggregator creates an Aggregator with the given configuration.
// The configuration is validated with struct tags; a nil logger is
// replaced with a no-op logger.
func NewAggregator(config AggregatorConfig, logger *zap.Logger) (*Aggregator, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	if config.CorrelationWeight+config.IoUWeight+config.DiceWeight == 0 {
		return nil, fmt.Errorf("%w: consensus metric weights sum to zero", domain.ErrInvalidConfiguration)
	}
	for method, w := range config.MethodPriors {
		if w < 0 {
			return nil, fmt.Errorf("%w: prior for %s", ErrNegativeWeight, method)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{config: config, logger: logger.Named("explain")}, nil
}

// Aggregate combines the raw maps into one consensus explanation.
//
// Algorithm:
//  1. Validate shapes and reject an empty input (fatal validation
//     error, the caller's fault).
//  2. Min-max normalize each map independently; zero-range maps are
//     flagged degenerate.
//  3. Combine the normalized maps with the configured strategy.
//  4. Score agreement over all non-degenerate pairs and reduce to one
//     scalar. A single usable map scores 1.0 by convention.
//
// The excluded list passed in (methods that failed or timed out
// upstream) is carried through to the explanation metadata untouched.
func (a *Aggregator) Aggregate(maps []domain.AttributionMap, excluded []string) (domain.ConsensusExplanation, error) {
	if len(maps) == 0 {
		return domain.ConsensusExplanation{}, domain.NewValidationError("aggregation",
			domain.ErrNoMethods.Error())
	}
	for _, m := range maps {
		if m.Len() == 0 || m.Len() != m.Width*m.Height {
			return domain.ConsensusExplanation{}, domain.NewValidationError("aggregation",
				fmt.Sprintf("map %s has invalid buffer", m.Method))
		}
		if !m.SameShape(maps[0]) {
			return domain.ConsensusExplanation{}, domain.NewValidationError("aggregation",
				fmt.Sprintf("%v: %s is %dx%d, %s is %dx%d", ErrShapeMismatch,
					maps[0].Method, maps[0].Width, maps[0].Height, m.Method, m.Width, m.Height))
		}
	}

	normalized := make([]domain.AttributionMap, 0, len(maps))
	usable := make([]domain.AttributionMap, 0, len(maps))
	contributing := make([]string, 0, len(maps))
	excludedOut := append([]string(nil), excluded...)

	for _, m := range maps {
		nm := normalizeMap(m)
		if nm.Degenerate {
			a.logger.Warn("degenerate attribution map excluded from agreement",
				zap.String("method", m.Method))
			if !a.config.IncludeDegenerate {
				excludedOut = append(excludedOut, m.Method)
				continue
			}
		} else {
			usable = append(usable, nm)
		}
		normalized = append(normalized, nm)
		contributing = append(contributing, m.Method)
	}

	if len(normalized) == 0 {
		return domain.ConsensusExplanation{}, domain.NewValidationError("aggregation",
			domain.ErrNoMethods.Error())
	}

	combined, err := a.combine(normalized)
	if err != nil {
		return domain.ConsensusExplanation{}, err
	}

	// Re-normalize the combined map so the output honors the [0, 1]
	// invariant regardless of strategy.
	combinedMap := normalizeMap(domain.AttributionMap{
		Method: "consensus",
		Width:  maps[0].Width,
		Height: maps[0].Height,
		Values: combined,
	})

	pairs := pairwiseAgreement(usable, a.config.TopKPercent)
	score := consensusScore(pairs,
		a.config.CorrelationWeight, a.config.IoUWeight, a.config.DiceWeight)

	return domain.ConsensusExplanation{
		ID:                  uuid.NewString(),
		Combined:            combinedMap,
		ConsensusScore:      score,
		ContributingMethods: contributing,
		ExcludedMethods:     excludedOut,
		Pairwise:            pairs,
		Strategy:            string(a.config.Strategy),
		CreatedAt:           time.Now().UTC(),
	}, nil
}

func (a *Aggregator) combine(maps []domain.AttributionMap) ([]float64, error) {
	switch a.config.Strategy {
	case StrategyMean:
		return combineMean(maps), nil
	case StrategyMedian:
		return combineMedian(maps), nil
	case StrategyWeighted:
		return combineWeighted(maps, a.config.MethodPriors)
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", domain.ErrInvalidConfiguration, a.config.Strategy)
	}
}
