// Package uncertainty estimates predictive uncertainty from repeated
// stochastic forward passes (MC-Dropout). The reduction over the T
// sampled probability vectors is a pure mean/entropy over a multiset,
// so results do not depend on the order or parallelism of the passes.
package uncertainty

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gonum.org/v1/gonum/stat"

	"github.com/attest-ml/go-attest/internal/domain"
	"github.com/attest-ml/go-attest/internal/ports"
)

// epsilon guards log(0) in entropy computation.
const epsilon = 1e-10

// DefaultPasses is the default stochastic pass count T.
const DefaultPasses = 30

var validate = validator.New()

// Config configures the estimator.
type Config struct {
	// Passes is the number of stochastic forward passes T.
	// Range: 1 to 500. Typical values are 20-50.
	Passes int `yaml:"passes" json:"passes" validate:"min=1,max=500"`

	// MaxConcurrency bounds how many passes run simultaneously against
	// the model. Zero means sequential execution.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency" validate:"min=0"`

	// RatePerSecond throttles calls to the model service. Zero disables
	// throttling.
	RatePerSecond float64 `yaml:"rate_per_second" json:"rate_per_second" validate:"min=0"`
}

// DefaultConfig returns a Config with production-ready defaults:
// 30 passes, 4-way concurrency, no throttle.
func DefaultConfig() Config {
	return Config{Passes: DefaultPasses, MaxConcurrency: 4}
}

// Estimator runs repeated stochastic inference and reduces the samples
// to an UncertaintyEstimate. It is stateless apart from its immutable
// configuration and safe for concurrent use.
type Estimator struct {
	config  Config
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewEstimator creates an Estimator. Passes < 1 is a fatal validation
// error; a nil logger is replaced with a no-op logger.
func NewEstimator(config Config, logger *zap.Logger) (*Estimator, error) {
	if config.Passes < 1 {
		return nil, domain.NewValidationError("uncertainty",
			fmt.Sprintf("pass count must be at least 1, got %d", config.Passes))
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	var limiter *rate.Limiter
	if config.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RatePerSecond), 1)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Estimator{config: config, limiter: limiter, logger: logger.Named("uncertainty")}, nil
}

// Estimate runs T independent stochastic passes and reduces them.
// Passes run across a bounded worker pool; because mean and entropy are
// associative and commutative, correctness does not depend on
// completion order. Any single failed pass fails the estimate: a
// partial sample would silently bias the distribution.
func (e *Estimator) Estimate(
	ctx context.Context,
	model ports.StochasticClassifier,
	img domain.Image,
) (domain.UncertaintyEstimate, error) {
	if model == nil {
		return domain.UncertaintyEstimate{}, domain.ErrStochasticUnsupported
	}

	samples := make([][]float64, e.config.Passes)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	limit := e.config.MaxConcurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for t := 0; t < e.config.Passes; t++ {
		g.Go(func() error {
			if e.limiter != nil {
				if err := e.limiter.Wait(gctx); err != nil {
					return err
				}
			}
			probs, err := model.SampleProbs(gctx, img)
			if err != nil {
				return fmt.Errorf("stochastic pass %d: %w", t, err)
			}
			if len(probs) == 0 {
				return fmt.Errorf("stochastic pass %d: empty probability vector", t)
			}
			mu.Lock()
			samples[t] = probs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.UncertaintyEstimate{}, err
	}

	numClasses := len(samples[0])
	for t, s := range samples {
		if len(s) != numClasses {
			return domain.UncertaintyEstimate{}, fmt.Errorf(
				"%w: pass %d returned %d classes, expected %d",
				domain.ErrInvalidShape, t, len(s), numClasses)
		}
	}

	return Reduce(samples), nil
}

// Reduce collapses a multiset of sampled probability vectors into an
// UncertaintyEstimate. Exposed separately so the reduction's order
// independence can be exercised directly.
func Reduce(samples [][]float64) domain.UncertaintyEstimate {
	numClasses := len(samples[0])
	column := make([]float64, len(samples))
	meanProbs := make([]float64, numClasses)
	variance := make([]float64, numClasses)
	stdDev := make([]float64, numClasses)

	for c := 0; c < numClasses; c++ {
		for t, s := range samples {
			column[t] = s[c]
		}
		m, v := stat.MeanVariance(column, nil)
		if len(samples) == 1 {
			v = 0 // MeanVariance is undefined (NaN) for a single sample
		}
		meanProbs[c] = m
		variance[c] = v
		stdDev[c] = math.Sqrt(v)
	}

	h := entropy(meanProbs)

	// Mutual information: H(mean) minus the mean per-sample entropy.
	// The epistemic share of total uncertainty.
	var meanSampleEntropy float64
	for _, s := range samples {
		meanSampleEntropy += entropy(s)
	}
	meanSampleEntropy /= float64(len(samples))
	mi := h - meanSampleEntropy
	if mi < 0 {
		mi = 0 // numerically possible for near-identical samples
	}

	normalized := 0.0
	if numClasses > 1 {
		normalized = h / math.Log(float64(numClasses))
		normalized = math.Min(1, math.Max(0, normalized))
	}

	return domain.UncertaintyEstimate{
		MeanProbs:         meanProbs,
		Variance:          variance,
		StdDev:            stdDev,
		PredictiveEntropy: h,
		MeanUncertainty:   normalized,
		MutualInformation: mi,
		Passes:            len(samples),
	}
}

// entropy computes -sum p*log(p+eps) in nats.
func entropy(probs []float64) float64 {
	var h float64
	for _, p := range probs {
		if p > 0 {
			h -= p * math.Log(p+epsilon)
		}
	}
	return h
}
