package explain

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/attest-ml/go-attest/internal/domain"
	"github.com/attest-ml/go-attest/internal/ports"
)

// DefaultMethodTimeout bounds a single attribution method's runtime.
const DefaultMethodTimeout = 30 * time.Second

// DefaultRunnerConcurrency bounds how many methods run at once.
const DefaultRunnerConcurrency = 4

// RunnerConfig configures the parallel attribution runner.
type RunnerConfig struct {
	// MethodTimeout is the per-method deadline. A method that exceeds
	// it is excluded from the explanation, not an error for the request.
	MethodTimeout time.Duration `yaml:"method_timeout" json:"method_timeout" validate:"min=0"`

	// MaxConcurrency bounds how many methods execute simultaneously.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency" validate:"min=0"`
}

// Runner executes the registered attribution methods in parallel
// against one (model, input) pair and joins their results. The N
// methods have no ordering dependency, so they run as independent
// tasks; a timed-out or failed method is excluded from both the
// combined map and the agreement score rather than failing the whole
// request. This is the one place partial failure is absorbed instead
// of surfaced as an error.
type Runner struct {
	methods []ports.AttributionMethod
	config  RunnerConfig
	logger  *zap.Logger
	metrics ports.MetricsCollector
}

// NewRunner creates a Runner over the given methods. metrics may be
// nil; a nil logger is replaced with a no-op logger.
func NewRunner(
	methods []ports.AttributionMethod,
	config RunnerConfig,
	logger *zap.Logger,
	metrics ports.MetricsCollector,
) (*Runner, error) {
	if len(methods) == 0 {
		return nil, domain.NewValidationError("runner", domain.ErrNoMethods.Error())
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	seen := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		if _, dup := seen[m.Name()]; dup {
			return nil, domain.NewValidationError("runner",
				fmt.Sprintf("duplicate attribution method %q", m.Name()))
		}
		seen[m.Name()] = struct{}{}
	}
	if config.MethodTimeout <= 0 {
		config.MethodTimeout = DefaultMethodTimeout
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultRunnerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{methods: methods, config: config, logger: logger.Named("explain.runner"), metrics: metrics}, nil
}

// Run executes every method and returns the successful maps in
// registration order plus the names of excluded methods. Run only
// fails when the parent context is cancelled before any method
// completes usable work; individual method failures are absorbed.
func (r *Runner) Run(
	ctx context.Context,
	model ports.Classifier,
	img domain.Image,
) ([]domain.AttributionMap, []string, error) {
	results := make([]*domain.AttributionMap, len(r.methods))
	var mu sync.Mutex
	excluded := make([]string, 0)

	g := &errgroup.Group{}
	g.SetLimit(r.config.MaxConcurrency)

	for i, method := range r.methods {
		g.Go(func() error {
			mctx, cancel := context.WithTimeout(ctx, r.config.MethodTimeout)
			defer cancel()

			start := time.Now()
			m, err := method.ProduceMap(mctx, model, img)
			elapsed := time.Since(start)

			if r.metrics != nil {
				r.metrics.RecordLatency("attribution_method", elapsed,
					map[string]string{"method": method.Name()})
			}

			if err != nil {
				r.logger.Warn("attribution method excluded",
					zap.String("method", method.Name()),
					zap.Duration("elapsed", elapsed),
					zap.Error(err))
				if r.metrics != nil {
					r.metrics.RecordCounter("attribution_method_excluded", 1,
						map[string]string{"method": method.Name()})
				}
				mu.Lock()
				excluded = append(excluded, method.Name())
				mu.Unlock()
				return nil
			}

			mu.Lock()
			results[i] = &m
			mu.Unlock()
			return nil
		})
	}

	// Method failures never propagate through the group; only wait.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	maps := make([]domain.AttributionMap, 0, len(r.methods))
	for _, m := range results {
		if m != nil {
			maps = append(maps, *m)
		}
	}
	sort.Strings(excluded)
	return maps, excluded, nil
}
