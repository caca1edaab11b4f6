package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/attest-ml/go-attest/infrastructure/explain"
	"github.com/attest-ml/go-attest/infrastructure/middleware"
	"github.com/attest-ml/go-attest/infrastructure/uncertainty"
	"github.com/attest-ml/go-attest/internal/domain"
	"github.com/attest-ml/go-attest/internal/ports"
)

// ExplainRequest describes one explanation request against a model.
type ExplainRequest struct {
	// Image is the input being explained.
	Image domain.Image
	// WithUncertainty additionally runs MC-Dropout estimation. The
	// model must implement ports.StochasticClassifier; requesting
	// uncertainty from a deterministic model fails the request.
	WithUncertainty bool
}

// ExplainService orchestrates the explanation pipeline: it fans the
// attribution methods out through the runner, aggregates the surviving
// maps into a consensus explanation, and optionally joins an
// uncertainty estimate computed concurrently. Attribution and
// uncertainty share no state, so the two stages overlap.
type ExplainService struct {
	model      ports.Classifier
	runner     *explain.Runner
	aggregator *explain.Aggregator
	estimator  *uncertainty.Estimator
	observer   middleware.PipelineObserver
	logger     *zap.Logger
}

// NewExplainService wires the pipeline stages together. estimator may
// be nil when the deployment never serves uncertainty; observer may be
// nil and defaults to a no-op.
func NewExplainService(
	model ports.Classifier,
	runner *explain.Runner,
	aggregator *explain.Aggregator,
	estimator *uncertainty.Estimator,
	observer middleware.PipelineObserver,
	logger *zap.Logger,
) (*ExplainService, error) {
	if model == nil {
		return nil, errors.New("model cannot be nil")
	}
	if runner == nil || aggregator == nil {
		return nil, errors.New("runner and aggregator are required")
	}
	if observer == nil {
		observer = middleware.NopPipelineObserver{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExplainService{
		model:      model,
		runner:     runner,
		aggregator: aggregator,
		estimator:  estimator,
		observer:   observer,
		logger:     logger.Named("explain_service"),
	}, nil
}

// Explain runs the full pipeline for one request and returns the
// consensus explanation, with an uncertainty estimate attached when
// requested. Individual attribution method failures are absorbed
// upstream; Explain fails only when no method produced a usable map,
// when uncertainty was requested but could not be computed, or on
// context cancellation.
func (s *ExplainService) Explain(ctx context.Context, req ExplainRequest) (*domain.ExplanationPayload, error) {
	requestID := uuid.NewString()
	ctx = s.observer.Begin(ctx, requestID)
	start := time.Now()

	payload, err := s.explain(ctx, req)
	s.observer.End(ctx, payload, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (s *ExplainService) explain(ctx context.Context, req ExplainRequest) (*domain.ExplanationPayload, error) {
	var (
		maps     []domain.AttributionMap
		excluded []string
		estimate *domain.UncertaintyEstimate
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stageStart := time.Now()
		var err error
		maps, excluded, err = s.runner.Run(gctx, s.model, req.Image)
		s.observer.StageDone(gctx, "attribution", time.Since(stageStart), err)
		if err != nil {
			return fmt.Errorf("attribution stage: %w", err)
		}
		if len(maps) == 0 {
			return fmt.Errorf("attribution stage: %w", domain.ErrNoMethods)
		}
		return nil
	})

	if req.WithUncertainty {
		g.Go(func() error {
			stochastic, ok := s.model.(ports.StochasticClassifier)
			if !ok {
				return domain.ErrStochasticUnsupported
			}
			stageStart := time.Now()
			est, err := s.estimateUncertainty(gctx, stochastic, req.Image)
			s.observer.StageDone(gctx, "uncertainty", time.Since(stageStart), err)
			if err != nil {
				return fmt.Errorf("uncertainty stage: %w", err)
			}
			estimate = est
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	stageStart := time.Now()
	explanation, err := s.aggregator.Aggregate(maps, excluded)
	s.observer.StageDone(ctx, "aggregation", time.Since(stageStart), err)
	if err != nil {
		return nil, fmt.Errorf("aggregation stage: %w", err)
	}

	s.logger.Info("explanation served",
		zap.String("explanation_id", explanation.ID),
		zap.Float64("consensus_score", explanation.ConsensusScore),
		zap.Int("contributing", len(explanation.ContributingMethods)),
		zap.Strings("excluded", explanation.ExcludedMethods))

	return &domain.ExplanationPayload{
		Explanation: explanation,
		Uncertainty: estimate,
	}, nil
}

func (s *ExplainService) estimateUncertainty(
	ctx context.Context,
	model ports.StochasticClassifier,
	img domain.Image,
) (*domain.UncertaintyEstimate, error) {
	if s.estimator == nil {
		return nil, domain.ErrStochasticUnsupported
	}
	est, err := s.estimator.Estimate(ctx, model, img)
	if err != nil {
		return nil, err
	}
	return &est, nil
}
