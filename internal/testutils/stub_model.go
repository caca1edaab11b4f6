// Package testutils provides deterministic fakes for the external
// collaborators: the detection model, attribution methods, and the
// history stores. All fakes are safe for concurrent use so pipeline
// concurrency can be exercised directly.
package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/attest-ml/go-attest/internal/domain"
	"github.com/attest-ml/go-attest/internal/ports"
)

// Compile-time interface checks.
var (
	_ ports.Classifier           = (*StubClassifier)(nil)
	_ ports.StochasticClassifier = (*StubClassifier)(nil)
)

// StubClassifier is a scripted detection model. Deterministic inference
// returns Probs/Logits verbatim; stochastic inference cycles through
// Samples, so tests control the exact multiset the estimator reduces.
type StubClassifier struct {
	// Probs and Logits are returned by every Predict call.
	Probs  []float64
	Logits []float64

	// Samples are returned by successive SampleProbs calls, cycling
	// when exhausted.
	Samples [][]float64

	// PredictErr and SampleErr, when set, fail the respective calls.
	PredictErr error
	SampleErr  error

	// Delay is slept before every call, for timeout tests. The sleep
	// respects context cancellation.
	Delay time.Duration

	mu          sync.Mutex
	sampleCalls int
}

// Predict implements ports.Classifier.
func (s *StubClassifier) Predict(ctx context.Context, _ domain.Image) (ports.Prediction, error) {
	if err := s.wait(ctx); err != nil {
		return ports.Prediction{}, err
	}
	if s.PredictErr != nil {
		return ports.Prediction{}, s.PredictErr
	}
	return ports.Prediction{Probs: s.Probs, Logits: s.Logits}, nil
}

// NumClasses implements ports.Classifier.
func (s *StubClassifier) NumClasses() int {
	if len(s.Probs) > 0 {
		return len(s.Probs)
	}
	if len(s.Samples) > 0 {
		return len(s.Samples[0])
	}
	return 0
}

// SampleProbs implements ports.StochasticClassifier.
func (s *StubClassifier) SampleProbs(ctx context.Context, _ domain.Image) ([]float64, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if s.SampleErr != nil {
		return nil, s.SampleErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Samples) == 0 {
		return s.Probs, nil
	}
	probs := s.Samples[s.sampleCalls%len(s.Samples)]
	s.sampleCalls++
	return probs, nil
}

// SampleCalls returns how many stochastic passes ran.
func (s *StubClassifier) SampleCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampleCalls
}

func (s *StubClassifier) wait(ctx context.Context) error {
	if s.Delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(s.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
