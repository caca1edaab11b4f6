// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"

	"github.com/attest-ml/go-attest/internal/domain"
)

// Prediction is one deterministic forward-pass result from the
// detection model collaborator.
type Prediction struct {
	// Probs is the class-probability vector (softmax output).
	Probs []float64

	// Logits are the raw pre-softmax class scores, required by
	// temperature scaling.
	Logits []float64
}

// Classifier is the deterministic inference capability of the external
// detection model. The model's internals (architecture, weights,
// serving) are out of scope; this is the narrow boundary the engine
// depends on. It is the only blocking I/O boundary in the system and
// may be slow or occasionally unavailable.
type Classifier interface {
	// Predict runs one deterministic forward pass on the input.
	Predict(ctx context.Context, img domain.Image) (Prediction, error)

	// NumClasses returns the size of the model's class-probability
	// vector, used to normalize predictive entropy.
	NumClasses() int
}

// StochasticClassifier extends Classifier with a stochastic-inference
// entry point (dropout active at inference time). It is modeled as a
// distinct capability rather than a boolean flag so the uncertainty
// estimator's dependency is explicit and testable with a fake.
// A model lacking this capability is a contract violation for
// uncertainty estimation, never silently approximated.
type StochasticClassifier interface {
	Classifier

	// SampleProbs runs one stochastic forward pass and returns the
	// sampled class-probability vector. Successive calls are
	// independent draws; callers may invoke this concurrently.
	SampleProbs(ctx context.Context, img domain.Image) ([]float64, error)
}

// AttributionMethod is one pluggable explainability algorithm. The
// aggregator depends only on this capability, so methods can be added
// or removed without touching aggregation logic. Implementations
// produce one raw, unnormalized map at the input's spatial resolution
// and may optionally self-report a confidence on the returned map.
type AttributionMethod interface {
	// Name returns the unique method identifier (e.g. "grad_cam").
	Name() string

	// ProduceMap computes one raw heatmap for (model, input).
	// Implementations must respect context cancellation; the runner
	// enforces a per-method timeout and excludes methods that fail or
	// time out rather than failing the whole request.
	ProduceMap(ctx context.Context, model Classifier, img domain.Image) (domain.AttributionMap, error)
}
