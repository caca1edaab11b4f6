package application

import (
	"fmt"
	"sort"
	"sync"

	"github.com/attest-ml/go-attest/infrastructure/explain"
	"github.com/attest-ml/go-attest/internal/ports"
)

// MethodFactory constructs an attribution method from its configuration
// parameters.
type MethodFactory func(name string, config map[string]any) (ports.AttributionMethod, error)

// MethodRegistry is a factory for attribution methods, keyed by method
// type. It supports dynamic registration so deployments can plug in
// model-specific attribution backends without touching the pipeline.
type MethodRegistry struct {
	// factories maps method type strings to their factory functions.
	factories map[string]MethodFactory
	// mu protects concurrent access to the factories map.
	mu sync.RWMutex
}

// NewMethodRegistry creates a method registry with the built-in
// model-agnostic methods pre-registered. Gradient-based backends are
// model-runtime specific and arrive via RegisterFactory; occlusion
// needs only deterministic inference and ships built in.
func NewMethodRegistry() *MethodRegistry {
	r := &MethodRegistry{factories: make(map[string]MethodFactory)}
	r.registerBuiltinFactories()
	return r
}

// registerBuiltinFactories registers the methods that work against any
// Classifier.
func (r *MethodRegistry) registerBuiltinFactories() {
	r.factories["occlusion"] = func(name string, config map[string]any) (ports.AttributionMethod, error) {
		oc := explain.OcclusionConfig{}
		if v, ok := config["patch_size"].(int); ok {
			oc.PatchSize = v
		}
		if v, ok := config["stride"].(int); ok {
			oc.Stride = v
		}
		if v, ok := config["baseline"].(float64); ok {
			oc.Baseline = v
		}
		return explain.NewOcclusion(name, oc)
	}
}

// RegisterFactory registers a factory for a method type, replacing any
// existing registration for the same type.
func (r *MethodRegistry) RegisterFactory(methodType string, factory MethodFactory) error {
	if methodType == "" {
		return fmt.Errorf("method type cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory for %s cannot be nil", methodType)
	}
	r.mu.Lock()
	r.factories[methodType] = factory
	r.mu.Unlock()
	return nil
}

// CreateMethod creates a new attribution method of the given type. It
// looks up the registered factory and delegates construction.
func (r *MethodRegistry) CreateMethod(
	methodType string,
	name string,
	config map[string]any,
) (ports.AttributionMethod, error) {
	r.mu.RLock()
	factory, exists := r.factories[methodType]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported attribution method type: %s", methodType)
	}
	if name == "" {
		return nil, fmt.Errorf("method name cannot be empty")
	}
	if config == nil {
		config = make(map[string]any)
	}

	method, err := factory(name, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create method %s of type %s: %w", name, methodType, err)
	}
	return method, nil
}

// ListTypes returns the registered method types in sorted order.
func (r *MethodRegistry) ListTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
