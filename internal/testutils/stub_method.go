package testutils

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/attest-ml/go-attest/internal/domain"
	"github.com/attest-ml/go-attest/internal/ports"
)

var _ ports.AttributionMethod = (*StubMethod)(nil)

// StubMethod is a scripted attribution method returning a fixed map,
// a fixed error, or hanging past the runner's timeout.
type StubMethod struct {
	// MethodName is returned by Name.
	MethodName string

	// Map is the heatmap returned on success. Its Method field is
	// overwritten with MethodName.
	Map domain.AttributionMap

	// Err, when set, fails every ProduceMap call.
	Err error

	// Delay is slept before producing, respecting cancellation. Set it
	// beyond the runner's timeout to simulate a hung method.
	Delay time.Duration

	calls atomic.Int64
}

// Name implements ports.AttributionMethod.
func (s *StubMethod) Name() string { return s.MethodName }

// ProduceMap implements ports.AttributionMethod.
func (s *StubMethod) ProduceMap(ctx context.Context, _ ports.Classifier, _ domain.Image) (domain.AttributionMap, error) {
	s.calls.Add(1)
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return domain.AttributionMap{}, ctx.Err()
		}
	}
	if s.Err != nil {
		return domain.AttributionMap{}, s.Err
	}
	m := s.Map.Clone()
	m.Method = s.MethodName
	return m, nil
}

// Calls returns how many times ProduceMap ran.
func (s *StubMethod) Calls() int { return int(s.calls.Load()) }

// UniformMap builds a width x height map where every pixel holds value.
func UniformMap(method string, width, height int, value float64) domain.AttributionMap {
	values := make([]float64, width*height)
	for i := range values {
		values[i] = value
	}
	return domain.AttributionMap{Method: method, Width: width, Height: height, Values: values}
}

// RampMap builds a width x height map with values increasing linearly
// in row-major order, normalizing to distinct activations per pixel.
func RampMap(method string, width, height int) domain.AttributionMap {
	values := make([]float64, width*height)
	for i := range values {
		values[i] = float64(i)
	}
	return domain.AttributionMap{Method: method, Width: width, Height: height, Values: values}
}
