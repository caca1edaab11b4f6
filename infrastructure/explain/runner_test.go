package explain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/attest-ml/go-attest/internal/domain"
	"github.com/attest-ml/go-attest/internal/ports"
)

type fakeMethod struct {
	name  string
	err   error
	delay time.Duration
}

func (f *fakeMethod) Name() string { return f.name }

func (f *fakeMethod) ProduceMap(ctx context.Context, _ ports.Classifier, img domain.Image) (domain.AttributionMap, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.AttributionMap{}, ctx.Err()
		}
	}
	if f.err != nil {
		return domain.AttributionMap{}, f.err
	}
	values := make([]float64, img.Width*img.Height)
	for i := range values {
		values[i] = float64(i)
	}
	return domain.AttributionMap{Method: f.name, Width: img.Width, Height: img.Height, Values: values}, nil
}

type nopModel struct{}

func (nopModel) Predict(context.Context, domain.Image) (ports.Prediction, error) {
	return ports.Prediction{Probs: []float64{0.5, 0.5}}, nil
}

func (nopModel) NumClasses() int { return 2 }

func TestNewRunnerValidation(t *testing.T) {
	t.Parallel()

	t.Run("empty method set", func(t *testing.T) {
		t.Parallel()
		_, err := NewRunner(nil, RunnerConfig{}, nil, nil)
		var vErr *domain.ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("duplicate method names", func(t *testing.T) {
		t.Parallel()
		methods := []ports.AttributionMethod{
			&fakeMethod{name: "grad_cam"},
			&fakeMethod{name: "grad_cam"},
		}
		_, err := NewRunner(methods, RunnerConfig{}, nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
	})
}

func TestRunnerAbsorbsPartialFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	methods := []ports.AttributionMethod{
		&fakeMethod{name: "grad_cam"},
		&fakeMethod{name: "lime", err: errors.New("surrogate diverged")},
		&fakeMethod{name: "ig"},
	}
	runner, err := NewRunner(methods, RunnerConfig{}, nil, nil)
	require.NoError(t, err)

	maps, excluded, err := runner.Run(context.Background(), nopModel{}, domain.Image{Width: 4, Height: 4, Channels: 1})
	require.NoError(t, err)

	require.Len(t, maps, 2)
	// Results keep registration order regardless of completion order.
	assert.Equal(t, "grad_cam", maps[0].Method)
	assert.Equal(t, "ig", maps[1].Method)
	assert.Equal(t, []string{"lime"}, excluded)
}

func TestRunnerExcludesTimedOutMethod(t *testing.T) {
	defer goleak.VerifyNone(t)

	methods := []ports.AttributionMethod{
		&fakeMethod{name: "fast"},
		&fakeMethod{name: "slow", delay: 500 * time.Millisecond},
	}
	runner, err := NewRunner(methods, RunnerConfig{MethodTimeout: 30 * time.Millisecond}, nil, nil)
	require.NoError(t, err)

	maps, excluded, err := runner.Run(context.Background(), nopModel{}, domain.Image{Width: 2, Height: 2, Channels: 1})
	require.NoError(t, err)

	require.Len(t, maps, 1)
	assert.Equal(t, "fast", maps[0].Method)
	assert.Equal(t, []string{"slow"}, excluded)
}

func TestRunnerParentCancellation(t *testing.T) {
	defer goleak.VerifyNone(t)

	methods := []ports.AttributionMethod{
		&fakeMethod{name: "slow", delay: time.Second},
	}
	runner, err := NewRunner(methods, RunnerConfig{MethodTimeout: 5 * time.Second}, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, _, err = runner.Run(ctx, nopModel{}, domain.Image{Width: 2, Height: 2, Channels: 1})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunnerBoundsConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	methods := make([]ports.AttributionMethod, 8)
	for i := range methods {
		methods[i] = &fakeMethod{name: string(rune('a' + i)), delay: 10 * time.Millisecond}
	}
	runner, err := NewRunner(methods, RunnerConfig{MaxConcurrency: 2}, nil, nil)
	require.NoError(t, err)

	start := time.Now()
	maps, excluded, err := runner.Run(context.Background(), nopModel{}, domain.Image{Width: 2, Height: 2, Channels: 1})
	require.NoError(t, err)
	assert.Len(t, maps, 8)
	assert.Empty(t, excluded)

	// 8 tasks of 10ms through 2 workers cannot finish in under 40ms.
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}
