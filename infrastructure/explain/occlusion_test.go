package explain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attest-ml/go-attest/internal/domain"
	"github.com/attest-ml/go-attest/internal/ports"
)

// quadrantModel scores class 1 by the mean intensity of the top-left
// quadrant, so occluding that region is the only thing that moves the
// prediction.
type quadrantModel struct{}

func (quadrantModel) Predict(_ context.Context, img domain.Image) (ports.Prediction, error) {
	var sum float64
	var n int
	for y := 0; y < img.Height/2; y++ {
		for x := 0; x < img.Width/2; x++ {
			sum += img.Pixels[(y*img.Width+x)*img.Channels]
			n++
		}
	}
	p := sum / float64(n)
	return ports.Prediction{Probs: []float64{1 - p, p}}, nil
}

func (quadrantModel) NumClasses() int { return 2 }

func TestOcclusionHighlightsDecisiveRegion(t *testing.T) {
	t.Parallel()

	method, err := NewOcclusion("occlusion", OcclusionConfig{PatchSize: 4})
	require.NoError(t, err)

	img := domain.Image{Width: 8, Height: 8, Channels: 1, Pixels: make([]float64, 64)}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Pixels[y*8+x] = 1
		}
	}

	m, err := method.ProduceMap(context.Background(), quadrantModel{}, img)
	require.NoError(t, err)
	require.Equal(t, 64, m.Len())

	// The decisive quadrant carries all the importance.
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			v := m.At(x, y)
			if x < 4 && y < 4 {
				assert.InDelta(t, 1.0, v, 1e-9, "pixel (%d,%d)", x, y)
			} else {
				assert.Zero(t, v, "pixel (%d,%d)", x, y)
			}
		}
	}
}

func TestOcclusionValidatesImage(t *testing.T) {
	t.Parallel()

	method, err := NewOcclusion("", OcclusionConfig{})
	require.NoError(t, err)
	assert.Equal(t, "occlusion", method.Name())

	_, err = method.ProduceMap(context.Background(),
		quadrantModel{}, domain.Image{Width: 4, Height: 4, Channels: 1, Pixels: []float64{1}})
	require.ErrorIs(t, err, domain.ErrInvalidShape)
}

func TestOcclusionRespectsCancellation(t *testing.T) {
	t.Parallel()

	method, err := NewOcclusion("occlusion", OcclusionConfig{PatchSize: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	img := domain.Image{Width: 8, Height: 8, Channels: 1, Pixels: make([]float64, 64)}
	_, err = method.ProduceMap(ctx, quadrantModel{}, img)
	require.ErrorIs(t, err, context.Canceled)
}
