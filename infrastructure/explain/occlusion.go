package explain

import (
	"context"
	"fmt"

	"github.com/attest-ml/go-attest/internal/domain"
	"github.com/attest-ml/go-attest/internal/ports"
)

// DefaultOcclusionPatch is the default occlusion window side length.
const DefaultOcclusionPatch = 8

// OcclusionConfig configures the occlusion sensitivity method.
type OcclusionConfig struct {
	// PatchSize is the side length of the square occlusion window.
	// Zero falls back to DefaultOcclusionPatch.
	PatchSize int `yaml:"patch_size" json:"patch_size" validate:"min=0"`

	// Stride is the window step; defaults to PatchSize (no overlap).
	Stride int `yaml:"stride" json:"stride" validate:"min=0"`

	// Baseline is the intensity the occluded region is filled with.
	Baseline float64 `yaml:"baseline" json:"baseline" validate:"min=0,max=1"`
}

// Occlusion is a model-agnostic attribution method: it measures how
// much the predicted-class probability drops when each image region is
// masked out. It needs only deterministic inference, so it works
// against any Classifier, at the cost of one forward pass per window
// position. Importance is written at window granularity; the runner's
// per-method timeout bounds total cost.
type Occlusion struct {
	name   string
	config OcclusionConfig
}

var _ ports.AttributionMethod = (*Occlusion)(nil)

// NewOcclusion creates an occlusion method instance. A zero PatchSize
// falls back to DefaultOcclusionPatch and a zero Stride to PatchSize.
func NewOcclusion(name string, config OcclusionConfig) (*Occlusion, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	if config.PatchSize <= 0 {
		config.PatchSize = DefaultOcclusionPatch
	}
	if config.Stride <= 0 {
		config.Stride = config.PatchSize
	}
	if name == "" {
		name = "occlusion"
	}
	return &Occlusion{name: name, config: config}, nil
}

// Name implements ports.AttributionMethod.
func (o *Occlusion) Name() string { return o.name }

// ProduceMap implements ports.AttributionMethod. The returned map holds
// the raw probability drop per pixel; normalization happens during
// aggregation.
func (o *Occlusion) ProduceMap(
	ctx context.Context,
	model ports.Classifier,
	img domain.Image,
) (domain.AttributionMap, error) {
	if img.Width <= 0 || img.Height <= 0 || len(img.Pixels) != img.Width*img.Height*img.Channels {
		return domain.AttributionMap{}, fmt.Errorf("%w: %dx%dx%d image with %d pixels",
			domain.ErrInvalidShape, img.Width, img.Height, img.Channels, len(img.Pixels))
	}

	base, err := model.Predict(ctx, img)
	if err != nil {
		return domain.AttributionMap{}, fmt.Errorf("baseline prediction: %w", err)
	}
	if len(base.Probs) == 0 {
		return domain.AttributionMap{}, fmt.Errorf("baseline prediction returned no probabilities")
	}
	target := argmax(base.Probs)
	baseProb := base.Probs[target]

	values := make([]float64, img.Width*img.Height)

	for y := 0; y < img.Height; y += o.config.Stride {
		for x := 0; x < img.Width; x += o.config.Stride {
			if err := ctx.Err(); err != nil {
				return domain.AttributionMap{}, err
			}

			occluded := o.occlude(img, x, y)
			pred, err := model.Predict(ctx, occluded)
			if err != nil {
				return domain.AttributionMap{}, fmt.Errorf("occluded prediction at (%d,%d): %w", x, y, err)
			}
			if target >= len(pred.Probs) {
				return domain.AttributionMap{}, fmt.Errorf("%w: occluded pass returned %d classes",
					domain.ErrInvalidShape, len(pred.Probs))
			}

			// Importance is the probability mass the region was
			// supporting. Regions whose removal helps score zero.
			drop := baseProb - pred.Probs[target]
			if drop < 0 {
				drop = 0
			}
			o.fill(values, img, x, y, drop)
		}
	}

	m, err := domain.NewAttributionMap(o.name, img.Width, img.Height, values)
	if err != nil {
		return domain.AttributionMap{}, err
	}
	return m, nil
}

// occlude copies the image with the window at (x, y) replaced by the
// baseline intensity.
func (o *Occlusion) occlude(img domain.Image, x, y int) domain.Image {
	out := img
	out.Pixels = make([]float64, len(img.Pixels))
	copy(out.Pixels, img.Pixels)

	for py := y; py < y+o.config.PatchSize && py < img.Height; py++ {
		for px := x; px < x+o.config.PatchSize && px < img.Width; px++ {
			base := (py*img.Width + px) * img.Channels
			for c := 0; c < img.Channels; c++ {
				out.Pixels[base+c] = o.config.Baseline
			}
		}
	}
	return out
}

// fill writes the drop value over the window's pixels in the heatmap.
func (o *Occlusion) fill(values []float64, img domain.Image, x, y int, drop float64) {
	for py := y; py < y+o.config.PatchSize && py < img.Height; py++ {
		for px := x; px < x+o.config.PatchSize && px < img.Width; px++ {
			idx := py*img.Width + px
			if drop > values[idx] {
				values[idx] = drop
			}
		}
	}
}

func argmax(v []float64) int {
	best := 0
	for i, x := range v {
		if x > v[best] {
			best = i
		}
	}
	return best
}
