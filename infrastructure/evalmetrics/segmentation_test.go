package evalmetrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attest-ml/go-attest/internal/domain"
)

func mask(bits ...bool) *domain.Mask {
	return &domain.Mask{Width: len(bits), Height: 1, Bits: bits}
}

func TestMaskOverlap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pred     *domain.Mask
		truth    *domain.Mask
		wantIoU  float64
		wantDice float64
	}{
		{
			name:     "identical masks",
			pred:     mask(true, true, false, false),
			truth:    mask(true, true, false, false),
			wantIoU:  1,
			wantDice: 1,
		},
		{
			name:     "partial overlap",
			pred:     mask(true, true, false, false),
			truth:    mask(false, true, true, false),
			wantIoU:  1.0 / 3.0,
			wantDice: 0.5,
		},
		{
			name:     "disjoint masks",
			pred:     mask(true, false),
			truth:    mask(false, true),
			wantIoU:  0,
			wantDice: 0,
		},
		{
			name:     "both empty agree perfectly",
			pred:     mask(false, false, false),
			truth:    mask(false, false, false),
			wantIoU:  1,
			wantDice: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			iou, dice := maskOverlap(tt.pred, tt.truth)
			assert.InDelta(t, tt.wantIoU, iou, 1e-9)
			assert.InDelta(t, tt.wantDice, dice, 1e-9)
		})
	}
}

func TestPixelAccuracy(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.5,
		pixelAccuracy(mask(true, true, false, false), mask(false, true, true, false)), 1e-9)
	assert.InDelta(t, 1.0,
		pixelAccuracy(mask(true, false), mask(true, false)), 1e-9)
}

func TestSegmentationMetricsAveragesOverInstances(t *testing.T) {
	t.Parallel()

	records := []domain.InspectionRecord{
		{PredictedMask: mask(true, true), TrueMask: mask(true, true)},
		{PredictedMask: mask(true, false), TrueMask: mask(false, true)},
		// No masks: skipped, not counted as zero.
		{PredictedLabel: "ok", TrueLabel: "ok"},
		// Mismatched shapes: skipped.
		{PredictedMask: mask(true), TrueMask: mask(true, false)},
	}

	m := segmentationMetrics(records)
	require.Equal(t, 2, m.Instances)
	assert.InDelta(t, 0.5, m.MeanIoU, 1e-9)
	assert.InDelta(t, 0.5, m.MeanDice, 1e-9)
	assert.InDelta(t, 0.5, m.PixelAccuracy, 1e-9)
}

func TestSegmentationMetricsNoInstances(t *testing.T) {
	t.Parallel()

	m := segmentationMetrics([]domain.InspectionRecord{{PredictedLabel: "ok"}})
	assert.Zero(t, m.Instances)
	assert.Zero(t, m.MeanIoU)
}
