package evalmetrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attest-ml/go-attest/internal/domain"
)

func TestNewEngineValidation(t *testing.T) {
	t.Parallel()

	t.Run("defaults are valid", func(t *testing.T) {
		t.Parallel()
		_, err := NewEngine(DefaultConfig())
		require.NoError(t, err)
	})

	t.Run("missing positive label", func(t *testing.T) {
		t.Parallel()
		config := DefaultConfig()
		config.PositiveLabel = ""
		_, err := NewEngine(config)
		require.Error(t, err)
	})

	t.Run("inverted sweep bounds", func(t *testing.T) {
		t.Parallel()
		config := DefaultConfig()
		config.SweepLow, config.SweepHigh = 0.9, 0.5
		_, err := NewEngine(config)
		require.Error(t, err)
	})
}

func TestComputeEmptyWindow(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine(DefaultConfig())
	require.NoError(t, err)

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	_, err = engine.Compute(nil, from, from.Add(24*time.Hour))
	require.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestComputeFullSnapshot(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine(DefaultConfig())
	require.NoError(t, err)

	gt := domain.BoundingBox{X1: 0, Y1: 0, X2: 10, Y2: 10, Label: "defect"}
	pred := gt
	pred.Confidence = 0.9

	records := []domain.InspectionRecord{
		{
			PredictedLabel: "defect",
			TrueLabel:      "defect",
			Confidence:     0.9,
			PredictedBoxes: []domain.BoundingBox{pred},
			TrueBoxes:      []domain.BoundingBox{gt},
			PredictedMask:  mask(true, false),
			TrueMask:       mask(true, false),
		},
		{
			PredictedLabel: "defect",
			TrueLabel:      "ok",
			Confidence:     0.3,
		},
		{
			PredictedLabel: "ok",
			TrueLabel:      "ok",
			Confidence:     0.8,
		},
	}

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	snap, err := engine.Compute(records, from, to)
	require.NoError(t, err)

	assert.Equal(t, from, snap.From)
	assert.Equal(t, to, snap.To)
	assert.Equal(t, 3, snap.TotalRecords)
	assert.False(t, snap.ComputedAt.IsZero())

	assert.Equal(t, 1, snap.Business.TruePositives)
	assert.Equal(t, 1, snap.Business.FalsePositives)
	assert.Equal(t, 1, snap.Business.TrueNegatives)

	assert.InDelta(t, 1.0, snap.Detection.MAP50, 1e-9)
	assert.InDelta(t, 1.0, snap.Detection.MAPCoco, 1e-9)
	// Correct records (0.9, 0.8) both outrank the incorrect one (0.3).
	assert.InDelta(t, 1.0, snap.Detection.AUROC, 1e-9)

	assert.Equal(t, 1, snap.Segmentation.Instances)
	assert.InDelta(t, 1.0, snap.Segmentation.MeanIoU, 1e-9)
}
