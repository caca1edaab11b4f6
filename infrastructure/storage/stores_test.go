package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/attest-ml/go-attest/internal/domain"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	return db
}

func TestCalibrationStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewCalibrationStore(openTestDB(t))

	records := []domain.CalibrationRecord{
		{Confidence: 0.9, Correct: true, Logits: []float64{2.5, 0.1}, TrueLabel: 0},
		{Confidence: 0.4, Correct: false},
	}
	require.NoError(t, store.AppendRecords(ctx, records))
	require.NoError(t, store.AppendRecords(ctx, nil))

	got, err := store.Records(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.InDelta(t, 0.9, got[0].Confidence, 1e-9)
	assert.True(t, got[0].Correct)
	assert.Equal(t, []float64{2.5, 0.1}, got[0].Logits)

	assert.InDelta(t, 0.4, got[1].Confidence, 1e-9)
	assert.False(t, got[1].Correct)
	assert.Nil(t, got[1].Logits)
}

func TestInspectionStoreWindow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewInspectionStore(openTestDB(t))

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	records := []domain.InspectionRecord{
		{
			CapturedAt:     base.Add(-time.Hour), // outside the window
			PredictedLabel: "ok",
			TrueLabel:      "ok",
		},
		{
			ID:             "rec-1",
			CapturedAt:     base,
			PredictedLabel: "defect",
			TrueLabel:      "defect",
			Confidence:     0.8,
			PredictedBoxes: []domain.BoundingBox{
				{X1: 1, Y1: 2, X2: 5, Y2: 6, Label: "defect", Confidence: 0.8},
			},
			TrueBoxes: []domain.BoundingBox{
				{X1: 1, Y1: 2, X2: 5, Y2: 6, Label: "defect"},
			},
			PredictedMask: &domain.Mask{Width: 2, Height: 1, Bits: []bool{true, false}},
			TrueMask:      &domain.Mask{Width: 2, Height: 1, Bits: []bool{true, true}},
		},
		{
			CapturedAt:     base.Add(2 * time.Hour), // right at the exclusive bound
			PredictedLabel: "ok",
			TrueLabel:      "ok",
		},
	}
	require.NoError(t, store.Append(ctx, records))

	got, err := store.Window(ctx, base, base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)

	r := got[0]
	assert.Equal(t, "rec-1", r.ID)
	assert.Equal(t, "defect", r.PredictedLabel)
	require.Len(t, r.PredictedBoxes, 1)
	assert.InDelta(t, 0.8, r.PredictedBoxes[0].Confidence, 1e-9)
	require.NotNil(t, r.PredictedMask)
	assert.Equal(t, []bool{true, false}, r.PredictedMask.Bits)
}

func TestInspectionStoreAssignsIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewInspectionStore(openTestDB(t))

	at := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(ctx, []domain.InspectionRecord{
		{CapturedAt: at, PredictedLabel: "ok", TrueLabel: "ok"},
	}))

	got, err := store.Window(ctx, at, at.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].ID)

	// Boxes and masks were never set and come back absent, not empty.
	assert.Nil(t, got[0].PredictedBoxes)
	assert.Nil(t, got[0].PredictedMask)
}
