package calibration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attest-ml/go-attest/internal/domain"
	"github.com/attest-ml/go-attest/internal/testutils"
)

func newTestCalibrator(t *testing.T, store *testutils.MemCalibrationStore) *Calibrator {
	t.Helper()
	cal, err := NewCalibrator(DefaultConfig(), store, nil, nil)
	require.NoError(t, err)
	return cal
}

func TestNewCalibratorValidation(t *testing.T) {
	t.Parallel()

	t.Run("nil store", func(t *testing.T) {
		t.Parallel()
		_, err := NewCalibrator(DefaultConfig(), nil, nil, nil)
		require.Error(t, err)
	})

	t.Run("inverted temperature bounds", func(t *testing.T) {
		t.Parallel()
		config := DefaultConfig()
		config.MinTemperature, config.MaxTemperature = 5, 1
		_, err := NewCalibrator(config, &testutils.MemCalibrationStore{}, nil, nil)
		require.Error(t, err)
	})
}

func TestCalibrateEmptyBatch(t *testing.T) {
	t.Parallel()

	cal := newTestCalibrator(t, &testutils.MemCalibrationStore{})
	_, err := cal.Calibrate(context.Background())
	require.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestCalibrateWellCalibratedBatch(t *testing.T) {
	t.Parallel()

	store := &testutils.MemCalibrationStore{}
	var records []domain.CalibrationRecord
	for i := 0; i < 100; i++ {
		records = append(records, domain.CalibrationRecord{
			Confidence: 0.8,
			Correct:    i%10 < 8,
		})
	}
	require.NoError(t, store.AppendRecords(context.Background(), records))

	cal := newTestCalibrator(t, store)
	model, err := cal.Calibrate(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 0.0, model.ECE, 1e-9)
	assert.True(t, model.IsCalibrated)
	assert.Equal(t, 100, model.NumSamples)
	// No logits in the batch, so temperature scaling is skipped.
	assert.Equal(t, 1.0, model.Temperature)
	assert.False(t, model.Improved)
	assert.False(t, model.FittedAt.IsZero())
}

func TestCalibrateBatchOverconfidentModel(t *testing.T) {
	t.Parallel()

	var records []domain.CalibrationRecord
	for i := 0; i < 100; i++ {
		records = append(records, domain.CalibrationRecord{
			Confidence: 0.9,
			Correct:    i%2 == 0,
			Logits:     []float64{5, 0},
			TrueLabel:  i % 2,
		})
	}

	cal := newTestCalibrator(t, &testutils.MemCalibrationStore{})
	model, err := cal.CalibrateBatch(records)
	require.NoError(t, err)

	assert.InDelta(t, 0.4, model.ECE, 1e-9)
	assert.False(t, model.IsCalibrated)
	assert.True(t, model.Improved)
	assert.Greater(t, model.Temperature, 1.0)
}

func TestCalibrateBatchReliabilityCurve(t *testing.T) {
	t.Parallel()

	var records []domain.CalibrationRecord
	for i := 0; i < 20; i++ {
		records = append(records, domain.CalibrationRecord{Confidence: 0.55, Correct: i < 5})
	}

	cal := newTestCalibrator(t, &testutils.MemCalibrationStore{})
	model, err := cal.CalibrateBatch(records)
	require.NoError(t, err)

	require.Len(t, model.Bins, DefaultBins)
	bin := model.Bins[5]
	assert.Equal(t, 20, bin.Count)
	assert.InDelta(t, 0.55, bin.AvgConfidence, 1e-9)
	assert.InDelta(t, 0.25, bin.AvgAccuracy, 1e-9)
}
