package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attest-ml/go-attest/infrastructure/calibration"
	"github.com/attest-ml/go-attest/internal/domain"
	"github.com/attest-ml/go-attest/internal/testutils"
)

func newTestCalibrationService(t *testing.T, store *testutils.MemCalibrationStore) *CalibrationService {
	t.Helper()

	calibrator, err := calibration.NewCalibrator(calibration.DefaultConfig(), store, nil, nil)
	require.NoError(t, err)

	svc, err := NewCalibrationService(store, calibrator, nil)
	require.NoError(t, err)
	return svc
}

func calibrationBatch(n int, confidence float64, accuracy float64) []domain.CalibrationRecord {
	records := make([]domain.CalibrationRecord, n)
	correct := int(float64(n) * accuracy)
	for i := range records {
		records[i] = domain.CalibrationRecord{Confidence: confidence, Correct: i < correct}
	}
	return records
}

func TestNewCalibrationServiceValidation(t *testing.T) {
	t.Parallel()

	store := &testutils.MemCalibrationStore{}
	calibrator, err := calibration.NewCalibrator(calibration.DefaultConfig(), store, nil, nil)
	require.NoError(t, err)

	_, err = NewCalibrationService(nil, calibrator, nil)
	require.Error(t, err)
	_, err = NewCalibrationService(store, nil, nil)
	require.Error(t, err)
}

func TestLatestBeforeFit(t *testing.T) {
	t.Parallel()

	svc := newTestCalibrationService(t, &testutils.MemCalibrationStore{})

	_, err := svc.Latest()
	require.ErrorIs(t, err, ErrNotCalibrated)

	_, err = svc.CalibrateConfidence([]float64{1.0, 0.5})
	require.ErrorIs(t, err, ErrNotCalibrated)
}

func TestFitInstallsLatestModel(t *testing.T) {
	t.Parallel()

	svc := newTestCalibrationService(t, &testutils.MemCalibrationStore{})
	ctx := context.Background()

	require.NoError(t, svc.Ingest(ctx, calibrationBatch(100, 0.8, 0.8)))

	fitted, err := svc.Fit(ctx)
	require.NoError(t, err)
	assert.True(t, fitted.IsCalibrated)
	assert.Equal(t, 100, fitted.NumSamples)

	latest, err := svc.Latest()
	require.NoError(t, err)
	assert.Equal(t, fitted.FittedAt, latest.FittedAt)
	assert.InDelta(t, fitted.ECE, latest.ECE, 1e-12)
}

func TestFitWithEmptyHistory(t *testing.T) {
	t.Parallel()

	svc := newTestCalibrationService(t, &testutils.MemCalibrationStore{})

	_, err := svc.Fit(context.Background())
	require.ErrorIs(t, err, domain.ErrInsufficientData)

	// The failed fit must not install a model.
	_, err = svc.Latest()
	require.ErrorIs(t, err, ErrNotCalibrated)
}

func TestCalibrateConfidence(t *testing.T) {
	t.Parallel()

	svc := newTestCalibrationService(t, &testutils.MemCalibrationStore{})
	ctx := context.Background()

	require.NoError(t, svc.Ingest(ctx, calibrationBatch(100, 0.8, 0.8)))
	_, err := svc.Fit(ctx)
	require.NoError(t, err)

	probs, err := svc.CalibrateConfidence([]float64{2.0, 0.0})
	require.NoError(t, err)
	require.Len(t, probs, 2)

	sum := probs[0] + probs[1]
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, probs[0], probs[1])

	_, err = svc.CalibrateConfidence(nil)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}
