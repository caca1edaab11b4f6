package application

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/attest-ml/go-attest/infrastructure/calibration"
	"github.com/attest-ml/go-attest/internal/domain"
	"github.com/attest-ml/go-attest/internal/ports"
)

// ErrNotCalibrated is returned when calibration state is requested
// before any fit has completed.
var ErrNotCalibrated = errors.New("no calibration model has been fitted yet")

// CalibrationService owns the calibration lifecycle: it accumulates
// held-out observations, triggers batch fits, and serves the latest
// fitted model to the API and to inference-time consumers. Fits replace
// the current model wholesale under a write lock; readers never see a
// partially updated model.
type CalibrationService struct {
	store      ports.CalibrationStore
	calibrator *calibration.Calibrator
	logger     *zap.Logger

	mu     sync.RWMutex
	latest *domain.CalibrationModel
}

// NewCalibrationService wires the calibrator to its record store.
// A nil logger is replaced with a no-op logger.
func NewCalibrationService(
	store ports.CalibrationStore,
	calibrator *calibration.Calibrator,
	logger *zap.Logger,
) (*CalibrationService, error) {
	if store == nil || calibrator == nil {
		return nil, errors.New("store and calibrator are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalibrationService{
		store:      store,
		calibrator: calibrator,
		logger:     logger.Named("calibration_service"),
	}, nil
}

// Ingest appends held-out observations to the calibration history.
// New records do not affect the served model until the next Fit.
func (s *CalibrationService) Ingest(ctx context.Context, records []domain.CalibrationRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.store.AppendRecords(ctx, records); err != nil {
		return err
	}
	s.logger.Info("calibration records ingested", zap.Int("count", len(records)))
	return nil
}

// Fit recomputes the calibration model over the full stored batch and
// installs it as the served model.
func (s *CalibrationService) Fit(ctx context.Context) (domain.CalibrationModel, error) {
	model, err := s.calibrator.Calibrate(ctx)
	if err != nil {
		return domain.CalibrationModel{}, err
	}

	s.mu.Lock()
	s.latest = &model
	s.mu.Unlock()
	return model, nil
}

// Latest returns the most recently fitted model, or ErrNotCalibrated
// when no fit has completed yet.
func (s *CalibrationService) Latest() (domain.CalibrationModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return domain.CalibrationModel{}, ErrNotCalibrated
	}
	return *s.latest, nil
}

// CalibrateConfidence rescales a raw softmax confidence for display
// using the fitted temperature. Logit-level rescaling happens at the
// model boundary; this helper covers consumers that only have the
// scalar confidence and applies the fitted model's Softmax over
// single-logit input, degenerating to identity at T=1.
func (s *CalibrationService) CalibrateConfidence(logits []float64) ([]float64, error) {
	s.mu.RLock()
	model := s.latest
	s.mu.RUnlock()
	if model == nil {
		return nil, ErrNotCalibrated
	}
	if len(logits) == 0 {
		return nil, domain.NewValidationError("calibration", "logits cannot be empty")
	}
	return calibration.Softmax(logits, model.Temperature), nil
}
