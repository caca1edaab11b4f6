package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/attest-ml/go-attest/internal/domain"
	"github.com/attest-ml/go-attest/internal/ports"
)

var _ ports.CalibrationStore = (*CalibrationStore)(nil)

// CalibrationStore persists held-out calibration records in SQLite.
type CalibrationStore struct {
	db *gorm.DB
}

// NewCalibrationStore wraps an opened database.
func NewCalibrationStore(db *gorm.DB) *CalibrationStore {
	return &CalibrationStore{db: db}
}

// AppendRecords persists a batch of observations in one transaction.
func (s *CalibrationStore) AppendRecords(ctx context.Context, records []domain.CalibrationRecord) error {
	if len(records) == 0 {
		return nil
	}
	models := make([]calibrationRecordModel, 0, len(records))
	now := time.Now().UTC()
	for _, r := range records {
		logits := ""
		if len(r.Logits) > 0 {
			raw, err := json.Marshal(r.Logits)
			if err != nil {
				return fmt.Errorf("encoding logits: %w", err)
			}
			logits = string(raw)
		}
		models = append(models, calibrationRecordModel{
			CreatedAt:  now,
			Confidence: r.Confidence,
			Correct:    r.Correct,
			Logits:     logits,
			TrueLabel:  r.TrueLabel,
		})
	}
	if err := s.db.WithContext(ctx).Create(&models).Error; err != nil {
		return fmt.Errorf("appending calibration records: %w", err)
	}
	return nil
}

// Records returns the full held-out batch in insertion order.
func (s *CalibrationStore) Records(ctx context.Context) ([]domain.CalibrationRecord, error) {
	var models []calibrationRecordModel
	if err := s.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("reading calibration records: %w", err)
	}
	out := make([]domain.CalibrationRecord, 0, len(models))
	for _, m := range models {
		r := domain.CalibrationRecord{
			Confidence: m.Confidence,
			Correct:    m.Correct,
			TrueLabel:  m.TrueLabel,
		}
		if m.Logits != "" {
			if err := json.Unmarshal([]byte(m.Logits), &r.Logits); err != nil {
				return nil, fmt.Errorf("decoding logits for record %d: %w", m.ID, err)
			}
		}
		out = append(out, r)
	}
	return out, nil
}
