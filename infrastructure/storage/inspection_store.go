package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/attest-ml/go-attest/internal/domain"
	"github.com/attest-ml/go-attest/internal/ports"
)

var _ ports.InspectionStore = (*InspectionStore)(nil)

// InspectionStore persists inspection records in SQLite.
type InspectionStore struct {
	db *gorm.DB
}

// NewInspectionStore wraps an opened database.
func NewInspectionStore(db *gorm.DB) *InspectionStore {
	return &InspectionStore{db: db}
}

// Append persists a batch of records in one transaction, assigning
// UUIDs to records that arrive without one.
func (s *InspectionStore) Append(ctx context.Context, records []domain.InspectionRecord) error {
	if len(records) == 0 {
		return nil
	}
	models := make([]inspectionRecordModel, 0, len(records))
	for _, r := range records {
		m, err := toModel(r)
		if err != nil {
			return err
		}
		models = append(models, m)
	}
	if err := s.db.WithContext(ctx).Create(&models).Error; err != nil {
		return fmt.Errorf("appending inspection records: %w", err)
	}
	return nil
}

// Window returns all records with CapturedAt in [from, to), oldest
// first.
func (s *InspectionStore) Window(ctx context.Context, from, to time.Time) ([]domain.InspectionRecord, error) {
	var models []inspectionRecordModel
	err := s.db.WithContext(ctx).
		Where("captured_at >= ? AND captured_at < ?", from, to).
		Order("captured_at").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("reading inspection window: %w", err)
	}
	out := make([]domain.InspectionRecord, 0, len(models))
	for _, m := range models {
		r, err := fromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func toModel(r domain.InspectionRecord) (inspectionRecordModel, error) {
	id := r.ID
	if id == "" {
		id = uuid.NewString()
	}
	m := inspectionRecordModel{
		ID:             id,
		CapturedAt:     r.CapturedAt,
		PredictedLabel: r.PredictedLabel,
		TrueLabel:      r.TrueLabel,
		Confidence:     r.Confidence,
	}
	var err error
	if m.PredictedBoxes, err = encodeJSON(r.PredictedBoxes); err != nil {
		return m, err
	}
	if m.TrueBoxes, err = encodeJSON(r.TrueBoxes); err != nil {
		return m, err
	}
	if m.PredictedMask, err = encodeJSON(r.PredictedMask); err != nil {
		return m, err
	}
	if m.TrueMask, err = encodeJSON(r.TrueMask); err != nil {
		return m, err
	}
	return m, nil
}

func fromModel(m inspectionRecordModel) (domain.InspectionRecord, error) {
	r := domain.InspectionRecord{
		ID:             m.ID,
		CapturedAt:     m.CapturedAt,
		PredictedLabel: m.PredictedLabel,
		TrueLabel:      m.TrueLabel,
		Confidence:     m.Confidence,
	}
	if err := decodeJSON(m.PredictedBoxes, &r.PredictedBoxes); err != nil {
		return r, fmt.Errorf("record %s: %w", m.ID, err)
	}
	if err := decodeJSON(m.TrueBoxes, &r.TrueBoxes); err != nil {
		return r, fmt.Errorf("record %s: %w", m.ID, err)
	}
	if err := decodeJSON(m.PredictedMask, &r.PredictedMask); err != nil {
		return r, fmt.Errorf("record %s: %w", m.ID, err)
	}
	if err := decodeJSON(m.TrueMask, &r.TrueMask); err != nil {
		return r, fmt.Errorf("record %s: %w", m.ID, err)
	}
	return r, nil
}

func encodeJSON(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding record payload: %w", err)
	}
	// Encoded nils ("null") and empty slices are stored as empty
	// strings so Window round-trips absent fields as absent.
	if s := string(raw); s != "null" && s != "[]" {
		return s, nil
	}
	return "", nil
}

func decodeJSON(s string, out any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), out)
}
