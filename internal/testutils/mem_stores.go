package testutils

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/attest-ml/go-attest/internal/domain"
	"github.com/attest-ml/go-attest/internal/ports"
)

var (
	_ ports.CalibrationStore = (*MemCalibrationStore)(nil)
	_ ports.InspectionStore  = (*MemInspectionStore)(nil)
)

// MemCalibrationStore is an in-memory calibration history.
type MemCalibrationStore struct {
	mu      sync.Mutex
	records []domain.CalibrationRecord

	// AppendErr and ReadErr, when set, fail the respective calls.
	AppendErr error
	ReadErr   error
}

// AppendRecords implements ports.CalibrationStore.
func (s *MemCalibrationStore) AppendRecords(_ context.Context, records []domain.CalibrationRecord) error {
	if s.AppendErr != nil {
		return s.AppendErr
	}
	s.mu.Lock()
	s.records = append(s.records, records...)
	s.mu.Unlock()
	return nil
}

// Records implements ports.CalibrationStore.
func (s *MemCalibrationStore) Records(_ context.Context) ([]domain.CalibrationRecord, error) {
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CalibrationRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

// MemInspectionStore is an in-memory inspection history. WindowCalls
// counts history reads so singleflight collapse can be asserted.
type MemInspectionStore struct {
	mu      sync.Mutex
	records []domain.InspectionRecord

	WindowCalls atomic.Int64
	WindowDelay time.Duration
}

// Append implements ports.InspectionStore.
func (s *MemInspectionStore) Append(_ context.Context, records []domain.InspectionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		s.records = append(s.records, r)
	}
	return nil
}

// Window implements ports.InspectionStore.
func (s *MemInspectionStore) Window(ctx context.Context, from, to time.Time) ([]domain.InspectionRecord, error) {
	s.WindowCalls.Add(1)
	if s.WindowDelay > 0 {
		select {
		case <-time.After(s.WindowDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.InspectionRecord
	for _, r := range s.records {
		if !r.CapturedAt.Before(from) && r.CapturedAt.Before(to) {
			out = append(out, r)
		}
	}
	return out, nil
}
