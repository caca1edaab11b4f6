package ports

import (
	"context"
	"time"

	"github.com/attest-ml/go-attest/internal/domain"
)

// CalibrationStore is the injected history store for calibration
// records. Keeping history behind a store interface (rather than
// in-process mutable state) lets the calibrator remain a pure function
// of its input batch.
type CalibrationStore interface {
	// AppendRecords persists a batch of held-out observations.
	AppendRecords(ctx context.Context, records []domain.CalibrationRecord) error

	// Records returns the full held-out batch for a calibration run.
	// The calibrator holds the returned slice read-only during the fit.
	Records(ctx context.Context) ([]domain.CalibrationRecord, error)
}

// InspectionStore is the injected history store for inspection
// records reduced by the metrics aggregator.
type InspectionStore interface {
	// Append persists a batch of inspection records.
	Append(ctx context.Context, records []domain.InspectionRecord) error

	// Window returns all records with CapturedAt in [from, to).
	Window(ctx context.Context, from, to time.Time) ([]domain.InspectionRecord, error)
}

// CacheStore caches computed metrics snapshots keyed by window.
// Implementations could use Redis or in-memory storage. Caching is
// optional; a nil store disables it.
type CacheStore interface {
	// GetSnapshot retrieves a cached snapshot by key.
	// Returns false when the key is absent or the entry is corrupted.
	GetSnapshot(ctx context.Context, key string) (domain.MetricsSnapshot, bool, error)

	// SetSnapshot stores a snapshot with an expiration time.
	// A zero duration means the entry does not expire.
	SetSnapshot(ctx context.Context, key string, snap domain.MetricsSnapshot, expiration time.Duration) error

	// Invalidate removes all entries whose key starts with prefix.
	// Called when new records are ingested into the store.
	Invalidate(ctx context.Context, prefix string) error
}
