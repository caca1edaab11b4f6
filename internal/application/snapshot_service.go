package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/attest-ml/go-attest/infrastructure/evalmetrics"
	"github.com/attest-ml/go-attest/internal/domain"
	"github.com/attest-ml/go-attest/internal/ports"
)

// snapshotKeyPrefix namespaces every snapshot cache key so ingest can
// invalidate all windows with one prefix sweep.
const snapshotKeyPrefix = "window"

// SnapshotService serves windowed metric snapshots over the inspection
// history. Snapshots are pure functions of the stored record set, so
// the service caches them per window and collapses concurrent requests
// for the same window into a single computation via singleflight.
// Ingesting new records invalidates every cached window that could now
// be stale.
type SnapshotService struct {
	store   ports.InspectionStore
	cache   ports.CacheStore
	engine  *evalmetrics.Engine
	ttl     time.Duration
	logger  *zap.Logger
	metrics ports.MetricsCollector
	// sf prevents duplicate computation when multiple goroutines
	// request the same window simultaneously.
	sf singleflight.Group
}

// NewSnapshotService wires the metrics engine to the inspection history
// and snapshot cache. ttl bounds cache staleness for deployments where
// invalidation events can be missed; zero disables expiry. metrics may
// be nil; a nil logger is replaced with a no-op logger.
func NewSnapshotService(
	store ports.InspectionStore,
	cache ports.CacheStore,
	engine *evalmetrics.Engine,
	ttl time.Duration,
	logger *zap.Logger,
	metrics ports.MetricsCollector,
) (*SnapshotService, error) {
	if store == nil || cache == nil || engine == nil {
		return nil, errors.New("store, cache, and engine are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotService{
		store:   store,
		cache:   cache,
		engine:  engine,
		ttl:     ttl,
		logger:  logger.Named("snapshot_service"),
		metrics: metrics,
	}, nil
}

// Ingest appends new inspection records to the history and invalidates
// all cached snapshots, since any window may now cover the new records.
func (s *SnapshotService) Ingest(ctx context.Context, records []domain.InspectionRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.store.Append(ctx, records); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, snapshotKeyPrefix); err != nil {
		// The history write already succeeded; a failed invalidation
		// only extends staleness up to the TTL.
		s.logger.Warn("snapshot cache invalidation failed", zap.Error(err))
	}
	s.logger.Info("inspection records ingested", zap.Int("count", len(records)))
	return nil
}

// Snapshot returns the metric snapshot for the window [from, to),
// computing it on a cache miss. label optionally restricts the window
// to records carrying that label on either side of the (prediction,
// ground truth) pair; empty means no filter. Concurrent callers asking
// for the same (window, filter) share one computation.
func (s *SnapshotService) Snapshot(ctx context.Context, from, to time.Time, label string) (domain.MetricsSnapshot, error) {
	if !to.After(from) {
		return domain.MetricsSnapshot{}, domain.NewValidationError("snapshot",
			fmt.Sprintf("window end %s is not after start %s",
				to.Format(time.RFC3339), from.Format(time.RFC3339)))
	}

	key := windowKey(from, to, label)

	if snap, ok, err := s.cache.GetSnapshot(ctx, key); err != nil {
		s.logger.Warn("snapshot cache read failed", zap.Error(err))
	} else if ok {
		s.recordCacheOutcome("snapshot_cache_hit")
		return snap, nil
	}
	s.recordCacheOutcome("snapshot_cache_miss")

	// Singleflight collapses a stampede of identical windows into one
	// history read and reduction.
	v, err, _ := s.sf.Do(key, func() (any, error) {
		// Re-check the cache inside the flight to handle the race
		// between the miss above and group admission.
		if snap, ok, err := s.cache.GetSnapshot(ctx, key); err == nil && ok {
			return snap, nil
		}

		records, err := s.store.Window(ctx, from, to)
		if err != nil {
			return domain.MetricsSnapshot{}, fmt.Errorf("reading window: %w", err)
		}
		records = filterByLabel(records, label)

		snap, err := s.engine.Compute(records, from, to)
		if err != nil {
			return domain.MetricsSnapshot{}, err
		}

		if err := s.cache.SetSnapshot(ctx, key, snap, s.ttl); err != nil {
			s.logger.Warn("snapshot cache write failed", zap.Error(err))
		}
		return snap, nil
	})
	if err != nil {
		return domain.MetricsSnapshot{}, err
	}
	return v.(domain.MetricsSnapshot), nil
}

func (s *SnapshotService) recordCacheOutcome(metric string) {
	if s.metrics != nil {
		s.metrics.RecordCounter(metric, 1, nil)
	}
}

// filterByLabel keeps records whose predicted or true label matches.
// An empty label keeps everything.
func filterByLabel(records []domain.InspectionRecord, label string) []domain.InspectionRecord {
	if label == "" {
		return records
	}
	out := make([]domain.InspectionRecord, 0, len(records))
	for _, r := range records {
		if r.PredictedLabel == label || r.TrueLabel == label {
			out = append(out, r)
		}
	}
	return out
}

// windowKey derives the cache key for a (window, filter) pair.
// Timestamps are truncated to the second and rendered in UTC so
// equivalent windows from different clients share an entry.
func windowKey(from, to time.Time, label string) string {
	return fmt.Sprintf("%s:%d:%d:%s", snapshotKeyPrefix,
		from.UTC().Truncate(time.Second).Unix(),
		to.UTC().Truncate(time.Second).Unix(),
		label)
}
