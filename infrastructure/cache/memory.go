// Package cache provides snapshot cache implementations behind the
// ports.CacheStore interface: a process-local map for single-node
// deployments and tests, and Redis for shared deployments.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/attest-ml/go-attest/internal/domain"
	"github.com/attest-ml/go-attest/internal/ports"
)

var _ ports.CacheStore = (*Memory)(nil)

type memoryEntry struct {
	snap      domain.MetricsSnapshot
	expiresAt time.Time // zero means no expiry
}

// Memory is an in-process CacheStore. Expired entries are dropped
// lazily on read.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

// GetSnapshot implements ports.CacheStore.
func (m *Memory) GetSnapshot(_ context.Context, key string) (domain.MetricsSnapshot, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return domain.MetricsSnapshot{}, false, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return domain.MetricsSnapshot{}, false, nil
	}
	return e.snap, true, nil
}

// SetSnapshot implements ports.CacheStore.
func (m *Memory) SetSnapshot(_ context.Context, key string, snap domain.MetricsSnapshot, expiration time.Duration) error {
	e := memoryEntry{snap: snap}
	if expiration > 0 {
		e.expiresAt = time.Now().Add(expiration)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

// Invalidate removes all entries whose key starts with prefix.
func (m *Memory) Invalidate(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	return nil
}
