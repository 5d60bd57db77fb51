// Package cache is a TTL-aware layer over the key-value store. Cache writes
// are an optimization, never a correctness dependency: storage failures are
// logged and reported as misses, and no method here returns an error to the
// caller.
package cache

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/beaconchurch/beacon/internal/client/storage"
	"github.com/beaconchurch/beacon/internal/common"
	"github.com/beaconchurch/beacon/internal/logging"
)

// entry is the stored envelope around every cached value.
type entry struct {
	Data      json.RawMessage `json:"data"`
	WrittenAt time.Time       `json:"written_at"`
	ExpiresAt *time.Time      `json:"expires_at"`
}

func (e *entry) expired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

// Config bounds cache growth during housekeeping.
type Config struct {
	// MaxEntryAge evicts entries older than this even when they carry no
	// explicit TTL. Zero disables the ceiling.
	MaxEntryAge time.Duration

	// MaxTotalBytes evicts oldest-written entries once the summed serialized
	// size exceeds this. Zero disables the cap.
	MaxTotalBytes int64
}

// Manager implements the cache contract over a storage.Repository. All its
// keys live under common.CacheKeyPrefix, so Clear and Housekeeping never
// touch user data or the analytics queue.
type Manager struct {
	kv  storage.Repository
	log logging.Logger
	cfg Config
	now func() time.Time
}

func NewManager(kv storage.Repository, log logging.Logger, cfg Config) *Manager {
	return &Manager{
		kv:  kv,
		log: log.With("component", "cache"),
		cfg: cfg,
		now: time.Now,
	}
}

func cacheKey(name string) string {
	return common.CacheKeyPrefix + name
}

// Set stores v under name with the given TTL (ttl <= 0 means no expiry).
// Best-effort: marshalling or storage failures are logged and swallowed.
func (m *Manager) Set(ctx context.Context, name string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		m.log.Warn(ctx, "cache set skipped, value not serializable", "name", name, "error", err)
		return
	}

	now := m.now()
	e := entry{Data: data, WrittenAt: now}
	if ttl > 0 {
		exp := now.Add(ttl)
		e.ExpiresAt = &exp
	}

	raw, err := json.Marshal(&e)
	if err != nil {
		m.log.Warn(ctx, "cache set skipped, envelope not serializable", "name", name, "error", err)
		return
	}

	if err := m.kv.Set(ctx, cacheKey(name), raw); err != nil {
		m.log.Warn(ctx, "cache write failed", "name", name, "error", err)
	}
}

// Get unmarshals the cached value for name into dst. Returns false when the
// entry is absent, expired, or unreadable. An expired hit schedules an
// asynchronous delete of the stale entry without blocking the read.
func (m *Manager) Get(ctx context.Context, name string, dst any) bool {
	e, ok := m.load(ctx, name)
	if !ok {
		return false
	}

	if e.expired(m.now()) {
		go func(ctx context.Context) {
			if err := m.kv.Delete(ctx, cacheKey(name)); err != nil {
				m.log.Warn(ctx, "lazy eviction failed", "name", name, "error", err)
			}
		}(context.WithoutCancel(ctx))
		return false
	}

	return m.decode(ctx, name, e, dst)
}

// GetStale is the explicit allow-stale read: it returns the cached value
// even past its expiry. Callers opt in per read when availability matters
// more than freshness.
func (m *Manager) GetStale(ctx context.Context, name string, dst any) bool {
	e, ok := m.load(ctx, name)
	if !ok {
		return false
	}
	return m.decode(ctx, name, e, dst)
}

// Delete removes the entry for name. Best-effort.
func (m *Manager) Delete(ctx context.Context, name string) {
	if err := m.kv.Delete(ctx, cacheKey(name)); err != nil {
		m.log.Warn(ctx, "cache delete failed", "name", name, "error", err)
	}
}

// Clear removes every cache-owned entry, leaving other stored data intact.
func (m *Manager) Clear(ctx context.Context) {
	if err := m.kv.DeletePrefix(ctx, common.CacheKeyPrefix); err != nil {
		m.log.Warn(ctx, "cache clear failed", "error", err)
	}
}

// SizeBytes sums the serialized length of all cache-owned entries. This is
// a diagnostic; the hard cap is applied by Housekeeping.
func (m *Manager) SizeBytes(ctx context.Context) int64 {
	entries, err := m.kv.ListPrefix(ctx, common.CacheKeyPrefix)
	if err != nil {
		m.log.Warn(ctx, "cache size scan failed", "error", err)
		return 0
	}
	var total int64
	for _, raw := range entries {
		total += int64(len(raw))
	}
	return total
}

// Housekeeping removes expired entries, entries older than MaxEntryAge, and
// then evicts oldest-written entries while the total size exceeds
// MaxTotalBytes. Returns the number of entries removed.
func (m *Manager) Housekeeping(ctx context.Context) int {
	entries, err := m.kv.ListPrefix(ctx, common.CacheKeyPrefix)
	if err != nil {
		m.log.Warn(ctx, "housekeeping scan failed", "error", err)
		return 0
	}

	now := m.now()
	removed := 0

	type survivor struct {
		key       string
		writtenAt time.Time
		size      int64
	}
	var kept []survivor
	var totalSize int64

	for key, raw := range entries {
		var e entry
		if err := json.Unmarshal(raw, &e); err != nil {
			// Unreadable entries are reclaimed too.
			if delErr := m.kv.Delete(ctx, key); delErr == nil {
				removed++
			}
			continue
		}

		stale := e.expired(now) ||
			(m.cfg.MaxEntryAge > 0 && now.Sub(e.WrittenAt) > m.cfg.MaxEntryAge)
		if stale {
			if err := m.kv.Delete(ctx, key); err != nil {
				m.log.Warn(ctx, "housekeeping delete failed", "key", key, "error", err)
				continue
			}
			removed++
			continue
		}

		kept = append(kept, survivor{key: key, writtenAt: e.WrittenAt, size: int64(len(raw))})
		totalSize += int64(len(raw))
	}

	if m.cfg.MaxTotalBytes > 0 && totalSize > m.cfg.MaxTotalBytes {
		sort.Slice(kept, func(i, j int) bool { return kept[i].writtenAt.Before(kept[j].writtenAt) })
		for _, s := range kept {
			if totalSize <= m.cfg.MaxTotalBytes {
				break
			}
			if err := m.kv.Delete(ctx, s.key); err != nil {
				m.log.Warn(ctx, "housekeeping eviction failed", "key", s.key, "error", err)
				continue
			}
			totalSize -= s.size
			removed++
		}
	}

	if removed > 0 {
		m.log.Debug(ctx, "housekeeping done", "removed", removed)
	}
	return removed
}

func (m *Manager) load(ctx context.Context, name string) (*entry, bool) {
	raw, err := m.kv.Get(ctx, cacheKey(name))
	if err != nil {
		m.log.Warn(ctx, "cache read failed", "name", name, "error", err)
		return nil, false
	}
	if raw == nil {
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		m.log.Warn(ctx, "cache entry unreadable", "name", name, "error", err)
		return nil, false
	}
	return &e, true
}

func (m *Manager) decode(ctx context.Context, name string, e *entry, dst any) bool {
	if err := json.Unmarshal(e.Data, dst); err != nil {
		m.log.Warn(ctx, "cached value does not match requested type", "name", name, "error", err)
		return false
	}
	return true
}
