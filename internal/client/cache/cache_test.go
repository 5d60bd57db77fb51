package cache

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaconchurch/beacon/internal/client/storage"
	"github.com/beaconchurch/beacon/internal/logging"

	_ "modernc.org/sqlite"
)

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func setupKV(t *testing.T) storage.Repository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE kv (key TEXT PRIMARY KEY, value BLOB NOT NULL);`)
	require.NoError(t, err)

	return storage.NewSQLiteRepository(db)
}

func newTestManager(t *testing.T, cfg Config) (*Manager, *time.Time) {
	t.Helper()
	m := NewManager(setupKV(t), discardLogger(), cfg)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestGet_WithinTTLReturnsValue(t *testing.T) {
	m, now := newTestManager(t, Config{})
	ctx := context.Background()

	m.Set(ctx, "devotionals", []string{"a", "b"}, time.Hour)

	*now = now.Add(59 * time.Minute)

	var got []string
	require.True(t, m.Get(ctx, "devotionals", &got))
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestGet_PastTTLReturnsMiss(t *testing.T) {
	m, now := newTestManager(t, Config{})
	ctx := context.Background()

	m.Set(ctx, "devotionals", []string{"a"}, time.Hour)

	*now = now.Add(time.Hour + time.Second)

	var got []string
	assert.False(t, m.Get(ctx, "devotionals", &got))
}

func TestGet_NoTTLNeverExpires(t *testing.T) {
	m, now := newTestManager(t, Config{})
	ctx := context.Background()

	m.Set(ctx, "k", "v", 0)

	*now = now.Add(1000 * time.Hour)

	var got string
	require.True(t, m.Get(ctx, "k", &got))
	assert.Equal(t, "v", got)
}

func TestSet_OverwriteReplacesValueAndExpiry(t *testing.T) {
	m, now := newTestManager(t, Config{})
	ctx := context.Background()

	m.Set(ctx, "k", "v1", time.Minute)
	m.Set(ctx, "k", "v2", time.Hour)

	// the first write's expiry must not apply anymore
	*now = now.Add(30 * time.Minute)

	var got string
	require.True(t, m.Get(ctx, "k", &got))
	assert.Equal(t, "v2", got)
}

func TestGetStale_ReturnsExpiredValue(t *testing.T) {
	m, now := newTestManager(t, Config{})
	ctx := context.Background()

	m.Set(ctx, "k", "v", time.Minute)
	*now = now.Add(time.Hour)

	// allow-stale read first: a strict Get would schedule lazy eviction
	var got string
	require.True(t, m.GetStale(ctx, "k", &got))
	assert.Equal(t, "v", got)

	assert.False(t, m.Get(ctx, "k", &got))
}

func TestClear_LeavesNonCacheKeys(t *testing.T) {
	kv := setupKV(t)
	m := NewManager(kv, discardLogger(), Config{})
	ctx := context.Background()

	m.Set(ctx, "a", 1, 0)
	require.NoError(t, kv.Set(ctx, "beacon_user_data", []byte(`{}`)))

	m.Clear(ctx)

	var got int
	assert.False(t, m.Get(ctx, "a", &got))

	doc, err := kv.Get(ctx, "beacon_user_data")
	require.NoError(t, err)
	assert.NotNil(t, doc)
}

func TestHousekeeping_RemovesExpiredAndOverAge(t *testing.T) {
	m, now := newTestManager(t, Config{MaxEntryAge: 24 * time.Hour})
	ctx := context.Background()

	m.Set(ctx, "expired", 1, time.Minute)
	m.Set(ctx, "fresh", 2, 48*time.Hour)
	m.Set(ctx, "no_ttl", 3, 0)

	*now = now.Add(25 * time.Hour)

	// "expired" is past TTL, "no_ttl" is past the global max-age ceiling,
	// "fresh" still has TTL but is also past the ceiling.
	removed := m.Housekeeping(ctx)
	assert.Equal(t, 3, removed)
}

func TestHousekeeping_SizeEvictionDropsOldestFirst(t *testing.T) {
	// cap fits one entry but not two; the oldest-written one must go
	m, now := newTestManager(t, Config{MaxTotalBytes: 100})
	ctx := context.Background()

	m.Set(ctx, "old", "aaaa", 0)
	*now = now.Add(time.Minute)
	m.Set(ctx, "new", "bbbb", 0)

	m.Housekeeping(ctx)

	var got string
	assert.False(t, m.Get(ctx, "old", &got))
	require.True(t, m.Get(ctx, "new", &got))
	assert.Equal(t, "bbbb", got)
}

func TestSizeBytes_SumsEntries(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	ctx := context.Background()

	assert.EqualValues(t, 0, m.SizeBytes(ctx))

	m.Set(ctx, "a", "xxxx", 0)
	m.Set(ctx, "b", "yyyy", 0)

	assert.Greater(t, m.SizeBytes(ctx), int64(0))
}

// failingKV returns an error from every method; the cache must treat that
// as a miss and never panic or propagate.
type failingKV struct{}

var errBroken = errors.New("disk on fire")

func (failingKV) Get(context.Context, string) ([]byte, error)         { return nil, errBroken }
func (failingKV) Set(context.Context, string, []byte) error           { return errBroken }
func (failingKV) Delete(context.Context, string) error                { return errBroken }
func (failingKV) List(context.Context) (map[string][]byte, error)     { return nil, errBroken }
func (failingKV) ListPrefix(context.Context, string) (map[string][]byte, error) {
	return nil, errBroken
}
func (failingKV) DeletePrefix(context.Context, string) error { return errBroken }
func (failingKV) Clear(context.Context) error                { return errBroken }

func TestStorageFailuresAreSwallowed(t *testing.T) {
	m := NewManager(failingKV{}, discardLogger(), Config{})
	ctx := context.Background()

	m.Set(ctx, "k", "v", time.Minute)

	var got string
	assert.False(t, m.Get(ctx, "k", &got))
	assert.False(t, m.GetStale(ctx, "k", &got))
	m.Delete(ctx, "k")
	m.Clear(ctx)
	assert.EqualValues(t, 0, m.SizeBytes(ctx))
	assert.Equal(t, 0, m.Housekeeping(ctx))
}
