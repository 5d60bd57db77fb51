package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestInitDatabase_AppliesMigrations(t *testing.T) {
	ctx := context.Background()

	db, err := InitDatabase(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// kv table must exist after migrations
	r := NewSQLiteRepository(db)
	require.NoError(t, r.Set(ctx, "probe", []byte("ok")))

	got, err := r.Get(ctx, "probe")
	require.NoError(t, err)
	require.Equal(t, []byte("ok"), got)
}
