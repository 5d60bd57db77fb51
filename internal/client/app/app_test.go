package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaconchurch/beacon/internal/client/config"
	"github.com/beaconchurch/beacon/internal/client/models"
	"github.com/beaconchurch/beacon/internal/logging"
)

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newContentServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	writeJSON := func(v any) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(v)
		}
	}
	mux.HandleFunc("/devotionals", writeJSON([]models.Devotional{{ID: 1, Title: "Morning Light"}}))
	mux.HandleFunc("/devotionals/today", writeJSON(models.Devotional{ID: 1, Title: "Morning Light"}))
	mux.HandleFunc("/video-sermons", writeJSON([]models.VideoSermon{{ID: 2}}))
	mux.HandleFunc("/audio-sermons", writeJSON([]models.AudioSermon{{ID: 3}}))
	mux.HandleFunc("/announcements", writeJSON([]models.Announcement{{ID: 4}}))
	mux.HandleFunc("/video-sermons/featured", writeJSON([]models.VideoSermon{{ID: 2}}))
	mux.HandleFunc("/audio-sermons/featured", writeJSON([]models.AudioSermon{{ID: 3}}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T, baseURL, dbPath string) *App {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.APIBaseURL = baseURL
	cfg.DatabasePath = dbPath

	a, err := New(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestApp_SyncPopulatesCache(t *testing.T) {
	ctx := context.Background()
	srv := newContentServer(t)
	a := newTestApp(t, srv.URL, filepath.Join(t.TempDir(), "beacon.db"))

	st := a.SyncNow(ctx)
	assert.Empty(t, st.LastError)
	require.NotNil(t, st.LastSyncAt)

	var devotionals []models.Devotional
	require.True(t, a.Cached(ctx, "devotionals", &devotionals))
	require.Len(t, devotionals, 1)
	assert.Equal(t, "Morning Light", devotionals[0].Title)

	var featured models.FeaturedContent
	require.True(t, a.Cached(ctx, "featured_content", &featured))
	assert.Len(t, featured.VideoSermons, 1)
	assert.Len(t, featured.AudioSermons, 1)
}

func TestApp_ToggleFavoriteNormalizesKind(t *testing.T) {
	ctx := context.Background()
	srv := newContentServer(t)
	a := newTestApp(t, srv.URL, filepath.Join(t.TempDir(), "beacon.db"))

	nowFav, err := a.ToggleFavorite(ctx, "video", 7)
	require.NoError(t, err)
	assert.True(t, nowFav)

	ud, err := a.UserData(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{7}, ud.Favorites.VideoSermons)

	_, err = a.ToggleFavorite(ctx, "podcast", 7)
	assert.Error(t, err)
}

func TestApp_RecordEventStampsDeviceID(t *testing.T) {
	ctx := context.Background()
	srv := newContentServer(t)
	a := newTestApp(t, srv.URL, filepath.Join(t.TempDir(), "beacon.db"))

	require.NoError(t, a.RecordEvent(ctx, "devotional", 1, "view", nil))
	assert.Equal(t, 1, a.PendingEvents())
}

func TestApp_UserDataSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	srv := newContentServer(t)
	dbPath := filepath.Join(t.TempDir(), "beacon.db")

	a := newTestApp(t, srv.URL, dbPath)
	_, err := a.ToggleFavorite(ctx, "devotionals", 5)
	require.NoError(t, err)
	ud, err := a.UserData(ctx)
	require.NoError(t, err)
	deviceID := ud.DeviceID
	require.NoError(t, a.Close())

	b := newTestApp(t, srv.URL, dbPath)
	ud2, err := b.UserData(ctx)
	require.NoError(t, err)
	assert.Equal(t, deviceID, ud2.DeviceID)
	assert.Equal(t, []int{5}, ud2.Favorites.Devotionals)
}

func TestApp_ClearCacheKeepsUserData(t *testing.T) {
	ctx := context.Background()
	srv := newContentServer(t)
	a := newTestApp(t, srv.URL, filepath.Join(t.TempDir(), "beacon.db"))

	a.SyncNow(ctx)
	_, err := a.ToggleFavorite(ctx, "audio", 9)
	require.NoError(t, err)

	a.ClearCache(ctx)

	var devotionals []models.Devotional
	assert.False(t, a.Cached(ctx, "devotionals", &devotionals))

	ud, err := a.UserData(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{9}, ud.Favorites.AudioSermons)
}
