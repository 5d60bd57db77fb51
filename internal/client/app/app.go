// Package app is the composition root of the Beacon client core. It wires
// storage, cache, user data, connectivity, sync and analytics into
// explicitly constructed instances and exposes the surface the UI layer
// consumes. Nothing in here is a process-wide singleton; tests build as
// many independent Apps as they like.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"time"

	"github.com/beaconchurch/beacon/internal/client/analytics"
	"github.com/beaconchurch/beacon/internal/client/api"
	"github.com/beaconchurch/beacon/internal/client/cache"
	"github.com/beaconchurch/beacon/internal/client/config"
	"github.com/beaconchurch/beacon/internal/client/connectivity"
	"github.com/beaconchurch/beacon/internal/client/models"
	"github.com/beaconchurch/beacon/internal/client/storage"
	"github.com/beaconchurch/beacon/internal/client/syncer"
	"github.com/beaconchurch/beacon/internal/client/userdata"
	"github.com/beaconchurch/beacon/internal/logging"

	_ "modernc.org/sqlite"
)

// Version is reported in analytics session metadata.
const Version = "1.0.0"

// housekeepingInterval is how often expired cache entries are swept.
const housekeepingInterval = time.Hour

type App struct {
	cfg *config.Config
	log logging.Logger

	db        *sql.DB
	kv        storage.Repository
	cache     *cache.Manager
	users     *userdata.Store
	api       api.Client
	monitor   *connectivity.Monitor
	syncer    *syncer.Orchestrator
	analytics *analytics.Queue
}

// New opens the local database and wires all components. The returned App
// is passive until Run is called; direct operations (favorites, cache
// reads, manual sync) work either way.
func New(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	db, err := storage.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize local storage: %w", err)
	}

	kv := storage.NewSQLiteRepository(db)
	cacheManager := cache.NewManager(kv, log, cache.Config{
		MaxEntryAge:   cfg.CacheMaxEntryAge,
		MaxTotalBytes: cfg.CacheMaxBytes,
	})
	users := userdata.NewStore(kv, log)
	apiClient := api.NewHTTPClient(cfg.APIBaseURL, log)
	monitor := connectivity.NewMonitor(apiClient, cfg.OnlineCheckInterval, log)
	orchestrator := syncer.NewOrchestrator(apiClient, cacheManager, users, monitor, log)
	queue := analytics.NewQueue(kv, apiClient, monitor, log, analytics.Config{
		BatchSize:     cfg.AnalyticsBatchSize,
		FlushInterval: cfg.AnalyticsFlushInterval,
		Platform:      runtime.GOOS,
		AppVersion:    Version,
	})

	if err := queue.Load(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to restore analytics queue: %w", err)
	}

	return &App{
		cfg:       cfg,
		log:       log,
		db:        db,
		kv:        kv,
		cache:     cacheManager,
		users:     users,
		api:       apiClient,
		monitor:   monitor,
		syncer:    orchestrator,
		analytics: queue,
	}, nil
}

// Run starts the background machinery: the connectivity watcher, the
// auto-sync trigger, the analytics flusher and periodic cache housekeeping.
// It blocks until ctx is done.
func (a *App) Run(ctx context.Context) {
	stopAutoSync := a.syncer.StartAutoSync(ctx)
	defer stopAutoSync()

	go a.monitor.Run(ctx)
	go a.analytics.Run(ctx)

	if id, err := a.users.DeviceID(ctx); err == nil {
		if err := a.analytics.StartSession(ctx, id); err != nil {
			a.log.Warn(ctx, "session start failed", "error", err)
		}
	} else {
		a.log.Warn(ctx, "device id unavailable", "error", err)
	}

	ticker := time.NewTicker(housekeepingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.cache.Housekeeping(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Close releases the local database.
func (a *App) Close() error {
	return a.db.Close()
}

// UserData returns the current user document.
func (a *App) UserData(ctx context.Context) (*models.UserData, error) {
	return a.users.Get(ctx)
}

// ToggleFavorite flips membership for the given content kind and id. The
// kind accepts historical aliases ("video", "video_sermon", ...); this is
// the single place they are normalized.
func (a *App) ToggleFavorite(ctx context.Context, kind string, id int) (bool, error) {
	k, err := models.ParseFavoriteKind(kind)
	if err != nil {
		return false, err
	}
	return a.users.ToggleFavorite(ctx, k, id)
}

// MarkRead records a devotional as read and updates the reading streak.
func (a *App) MarkRead(ctx context.Context, id int) error {
	return a.users.MarkDevotionalRead(ctx, id)
}

func (a *App) AddDownload(ctx context.Context, rec models.DownloadRecord) error {
	return a.users.AddDownload(ctx, rec)
}

func (a *App) RemoveDownload(ctx context.Context, sermonID int) error {
	return a.users.RemoveDownload(ctx, sermonID)
}

func (a *App) UpdateSettings(ctx context.Context, patch models.SettingsPatch) error {
	return a.users.UpdateSettings(ctx, patch)
}

// Cached reads a fresh cached collection into dst; false on miss/expired.
func (a *App) Cached(ctx context.Context, name string, dst any) bool {
	return a.cache.Get(ctx, name, dst)
}

// CachedStale reads a cached collection even past its expiry. Screens that
// prefer stale content over nothing opt in explicitly here.
func (a *App) CachedStale(ctx context.Context, name string, dst any) bool {
	return a.cache.GetStale(ctx, name, dst)
}

// SyncNow triggers a sync (or reports the one already running).
func (a *App) SyncNow(ctx context.Context) syncer.Status {
	return a.syncer.SyncNow(ctx)
}

// SyncStatus returns the current sync snapshot.
func (a *App) SyncStatus() syncer.Status {
	return a.syncer.Status()
}

// Connectivity returns the current connectivity snapshot.
func (a *App) Connectivity() connectivity.Status {
	return a.monitor.Current()
}

func (a *App) SubscribeConnectivity(fn func(connectivity.Status)) func() {
	return a.monitor.Subscribe(fn)
}

func (a *App) SubscribeSyncStatus(fn func(syncer.Status)) func() {
	return a.syncer.Subscribe(fn)
}

// RecordEvent tracks one interaction. The event is stamped with the device
// id and buffered durably; shipping happens in the background.
func (a *App) RecordEvent(ctx context.Context, contentType string, contentID int, interactionType string, metadata map[string]any) error {
	id, err := a.users.DeviceID(ctx)
	if err != nil {
		return err
	}
	return a.analytics.Record(ctx, models.PendingEvent{
		DeviceID:        id,
		ContentType:     contentType,
		ContentID:       contentID,
		InteractionType: interactionType,
		Metadata:        metadata,
	})
}

// FlushEvents pushes pending analytics now, if online.
func (a *App) FlushEvents(ctx context.Context) error {
	return a.analytics.Flush(ctx)
}

// PendingEvents reports the analytics backlog size.
func (a *App) PendingEvents() int {
	return a.analytics.Pending()
}

// CacheSizeBytes reports the serialized size of all cached collections.
func (a *App) CacheSizeBytes(ctx context.Context) int64 {
	return a.cache.SizeBytes(ctx)
}

// ClearCache drops every cached collection, leaving user data intact.
func (a *App) ClearCache(ctx context.Context) {
	a.cache.Clear(ctx)
}

// ResetUserData restores the user document to defaults, keeping the device
// id.
func (a *App) ResetUserData(ctx context.Context) error {
	return a.users.ClearAll(ctx)
}
