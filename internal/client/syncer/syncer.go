// Package syncer pulls the remote content collections into the local cache.
// A sync is best-effort and per-collection: one failed fetch records an
// error and moves on, it never aborts the run or wipes previously cached
// data for that collection.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/beaconchurch/beacon/internal/client/api"
	"github.com/beaconchurch/beacon/internal/client/cache"
	"github.com/beaconchurch/beacon/internal/client/connectivity"
	"github.com/beaconchurch/beacon/internal/client/userdata"
	"github.com/beaconchurch/beacon/internal/logging"
)

// Status is the transient sync state exposed to the UI. It is rebuilt in
// memory each run and never persisted.
type Status struct {
	IsOnline   bool
	IsSyncing  bool
	Progress   int // 0..100, percent of collections completed
	LastSyncAt *time.Time
	LastError  string
}

// ConnectivitySource is the slice of the connectivity monitor the
// orchestrator needs; split out so tests can drive edges directly.
type ConnectivitySource interface {
	Current() connectivity.Status
	Subscribe(fn func(connectivity.Status)) func()
}

// collection is one remotely fetched unit with its cache key and TTL.
type collection struct {
	name  string
	ttl   time.Duration
	fetch func(ctx context.Context) (any, error)
}

// Orchestrator runs at most one sync at a time over a fixed ordered list of
// collections.
type Orchestrator struct {
	api     api.Client
	cache   *cache.Manager
	users   *userdata.Store
	network ConnectivitySource
	log     logging.Logger
	now     func() time.Time

	mu         sync.Mutex
	syncing    bool
	progress   int
	lastSyncAt *time.Time
	lastError  string
	nextID     int
	listeners  map[int]func(Status)
}

func NewOrchestrator(apiClient api.Client, cacheManager *cache.Manager, users *userdata.Store, network ConnectivitySource, log logging.Logger) *Orchestrator {
	return &Orchestrator{
		api:       apiClient,
		cache:     cacheManager,
		users:     users,
		network:   network,
		log:       log.With("component", "syncer"),
		now:       time.Now,
		listeners: make(map[int]func(Status)),
	}
}

// collections returns the fixed fetch order. TTLs: 24h for general content,
// 1h for today's devotional, 6h for announcements.
func (o *Orchestrator) collections() []collection {
	return []collection{
		{name: "devotionals", ttl: 24 * time.Hour, fetch: func(ctx context.Context) (any, error) {
			return o.api.Devotionals(ctx)
		}},
		{name: "todays_devotional", ttl: time.Hour, fetch: func(ctx context.Context) (any, error) {
			return o.api.TodaysDevotional(ctx)
		}},
		{name: "video_sermons", ttl: 24 * time.Hour, fetch: func(ctx context.Context) (any, error) {
			return o.api.VideoSermons(ctx)
		}},
		{name: "audio_sermons", ttl: 24 * time.Hour, fetch: func(ctx context.Context) (any, error) {
			return o.api.AudioSermons(ctx)
		}},
		{name: "announcements", ttl: 6 * time.Hour, fetch: func(ctx context.Context) (any, error) {
			return o.api.Announcements(ctx)
		}},
		{name: "featured_content", ttl: 24 * time.Hour, fetch: func(ctx context.Context) (any, error) {
			return o.api.FeaturedContent(ctx)
		}},
	}
}

// SyncNow fetches every collection in order, caching each as soon as its
// fetch completes so partial progress is immediately visible to readers.
// If a sync is already in flight it returns the current status without
// starting a second one.
func (o *Orchestrator) SyncNow(ctx context.Context) Status {
	o.mu.Lock()
	if o.syncing {
		st := o.statusLocked()
		o.mu.Unlock()
		return st
	}
	o.syncing = true
	o.progress = 0
	o.lastError = ""
	o.mu.Unlock()
	o.notify()

	cols := o.collections()
	succeeded := 0

	for i, col := range cols {
		v, err := col.fetch(ctx)
		if err != nil {
			o.log.Warn(ctx, "collection fetch failed", "collection", col.name, "error", err)
			o.mu.Lock()
			o.lastError = fmt.Sprintf("%s: %v", col.name, err)
			o.mu.Unlock()
		} else {
			o.cache.Set(ctx, col.name, v, col.ttl)
			succeeded++
		}

		o.mu.Lock()
		o.progress = (i + 1) * 100 / len(cols)
		o.mu.Unlock()
		o.notify()
	}

	if succeeded > 0 {
		t := o.now()
		o.mu.Lock()
		o.lastSyncAt = &t
		o.mu.Unlock()
		if err := o.users.SetLastSync(ctx, t); err != nil {
			o.log.Warn(ctx, "failed to persist last sync time", "error", err)
		}
	}

	o.mu.Lock()
	o.syncing = false
	st := o.statusLocked()
	o.mu.Unlock()
	o.notify()

	o.log.Info(ctx, "sync finished", "succeeded", succeeded, "total", len(cols), "last_error", st.LastError)
	return st
}

// Status returns the current sync snapshot.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.statusLocked()
}

// Subscribe registers fn for status updates and returns an unsubscribe
// function.
func (o *Orchestrator) Subscribe(fn func(Status)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextID
	o.nextID++
	o.listeners[id] = fn

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.listeners, id)
	}
}

// StartAutoSync makes every offline→online edge trigger one sync. Returns
// the unsubscribe function.
func (o *Orchestrator) StartAutoSync(ctx context.Context) func() {
	return o.network.Subscribe(func(st connectivity.Status) {
		if !st.Online {
			return
		}
		go o.SyncNow(ctx)
	})
}

func (o *Orchestrator) statusLocked() Status {
	return Status{
		IsOnline:   o.network.Current().Online,
		IsSyncing:  o.syncing,
		Progress:   o.progress,
		LastSyncAt: o.lastSyncAt,
		LastError:  o.lastError,
	}
}

func (o *Orchestrator) notify() {
	o.mu.Lock()
	st := o.statusLocked()
	fns := make([]func(Status), 0, len(o.listeners))
	for _, fn := range o.listeners {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
