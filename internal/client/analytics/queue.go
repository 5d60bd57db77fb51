// Package analytics buffers interaction events locally and ships them to
// the remote in ordered batches. Durability comes first: every recorded
// event is persisted before any network attempt, so nothing is lost if the
// process dies while offline.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/beaconchurch/beacon/internal/client/api"
	"github.com/beaconchurch/beacon/internal/client/connectivity"
	"github.com/beaconchurch/beacon/internal/client/models"
	"github.com/beaconchurch/beacon/internal/client/storage"
	"github.com/beaconchurch/beacon/internal/common"
	"github.com/beaconchurch/beacon/internal/logging"
)

// ConnectivitySource is the slice of the connectivity monitor the queue
// needs.
type ConnectivitySource interface {
	Current() connectivity.Status
	Subscribe(fn func(connectivity.Status)) func()
}

// Config tunes queue behavior. Zero values fall back to defaults.
type Config struct {
	BatchSize     int           // events per POST, default 50
	FlushInterval time.Duration // periodic flush cadence while online, default 5m
	Platform      string        // reported in session metadata
	AppVersion    string
}

// Queue is the persisted pending-event queue.
type Queue struct {
	kv      storage.Repository
	api     api.Client
	network ConnectivitySource
	log     logging.Logger
	cfg     Config
	now     func() time.Time

	mu       sync.Mutex
	events   []models.PendingEvent
	flushing bool
}

func NewQueue(kv storage.Repository, apiClient api.Client, network ConnectivitySource, log logging.Logger, cfg Config) *Queue {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Minute
	}
	return &Queue{
		kv:      kv,
		api:     apiClient,
		network: network,
		log:     log.With("component", "analytics"),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Load restores the persisted queue. Call once at startup, before Record.
func (q *Queue) Load(ctx context.Context) error {
	raw, err := q.kv.Get(ctx, common.KeyPendingAnalytics)
	if err != nil {
		return fmt.Errorf("failed to read pending analytics: %w", err)
	}
	if raw == nil {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if err := json.Unmarshal(raw, &q.events); err != nil {
		// A corrupt queue cannot be replayed; drop it rather than wedge
		// every future flush.
		q.log.Error(ctx, "pending analytics corrupt, dropping", "error", err)
		q.events = nil
	}
	return nil
}

// Record appends the event and persists the queue synchronously, then kicks
// off a background flush if currently online. Flush failures are invisible
// to the caller.
func (q *Queue) Record(ctx context.Context, ev models.PendingEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = q.now()
	}

	q.mu.Lock()
	q.events = append(q.events, ev)
	err := q.persistLocked(ctx)
	q.mu.Unlock()
	if err != nil {
		return err
	}

	if q.network.Current().Online {
		go func(ctx context.Context) {
			if err := q.Flush(ctx); err != nil {
				q.log.Debug(ctx, "background flush failed", "error", err)
			}
		}(context.WithoutCancel(ctx))
	}
	return nil
}

// Flush ships the queue in fixed-size batches, in order. A batch is removed
// from the queue (and the shrunk queue persisted) only after the remote
// accepted it; the first failed batch stops the run so ordering is
// preserved for the next attempt. No-op when offline or empty.
func (q *Queue) Flush(ctx context.Context) error {
	if !q.network.Current().Online {
		return nil
	}

	q.mu.Lock()
	if q.flushing {
		q.mu.Unlock()
		return nil
	}
	q.flushing = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.flushing = false
		q.mu.Unlock()
	}()

	for {
		q.mu.Lock()
		if len(q.events) == 0 {
			q.mu.Unlock()
			return nil
		}
		n := min(q.cfg.BatchSize, len(q.events))
		batch := make([]models.PendingEvent, n)
		copy(batch, q.events[:n])
		q.mu.Unlock()

		if err := q.api.SendAnalyticsBatch(ctx, batch); err != nil {
			q.log.Warn(ctx, "analytics batch rejected, keeping queue", "batch_size", n, "error", err)
			return err
		}

		q.mu.Lock()
		q.events = q.events[n:]
		err := q.persistLocked(ctx)
		q.mu.Unlock()
		if err != nil {
			return err
		}
		q.log.Debug(ctx, "analytics batch sent", "batch_size", n)
	}
}

// Pending returns the number of queued events.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Run flushes on every offline→online edge and on a periodic timer while
// online, until ctx is done.
func (q *Queue) Run(ctx context.Context) {
	unsubscribe := q.network.Subscribe(func(st connectivity.Status) {
		if !st.Online {
			return
		}
		go func() {
			if err := q.Flush(ctx); err != nil {
				q.log.Debug(ctx, "edge-triggered flush failed", "error", err)
			}
		}()
	})
	defer unsubscribe()

	ticker := time.NewTicker(q.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if q.network.Current().Online {
				if err := q.Flush(ctx); err != nil {
					q.log.Debug(ctx, "periodic flush failed", "error", err)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// StartSession bumps the persisted session counter and reports the session
// to the remote, best-effort.
func (q *Queue) StartSession(ctx context.Context, deviceID string) error {
	session := models.SessionData{
		DeviceID:   deviceID,
		Platform:   q.cfg.Platform,
		AppVersion: q.cfg.AppVersion,
	}

	raw, err := q.kv.Get(ctx, common.KeySessionData)
	if err != nil {
		return fmt.Errorf("failed to read session data: %w", err)
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &session); err != nil {
			q.log.Warn(ctx, "session data corrupt, resetting", "error", err)
		}
		session.DeviceID = deviceID
		session.Platform = q.cfg.Platform
		session.AppVersion = q.cfg.AppVersion
	}

	session.SessionCount++
	session.LastSessionAt = q.now()

	data, err := json.Marshal(&session)
	if err != nil {
		return fmt.Errorf("failed to serialize session data: %w", err)
	}
	if err := q.kv.Set(ctx, common.KeySessionData, data); err != nil {
		return fmt.Errorf("failed to persist session data: %w", err)
	}

	if q.network.Current().Online {
		if err := q.api.SendSession(ctx, session); err != nil {
			q.log.Debug(ctx, "session report failed", "error", err)
		}
	}
	return nil
}

func (q *Queue) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(q.events)
	if err != nil {
		return fmt.Errorf("failed to serialize pending analytics: %w", err)
	}
	if err := q.kv.Set(ctx, common.KeyPendingAnalytics, data); err != nil {
		return fmt.Errorf("failed to persist pending analytics: %w", err)
	}
	return nil
}
