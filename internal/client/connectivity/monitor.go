// Package connectivity tracks whether the remote is reachable. It owns a
// two-state flag (offline/online) refreshed by periodic probes and notifies
// subscribers on every transition.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/beaconchurch/beacon/internal/logging"
)

// Status is a point-in-time connectivity snapshot.
type Status struct {
	Online         bool
	ConnectionType string
}

// Prober answers whether the remote is currently reachable. The API client
// satisfies this with its health-check request.
type Prober interface {
	Ping(ctx context.Context) error
}

// Monitor polls a Prober and fans out online/offline edges to subscribers.
// The zero state is offline, so the first successful probe after startup is
// itself an edge.
type Monitor struct {
	prober   Prober
	interval time.Duration
	log      logging.Logger

	mu        sync.Mutex
	online    bool
	nextID    int
	listeners map[int]func(Status)
}

func NewMonitor(prober Prober, interval time.Duration, log logging.Logger) *Monitor {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Monitor{
		prober:    prober,
		interval:  interval,
		log:       log.With("component", "connectivity"),
		listeners: make(map[int]func(Status)),
	}
}

// Current returns the connectivity snapshot. Synchronous; no probe is made.
func (m *Monitor) Current() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return statusFor(m.online)
}

// Subscribe registers fn to be called on every online/offline transition
// and returns the matching unsubscribe function. Listeners are independent;
// no cross-listener ordering is guaranteed.
func (m *Monitor) Subscribe(fn func(Status)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// WaitUntilOnline blocks until the monitor observes an online state, the
// timeout elapses, or ctx is done. Returns true only in the first case.
func (m *Monitor) WaitUntilOnline(ctx context.Context, timeout time.Duration) bool {
	if m.Current().Online {
		return true
	}

	online := make(chan struct{}, 1)
	unsubscribe := m.Subscribe(func(st Status) {
		if st.Online {
			select {
			case online <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	// Re-check after subscribing; the edge may have fired in between.
	if m.Current().Online {
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-online:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// Run probes immediately and then on every tick until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := m.prober.Ping(pingCtx)
	cancel()

	m.setOnline(ctx, err == nil)
}

func (m *Monitor) setOnline(ctx context.Context, online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online

	fns := make([]func(Status), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	st := statusFor(online)
	m.log.Info(ctx, "connectivity changed", "online", online)
	for _, fn := range fns {
		fn(st)
	}
}

func statusFor(online bool) Status {
	if online {
		return Status{Online: true, ConnectionType: "internet"}
	}
	return Status{Online: false, ConnectionType: "none"}
}
