package connectivity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaconchurch/beacon/internal/logging"
)

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeProber reports reachability from an atomic flag.
type fakeProber struct {
	reachable atomic.Bool
}

func (f *fakeProber) Ping(context.Context) error {
	if f.reachable.Load() {
		return nil
	}
	return errors.New("unreachable")
}

func TestProbe_EdgeTriggeredNotifications(t *testing.T) {
	p := &fakeProber{}
	m := NewMonitor(p, time.Second, discardLogger())
	ctx := context.Background()

	var edges []bool
	unsubscribe := m.Subscribe(func(st Status) {
		edges = append(edges, st.Online)
	})
	defer unsubscribe()

	// offline probes while already offline are not edges
	m.probe(ctx)
	m.probe(ctx)
	assert.Empty(t, edges)

	p.reachable.Store(true)
	m.probe(ctx)
	m.probe(ctx) // still online: no second notification

	p.reachable.Store(false)
	m.probe(ctx)

	assert.Equal(t, []bool{true, false}, edges)
}

func TestCurrent_Snapshot(t *testing.T) {
	p := &fakeProber{}
	m := NewMonitor(p, time.Second, discardLogger())
	ctx := context.Background()

	st := m.Current()
	assert.False(t, st.Online)
	assert.Equal(t, "none", st.ConnectionType)

	p.reachable.Store(true)
	m.probe(ctx)

	st = m.Current()
	assert.True(t, st.Online)
	assert.Equal(t, "internet", st.ConnectionType)
}

func TestUnsubscribe_StopsNotifications(t *testing.T) {
	p := &fakeProber{}
	m := NewMonitor(p, time.Second, discardLogger())
	ctx := context.Background()

	var count atomic.Int32
	unsubscribe := m.Subscribe(func(Status) { count.Add(1) })

	p.reachable.Store(true)
	m.probe(ctx)
	require.EqualValues(t, 1, count.Load())

	unsubscribe()

	p.reachable.Store(false)
	m.probe(ctx)
	assert.EqualValues(t, 1, count.Load())
}

func TestWaitUntilOnline_AlreadyOnline(t *testing.T) {
	p := &fakeProber{}
	p.reachable.Store(true)
	m := NewMonitor(p, time.Second, discardLogger())
	m.probe(context.Background())

	assert.True(t, m.WaitUntilOnline(context.Background(), 10*time.Millisecond))
}

func TestWaitUntilOnline_TimesOut(t *testing.T) {
	p := &fakeProber{}
	m := NewMonitor(p, time.Second, discardLogger())

	start := time.Now()
	ok := m.WaitUntilOnline(context.Background(), 50*time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestWaitUntilOnline_ResolvesOnEdge(t *testing.T) {
	p := &fakeProber{}
	m := NewMonitor(p, time.Second, discardLogger())
	ctx := context.Background()

	done := make(chan bool, 1)
	go func() {
		done <- m.WaitUntilOnline(ctx, 5*time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	p.reachable.Store(true)
	m.probe(ctx)

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("WaitUntilOnline did not resolve after the online edge")
	}
}
