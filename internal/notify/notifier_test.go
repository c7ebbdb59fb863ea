package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/intellitrader/portal/internal/events"
	"github.com/intellitrader/portal/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

type recordingWriter struct {
	mu       sync.Mutex
	frames   chan Frame
	comments chan string
	failOn   int // fail the n-th event write, 0 never
	writes   int
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{frames: make(chan Frame, 32), comments: make(chan string, 32)}
}

func (w *recordingWriter) WriteEvent(data []byte) error {
	w.mu.Lock()
	w.writes++
	fail := w.failOn > 0 && w.writes == w.failOn
	w.mu.Unlock()
	if fail {
		return errors.New("broken pipe")
	}

	var f struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	var p events.Payload
	if len(f.Payload) > 0 {
		decoded, err := events.DecodePayload(events.Kind(f.Type), f.Payload)
		if err != nil {
			return err
		}
		p = decoded
	}
	w.frames <- Frame{Type: f.Type, Payload: p}
	return nil
}

func (w *recordingWriter) WriteComment(text string) error {
	w.comments <- text
	return nil
}

func (w *recordingWriter) next(t *testing.T) Frame {
	t.Helper()
	select {
	case f := <-w.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return Frame{}
	}
}

func newTestNotifier(t *testing.T, heartbeat time.Duration) (*Notifier, *events.Bus) {
	t.Helper()
	bus, err := events.NewBus(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	n, err := New(bus, Options{Heartbeat: heartbeat, Meter: noop.NewMeterProvider().Meter("test")})
	require.NoError(t, err)
	return n, bus
}

func totalSubscribers(bus *events.Bus) int {
	total := 0
	for _, k := range events.Kinds() {
		total += bus.SubscriberCount(k)
	}
	return total
}

func serve(ctx context.Context, n *Notifier, tenantID string, w Writer) <-chan error {
	done := make(chan error, 1)
	go func() { done <- n.Serve(ctx, tenantID, w) }()
	return done
}

// TestPurpose: Validates that a stream only receives its own tenant's events, in publish order.
// Scope: Unit Test
// Security: Cross-tenant event leakage
// Expected: The connected frame comes first, then only tenant-a events in the order published.
// Test Case ID: NOT-01
func TestNotifier_FiltersByTenantInOrder(t *testing.T) {
	n, bus := newTestNotifier(t, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := newRecordingWriter()
	done := serve(ctx, n, "tenant-a", w)

	assert.Equal(t, FrameConnected, w.next(t).Type)

	bus.Publish(events.AgentUpdate, events.AgentUpdated{TenantID: "tenant-b", AgentID: "x", Status: model.AgentRunning})
	bus.Publish(events.AgentUpdate, events.AgentUpdated{TenantID: "tenant-a", AgentID: "a1", Status: model.AgentStopped})
	bus.Publish(events.SecurityAlert, events.AlertChanged{TenantID: "tenant-a", AlertID: "s1", Severity: model.SeverityHigh, Status: model.AlertOpen})
	bus.Publish(events.TransportUpdate, events.TransportUpdated{TenantID: "tenant-b", TransportID: "t", Status: model.TransportActive})

	first := w.next(t)
	assert.Equal(t, string(events.AgentUpdate), first.Type)
	assert.Equal(t, "a1", first.Payload.(events.AgentUpdated).AgentID)

	second := w.next(t)
	assert.Equal(t, string(events.SecurityAlert), second.Type)
	assert.Equal(t, "tenant-a", second.Payload.Tenant())

	select {
	case f := <-w.frames:
		t.Fatalf("unexpected frame %+v", f)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	require.NoError(t, <-done)
}

// TestPurpose: Validates that closing a stream releases every subscription.
// Scope: Unit Test
// Expected: After the context is cancelled the bus has no subscribers and no connection is active.
// Test Case ID: NOT-02
func TestNotifier_TeardownReleasesSubscriptions(t *testing.T) {
	n, bus := newTestNotifier(t, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	w := newRecordingWriter()
	done := serve(ctx, n, "tenant-a", w)
	w.next(t)

	assert.Equal(t, len(events.Kinds()), totalSubscribers(bus))
	assert.EqualValues(t, 1, n.Active())

	cancel()
	require.NoError(t, <-done)

	assert.Zero(t, totalSubscribers(bus))
	assert.Zero(t, n.Active())
}

// TestPurpose: Validates that a failed write tears the stream down.
// Scope: Unit Test
// Expected: Serve returns the write error and leaves no subscribers behind.
// Test Case ID: NOT-03
func TestNotifier_WriteFailureTearsDown(t *testing.T) {
	n, bus := newTestNotifier(t, time.Hour)

	w := newRecordingWriter()
	w.failOn = 2
	done := serve(context.Background(), n, "tenant-a", w)
	w.next(t)

	bus.Publish(events.AgentUpdate, events.AgentUpdated{TenantID: "tenant-a", AgentID: "a1", Status: model.AgentRunning})

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close after write failure")
	}
	assert.Zero(t, totalSubscribers(bus))
}

// TestPurpose: Validates that a stream closed before it finished opening leaks nothing.
// Scope: Unit Test
// Expected: When the connected frame cannot be written, Serve returns and all subscriptions are released.
// Test Case ID: NOT-04
func TestNotifier_CloseBeforeOpen(t *testing.T) {
	n, bus := newTestNotifier(t, time.Hour)

	w := newRecordingWriter()
	w.failOn = 1
	err := n.Serve(context.Background(), "tenant-a", w)
	require.Error(t, err)

	assert.Zero(t, totalSubscribers(bus))
	assert.Zero(t, n.Active())

	// Publishing after teardown must not block or panic.
	assert.NotPanics(t, func() {
		bus.Publish(events.AgentUpdate, events.AgentUpdated{TenantID: "tenant-a"})
	})
}

// TestPurpose: Validates the heartbeat comment on idle streams.
// Scope: Unit Test
// Expected: An idle stream receives keep-alive comments at the heartbeat interval.
// Test Case ID: NOT-05
func TestNotifier_Heartbeat(t *testing.T) {
	n, _ := newTestNotifier(t, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := newRecordingWriter()
	done := serve(ctx, n, "tenant-a", w)
	w.next(t)

	select {
	case c := <-w.comments:
		assert.Equal(t, "keep-alive", c)
	case <-time.After(2 * time.Second):
		t.Fatal("no heartbeat")
	}

	cancel()
	<-done
}

func TestConnection_CloseIdempotent(t *testing.T) {
	bus, err := events.NewBus(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	c := &Connection{tenantID: "t1", queue: make(chan Frame, 1), done: make(chan struct{})}
	c.track(bus.Subscribe(events.CameraUpdate, c.filter(events.CameraUpdate)))
	c.setTicker(time.NewTicker(time.Hour))

	c.Close()
	c.Close()
	assert.Equal(t, StateClosed, c.State())
	assert.Zero(t, bus.SubscriberCount(events.CameraUpdate))

	// Tracking after close releases immediately.
	c.track(bus.Subscribe(events.CameraUpdate, c.filter(events.CameraUpdate)))
	assert.Zero(t, bus.SubscriberCount(events.CameraUpdate))
}

func TestConnection_FullBufferDrops(t *testing.T) {
	c := &Connection{tenantID: "t1", queue: make(chan Frame, 1), done: make(chan struct{})}
	h := c.filter(events.AgentUpdate)

	h(events.AgentUpdated{TenantID: "t1", AgentID: "a1"})
	h(events.AgentUpdated{TenantID: "t1", AgentID: "a2"})

	assert.Len(t, c.queue, 1)
	assert.EqualValues(t, 1, c.dropped.Load())
}
