// Copyright 2026 The Intellitrader Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package notify streams tenant-scoped bus events to long-lived client
// connections.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/intellitrader/portal/internal/events"
	"github.com/intellitrader/portal/internal/observability/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultHeartbeat = 25 * time.Second
	DefaultBuffer    = 64

	// FrameConnected is the type of the acknowledgment sent once subscribed.
	FrameConnected = "connected"
)

// Writer is the push transport of one connection. Each call must reach the
// client (or fail) before returning.
type Writer interface {
	WriteEvent(data []byte) error
	WriteComment(text string) error
}

// Frame is the JSON body of one pushed event.
type Frame struct {
	Type    string         `json:"type"`
	Payload events.Payload `json:"payload,omitempty"`
}

// Options configures a Notifier.
type Options struct {
	Heartbeat time.Duration
	Buffer    int
	Meter     metric.Meter
	Logger    *slog.Logger
}

// Notifier serves streaming connections.
type Notifier struct {
	bus       events.Subscriber
	heartbeat time.Duration
	buffer    int
	log       *slog.Logger

	active    atomic.Int64
	openGauge metric.Int64UpDownCounter
}

// New creates a notifier subscribing on bus.
func New(bus events.Subscriber, opts Options) (*Notifier, error) {
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = DefaultHeartbeat
	}
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	if opts.Meter == nil {
		opts.Meter = otel.Meter("github.com/intellitrader/portal/internal/notify")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	gauge, err := opts.Meter.Int64UpDownCounter("sse_connections_open",
		metric.WithDescription("Open event stream connections"))
	if err != nil {
		return nil, fmt.Errorf("failed to create connection gauge: %w", err)
	}

	return &Notifier{
		bus:       bus,
		heartbeat: opts.Heartbeat,
		buffer:    opts.Buffer,
		log:       opts.Logger.With(logger.Component("notify")),
		openGauge: gauge,
	}, nil
}

// Active returns the number of connections currently being served.
func (n *Notifier) Active() int64 {
	return n.active.Load()
}

// Serve streams events for tenantID to w until ctx is done or a write fails.
// Every subscription and timer it creates is released before it returns,
// however it exits.
func (n *Notifier) Serve(ctx context.Context, tenantID string, w Writer) error {
	c := &Connection{
		tenantID: tenantID,
		queue:    make(chan Frame, n.buffer),
		done:     make(chan struct{}),
	}

	n.active.Add(1)
	n.openGauge.Add(ctx, 1)
	defer func() {
		c.Close()
		if dropped := c.dropped.Load(); dropped > 0 {
			n.log.Warn("stream dropped events for slow client",
				logger.TenantID(tenantID),
				slog.Int64("dropped", dropped),
			)
		}
		n.active.Add(-1)
		n.openGauge.Add(context.WithoutCancel(ctx), -1)
	}()

	for _, kind := range events.Kinds() {
		c.track(n.bus.Subscribe(kind, c.filter(kind)))
	}

	heartbeat := time.NewTicker(n.heartbeat)
	c.setTicker(heartbeat)

	if err := writeFrame(w, Frame{Type: FrameConnected}); err != nil {
		return err
	}
	c.state.Store(int32(StateOpen))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.done:
			return nil
		case <-heartbeat.C:
			if err := w.WriteComment("keep-alive"); err != nil {
				return err
			}
		case f := <-c.queue:
			if err := writeFrame(w, f); err != nil {
				return err
			}
		}
	}
}

func writeFrame(w Writer, f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	return w.WriteEvent(data)
}

// State is the lifecycle stage of a connection.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

// Connection is the per-client state of one stream.
type Connection struct {
	tenantID string
	queue    chan Frame
	done     chan struct{}
	dropped  atomic.Int64
	state    atomic.Int32

	mu     sync.Mutex
	subs   []*events.Subscription
	ticker *time.Ticker
	closed bool
}

// State returns the current lifecycle stage.
func (c *Connection) State() State {
	return State(c.state.Load())
}

// filter returns a bus handler that forwards only this tenant's events.
// It never blocks the publisher: when the buffer is full the event is
// dropped.
func (c *Connection) filter(kind events.Kind) events.Handler {
	return func(p events.Payload) {
		if p.Tenant() != c.tenantID {
			return
		}
		select {
		case <-c.done:
		case c.queue <- Frame{Type: string(kind), Payload: p}:
		default:
			c.dropped.Add(1)
		}
	}
}

func (c *Connection) track(s *events.Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		s.Close()
		return
	}
	c.subs = append(c.subs, s)
}

func (c *Connection) setTicker(t *time.Ticker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		t.Stop()
		return
	}
	c.ticker = t
}

// Close unsubscribes every handler and stops the heartbeat. It is idempotent
// and safe at any stage of setup.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.state.Store(int32(StateClosed))
	close(c.done)

	for _, s := range c.subs {
		s.Close()
	}
	c.subs = nil
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
}
