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

// Package events is the in-process publish/subscribe bus for state change
// notifications.
//
// Delivery is synchronous, at most once and limited to subscribers registered
// when Publish is called. A Bus is created once at startup and handed to
// every component that publishes or subscribes.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/intellitrader/portal/internal/observability/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Handler receives published payloads. It runs on the publisher's goroutine
// and must not block.
type Handler func(Payload)

// Publisher publishes events.
type Publisher interface {
	Publish(kind Kind, payload Payload)
}

// Subscriber registers handlers.
type Subscriber interface {
	Subscribe(kind Kind, h Handler) *Subscription
}

// Subscription is one registered handler. Closing it is idempotent and safe
// during a publish.
type Subscription struct {
	bus  *Bus
	kind Kind
	id   uint64
	once sync.Once
}

// Kind returns the subscribed kind.
func (s *Subscription) Kind() Kind {
	return s.kind
}

// Close removes the handler from the bus.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.bus.remove(s.kind, s.id)
	})
}

type entry struct {
	id      uint64
	handler Handler
}

// Bus fans payloads out to subscribers by kind.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Kind][]entry

	publications metric.Int64Counter
}

// NewBus creates a bus. A nil meter uses the global meter provider.
func NewBus(meter metric.Meter) (*Bus, error) {
	if meter == nil {
		meter = otel.Meter("github.com/intellitrader/portal/internal/events")
	}
	publications, err := meter.Int64Counter("event_publications_total",
		metric.WithDescription("Events published by kind"))
	if err != nil {
		return nil, fmt.Errorf("failed to create publication counter: %w", err)
	}
	return &Bus{
		subs:         make(map[Kind][]entry),
		publications: publications,
	}, nil
}

// Subscribe registers h for kind. Registering the same function under
// several kinds yields independent subscriptions.
func (b *Bus) Subscribe(kind Kind, h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subs[kind] = append(b.subs[kind], entry{id: b.nextID, handler: h})
	return &Subscription{bus: b, kind: kind, id: b.nextID}
}

// Unsubscribe removes a subscription. Equivalent to s.Close.
func (b *Bus) Unsubscribe(s *Subscription) {
	s.Close()
}

func (b *Bus) remove(kind Kind, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[kind]
	for i, e := range list {
		if e.id == id {
			// Copy so a publish iterating the old slice is unaffected.
			next := make([]entry, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			if len(next) == 0 {
				delete(b.subs, kind)
			} else {
				b.subs[kind] = next
			}
			return
		}
	}
}

// Publish delivers payload to every handler registered for kind, in
// registration order, before returning. Handlers run outside the registry
// lock, so they may subscribe or unsubscribe.
func (b *Bus) Publish(kind Kind, payload Payload) {
	b.mu.RLock()
	list := b.subs[kind]
	b.mu.RUnlock()

	b.publications.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", string(kind))))

	for _, e := range list {
		b.deliver(kind, e.handler, payload)
	}
}

func (b *Bus) deliver(kind Kind, h Handler, payload Payload) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked",
				logger.Component("events"),
				slog.String("event_kind", string(kind)),
				slog.Any("panic", r),
			)
		}
	}()
	h(payload)
}

// SubscriberCount returns the number of handlers registered for kind.
func (b *Bus) SubscriberCount(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}
