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

// Package store keeps the portal document and serializes every write to it.
//
// Reads return a private copy of the current document. Writes go through a
// single FIFO queue: a mutation loads the latest persisted document, applies
// the caller's function and saves the result before the next one starts.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/intellitrader/portal/internal/model"
	"github.com/intellitrader/portal/internal/observability/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotExist is returned by a Backend when no document has been written yet.
var ErrNotExist = errors.New("store: document does not exist")

// Backend persists the whole document. Implementations need not be safe for
// concurrent Save calls; the Store never issues them.
type Backend interface {
	// Load returns the persisted document or ErrNotExist.
	Load(ctx context.Context) (*model.Database, error)
	// Save replaces the persisted document. A reader must never observe a
	// partially written document.
	Save(ctx context.Context, db *model.Database) error
}

// SeedFunc builds the initial document written on first access.
type SeedFunc func() (*model.Database, error)

// MutateFunc changes the document in place. Returning an error aborts the
// mutation and nothing is saved.
type MutateFunc func(db *model.Database) error

// Options configures a Store. Zero values fall back to global providers.
type Options struct {
	Seed   SeedFunc
	Logger *slog.Logger
	Tracer trace.Tracer
	Meter  metric.Meter
}

// Store is the single owner of a Backend.
type Store struct {
	backend Backend
	queue   *Queue
	seed    SeedFunc
	log     *slog.Logger
	tracer  trace.Tracer

	mutations metric.Int64Counter
	duration  metric.Float64Histogram
}

// New creates a store over backend.
func New(backend Backend, opts Options) (*Store, error) {
	if opts.Seed == nil {
		opts.Seed = func() (*model.Database, error) { return Seed(nil, time.Now()) }
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("github.com/intellitrader/portal/internal/store")
	}
	if opts.Meter == nil {
		opts.Meter = otel.Meter("github.com/intellitrader/portal/internal/store")
	}

	mutations, err := opts.Meter.Int64Counter("store_mutations_total",
		metric.WithDescription("Document mutations by result"))
	if err != nil {
		return nil, fmt.Errorf("failed to create mutation counter: %w", err)
	}
	duration, err := opts.Meter.Float64Histogram("store_mutation_duration_ms",
		metric.WithDescription("Time from dequeue to save"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("failed to create mutation histogram: %w", err)
	}

	return &Store{
		backend:   backend,
		queue:     NewQueue(),
		seed:      opts.Seed,
		log:       opts.Logger.With(logger.Component("store")),
		tracer:    opts.Tracer,
		mutations: mutations,
		duration:  duration,
	}, nil
}

// Close waits for queued mutations to finish. Further calls fail with
// ErrQueueClosed.
func (s *Store) Close() {
	s.queue.Close()
}

// Snapshot returns the current document. The first call on an empty backend
// seeds it; a document in an older shape is upgraded and saved. Both writes
// go through the mutation queue.
//
// A Snapshot racing an in-flight Mutate may observe either state.
func (s *Store) Snapshot(ctx context.Context) (*model.Database, error) {
	db, err := s.backend.Load(ctx)
	switch {
	case errors.Is(err, ErrNotExist):
		return s.initialize(ctx)
	case err != nil:
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	if db.Normalize() {
		return s.initialize(ctx)
	}
	return db, nil
}

// initialize seeds or upgrades the document inside the queue. It re-checks
// the backend there, so racing first readers seed at most once.
func (s *Store) initialize(ctx context.Context) (*model.Database, error) {
	var out *model.Database
	err := s.queue.Do(ctx, func(ctx context.Context) error {
		db, err := s.loadReady(ctx)
		if err != nil {
			return err
		}
		out = db
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// loadReady loads the document, seeding or upgrading it first if needed.
// Must only run on the queue worker.
func (s *Store) loadReady(ctx context.Context) (*model.Database, error) {
	db, err := s.backend.Load(ctx)
	if errors.Is(err, ErrNotExist) {
		db, err = s.seed()
		if err != nil {
			return nil, fmt.Errorf("failed to build seed document: %w", err)
		}
		db.Normalize()
		if err := s.backend.Save(ctx, db); err != nil {
			return nil, fmt.Errorf("failed to save seed document: %w", err)
		}
		s.log.InfoContext(ctx, "seeded document store",
			slog.Int("tenants", len(db.Tenants)),
			slog.Int("users", len(db.Users)),
		)
		return db, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	if db.Normalize() {
		if err := s.backend.Save(ctx, db); err != nil {
			return nil, fmt.Errorf("failed to save upgraded document: %w", err)
		}
		s.log.InfoContext(ctx, "upgraded document to current shape")
	}
	return db, nil
}

// Mutate applies fn to the latest document and saves the result. Calls are
// totally ordered by arrival and never overlap. A mutation that has started
// is not aborted by ctx cancellation.
func (s *Store) Mutate(ctx context.Context, fn MutateFunc) error {
	return s.queue.Do(ctx, func(ctx context.Context) error {
		ctx, span := s.tracer.Start(ctx, "store.mutate")
		defer span.End()

		start := time.Now()
		err := s.apply(ctx, fn)
		s.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000)

		result := "ok"
		switch {
		case err == nil:
		case errors.Is(err, errAborted):
			result = "aborted"
		default:
			result = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.log.ErrorContext(ctx, "mutation failed", logger.Error(err))
		}
		span.SetAttributes(attribute.String("store.result", result))
		s.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))

		var aborted *abortError
		if errors.As(err, &aborted) {
			return aborted.cause
		}
		return err
	})
}

var errAborted = errors.New("store: mutation aborted")

// abortError marks an error returned by the caller's mutator.
type abortError struct {
	cause error
}

func (e *abortError) Error() string { return e.cause.Error() }

func (e *abortError) Is(target error) bool { return target == errAborted }

func (s *Store) apply(ctx context.Context, fn MutateFunc) error {
	db, err := s.loadReady(ctx)
	if err != nil {
		return err
	}
	if err := fn(db); err != nil {
		return &abortError{cause: err}
	}
	if err := s.backend.Save(ctx, db); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}
