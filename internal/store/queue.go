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

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrQueueClosed is returned for work submitted after Close.
var ErrQueueClosed = errors.New("store: queue closed")

type task struct {
	ctx    context.Context
	fn     func(context.Context) error
	result chan error
}

// Queue runs submitted tasks one at a time in arrival order.
//
// A task whose context is cancelled before it is dequeued is skipped. Once a
// task starts it runs to completion; its context is detached from the
// caller's cancellation.
type Queue struct {
	mu      sync.Mutex
	pending []*task
	closed  bool

	wake chan struct{}
	done chan struct{}
}

// NewQueue creates a queue and starts its worker.
func NewQueue() *Queue {
	q := &Queue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

// Do submits fn and blocks until it has run or been skipped.
func (q *Queue) Do(ctx context.Context, fn func(context.Context) error) error {
	t := &task{ctx: ctx, fn: fn, result: make(chan error, 1)}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.pending = append(q.pending, t)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}

	return <-t.result
}

// Len returns the number of tasks waiting to start.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops accepting work, lets already queued tasks finish and waits for
// the worker to exit.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	<-q.done
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		t, closed := q.next()
		if t == nil {
			if closed {
				return
			}
			<-q.wake
			continue
		}

		if err := t.ctx.Err(); err != nil {
			t.result <- err
			continue
		}
		t.result <- t.call()
	}
}

// call runs the task, turning a panic into an error so one bad mutator
// cannot stop the worker.
func (t *task) call() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("store: task panicked: %v", r)
		}
	}()
	return t.fn(context.WithoutCancel(t.ctx))
}

func (q *Queue) next() (*task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, q.closed
	}
	t := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return t, q.closed
}
