package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates that queued tasks never overlap.
// Scope: Unit Test
// Expected: At most one task is running at any instant.
// Test Case ID: QUE-01
func TestQueue_OneAtATime(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	var mu sync.Mutex
	running, maxRunning := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Do(context.Background(), func(context.Context) error {
				mu.Lock()
				running++
				if running > maxRunning {
					maxRunning = running
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				running--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxRunning)
}

// TestPurpose: Validates cancellation semantics of queued work.
// Scope: Unit Test
// Expected: A task cancelled while waiting is skipped; a started task completes with an uncancelled context.
// Test Case ID: QUE-02
func TestQueue_Cancellation(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	runningCtx, cancelRunning := context.WithCancel(context.Background())

	var runErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		runErr = q.Do(runningCtx, func(ctx context.Context) error {
			close(started)
			<-release
			return ctx.Err()
		})
	}()
	<-started

	waitingCtx, cancelWaiting := context.WithCancel(context.Background())
	ran := false
	waitErr := make(chan error, 1)
	go func() {
		waitErr <- q.Do(waitingCtx, func(context.Context) error {
			ran = true
			return nil
		})
	}()
	require.Eventually(t, func() bool { return q.Len() == 1 }, time.Second, time.Millisecond)

	cancelWaiting()
	cancelRunning()
	close(release)
	<-done

	assert.NoError(t, runErr, "started task must not observe caller cancellation")
	assert.ErrorIs(t, <-waitErr, context.Canceled)
	assert.False(t, ran)
}

func TestQueue_Close(t *testing.T) {
	q := NewQueue()
	q.Close()
	q.Close()

	err := q.Do(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
}
