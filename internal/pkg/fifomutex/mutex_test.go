package fifomutex_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskvault/storage-service/internal/pkg/fifomutex"
)

func TestLock_Uncontended(t *testing.T) {
	// Arrange
	var mu fifomutex.Mutex

	// Act
	err := mu.Lock(context.Background())

	// Assert
	require.NoError(t, err)
	mu.Unlock()
}

func TestLock_CancelledContext(t *testing.T) {
	// Arrange
	var mu fifomutex.Mutex
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Act
	err := mu.Lock(ctx)

	// Assert
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLock_CancelWhileWaiting(t *testing.T) {
	// Arrange
	var mu fifomutex.Mutex
	require.NoError(t, mu.Lock(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Act
	err := mu.Lock(ctx)

	// Assert
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The holder can still release and reacquire normally.
	mu.Unlock()
	require.NoError(t, mu.Lock(context.Background()))
	mu.Unlock()
}

func TestLock_FIFOOrdering(t *testing.T) {
	// Arrange
	var mu fifomutex.Mutex
	require.NoError(t, mu.Lock(context.Background()))

	const waiters = 10
	var order []int
	var orderMu sync.Mutex
	queued := make(chan struct{}, waiters)
	var wg sync.WaitGroup

	// Queue waiters one at a time so their arrival order is deterministic.
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			queued <- struct{}{}
			require.NoError(t, mu.Lock(context.Background()))
			orderMu.Lock()
			order = append(order, i)
			orderMu.Unlock()
			mu.Unlock()
		}(i)
		<-queued
		// Give the goroutine time to enqueue before starting the next one.
		time.Sleep(10 * time.Millisecond)
	}

	// Act
	mu.Unlock()
	wg.Wait()

	// Assert
	require.Len(t, order, waiters)
	for i := 0; i < waiters; i++ {
		assert.Equal(t, i, order[i], "waiter %d ran out of order", i)
	}
}

func TestUnlock_Unlocked_Panics(t *testing.T) {
	// Arrange
	var mu fifomutex.Mutex

	// Act + Assert
	assert.Panics(t, func() { mu.Unlock() })
}

func TestWithLock_ReleasesOnError(t *testing.T) {
	// Arrange
	var mu fifomutex.Mutex

	// Act
	err := mu.WithLock(context.Background(), func() error {
		return assert.AnError
	})

	// Assert
	assert.ErrorIs(t, err, assert.AnError)
	require.NoError(t, mu.Lock(context.Background()))
	mu.Unlock()
}

func TestWithLock_MutualExclusion(t *testing.T) {
	// Arrange
	var mu fifomutex.Mutex
	counter := 0
	var wg sync.WaitGroup

	// Act
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mu.WithLock(context.Background(), func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()

	// Assert
	assert.Equal(t, 50, counter)
}
