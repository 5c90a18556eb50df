package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsSubmittedTasks(t *testing.T) {
	p, err := NewPool(context.Background(), 4, nil)
	require.NoError(t, err)
	defer p.Shutdown(time.Second)

	var count atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(func(ctx context.Context) {
			defer wg.Done()
			count.Add(1)
		}))
	}
	wg.Wait()

	assert.Equal(t, int32(20), count.Load())
}

func TestPoolRecoversPanics(t *testing.T) {
	p, err := NewPool(context.Background(), 1, nil)
	require.NoError(t, err)
	defer p.Shutdown(time.Second)

	done := make(chan struct{})
	require.NoError(t, p.Submit(func(ctx context.Context) {
		panic("boom")
	}))
	require.NoError(t, p.Submit(func(ctx context.Context) {
		close(done)
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not survive a panicking task")
	}
}

func TestSubmitAfterShutdown(t *testing.T) {
	p, err := NewPool(context.Background(), 1, nil)
	require.NoError(t, err)
	p.Shutdown(time.Second)

	err = p.Submit(func(ctx context.Context) {})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestNonblockingPoolRejectsWhenBusy(t *testing.T) {
	p, err := NewPool(context.Background(), 1, nil, Nonblocking())
	require.NoError(t, err)
	release := make(chan struct{})
	defer func() {
		close(release)
		p.Shutdown(time.Second)
	}()

	started := make(chan struct{})
	require.NoError(t, p.Submit(func(ctx context.Context) {
		close(started)
		<-release
	}))
	<-started

	begin := time.Now()
	err = p.Submit(func(ctx context.Context) {})
	assert.ErrorIs(t, err, ErrPoolOverload)
	assert.Less(t, time.Since(begin), 500*time.Millisecond)
}
