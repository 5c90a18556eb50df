// Package worker runs fire-and-forget background tasks on a bounded
// goroutine pool.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

var (
	// ErrPoolClosed is returned when submitting to a released pool.
	ErrPoolClosed = errors.New("worker pool is closed")
	// ErrPoolOverload is returned by a non-blocking pool whose workers are
	// all busy.
	ErrPoolOverload = errors.New("worker pool is overloaded")
)

type options struct {
	nonblocking bool
}

// Option configures a Pool.
type Option func(*options)

// Nonblocking makes Submit fail with ErrPoolOverload instead of waiting
// when every worker is busy.
func Nonblocking() Option {
	return func(o *options) { o.nonblocking = true }
}

// Task receives the pool's lifecycle context, which is cancelled on Shutdown.
type Task func(ctx context.Context)

// Pool wraps ants.Pool with a lifecycle context and panic logging.
type Pool struct {
	pool   *ants.Pool
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

// NewPool creates a pool with at most size concurrent workers. By default
// submissions block while all workers are busy.
func NewPool(ctx context.Context, size int, logger *zap.Logger, opts ...Option) (*Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if size <= 0 {
		size = 1
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	poolCtx, cancel := context.WithCancel(ctx)

	p, err := ants.NewPool(size,
		ants.WithPanicHandler(func(v interface{}) {
			logger.Error("worker panic recovered", zap.Any("panic", v), zap.Stack("stack"))
		}),
		ants.WithNonblocking(o.nonblocking),
		ants.WithExpiryDuration(10*time.Second),
	)
	if err != nil {
		cancel()
		return nil, err
	}

	return &Pool{pool: p, ctx: poolCtx, cancel: cancel, logger: logger}, nil
}

// Submit queues a task. It is skipped if the pool shut down before it ran.
func (p *Pool) Submit(task Task) error {
	if p.pool.IsClosed() {
		return ErrPoolClosed
	}

	err := p.pool.Submit(func() {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("task skipped: pool shutting down")
			return
		default:
		}
		task(p.ctx)
	})
	switch {
	case errors.Is(err, ants.ErrPoolClosed):
		return ErrPoolClosed
	case errors.Is(err, ants.ErrPoolOverload):
		return ErrPoolOverload
	}
	return err
}

// Running reports how many workers are executing tasks.
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Shutdown waits up to timeout for running tasks, then cancels the
// lifecycle context.
func (p *Pool) Shutdown(timeout time.Duration) {
	if err := p.pool.ReleaseTimeout(timeout); err != nil {
		p.logger.Warn("worker pool shutdown timeout", zap.Error(err))
	}
	p.cancel()
}
