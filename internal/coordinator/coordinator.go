// Package coordinator manages node lifecycle: one goroutine per worker.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"netplayer/internal/core"
	"netplayer/internal/logging"
)

// ErrPanic is wrapped by the error recorded for a worker that panicked.
var ErrPanic = errors.New("worker panicked")

type Coordinator struct {
	wg          sync.WaitGroup
	reporter    core.Reporter
	log         *zap.Logger
	activeCount atomic.Int32
	spawned     atomic.Int32

	errMu sync.Mutex
	errs  []error
}

// NewCoordinator returns a coordinator reporting into reporter. A nil log makes
// Spawn use the logger carried by its context.
func NewCoordinator(reporter core.Reporter, log *zap.Logger) *Coordinator {
	return &Coordinator{
		reporter: reporter,
		log:      log,
	}
}

// Spawn launches each worker on its own goroutine and returns immediately.
func (c *Coordinator) Spawn(ctx context.Context, workers ...core.Worker) {
	log := c.log
	if log == nil {
		log = logging.FromContext(ctx)
	}
	for _, w := range workers {
		c.spawned.Add(1)
		c.activeCount.Add(1)
		c.wg.Add(1)
		go func(w core.Worker) {
			defer func() {
				c.activeCount.Add(-1)
				c.wg.Done()
			}()
			defer c.recoverPanic(log, w.ID())
			if err := w.Run(ctx, c.reporter); err != nil {
				c.record(log, w.ID(), err)
			}
		}(w)
	}
}

// Wait blocks until every spawned worker returned. Cancellation is not an error;
// anything else a worker returned is joined into the result.
func (c *Coordinator) Wait() error {
	c.wg.Wait()
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return errors.Join(c.errs...)
}

// Active is the number of workers still running.
func (c *Coordinator) Active() int {
	return int(c.activeCount.Load())
}

// Spawned is the number of workers launched so far.
func (c *Coordinator) Spawned() int {
	return int(c.spawned.Load())
}

func (c *Coordinator) record(log *zap.Logger, id int, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Debug("node stopped early", zap.Int("node", id), zap.Error(err))
		return
	}
	log.Error("node failed", zap.Int("node", id), zap.Error(err))
	c.errMu.Lock()
	c.errs = append(c.errs, fmt.Errorf("node %d: %w", id, err))
	c.errMu.Unlock()
}

// recoverPanic keeps one misbehaving worker from taking the process down.
func (c *Coordinator) recoverPanic(log *zap.Logger, id int) {
	if r := recover(); r != nil {
		c.record(log, id, fmt.Errorf("%w: %v", ErrPanic, r))
	}
}
