// Package collector serializes deliveries from concurrent nodes into one consumer.
package collector

import (
	"sync"
	"sync/atomic"
	"time"

	"netplayer/internal/core"
)

// DefaultBuffer is the queue capacity used when NewCollector is given a non-positive size.
const DefaultBuffer = 1024

// Collector queues deliveries in arrival order and hands them to a single handler
// goroutine. Report never drops: a full queue blocks the sender until there is room.
type Collector struct {
	handler core.Handler
	ch      chan core.Delivery
	done    chan struct{}

	// guards ch against send after close
	closeMu sync.RWMutex
	closed  bool

	mu       sync.Mutex
	receipts []core.Receipt

	processed atomic.Int64
	malformed atomic.Int64
	rejected  atomic.Int64

	startTime time.Time
	endTime   time.Time
}

// NewCollector creates a Collector and starts its consumer goroutine. A nil handler
// records each delivery unchanged.
func NewCollector(handler core.Handler, buffer int) *Collector {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if handler == nil {
		handler = func(d core.Delivery) core.Receipt { return core.Receipt{Delivery: d} }
	}
	c := &Collector{
		handler:   handler,
		ch:        make(chan core.Delivery, buffer),
		done:      make(chan struct{}),
		startTime: time.Now(),
	}
	go c.collect()
	return c
}

func (c *Collector) collect() {
	for d := range c.ch {
		r := c.handler(d)
		c.mu.Lock()
		c.receipts = append(c.receipts, r)
		c.mu.Unlock()
		if r.Malformed {
			c.malformed.Add(1)
		}
		c.processed.Add(1)
	}
	close(c.done)
}

// Report queues a delivery. Thread-safe. Deliveries reported after Close are
// counted in Rejected and otherwise ignored.
func (c *Collector) Report(d core.Delivery) {
	c.closeMu.RLock()
	defer c.closeMu.RUnlock()
	if c.closed {
		c.rejected.Add(1)
		return
	}
	c.ch <- d
}

// Close stops accepting deliveries and returns once every queued one was handled.
// Calling Close more than once is a no-op.
func (c *Collector) Close() {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		<-c.done
		return
	}
	c.closed = true
	close(c.ch)
	c.closeMu.Unlock()

	<-c.done
	c.mu.Lock()
	c.endTime = time.Now()
	c.mu.Unlock()
}

// Receipts returns a copy of the handled deliveries in handling order.
func (c *Collector) Receipts() []core.Receipt {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]core.Receipt, len(c.receipts))
	copy(result, c.receipts)
	return result
}

// Processed is the number of deliveries handled so far.
func (c *Collector) Processed() int64 { return c.processed.Load() }

// Malformed is the number of handled deliveries whose packet failed to decode.
func (c *Collector) Malformed() int64 { return c.malformed.Load() }

// Rejected is the number of deliveries reported after Close.
func (c *Collector) Rejected() int64 { return c.rejected.Load() }

// Duration returns the run duration: start to Close, or start to now while open.
func (c *Collector) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.endTime.IsZero() {
		return c.endTime.Sub(c.startTime)
	}
	return time.Since(c.startTime)
}

// Compute summarizes the receipts handled so far.
func (c *Collector) Compute() *Metrics {
	return ComputeMetrics(c.Receipts(), c.Duration())
}
