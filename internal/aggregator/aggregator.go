// Package aggregator runs a network of nodes and logs every delivered packet
// in arrival order from a single consumer.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"netplayer/internal/collector"
	"netplayer/internal/config"
	"netplayer/internal/coordinator"
	"netplayer/internal/core"
	"netplayer/internal/logging"
	"netplayer/internal/node"
	"netplayer/internal/packet"
	"netplayer/internal/ratelimit"
	"netplayer/internal/sink"
)

var (
	// ErrConfig is wrapped when the config cannot describe a runnable network.
	ErrConfig = errors.New("invalid network config")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("aggregator already started")
)

// Options tunes a run. The zero value logs to stdout with a fresh stopwatch.
type Options struct {
	Sink sink.Writer
	// Logger defaults to the logger carried by the context passed to Start.
	Logger    *zap.Logger
	Stopwatch *core.Stopwatch
	// Seed overrides common.seed when non-zero.
	Seed int64
	// Buffer is the delivery queue capacity; <= 0 uses collector.DefaultBuffer.
	Buffer int
	RunID  string
}

// Aggregator owns the nodes of one run and the single consumer of their deliveries.
type Aggregator struct {
	runID     string
	nodes     []*node.Node
	stopwatch *core.Stopwatch
	coord     *coordinator.Coordinator
	coll      *collector.Collector
	sink      sink.Writer
	log       *zap.Logger

	started   atomic.Bool
	waitOnce  sync.Once
	waitErr   error
	sinkFails atomic.Int64
}

// Build constructs every node from cfg. Nothing runs until Start.
func Build(cfg *config.Config, opts Options) (*Aggregator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: no config", ErrConfig)
	}
	seen := make(map[int]struct{}, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		if _, dup := seen[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node id %d", ErrConfig, n.ID)
		}
		seen[n.ID] = struct{}{}
	}

	a := &Aggregator{
		runID:     opts.RunID,
		stopwatch: opts.Stopwatch,
		sink:      opts.Sink,
		log:       opts.Logger,
	}
	if a.runID == "" {
		a.runID = uuid.NewString()
	}
	if a.stopwatch == nil {
		a.stopwatch = core.StartStopwatch(core.RealClock{})
	}
	if a.sink == nil {
		a.sink = sink.NewTextWriter(os.Stdout, false)
	}

	seed := cfg.Common.Seed
	if opts.Seed != 0 {
		seed = opts.Seed
	}
	var limiter *ratelimit.RateLimiter
	if cfg.Common.MaxPPS > 0 {
		limiter = ratelimit.NewRateLimiter(cfg.Common.MaxPPS)
	}

	for _, nc := range cfg.Nodes {
		tasks := make([]node.Task, len(nc.Tasks))
		for i, t := range nc.Tasks {
			tasks[i] = node.Task{DestID: t.DestID, Delay: t.Delay(), Payload: t.Payload, Count: t.Count}
		}
		n, err := node.New(nc.ID, tasks, nc.EffectiveErrorRate(cfg.Common.ErrorRate), node.Options{
			Stopwatch: a.stopwatch,
			Seed:      seed,
			Limiter:   limiter,
		})
		if err != nil {
			return nil, fmt.Errorf("building node %d: %w", nc.ID, err)
		}
		a.nodes = append(a.nodes, n)
	}

	a.coll = collector.NewCollector(a.onDelivery, opts.Buffer)
	a.coord = coordinator.NewCoordinator(a.coll, nil)
	return a, nil
}

// Start launches one goroutine per node and returns once all are launched. The
// run's logger is handed to every node and the coordinator through ctx.
func (a *Aggregator) Start(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	log := a.log
	if log == nil {
		log = logging.FromContext(ctx)
	}
	a.log = log.With(zap.String("run", a.runID))
	ctx = logging.NewContext(ctx, a.log)

	workers := make([]core.Worker, len(a.nodes))
	for i, n := range a.nodes {
		workers[i] = n
	}
	a.log.Info("network started", zap.Int("nodes", len(a.nodes)))
	a.coord.Spawn(ctx, workers...)
	return nil
}

// Wait blocks until every node finished and every queued delivery was handled.
// It returns the joined node failures; cancellation is not a failure.
func (a *Aggregator) Wait() error {
	a.waitOnce.Do(func() {
		a.waitErr = a.coord.Wait()
		a.coll.Close()
		a.logger().Info("network finished",
			zap.Int64("delivered", a.coll.Processed()),
			zap.Int64("malformed", a.coll.Malformed()),
			zap.Duration("elapsed", a.stopwatch.Elapsed()))
	})
	return a.waitErr
}

// Run is Start followed by Wait.
func (a *Aggregator) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}
	return a.Wait()
}

// onDelivery is the collector's handler, so calls never overlap.
func (a *Aggregator) onDelivery(d core.Delivery) core.Receipt {
	rec := sink.Record{
		RunID:  a.runID,
		At:     time.Now(),
		Source: d.Source,
		Dest:   d.Dest,
		Raw:    d.Packet,
	}
	receipt := core.Receipt{Delivery: d}

	dec, err := packet.Decode(d.Packet)
	if err != nil {
		a.logger().Warn("invalid packet format",
			zap.Int("source", d.Source), zap.Int("dest", d.Dest), zap.String("packet", d.Packet))
		rec.Malformed = true
		rec.Line = FormatMalformed(d.Packet)
		receipt.Malformed = true
	} else {
		rec.ElapsedMS = dec.ElapsedMS
		rec.RandomTag = dec.RandomTag
		rec.Payload = dec.Payload
		rec.Line = FormatLine(dec.ElapsedMS, d.Source, d.Dest, dec.Payload)
		if lag := a.stopwatch.ElapsedMillis() - dec.ElapsedMS; lag > 0 {
			receipt.Latency = time.Duration(lag) * time.Millisecond
		}
	}

	if err := a.sink.WriteRecord(rec); err != nil {
		if a.sinkFails.Add(1) == 1 {
			a.logger().Error("writing delivery failed", zap.Error(err))
		}
	}
	return receipt
}

func (a *Aggregator) logger() *zap.Logger { return logging.OrNop(a.log) }

// FormatLine renders a delivered packet the way the aggregator logs it.
func FormatLine(elapsedMS int64, source, dest int, payload string) string {
	return fmt.Sprintf("[%s]:(%d) Message from %d - '%s'", packet.FormatElapsed(elapsedMS), dest, source, payload)
}

// FormatMalformed renders the line logged for a packet that failed to decode.
func FormatMalformed(text string) string {
	return `Error: Invalid packet format "` + text + `"`
}

// Metrics summarizes the deliveries handled so far.
func (a *Aggregator) Metrics() *collector.Metrics {
	return a.coll.Compute()
}

func (a *Aggregator) RunID() string { return a.runID }

func (a *Aggregator) Nodes() int { return len(a.nodes) }

// Delivered is the number of deliveries handled so far.
func (a *Aggregator) Delivered() int64 { return a.coll.Processed() }

// Malformed is the number of handled deliveries that failed to decode.
func (a *Aggregator) Malformed() int64 { return a.coll.Malformed() }

// Running is the number of nodes still executing their script.
func (a *Aggregator) Running() int { return a.coord.Active() }

// SinkFailures counts records the sink refused. Only the first is logged.
func (a *Aggregator) SinkFailures() int64 { return a.sinkFails.Load() }
