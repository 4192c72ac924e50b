// Package node implements a simulated network node that plays a scripted list of sends.
package node

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"netplayer/internal/core"
	"netplayer/internal/logging"
	"netplayer/internal/packet"
	"netplayer/internal/ratelimit"
)

var (
	// ErrInvalidNode is wrapped by every construction failure.
	ErrInvalidNode = errors.New("invalid node")
	// ErrAlreadyStarted is returned when Run is called on a node that left Idle.
	ErrAlreadyStarted = errors.New("node already started")
)

// Task is one scripted send, repeated Count times with Delay before each attempt.
type Task struct {
	DestID  int
	Delay   time.Duration
	Payload string
	Count   int
}

// State is a node's lifecycle position. Transitions only move forward.
type State int32

const (
	Idle State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Finished:
		return "finished"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Options carries the collaborators shared by all nodes of a run.
type Options struct {
	Stopwatch *core.Stopwatch
	// Seed feeds this node's generator as Seed + id*17 + 99. Zero picks a time-based seed.
	Seed    int64
	Limiter *ratelimit.RateLimiter
	// Logger defaults to the logger carried by the context passed to Run.
	Logger *zap.Logger
}

// Node sends its tasks in order on its own schedule. It is immutable after New
// apart from its lifecycle state.
type Node struct {
	id        int
	tasks     []Task
	errorRate float64

	stopwatch *core.Stopwatch
	rng       *rand.Rand
	limiter   *ratelimit.RateLimiter
	log       *zap.Logger

	state atomic.Int32
}

// New validates the parameters and returns an Idle node. The task slice is copied.
func New(id int, tasks []Task, errorRate float64, opts Options) (*Node, error) {
	if math.IsNaN(errorRate) || errorRate < 0 || errorRate > 1 {
		return nil, fmt.Errorf("%w %d: error rate %v outside [0,1]", ErrInvalidNode, id, errorRate)
	}
	for i, t := range tasks {
		switch {
		case t.Delay < 0:
			return nil, fmt.Errorf("%w %d: task %d has negative delay %v", ErrInvalidNode, id, i, t.Delay)
		case t.Count < 0:
			return nil, fmt.Errorf("%w %d: task %d has negative count %d", ErrInvalidNode, id, i, t.Count)
		case t.Payload == "":
			return nil, fmt.Errorf("%w %d: task %d has empty payload", ErrInvalidNode, id, i)
		case strings.Contains(t.Payload, "\n"):
			return nil, fmt.Errorf("%w %d: task %d has a multi-line payload", ErrInvalidNode, id, i)
		}
	}

	sw := opts.Stopwatch
	if sw == nil {
		sw = core.StartStopwatch(core.RealClock{})
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	n := &Node{
		id:        id,
		tasks:     append([]Task(nil), tasks...),
		errorRate: errorRate,
		stopwatch: sw,
		rng:       rand.New(rand.NewSource(seed + int64(id)*17 + 99)),
		limiter:   opts.Limiter,
		log:       opts.Logger,
	}
	return n, nil
}

func (n *Node) ID() int { return n.id }

// Tasks returns a copy of the node's script.
func (n *Node) Tasks() []Task {
	return append([]Task(nil), n.tasks...)
}

// Attempts is the total number of send attempts the script makes.
func (n *Node) Attempts() int {
	total := 0
	for _, t := range n.tasks {
		total += t.Count
	}
	return total
}

func (n *Node) State() State {
	return State(n.state.Load())
}

// Run plays the script, reporting every packet that survives the error-rate draw.
// Dropped attempts are logged and never retried. Run returns ctx.Err() if the
// context ends first; the node is Finished either way.
func (n *Node) Run(ctx context.Context, rep core.Reporter) error {
	if !n.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return ErrAlreadyStarted
	}
	defer n.state.Store(int32(Finished))

	log := n.log
	if log == nil {
		log = logging.FromContext(ctx)
	}
	log = log.With(zap.Int("node", n.id))

	log.Debug("node started", zap.Int("tasks", len(n.tasks)), zap.Int("attempts", n.Attempts()))
	for _, task := range n.tasks {
		for i := 0; i < task.Count; i++ {
			if err := sleep(ctx, task.Delay); err != nil {
				return err
			}

			if n.rng.Float64() < n.errorRate {
				log.Info("error occurred while sending packet",
					zap.Int("dest", task.DestID), zap.Int("repetition", i))
				continue
			}

			if err := n.limiter.Wait(ctx); err != nil {
				return err
			}

			p := packet.Packet{
				ElapsedMS: n.stopwatch.ElapsedMillis(),
				RandomTag: packet.Magnitude(int64(n.rng.Uint64())),
				Payload:   task.Payload,
			}
			rep.Report(core.Delivery{Source: n.id, Dest: task.DestID, Packet: p.Encode()})
		}
	}
	log.Debug("node finished")
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
