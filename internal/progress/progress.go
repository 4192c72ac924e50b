// Package progress prints a one-line live status of a run to stderr.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Stats is the live view of a run the status line is drawn from.
type Stats interface {
	Delivered() int64
	Malformed() int64
	Running() int
}

type Progress struct {
	startTime time.Time
	stats     Stats
	interval  time.Duration
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopped   atomic.Bool
	quiet     bool
	output    io.Writer
	onTick    func(Stats)
	mu        sync.Mutex
}

func NewProgress(s Stats, quiet bool) *Progress {
	return &Progress{
		stats:    s,
		quiet:    quiet,
		interval: time.Second,
		output:   os.Stderr,
	}
}

func (p *Progress) SetOutput(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output = w
}

// OnTick registers fn to run on every tick instead of printing the status line.
// The TUI uses it to refresh its header.
func (p *Progress) OnTick(fn func(Stats)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onTick = fn
}

func (p *Progress) Start() {
	if p.quiet {
		return
	}
	p.startTime = time.Now()
	p.stopCh = make(chan struct{})
	p.ticker = time.NewTicker(p.interval)
	go p.run(p.ticker, p.stopCh)
}

func (p *Progress) run(ticker *time.Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

func (p *Progress) tick() {
	p.mu.Lock()
	fn := p.onTick
	p.mu.Unlock()
	if fn != nil {
		fn(p.stats)
		return
	}
	p.printProgress()
}

func (p *Progress) printProgress() {
	line := Line(time.Since(p.startTime), p.stats)
	p.mu.Lock()
	fmt.Fprintf(p.output, "\033[K%s\r", line)
	p.mu.Unlock()
}

// Line renders the status line for a run that has been going for elapsed.
func Line(elapsed time.Duration, s Stats) string {
	elapsed = elapsed.Round(time.Second)
	mins := int(elapsed.Minutes())
	secs := int(elapsed.Seconds()) % 60
	return fmt.Sprintf("[%02d:%02d] Delivered: %d | Malformed: %d | Nodes running: %d",
		mins, secs, s.Delivered(), s.Malformed(), s.Running())
}

func (p *Progress) Stop() {
	if p.quiet || p.stopped.Swap(true) {
		return
	}
	if p.ticker != nil {
		p.ticker.Stop()
	}
	if p.stopCh != nil {
		close(p.stopCh)
	}
	p.mu.Lock()
	fmt.Fprintf(p.output, "\033[K")
	p.mu.Unlock()
}

func (p *Progress) Print(message string) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	fmt.Fprintf(p.output, "\033[K%s\n", message)
	p.mu.Unlock()
}

func (p *Progress) Printf(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	fmt.Fprintf(p.output, "\033[K"+format+"\n", args...)
	p.mu.Unlock()
}
