package core

import (
	"sync"
	"time"
)

// Clock provides time operations that can be mocked for testing.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// RealClock uses the standard time package. Readings carry the monotonic clock,
// so Since never goes backwards on wall-clock adjustments.
type RealClock struct{}

func (RealClock) Now() time.Time                   { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

// FakeClock is a test clock that can be manually advanced.
// It is safe for concurrent use so node goroutines can read it while a test advances it.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{current: start}
}

func (f *FakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *FakeClock) Since(t time.Time) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current.Sub(t)
}

func (f *FakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.current.Add(d)
}

func (f *FakeClock) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = t
}

// Stopwatch is the shared elapsed-time source every packet is stamped with.
// It is started once at launch and never reset; all fields are read-only after
// StartStopwatch returns, so concurrent readers need no locking.
type Stopwatch struct {
	clock Clock
	start time.Time
}

// StartStopwatch starts measuring elapsed time on clock.
func StartStopwatch(clock Clock) *Stopwatch {
	if clock == nil {
		clock = RealClock{}
	}
	return &Stopwatch{clock: clock, start: clock.Now()}
}

// Elapsed returns the time since the stopwatch was started.
func (s *Stopwatch) Elapsed() time.Duration {
	d := s.clock.Since(s.start)
	if d < 0 {
		return 0
	}
	return d
}

// ElapsedMillis returns Elapsed truncated to whole milliseconds.
func (s *Stopwatch) ElapsedMillis() int64 {
	return s.Elapsed().Milliseconds()
}

// Started returns the clock reading taken when the stopwatch started.
func (s *Stopwatch) Started() time.Time {
	return s.start
}
