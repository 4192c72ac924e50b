package progress

import (
	"bytes"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeStats struct {
	delivered, malformed int64
	running              int
}

func (f fakeStats) Delivered() int64 { return f.delivered }
func (f fakeStats) Malformed() int64 { return f.malformed }
func (f fakeStats) Running() int     { return f.running }

// syncBuffer guards a bytes.Buffer shared with the ticker goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestNewProgress(t *testing.T) {
	s := fakeStats{}
	progress := NewProgress(s, false)

	if progress.stats != s {
		t.Error("stats not assigned")
	}
	if progress.quiet {
		t.Error("quiet should be false")
	}
}

func TestLine(t *testing.T) {
	got := Line(83*time.Second+400*time.Millisecond, fakeStats{delivered: 1500, malformed: 2, running: 3})
	want := "[01:23] Delivered: 1500 | Malformed: 2 | Nodes running: 3"
	if got != want {
		t.Errorf("Line() = %q, want %q", got, want)
	}
}

func TestProgress_PrintsStatusOnTick(t *testing.T) {
	var buf syncBuffer
	progress := NewProgress(fakeStats{delivered: 7, running: 1}, false)
	progress.interval = 5 * time.Millisecond
	progress.SetOutput(&buf)

	progress.Start()
	time.Sleep(40 * time.Millisecond)
	progress.Stop()

	if !strings.Contains(buf.String(), "Delivered: 7 | Malformed: 0 | Nodes running: 1") {
		t.Errorf("expected status line, got %q", buf.String())
	}
}

func TestProgress_OnTickReplacesStatusLine(t *testing.T) {
	var buf syncBuffer
	var ticks atomic.Int32
	progress := NewProgress(fakeStats{delivered: 1}, false)
	progress.interval = 5 * time.Millisecond
	progress.SetOutput(&buf)
	progress.OnTick(func(s Stats) {
		if s.Delivered() == 1 {
			ticks.Add(1)
		}
	})

	progress.Start()
	time.Sleep(40 * time.Millisecond)
	progress.Stop()

	if ticks.Load() == 0 {
		t.Error("expected OnTick callback to run")
	}
	if strings.Contains(buf.String(), "Delivered:") {
		t.Errorf("status line should not be printed with a tick hook, got %q", buf.String())
	}
}

func TestProgress_QuietMode(t *testing.T) {
	var buf syncBuffer
	progress := NewProgress(fakeStats{}, true)
	progress.interval = 5 * time.Millisecond
	progress.SetOutput(&buf)

	progress.Start()
	time.Sleep(20 * time.Millisecond)
	progress.Stop()
	progress.Print("hidden")

	if buf.String() != "" {
		t.Errorf("expected no output in quiet mode, got %q", buf.String())
	}
}

func TestProgress_DoubleStop(t *testing.T) {
	progress := NewProgress(fakeStats{}, false)
	progress.SetOutput(&bytes.Buffer{})
	progress.Start()

	progress.Stop()
	progress.Stop()
}

func TestProgress_StopWithoutStart(t *testing.T) {
	progress := NewProgress(fakeStats{}, false)
	progress.SetOutput(&bytes.Buffer{})
	progress.Stop()
}

func TestProgress_Print(t *testing.T) {
	var buf bytes.Buffer
	progress := NewProgress(fakeStats{}, false)
	progress.SetOutput(&buf)

	progress.Print("Network: 3 nodes, 120 attempts")

	output := buf.String()
	if !strings.HasPrefix(output, "\033[K") {
		t.Error("expected output to start with line clear escape sequence")
	}
	if !strings.HasSuffix(output, "Network: 3 nodes, 120 attempts\n") {
		t.Errorf("expected message with newline, got: %q", output)
	}
}

func TestProgress_Printf(t *testing.T) {
	var buf bytes.Buffer
	progress := NewProgress(fakeStats{}, false)
	progress.SetOutput(&buf)

	progress.Printf("Run %s (nodes: %d)", "abc", 4)

	if !strings.Contains(buf.String(), "Run abc (nodes: 4)\n") {
		t.Errorf("expected formatted message, got: %q", buf.String())
	}
}

func TestProgress_SetOutput(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	progress := NewProgress(fakeStats{}, false)

	progress.SetOutput(&buf1)
	progress.Print("message1")
	progress.SetOutput(&buf2)
	progress.Print("message2")

	if !strings.Contains(buf1.String(), "message1") || strings.Contains(buf1.String(), "message2") {
		t.Errorf("unexpected buf1 contents %q", buf1.String())
	}
	if !strings.Contains(buf2.String(), "message2") {
		t.Errorf("expected message2 in buf2, got %q", buf2.String())
	}
}
