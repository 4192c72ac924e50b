package main

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"netplayer/internal/sink"
)

type writerOptions struct {
	stdout io.Writer
	color  string
	output string
	tui    bool
	title  string
	onQuit func()
	log    *zap.Logger
}

// deliveryWriter is the sink chain of one command plus the handles it needs later.
type deliveryWriter struct {
	writer sink.Writer
	tui    *sink.TUIWriter
	close  func() error
}

// newWriter builds the sinks selected by flags and env vars. The terminal sink is
// the viewer with --tui, styled text otherwise. GREPTIMEDB_ENDPOINT adds a
// GreptimeDB table and --output adds a JSONL file.
func newWriter(o writerOptions) (*deliveryWriter, error) {
	var writers []sink.Writer
	dw := &deliveryWriter{}

	if o.tui {
		dw.tui = sink.NewTUIWriter(o.title, o.onQuit)
		writers = append(writers, dw.tui)
	} else {
		color, err := colorEnabled(o.color, o.stdout)
		if err != nil {
			return nil, err
		}
		writers = append(writers, sink.NewTextWriter(o.stdout, color))
	}

	if endpoint := os.Getenv("GREPTIMEDB_ENDPOINT"); endpoint != "" {
		database := os.Getenv("GREPTIMEDB_DATABASE")
		if database == "" {
			database = "public"
		}
		gw, err := sink.NewGreptimeWriter(endpoint, database, os.Getenv("GREPTIMEDB_TABLE"), o.log)
		if err != nil {
			closeAll(writers)
			return nil, err
		}
		writers = append(writers, gw)
	}

	if o.output != "" {
		fw, err := sink.NewFileWriter(o.output)
		if err != nil {
			closeAll(writers)
			return nil, err
		}
		writers = append(writers, fw)
	}

	if len(writers) == 1 {
		dw.writer = writers[0]
	} else {
		dw.writer = sink.NewMultiWriter(writers...)
	}
	dw.close = func() error { return closeAll(writers) }
	return dw, nil
}

func closeAll(writers []sink.Writer) error {
	return sink.NewMultiWriter(writers...).Close()
}

// colorEnabled resolves --color. "auto" colors only when out is a terminal.
func colorEnabled(mode string, out io.Writer) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto", "":
		f, ok := out.(*os.File)
		return ok && term.IsTerminal(int(f.Fd())), nil
	}
	return false, fmt.Errorf("--color must be 'auto', 'always' or 'never', got %q", mode)
}
