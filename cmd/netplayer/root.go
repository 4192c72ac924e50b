package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"netplayer/internal/aggregator"
	"netplayer/internal/collector"
	"netplayer/internal/config"
	"netplayer/internal/logging"
	"netplayer/internal/progress"
)

var (
	runSeed     int64
	runLogLevel string
	runOutput   string
	runColor    string
	runTUI      bool
	runQuiet    bool
	runSummary  string
	runBuffer   int
)

var rootCmd = &cobra.Command{
	Use:   "netplayer <config>",
	Short: "Simulate a network of nodes exchanging scripted packets",
	Long: "netplayer starts one concurrent node per config entry. Each node plays its list of\n" +
		"send tasks, losing packets at its error rate, and a single aggregator logs every\n" +
		"delivered packet in arrival order.",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNetwork(cmd.Context(), args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.Flags().Int64Var(&runSeed, "seed", 0, "Override common.seed for reproducible runs (0 keeps the config value)")
	rootCmd.PersistentFlags().StringVar(&runLogLevel, "log-level", "info", "Diagnostic log level: debug, info, warn, error")
	rootCmd.Flags().StringVar(&runOutput, "output", "", "Also record deliveries to this JSONL file")
	rootCmd.PersistentFlags().StringVar(&runColor, "color", "auto", "Color delivery lines: auto, always, never")
	rootCmd.Flags().BoolVar(&runTUI, "tui", false, "Show deliveries in a full-screen viewer")
	rootCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Suppress the progress line and banner")
	rootCmd.Flags().StringVar(&runSummary, "summary", "text", "Run summary format on stderr: text, json, none")
	rootCmd.Flags().IntVar(&runBuffer, "buffer", collector.DefaultBuffer, "Delivery queue capacity")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(replayCmd)
}

func runNetwork(parent context.Context, path string, stdout, stderr io.Writer) error {
	if runSummary != "text" && runSummary != "json" && runSummary != "none" {
		return fmt.Errorf("--summary must be 'text', 'json' or 'none', got %q", runSummary)
	}
	if parent == nil {
		parent = context.Background()
	}

	// The viewer owns the terminal, so diagnostics are dropped while it runs
	logOut := stderr
	if runTUI {
		logOut = io.Discard
	}
	log, err := logging.New(runLogLevel, logOut)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(logging.NewContext(parent, log))
	defer cancel()

	out, err := newWriter(writerOptions{
		stdout: stdout,
		color:  runColor,
		output: runOutput,
		tui:    runTUI,
		title:  "netplayer: " + path,
		onQuit: cancel,
		log:    log,
	})
	if err != nil {
		return err
	}

	a, err := aggregator.Build(cfg, aggregator.Options{
		Sink:   out.writer,
		Seed:   runSeed,
		Buffer: runBuffer,
	})
	if err != nil {
		_ = out.close()
		return err
	}

	var interrupted atomic.Bool
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			interrupted.Store(true)
			log.Info("received interrupt signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	prog := progress.NewProgress(a, runQuiet && !runTUI)
	prog.SetOutput(stderr)
	if out.tui != nil {
		prog.SetOutput(io.Discard)
		prog.OnTick(func(s progress.Stats) { out.tui.SetRunning(s.Running()) })
	}
	prog.Printf("netplayer starting: %d nodes, %d send attempts, run %s", a.Nodes(), cfg.Attempts(), a.RunID())
	prog.Start()

	runErr := a.Run(ctx)
	prog.Stop()
	closeErr := out.close()

	if runSummary != "none" {
		m := a.Metrics()
		if runSummary == "json" {
			collector.FormatJSON(stderr, m)
		} else {
			collector.FormatText(stderr, m)
		}
	}

	if runErr != nil {
		return fmt.Errorf("%w: %w", errRunFailed, runErr)
	}
	if closeErr != nil {
		return fmt.Errorf("%w: closing delivery sinks: %w", errRunFailed, closeErr)
	}
	if n := a.SinkFailures(); n > 0 {
		return fmt.Errorf("%w: %d deliveries could not be written", errRunFailed, n)
	}
	if interrupted.Load() {
		log.Info("run interrupted, partial results reported", zap.Int64("delivered", a.Delivered()))
	}
	return nil
}
