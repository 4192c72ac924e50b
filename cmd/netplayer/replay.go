package main

import (
	"github.com/spf13/cobra"

	"netplayer/internal/logging"
	"netplayer/internal/sink"
)

var (
	replayInput string
	replaySpeed float64
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded delivery log",
	Long:  "replay prints the deliveries of a JSONL log written with --output, paced by their timestamps.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := logging.New(runLogLevel, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		out, err := newWriter(writerOptions{stdout: cmd.OutOrStdout(), color: runColor, log: log})
		if err != nil {
			return err
		}
		replayErr := sink.ReplayLogFile(replayInput, out.writer, replaySpeed)
		if err := out.close(); err != nil && replayErr == nil {
			return err
		}
		return replayErr
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to a JSONL delivery log")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (0 replays without pauses)")
	_ = replayCmd.MarkFlagRequired("input")
}
