package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"netplayer/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate <config>",
	Short: "Check a network config without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (%d nodes, %d send attempts)\n", args[0], len(cfg.Nodes), cfg.Attempts())
		return nil
	},
}
