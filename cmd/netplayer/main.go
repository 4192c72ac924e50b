package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes
const (
	ExitSuccess   = 0
	ExitRunFailed = 1
	ExitError     = 2
)

// errRunFailed marks failures that happen after the network started.
var errRunFailed = errors.New("run failed")

func main() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, errRunFailed):
		return ExitRunFailed
	default:
		return ExitError
	}
}
