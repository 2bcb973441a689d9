// scribe tails Claude Code session transcripts and ships each completed
// conversation turn to the configured telemetry backends. It is designed to
// run as a Stop hook: one finite pass per invocation, never failing the
// caller.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "scribe",
	Short:         "Ship Claude Code conversation turns to telemetry backends",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(runCmd, statusCmd, drainCmd, retentionCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
