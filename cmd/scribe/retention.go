package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/scribe/internal/checkpoint"
	"github.com/MikeSquared-Agency/scribe/internal/config"
	"github.com/MikeSquared-Agency/scribe/internal/logging"
	"github.com/MikeSquared-Agency/scribe/internal/queue"
	"github.com/MikeSquared-Agency/scribe/internal/retention"
)

var (
	retentionDays   int
	retentionDryRun bool
	retentionMaxMB  float64
)

var retentionCmd = &cobra.Command{
	Use:   "retention",
	Short: "Prune stale local state and rotate the hook log",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		logger := logging.Setup(cfg.LogPath(), cfg.Debug)

		res, err := retention.Run(
			retention.Options{
				Days:        retentionDays,
				DryRun:      retentionDryRun,
				MaxLogBytes: int64(retentionMaxMB * 1024 * 1024),
			},
			checkpoint.NewStore(cfg.CheckpointPath()),
			queue.New(cfg.QueuePath(), logger),
			cfg.LogPath(),
			logger,
		)
		if err != nil {
			return err
		}

		mode := ""
		if retentionDryRun {
			mode = " (dry run)"
		}
		fmt.Printf("Retention%s: pruned %d stale sessions (%d kept), dropped %d queued turns (%d kept)\n",
			mode, res.StaleSessions, res.KeptSessions, res.DroppedTurns, res.KeptTurns)
		return nil
	},
}

func init() {
	retentionCmd.Flags().IntVar(&retentionDays, "days", 30, "prune state older than this many days")
	retentionCmd.Flags().BoolVar(&retentionDryRun, "dry-run", false, "report without deleting")
	retentionCmd.Flags().Float64Var(&retentionMaxMB, "max-log-mb", 10, "rotate the hook log beyond this size")
}
