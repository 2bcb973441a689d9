package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/scribe/internal/backend"
	"github.com/MikeSquared-Agency/scribe/internal/checkpoint"
	"github.com/MikeSquared-Agency/scribe/internal/config"
	"github.com/MikeSquared-Agency/scribe/internal/logging"
	"github.com/MikeSquared-Agency/scribe/internal/queue"
	"github.com/MikeSquared-Agency/scribe/internal/redact"
	"github.com/MikeSquared-Agency/scribe/internal/runner"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process new transcript lines and deliver completed turns",
	Long: `Run one processing pass: discover sessions with new transcript lines,
assemble completed turns, and deliver them to every healthy backend.
Turns that cannot be delivered are queued locally and drained on a
later pass.

This command always exits 0. It is wired into an interactive session
as a hook, and observability must never block the primary workflow;
every internal error ends up in the hook log instead.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger := logging.Setup(cfg.LogPath(), cfg.Debug)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		red := redact.New(cfg.Redact)
		adapters := backend.FromConfig(ctx, cfg, red, logger)
		if len(adapters) == 0 {
			logger.Warn("no backends configured, turns will be queued")
		}

		r := runner.New(
			cfg,
			checkpoint.NewStore(cfg.CheckpointPath()),
			queue.New(cfg.QueuePath(), logger),
			adapters,
			logger,
		)
		if err := r.Run(ctx); err != nil {
			logger.Error("pass failed", "error", err)
		}
	},
}
