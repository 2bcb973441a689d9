package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/scribe/internal/backend"
	"github.com/MikeSquared-Agency/scribe/internal/config"
	"github.com/MikeSquared-Agency/scribe/internal/logging"
	"github.com/MikeSquared-Agency/scribe/internal/queue"
	"github.com/MikeSquared-Agency/scribe/internal/redact"
)

var drainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Flush the local queue to the healthy backends",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		logger := logging.Setup(cfg.LogPath(), cfg.Debug)
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		q := queue.New(cfg.QueuePath(), logger)
		depth := q.Depth()
		if depth == 0 {
			fmt.Println("Queue is empty")
			return nil
		}

		adapters := backend.FromConfig(ctx, cfg, redact.New(cfg.Redact), logger)
		var healthy []backend.Adapter
		for _, a := range adapters {
			probeCtx, cancel := context.WithTimeout(ctx, cfg.HealthTimeout)
			ok := a.HealthCheck(probeCtx)
			cancel()
			if ok {
				healthy = append(healthy, a)
			} else {
				fmt.Printf("Backend %s is unreachable, skipping\n", a.Name())
			}
		}
		if len(healthy) == 0 {
			return fmt.Errorf("no healthy backends, %d turns remain queued", depth)
		}

		drained := q.Drain(ctx, healthy)
		for _, a := range adapters {
			if s, ok := a.(backend.Shutdowner); ok {
				_ = s.Shutdown(ctx)
			}
		}
		fmt.Printf("Drained %d of %d queued turns\n", drained, depth)
		return nil
	},
}
