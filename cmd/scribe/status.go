package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/scribe/internal/checkpoint"
	"github.com/MikeSquared-Agency/scribe/internal/config"
	"github.com/MikeSquared-Agency/scribe/internal/logging"
	"github.com/MikeSquared-Agency/scribe/internal/queue"
)

type backendState struct {
	Name    string
	Enabled bool
}

// backendStates returns the configured backends in a fixed display order.
func backendStates(cfg config.Config) []backendState {
	return []backendState{
		{"langfuse", cfg.LangfuseEnabled},
		{"otlp", cfg.OTLPEnabled},
		{"nats", cfg.NATSEnabled},
		{"postgres", cfg.PostgresEnabled},
	}
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tracked sessions, queue depth, and configured backends",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		logger := logging.Setup(cfg.LogPath(), false)

		state := checkpoint.NewStore(cfg.CheckpointPath()).Load()
		depth := queue.New(cfg.QueuePath(), logger).Depth()

		fmt.Printf("State dir: %s\n", cfg.StateDir)
		fmt.Printf("Transcripts dir: %s\n\n", cfg.TranscriptsDir)

		fmt.Printf("Backends:\n")
		for _, b := range backendStates(cfg) {
			mode := "disabled"
			if b.Enabled {
				mode = "enabled"
			}
			fmt.Printf("  %-8s %s\n", b.Name, mode)
		}

		fmt.Printf("\nQueued turns: %d\n", depth)
		fmt.Printf("Tracked sessions: %d\n", len(state))

		ids := make([]string, 0, len(state))
		for id := range state {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool {
			return state[ids[i]].UpdatedAt.After(state[ids[j]].UpdatedAt)
		})
		for _, id := range ids {
			cp := state[id]
			fmt.Printf("  %s  turns=%d lines=%d updated=%s\n",
				id, cp.TurnCount, cp.LastLine, cp.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}
