// Package retention handles the local housekeeping that the backends'
// built-in retention does not: pruning stale session checkpoints, dropping
// over-age queued turns, and rotating the hook log.
package retention

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/scribe/internal/checkpoint"
	"github.com/MikeSquared-Agency/scribe/internal/logging"
	"github.com/MikeSquared-Agency/scribe/internal/queue"
)

type Options struct {
	// Days is the retention window; state older than this is pruned.
	Days int
	// DryRun reports what would be pruned without changing anything.
	DryRun bool
	// MaxLogBytes caps the hook log before rotation.
	MaxLogBytes int64
}

type Result struct {
	StaleSessions int
	DroppedTurns  int
	KeptSessions  int
	KeptTurns     int
}

// Run applies the retention policy to the local state files.
func Run(opts Options, ckpt *checkpoint.Store, q *queue.Queue, logPath string, logger *slog.Logger) (Result, error) {
	if opts.Days <= 0 {
		return Result{}, fmt.Errorf("retention days must be positive, got %d", opts.Days)
	}
	if opts.MaxLogBytes <= 0 {
		// Zero value must not mean "rotate any non-empty log".
		opts.MaxLogBytes = logging.MaxLogBytes
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -opts.Days)
	var res Result

	state := ckpt.Load()
	kept := make(map[string]checkpoint.Checkpoint, len(state))
	for id, cp := range state {
		if cp.UpdatedAt.Before(cutoff) {
			res.StaleSessions++
			logger.Info("pruning stale session checkpoint",
				"session", id,
				"updated", cp.UpdatedAt.Format(time.RFC3339),
				"dry_run", opts.DryRun,
			)
			continue
		}
		kept[id] = cp
	}
	res.KeptSessions = len(kept)
	if !opts.DryRun && res.StaleSessions > 0 {
		if err := ckpt.Save(kept); err != nil {
			return res, fmt.Errorf("save pruned checkpoints: %w", err)
		}
	}

	entries := q.LoadAll()
	var fresh []queue.QueuedTurn
	for _, e := range entries {
		if e.QueuedAt.Before(cutoff) {
			res.DroppedTurns++
			continue
		}
		fresh = append(fresh, e)
	}
	res.KeptTurns = len(fresh)
	if !opts.DryRun && res.DroppedTurns > 0 {
		if err := q.Clear(); err != nil {
			return res, fmt.Errorf("clear queue: %w", err)
		}
		q.Requeue(fresh)
		logger.Info("dropped over-age queued turns", "dropped", res.DroppedTurns, "kept", res.KeptTurns)
	}

	if !opts.DryRun {
		if err := logging.RotateIfNeeded(logPath, opts.MaxLogBytes, logging.BackupCount); err != nil {
			logger.Warn("log rotation failed", "error", err)
		}
	}

	return res, nil
}
