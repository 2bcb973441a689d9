// Package runner drives one processing pass: discover modified sessions,
// health-check backends, drain the fallback queue, assemble and deliver new
// turns, and advance checkpoints. One invocation is one finite batch; there
// is no persistent process and no internal parallelism. Overlapping
// invocations are not coordinated here and must be serialized by the
// external trigger.
package runner

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/scribe/internal/backend"
	"github.com/MikeSquared-Agency/scribe/internal/checkpoint"
	"github.com/MikeSquared-Agency/scribe/internal/config"
	"github.com/MikeSquared-Agency/scribe/internal/queue"
	"github.com/MikeSquared-Agency/scribe/internal/transcript"
	"github.com/MikeSquared-Agency/scribe/internal/turn"
)

// softDeadline is self-reported only: a pass that runs longer logs a
// warning but is never cut off.
const softDeadline = 180 * time.Second

// Session is one discovered transcript with new content.
type Session struct {
	ID      string
	Path    string
	Project string
	ModTime time.Time
}

type Runner struct {
	cfg      config.Config
	ckpt     *checkpoint.Store
	queue    *queue.Queue
	adapters []backend.Adapter
	logger   *slog.Logger
}

func New(cfg config.Config, ckpt *checkpoint.Store, q *queue.Queue, adapters []backend.Adapter, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		ckpt:     ckpt,
		queue:    q,
		adapters: adapters,
		logger:   logger,
	}
}

// Run executes one pass. All failures inside the pass are logged and
// absorbed; the returned error is nil unless even state loading was
// impossible, and callers on the hook path ignore it either way.
func (r *Runner) Run(ctx context.Context) error {
	start := time.Now()
	logger := r.logger.With("run_id", uuid.NewString())

	state := r.ckpt.Load()
	sessions := r.discover(state, logger)

	healthy := r.healthyAdapters(ctx, logger)

	delivered := 0
	if len(healthy) > 0 {
		delivered = r.queue.Drain(ctx, healthy)
	}

	totalTurns := 0
	queued := 0
	for _, sess := range sessions {
		cp := state[sess.ID]
		turns, next := r.processSession(sess, cp, logger)
		for i := range turns {
			if len(healthy) == 0 {
				// Queuing counts as handled; the checkpoint
				// still advances.
				r.queue.Enqueue(turns[i])
				queued++
				continue
			}
			for _, a := range healthy {
				if err := a.Emit(ctx, &turns[i]); err != nil {
					logger.Warn("turn delivery failed",
						"adapter", a.Name(),
						"session", sess.ID,
						"turn", turns[i].TurnNumber,
						"error", err,
					)
				}
			}
		}
		totalTurns += len(turns)
		state[sess.ID] = next
	}

	if err := r.ckpt.Save(state); err != nil {
		logger.Error("save checkpoints", "error", err)
	}

	// Flush with a fresh context so buffered spans still go out when the
	// pass itself was cancelled.
	r.shutdownAdapters(context.Background(), logger)

	duration := time.Since(start)
	logger.Info("pass complete",
		"sessions", len(sessions),
		"turns", totalTurns,
		"queued", queued,
		"drained", delivered,
		"healthy_backends", len(healthy),
		"duration", duration.Round(time.Millisecond).String(),
	)
	if duration > softDeadline {
		logger.Warn("pass exceeded soft deadline", "duration", duration.String())
	}
	return nil
}

// discover walks the transcripts root for session files modified since
// their checkpoint, most recently modified first, capped at MaxSessions so
// a backlog never starves the active sessions.
func (r *Runner) discover(state map[string]checkpoint.Checkpoint, logger *slog.Logger) []Session {
	var found []Session

	err := filepath.Walk(r.cfg.TranscriptsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".jsonl") {
			return nil
		}
		id := transcript.SessionID(path)
		if cp, ok := state[id]; ok && !info.ModTime().After(cp.UpdatedAt) {
			return nil
		}
		found = append(found, Session{
			ID:      id,
			Path:    path,
			Project: transcript.ProjectName(filepath.Dir(path)),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		logger.Warn("error walking transcripts dir", "dir", r.cfg.TranscriptsDir, "error", err)
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].ModTime.After(found[j].ModTime)
	})

	if r.cfg.MaxSessions > 0 && len(found) > r.cfg.MaxSessions {
		logger.Info("deferring sessions to next pass",
			"discovered", len(found),
			"deferred", len(found)-r.cfg.MaxSessions,
		)
		found = found[:r.cfg.MaxSessions]
	}
	return found
}

// healthyAdapters probes each configured backend independently. An
// unreachable backend is disabled for the whole run without affecting the
// others.
func (r *Runner) healthyAdapters(ctx context.Context, logger *slog.Logger) []backend.Adapter {
	var healthy []backend.Adapter
	for _, a := range r.adapters {
		probeCtx, cancel := context.WithTimeout(ctx, r.cfg.HealthTimeout)
		ok := a.HealthCheck(probeCtx)
		cancel()
		if !ok {
			logger.Warn("backend unhealthy, routing to queue", "adapter", a.Name())
			continue
		}
		healthy = append(healthy, a)
	}
	return healthy
}

// processSession parses the session's new lines, assembles turns numbered
// from the checkpoint's turn count, and returns the advanced checkpoint.
// An in-progress trailing turn keeps its lines unconsumed so the next pass
// rediscovers it.
func (r *Runner) processSession(sess Session, cp checkpoint.Checkpoint, logger *slog.Logger) ([]turn.Turn, checkpoint.Checkpoint) {
	next := cp
	next.UpdatedAt = time.Now().UTC()

	records, total, err := transcript.ReadSession(sess.Path, cp.LastLine)
	if err != nil {
		logger.Warn("failed to read transcript", "session", sess.ID, "path", sess.Path, "error", err)
		return nil, next
	}
	if len(records) == 0 {
		logger.Debug("no new lines", "session", sess.ID, "total_lines", total)
		return nil, next
	}

	turns, consumed := turn.Assemble(records, cp.TurnCount)
	for i := range turns {
		turns[i].Project = sess.Project
	}

	if consumed > next.LastLine {
		next.LastLine = consumed
	}
	next.TurnCount = cp.TurnCount + len(turns)

	logger.Info("session processed",
		"session", sess.ID,
		"project", sess.Project,
		"new_lines", len(records),
		"turns", len(turns),
		"last_line", next.LastLine,
	)
	return turns, next
}

func (r *Runner) shutdownAdapters(ctx context.Context, logger *slog.Logger) {
	for _, a := range r.adapters {
		s, ok := a.(backend.Shutdowner)
		if !ok {
			continue
		}
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := s.Shutdown(shutdownCtx); err != nil {
			logger.Warn("adapter shutdown failed", "adapter", a.Name(), "error", err)
		}
		cancel()
	}
}
