// Package queue is the durable safety net between turn assembly and
// backend delivery: turns that cannot be delivered are appended to a local
// JSONL file and drained on a later pass. Delivery out of the queue is
// at-least-once; a crash between delivery and clear can replay at most the
// turns of one pass, and adapters absorb duplicates.
package queue

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/MikeSquared-Agency/scribe/internal/backend"
	"github.com/MikeSquared-Agency/scribe/internal/fsx"
	"github.com/MikeSquared-Agency/scribe/internal/turn"
)

const maxLineBytes = 10 * 1024 * 1024

// QueuedTurn is one persisted queue entry.
type QueuedTurn struct {
	Turn     turn.Turn `json:"turn"`
	QueuedAt time.Time `json:"queued_at"`
}

type Queue struct {
	path   string
	logger *slog.Logger
}

func New(path string, logger *slog.Logger) *Queue {
	return &Queue{path: path, logger: logger}
}

// Enqueue durably appends a turn. It never fails the caller: an I/O error
// is logged and the turn is lost, which ranks below crashing the hook.
func (q *Queue) Enqueue(t turn.Turn) {
	entry := QueuedTurn{Turn: t, QueuedAt: time.Now().UTC()}
	data, err := json.Marshal(entry)
	if err != nil {
		q.logger.Error("marshal queued turn", "session", t.SessionID, "turn", t.TurnNumber, "error", err)
		return
	}
	if err := fsx.AppendLine(q.path, data, 0o644); err != nil {
		q.logger.Error("append to queue", "session", t.SessionID, "turn", t.TurnNumber, "error", err)
		return
	}
	q.logger.Info("turn queued", "session", t.SessionID, "turn", t.TurnNumber)
}

// LoadAll returns every queued turn in insertion order. Corrupt lines are
// skipped with a log line.
func (q *Queue) LoadAll() []QueuedTurn {
	f, err := os.Open(q.path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var entries []QueuedTurn
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), maxLineBytes)
	for scanner.Scan() {
		var entry QueuedTurn
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			q.logger.Warn("skipping corrupt queue line", "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		q.logger.Error("read queue", "error", err)
	}
	return entries
}

// Depth returns the number of queued turns.
func (q *Queue) Depth() int {
	return len(q.LoadAll())
}

// Clear removes the queue file.
func (q *Queue) Clear() error {
	if err := os.Remove(q.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Drain delivers every queued turn to every adapter and returns the number
// of turns drained. Per-adapter delivery errors are logged and do not stop
// the drain. The queue file is only touched after delivery: a completed
// loop clears it, a context cancellation atomically rewrites it to the
// undrained remainder in original order, and a crash mid-loop leaves it
// whole. The crash window can therefore replay turns but never lose them.
func (q *Queue) Drain(ctx context.Context, adapters []backend.Adapter) int {
	queued := q.LoadAll()
	if len(queued) == 0 {
		return 0
	}

	drained := 0
	for i, entry := range queued {
		if ctx.Err() != nil {
			q.rewrite(queued[i:])
			q.logger.Warn("drain interrupted", "drained", drained, "requeued", len(queued)-i)
			return drained
		}
		for _, a := range adapters {
			if err := a.Emit(ctx, &entry.Turn); err != nil {
				q.logger.Warn("queued turn delivery failed",
					"adapter", a.Name(),
					"session", entry.Turn.SessionID,
					"turn", entry.Turn.TurnNumber,
					"error", err,
				)
			}
		}
		drained++
	}

	if err := q.Clear(); err != nil {
		// Queue file intact: the next pass redelivers the whole batch.
		q.logger.Error("clear queue after drain", "error", err)
	}
	q.logger.Info("queue drained", "turns", drained)
	return drained
}

// rewrite atomically replaces the queue file with the given entries,
// keeping their original QueuedAt timestamps. The file still holds the full
// batch at this point, so an append would duplicate it.
func (q *Queue) rewrite(entries []QueuedTurn) {
	if len(entries) == 0 {
		if err := q.Clear(); err != nil {
			q.logger.Error("clear queue", "error", err)
		}
		return
	}
	var buf []byte
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			q.logger.Error("marshal requeued turn", "error", err)
			continue
		}
		buf = append(buf, data...)
		buf = append(buf, '\n')
	}
	if err := fsx.WriteFileAtomic(q.path, buf, 0o644); err != nil {
		// Leaving the full batch in place trades duplicates for safety.
		q.logger.Error("rewrite queue", "error", err)
	}
}

// Requeue appends previously loaded entries back onto the queue, keeping
// their original QueuedAt timestamps.
func (q *Queue) Requeue(entries []QueuedTurn) {
	q.requeue(entries)
}

func (q *Queue) requeue(entries []QueuedTurn) {
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			q.logger.Error("marshal requeued turn", "error", err)
			continue
		}
		if err := fsx.AppendLine(q.path, data, 0o644); err != nil {
			q.logger.Error("requeue turn", "error", err)
		}
	}
}
