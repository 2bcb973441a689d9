package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/scribe/internal/redact"
	"github.com/MikeSquared-Agency/scribe/internal/turn"
)

const turnsSchema = `
CREATE TABLE IF NOT EXISTS trace_turns (
	session_id  TEXT        NOT NULL,
	turn_number INTEGER     NOT NULL,
	project     TEXT        NOT NULL DEFAULT '',
	model       TEXT        NOT NULL DEFAULT '',
	input       TEXT        NOT NULL DEFAULT '',
	output      TEXT        NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL,
	ended_at    TIMESTAMPTZ NOT NULL,
	tool_calls  JSONB       NOT NULL DEFAULT '[]',
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (session_id, turn_number)
)`

// Postgres archives span trees into a relational table. The upsert keyed by
// (session_id, turn_number) makes replayed turns overwrite themselves, so
// at-least-once delivery stays idempotent.
type Postgres struct {
	pool   *pgxpool.Pool
	red    *redact.Redactor
	logger *slog.Logger
}

func NewPostgres(ctx context.Context, databaseURL string, red *redact.Redactor, logger *slog.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, turnsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Postgres{pool: pool, red: red, logger: logger}, nil
}

func (p *Postgres) Name() string { return "postgres" }

func (p *Postgres) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.pool.Ping(ctx) == nil
}

func (p *Postgres) Emit(ctx context.Context, t *turn.Turn) error {
	tree := BuildTree(t, p.red)

	calls, err := json.Marshal(tree.ToolCalls)
	if err != nil {
		return fmt.Errorf("marshal tool calls: %w", err)
	}
	if tree.ToolCalls == nil {
		calls = []byte("[]")
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO trace_turns
			(session_id, turn_number, project, model, input, output, started_at, ended_at, tool_calls)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id, turn_number) DO UPDATE SET
			output     = EXCLUDED.output,
			ended_at   = EXCLUDED.ended_at,
			tool_calls = EXCLUDED.tool_calls`,
		tree.SessionID, tree.TurnNumber, tree.Project, tree.Model,
		tree.Input, tree.Output, tree.StartedAt, tree.EndedAt, calls,
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}

	p.logger.Debug("turn archived",
		"session", tree.SessionID,
		"turn", tree.TurnNumber,
	)
	return nil
}

// Shutdown releases the connection pool.
func (p *Postgres) Shutdown(ctx context.Context) error {
	p.pool.Close()
	return nil
}
