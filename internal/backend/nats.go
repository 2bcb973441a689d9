package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/MikeSquared-Agency/scribe/internal/redact"
	"github.com/MikeSquared-Agency/scribe/internal/turn"
)

// SubjectTurn is the subject span trees are published on.
const SubjectTurn = "scribe.trace.turn"

// NATS publishes span trees onto a message bus for downstream consumers.
// The connection is established once at construction; a batch pass is too
// short-lived for reconnect loops.
type NATS struct {
	conn   *nats.Conn
	red    *redact.Redactor
	logger *slog.Logger
}

func NewNATS(url, token string, red *redact.Redactor, logger *slog.Logger) (*NATS, error) {
	opts := []nats.Option{
		nats.Timeout(5 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATS{conn: nc, red: red, logger: logger}, nil
}

func (n *NATS) Name() string { return "nats" }

func (n *NATS) HealthCheck(ctx context.Context) bool {
	return n.conn.IsConnected()
}

func (n *NATS) Emit(ctx context.Context, t *turn.Turn) error {
	tree := BuildTree(t, n.red)
	payload, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("marshal span tree: %w", err)
	}
	if err := n.conn.Publish(SubjectTurn, payload); err != nil {
		return fmt.Errorf("publish turn: %w", err)
	}
	n.logger.Debug("nats turn published",
		"session", tree.SessionID,
		"turn", tree.TurnNumber,
	)
	return nil
}

// Shutdown flushes pending publishes and closes the connection.
func (n *NATS) Shutdown(ctx context.Context) error {
	defer n.conn.Close()
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush nats: %w", err)
	}
	return nil
}
