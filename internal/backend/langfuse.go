package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/scribe/internal/redact"
	"github.com/MikeSquared-Agency/scribe/internal/turn"
)

const ingestionPath = "/api/public/ingestion"

// Langfuse delivers turns to a Langfuse deployment through its batch
// ingestion API. Trace ids are derived deterministically from session id
// and turn number, so replaying a turn updates the same trace instead of
// creating a second one.
type Langfuse struct {
	host         string
	publicKey    string
	secretKey    string
	client       *http.Client
	probeTimeout time.Duration
	red          *redact.Redactor
	logger       *slog.Logger
}

func NewLangfuse(host, publicKey, secretKey string, probeTimeout time.Duration, red *redact.Redactor, logger *slog.Logger) *Langfuse {
	return &Langfuse{
		host:         host,
		publicKey:    publicKey,
		secretKey:    secretKey,
		client:       &http.Client{Timeout: 30 * time.Second},
		probeTimeout: probeTimeout,
		red:          red,
		logger:       logger,
	}
}

func (l *Langfuse) Name() string { return "langfuse" }

func (l *Langfuse) HealthCheck(ctx context.Context) bool {
	return probeURL(l.host, l.probeTimeout)
}

// ingestionEvent is one entry of an ingestion batch. Langfuse deduplicates
// on the event id.
type ingestionEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Body      any    `json:"body"`
}

func (l *Langfuse) Emit(ctx context.Context, t *turn.Turn) error {
	tree := BuildTree(t, l.red)

	traceID := uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "%s/%d", tree.SessionID, tree.TurnNumber)).String()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tags := []string{"claude-code"}
	if tree.Project != "" {
		tags = append(tags, tree.Project)
	}
	meta := map[string]any{
		"source":      "claude-code",
		"turn_number": tree.TurnNumber,
		"session_id":  tree.SessionID,
		"project":     tree.Project,
	}

	batch := []ingestionEvent{
		{
			ID:        uuid.NewString(),
			Type:      "trace-create",
			Timestamp: now,
			Body: map[string]any{
				"id":        traceID,
				"name":      tree.RootName(),
				"sessionId": tree.SessionID,
				"timestamp": tree.StartedAt.Format(time.RFC3339Nano),
				"input":     map[string]any{"role": "user", "content": tree.Input},
				"output":    map[string]any{"role": "assistant", "content": tree.Output},
				"tags":      tags,
				"metadata":  meta,
			},
		},
		{
			ID:        uuid.NewString(),
			Type:      "generation-create",
			Timestamp: now,
			Body: map[string]any{
				"id":        uuid.NewSHA1(uuid.NameSpaceOID, []byte(traceID+"/generation")).String(),
				"traceId":   traceID,
				"name":      "Claude Response",
				"model":     tree.Model,
				"startTime": tree.StartedAt.Format(time.RFC3339Nano),
				"endTime":   tree.EndedAt.Format(time.RFC3339Nano),
				"input":     map[string]any{"role": "user", "content": tree.Input},
				"output":    map[string]any{"role": "assistant", "content": tree.Output},
				"metadata":  map[string]any{"tool_count": len(tree.ToolCalls)},
			},
		},
	}

	for i, call := range tree.ToolCalls {
		body := map[string]any{
			"id":      uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "%s/tool/%d", traceID, i)).String(),
			"traceId": traceID,
			"name":    "Tool: " + call.Name,
			"input":   json.RawMessage(call.Input),
			"metadata": map[string]any{
				"tool_name": call.Name,
				"tool_id":   call.ID,
			},
		}
		if call.Output != nil {
			body["output"] = json.RawMessage(call.Output)
		}
		batch = append(batch, ingestionEvent{
			ID:        uuid.NewString(),
			Type:      "span-create",
			Timestamp: now,
			Body:      body,
		})
	}

	payload, err := json.Marshal(map[string]any{"batch": batch})
	if err != nil {
		return fmt.Errorf("marshal ingestion batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.host+ingestionPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(l.publicKey, l.secretKey)

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("ingestion post: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("ingestion error %d: %s", resp.StatusCode, string(respBody))
	}

	l.logger.Debug("langfuse trace sent",
		"session", tree.SessionID,
		"turn", tree.TurnNumber,
		"tools", len(tree.ToolCalls),
	)
	return nil
}
