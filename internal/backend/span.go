package backend

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/MikeSquared-Agency/scribe/internal/redact"
	"github.com/MikeSquared-Agency/scribe/internal/transcript"
	"github.com/MikeSquared-Agency/scribe/internal/turn"
)

// ToolCall pairs a tool invocation with its matched result. Output is nil
// when no tool_result with the call's id was observed; that is normal, not
// an error.
type ToolCall struct {
	Name   string          `json:"name"`
	ID     string          `json:"id"`
	Input  json.RawMessage `json:"input,omitempty"`
	Output json.RawMessage `json:"output,omitempty"`
}

// Tree is the backend-neutral span structure built from one turn: a root
// span for the turn, one generation child for the model response, and one
// child per tool call. Each adapter maps it onto its own wire format.
type Tree struct {
	SessionID  string     `json:"sessionId"`
	Project    string     `json:"project,omitempty"`
	TurnNumber int        `json:"turnNumber"`
	Model      string     `json:"model"`
	Input      string     `json:"input"`
	Output     string     `json:"output"`
	StartedAt  time.Time  `json:"startedAt"`
	EndedAt    time.Time  `json:"endedAt"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
}

// RootName returns the root span's name.
func (tr *Tree) RootName() string {
	return fmt.Sprintf("Turn %d", tr.TurnNumber)
}

// BuildTree assembles the span tree for a turn, matching tool outputs to
// calls by the shared call id and applying secret redaction to everything
// that leaves the machine.
func BuildTree(t *turn.Turn, red *redact.Redactor) Tree {
	start, end := t.Span()
	if start.IsZero() {
		start = time.Now().UTC()
	}
	if end.IsZero() || end.Before(start) {
		end = start
	}

	tree := Tree{
		SessionID:  t.SessionID,
		Project:    t.Project,
		TurnNumber: t.TurnNumber,
		Model:      t.Model(),
		Input:      red.Text(t.User.Text()),
		Output:     red.Text(t.FinalText()),
		StartedAt:  start,
		EndedAt:    end,
	}

	for _, a := range t.Assistants {
		for _, use := range a.ToolUses() {
			call := ToolCall{
				Name:  use.Name,
				ID:    use.ID,
				Input: red.JSON(use.Input),
			}
			if out, ok := matchResult(t.ToolResults, use.ID); ok {
				call.Output = red.JSON(out)
			}
			tree.ToolCalls = append(tree.ToolCalls, call)
		}
	}
	return tree
}

func matchResult(results []transcript.Record, id string) (json.RawMessage, bool) {
	if id == "" {
		return nil, false
	}
	for _, r := range results {
		for _, b := range r.Blocks {
			if b.Type == "tool_result" && b.ToolUseID == id {
				return b.Content, true
			}
		}
	}
	return nil, false
}
