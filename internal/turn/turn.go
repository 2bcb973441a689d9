// Package turn groups an ordered stream of transcript records into
// completed conversation turns.
package turn

import (
	"time"

	"github.com/MikeSquared-Agency/scribe/internal/transcript"
)

// Turn is the unit of delivery: one user prompt, the assistant response(s)
// it produced, and the tool results observed before the next prompt.
type Turn struct {
	SessionID   string              `json:"sessionId"`
	Project     string              `json:"project,omitempty"`
	TurnNumber  int                 `json:"turnNumber"`
	User        transcript.Record   `json:"user"`
	Assistants  []transcript.Record `json:"assistants"`
	ToolResults []transcript.Record `json:"toolResults,omitempty"`
}

// Model returns the model name recorded on the first assistant message,
// falling back to "claude".
func (t *Turn) Model() string {
	for _, a := range t.Assistants {
		if a.Model != "" {
			return a.Model
		}
	}
	return "claude"
}

// FinalText returns the text of the last assistant message.
func (t *Turn) FinalText() string {
	if len(t.Assistants) == 0 {
		return ""
	}
	return t.Assistants[len(t.Assistants)-1].Text()
}

// Span returns the wall-clock bounds of the turn, derived from record
// timestamps. Zero times are skipped; both bounds are zero when no record
// carries a timestamp.
func (t *Turn) Span() (start, end time.Time) {
	start = t.User.Timestamp
	end = t.User.Timestamp
	widen := func(ts time.Time) {
		if ts.IsZero() {
			return
		}
		if start.IsZero() || ts.Before(start) {
			start = ts
		}
		if end.IsZero() || ts.After(end) {
			end = ts
		}
	}
	for _, a := range t.Assistants {
		widen(a.Timestamp)
	}
	for _, tr := range t.ToolResults {
		widen(tr.Timestamp)
	}
	return start, end
}
