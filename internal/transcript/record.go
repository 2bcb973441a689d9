// Package transcript provides typed, read-only views over Claude Code
// session transcripts: one JSON object per line, append-only.
package transcript

import (
	"encoding/json"
	"strings"
	"time"
)

// Kind classifies a transcript record. Records that cannot be parsed or
// carry an unknown shape map to KindMalformed and are skip-only.
type Kind int

const (
	KindMalformed Kind = iota
	KindUser
	KindAssistant
	// KindToolResult is a user-typed record whose content carries
	// tool_result blocks. It never starts a conversation turn.
	KindToolResult
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindAssistant:
		return "assistant"
	case KindToolResult:
		return "tool_result"
	default:
		return "malformed"
	}
}

// ContentBlock is one element of a record's content array. The field set is
// the union of the block shapes the transcript format uses; unused fields
// stay zero.
type ContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`          // tool_use
	Name      string          `json:"name,omitempty"`        // tool_use
	Input     json.RawMessage `json:"input,omitempty"`       // tool_use
	ToolUseID string          `json:"tool_use_id,omitempty"` // tool_result
	Content   json.RawMessage `json:"content,omitempty"`     // tool_result
}

// Record is one parsed line of a session transcript. Records are immutable
// once parsed; content that arrived as a plain string is normalized into a
// single text block.
type Record struct {
	Kind      Kind           `json:"kind"`
	SessionID string         `json:"sessionId,omitempty"`
	MessageID string         `json:"messageId,omitempty"` // assistant records only
	Model     string         `json:"model,omitempty"`     // assistant records only
	Timestamp time.Time      `json:"timestamp,omitempty"`
	Wrapped   bool           `json:"wrapped,omitempty"` // content lived under message.content
	Blocks    []ContentBlock `json:"blocks,omitempty"`
	Line      int            `json:"line"` // 0-based position in the source file
}

// rawLine covers the shapes a transcript line can take: a top-level type
// discriminator with a nested message, or role/content at the top level.
type rawLine struct {
	Type      string `json:"type"`
	Role      string `json:"role"`
	SessionID string `json:"sessionId"`
	Timestamp string `json:"timestamp"`
	Message   struct {
		Role    string          `json:"role"`
		ID      string          `json:"id"`
		Model   string          `json:"model"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
	Content json.RawMessage `json:"content"`
}

// ParseLine parses one raw transcript line. It is total: malformed input
// yields a KindMalformed record, never an error.
func ParseLine(data []byte, line int) Record {
	rec := Record{Kind: KindMalformed, Line: line}

	var raw rawLine
	if err := json.Unmarshal(data, &raw); err != nil {
		return rec
	}

	role := raw.Type
	if role == "" {
		role = raw.Message.Role
	}
	if role == "" {
		role = raw.Role
	}

	rec.SessionID = raw.SessionID
	if ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp); err == nil {
		rec.Timestamp = ts
	}

	content := raw.Content
	if raw.Message.Content != nil {
		content = raw.Message.Content
		rec.Wrapped = true
	}
	rec.Blocks = parseContent(content)

	switch role {
	case "user", "human":
		rec.Kind = KindUser
		for _, b := range rec.Blocks {
			if b.Type == "tool_result" {
				rec.Kind = KindToolResult
				break
			}
		}
	case "assistant":
		rec.Kind = KindAssistant
		rec.MessageID = raw.Message.ID
		rec.Model = raw.Message.Model
	default:
		rec.Kind = KindMalformed
	}
	return rec
}

// parseContent decodes a content value that is either a plain string or an
// array of typed blocks. Anything else degrades to no blocks.
func parseContent(content json.RawMessage) []ContentBlock {
	if content == nil {
		return nil
	}

	var plain string
	if err := json.Unmarshal(content, &plain); err == nil {
		if plain == "" {
			return nil
		}
		return []ContentBlock{{Type: "text", Text: plain}}
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(content, &blocks); err != nil {
		return nil
	}
	return blocks
}

// Content returns the record's content blocks. Nil for malformed records.
func (r Record) Content() []ContentBlock {
	return r.Blocks
}

// Text joins the record's text blocks with newlines. Empty when the record
// carries no text.
func (r Record) Text() string {
	var parts []string
	for _, b := range r.Blocks {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ToolUses returns the record's tool_use blocks in order.
func (r Record) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, b := range r.Blocks {
		if b.Type == "tool_use" {
			uses = append(uses, b)
		}
	}
	return uses
}

// IsToolResultCarrier reports whether this record carries tool results
// rather than a genuine user prompt.
func (r Record) IsToolResultCarrier() bool {
	return r.Kind == KindToolResult
}
