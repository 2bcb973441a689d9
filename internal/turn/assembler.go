package turn

import (
	"github.com/MikeSquared-Agency/scribe/internal/transcript"
)

// Assemble walks records in order and emits every completed turn, numbering
// from startCount+1. It is a pure single pass: running it twice over the
// same input produces identical output.
//
// The second return value is the line count (exclusive, absolute file
// position) through which input is safe to mark consumed. A trailing turn
// that has a user message but no assistant response yet is not emitted, and
// the lines from its user record onward are not counted as consumed, so the
// next pass re-reads them once the response has landed.
//
// Tool-result records arriving before the next user record are attributed
// to the turn accumulating at that moment, even when the matching tool_use
// lives in an earlier, already-flushed turn. That mirrors the established
// attribution behavior; callers match outputs to calls by id and record an
// absent output when nothing matches.
func Assemble(records []transcript.Record, startCount int) ([]Turn, int) {
	if len(records) == 0 {
		return nil, 0
	}

	var (
		turns       []Turn
		user        *transcript.Record
		assistants  []transcript.Record
		parts       []transcript.Record
		msgID       string
		toolResults []transcript.Record
		consumed    int
	)

	flushParts := func() {
		if len(parts) > 0 {
			assistants = append(assistants, mergeParts(parts))
			parts = nil
			msgID = ""
		}
	}

	for i := range records {
		rec := records[i]
		switch rec.Kind {
		case transcript.KindMalformed:
			// Skip-only; counted as consumed along with whatever
			// turn it falls inside.

		case transcript.KindToolResult:
			toolResults = append(toolResults, rec)

		case transcript.KindUser:
			flushParts()
			if user != nil && len(assistants) > 0 {
				turns = append(turns, Turn{
					SessionID:   sessionOf(*user, rec),
					TurnNumber:  startCount + len(turns) + 1,
					User:        *user,
					Assistants:  assistants,
					ToolResults: toolResults,
				})
			}
			// Everything before this user record is either folded
			// into an emitted turn or can never complete one.
			consumed = rec.Line
			user = &records[i]
			assistants = nil
			toolResults = nil

		case transcript.KindAssistant:
			switch {
			case rec.MessageID == "":
				// Standalone single-part message.
				flushParts()
				assistants = append(assistants, rec)
			case rec.MessageID == msgID:
				// Continuation of the in-progress message.
				parts = append(parts, rec)
			default:
				flushParts()
				msgID = rec.MessageID
				parts = append(parts, rec)
			}
		}
	}

	flushParts()
	last := records[len(records)-1].Line + 1
	if user != nil {
		if len(assistants) > 0 {
			turns = append(turns, Turn{
				SessionID:   user.SessionID,
				TurnNumber:  startCount + len(turns) + 1,
				User:        *user,
				Assistants:  assistants,
				ToolResults: toolResults,
			})
			consumed = last
		}
		// Response still in progress: leave consumed at the pending
		// user's line so the turn is rediscovered next pass.
	} else {
		consumed = last
	}

	return turns, consumed
}

// mergeParts folds consecutive records sharing a message id into one
// logical assistant message. Block order is preserved across parts and the
// merged record keeps the shape of the first part.
func mergeParts(parts []transcript.Record) transcript.Record {
	merged := parts[0]
	if len(parts) == 1 {
		return merged
	}
	blocks := make([]transcript.ContentBlock, 0, len(merged.Blocks))
	for _, p := range parts {
		blocks = append(blocks, p.Blocks...)
	}
	merged.Blocks = blocks
	return merged
}

func sessionOf(user, next transcript.Record) string {
	if user.SessionID != "" {
		return user.SessionID
	}
	return next.SessionID
}
