package transcript

import (
	"os"
	"path/filepath"
	"testing"
)

func writeLines(t *testing.T, path string, lines []string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	for _, line := range lines {
		f.WriteString(line + "\n")
	}
}

func TestReadSession_FromOffset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sess.jsonl")
	writeLines(t, path, []string{
		`{"type":"user","sessionId":"s1","message":{"role":"user","content":"one"}}`,
		`{"type":"assistant","sessionId":"s1","message":{"role":"assistant","id":"m1","content":[{"type":"text","text":"two"}]}}`,
		`{"type":"user","sessionId":"s1","message":{"role":"user","content":"three"}}`,
	})

	records, total, err := ReadSession(path, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Line != 1 || records[1].Line != 2 {
		t.Errorf("line positions = %d, %d; want 1, 2", records[0].Line, records[1].Line)
	}
	if got := records[1].Text(); got != "three" {
		t.Errorf("records[1] text = %q", got)
	}
}

func TestReadSession_OffsetPastEnd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sess.jsonl")
	writeLines(t, path, []string{
		`{"type":"user","sessionId":"s1","message":{"role":"user","content":"one"}}`,
	})

	records, total, err := ReadSession(path, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 || total != 1 {
		t.Errorf("records = %d, total = %d", len(records), total)
	}
}

func TestReadSession_Missing(t *testing.T) {
	if _, _, err := ReadSession("/nonexistent/sess.jsonl", 0); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSessionID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abc-def.jsonl")
	writeLines(t, path, []string{
		`garbage line`,
		`{"sessionId":"real-session","type":"user","message":{"role":"user","content":"hi"}}`,
	})

	if got := SessionID(path); got != "real-session" {
		t.Errorf("session id = %q", got)
	}
}

func TestSessionID_FallsBackToStem(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abc-def.jsonl")
	writeLines(t, path, []string{`no ids here`})

	if got := SessionID(path); got != "abc-def" {
		t.Errorf("session id = %q, want file stem", got)
	}
	if got := SessionID(filepath.Join(dir, "missing.jsonl")); got != "missing" {
		t.Errorf("missing file session id = %q", got)
	}
}

func TestProjectName(t *testing.T) {
	cases := map[string]string{
		"/home/x/.claude/projects/-Users-jane-my-project": "my-project",
		"/home/x/.claude/projects/-home-jane-api":         "api",
		"/home/x/.claude/projects/plain":                  "plain",
	}
	for dir, want := range cases {
		if got := ProjectName(dir); got != want {
			t.Errorf("ProjectName(%q) = %q, want %q", dir, got, want)
		}
	}
}
