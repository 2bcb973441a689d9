package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "state.json"))
	m := s.Load()
	if m == nil || len(m) != 0 {
		t.Fatalf("expected empty mapping, got %v", m)
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	os.WriteFile(path, []byte("{not json"), 0o644)

	m := NewStore(path).Load()
	if len(m) != 0 {
		t.Fatalf("corrupt file should yield empty mapping, got %v", m)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := NewStore(path)

	now := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)
	in := map[string]Checkpoint{
		"sess-a": {LastLine: 42, TurnCount: 7, UpdatedAt: now},
		"sess-b": {LastLine: 3, TurnCount: 1, UpdatedAt: now.Add(time.Hour)},
	}
	if err := s.Save(in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out := s.Load()
	if len(out) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(out))
	}
	a := out["sess-a"]
	if a.LastLine != 42 || a.TurnCount != 7 || !a.UpdatedAt.Equal(now) {
		t.Errorf("sess-a = %+v", a)
	}
}

func TestSave_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := NewStore(path)

	if err := s.Save(map[string]Checkpoint{"old": {LastLine: 1}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(map[string]Checkpoint{"new": {LastLine: 2}}); err != nil {
		t.Fatal(err)
	}

	out := s.Load()
	if _, ok := out["old"]; ok {
		t.Error("save must fully overwrite the previous mapping")
	}
	if out["new"].LastLine != 2 {
		t.Errorf("new = %+v", out["new"])
	}
}

func TestSave_CreatesStateDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	if err := NewStore(path).Save(map[string]Checkpoint{}); err != nil {
		t.Fatalf("save into missing directory: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("state file not created: %v", err)
	}
}
