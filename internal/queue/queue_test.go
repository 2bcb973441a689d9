package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/MikeSquared-Agency/scribe/internal/backend"
	"github.com/MikeSquared-Agency/scribe/internal/turn"
)

type fakeAdapter struct {
	name    string
	fail    bool
	emitted []int
	cancel  context.CancelFunc // when set, fires after each emit
}

func (f *fakeAdapter) Name() string                     { return f.name }
func (f *fakeAdapter) HealthCheck(context.Context) bool { return true }

func (f *fakeAdapter) Emit(_ context.Context, t *turn.Turn) error {
	if f.fail {
		return errors.New("backend down")
	}
	f.emitted = append(f.emitted, t.TurnNumber)
	if f.cancel != nil {
		f.cancel()
	}
	return nil
}

var _ backend.Adapter = (*fakeAdapter)(nil)

func testQueue(t *testing.T) *Queue {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(filepath.Join(t.TempDir(), "pending_traces.jsonl"), logger)
}

func mkTurn(n int) turn.Turn {
	return turn.Turn{SessionID: "s1", TurnNumber: n}
}

func TestEnqueueLoadAll_Order(t *testing.T) {
	q := testQueue(t)
	for i := 1; i <= 3; i++ {
		q.Enqueue(mkTurn(i))
	}

	entries := q.LoadAll()
	if len(entries) != 3 {
		t.Fatalf("loaded %d entries, want 3", len(entries))
	}
	for i, entry := range entries {
		if entry.Turn.TurnNumber != i+1 {
			t.Errorf("entry %d has turn %d, want %d", i, entry.Turn.TurnNumber, i+1)
		}
		if entry.QueuedAt.IsZero() {
			t.Errorf("entry %d has zero QueuedAt", i)
		}
	}
}

func TestLoadAll_MissingFile(t *testing.T) {
	q := testQueue(t)
	if entries := q.LoadAll(); entries != nil {
		t.Errorf("missing file should yield nil, got %v", entries)
	}
	if q.Depth() != 0 {
		t.Errorf("depth = %d, want 0", q.Depth())
	}
}

func TestLoadAll_SkipsCorruptLines(t *testing.T) {
	q := testQueue(t)
	q.Enqueue(mkTurn(1))

	f, err := os.OpenFile(q.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("{corrupt\n")
	f.Close()
	q.Enqueue(mkTurn(2))

	entries := q.LoadAll()
	if len(entries) != 2 {
		t.Fatalf("loaded %d entries, want 2", len(entries))
	}
	if entries[0].Turn.TurnNumber != 1 || entries[1].Turn.TurnNumber != 2 {
		t.Errorf("entries = %d, %d", entries[0].Turn.TurnNumber, entries[1].Turn.TurnNumber)
	}
}

func TestClear(t *testing.T) {
	q := testQueue(t)
	q.Enqueue(mkTurn(1))
	if err := q.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if q.Depth() != 0 {
		t.Errorf("depth after clear = %d", q.Depth())
	}
	// Clearing an already-empty queue is not an error.
	if err := q.Clear(); err != nil {
		t.Fatalf("clear empty: %v", err)
	}
}

func TestDrain_DeliversToAllAdapters(t *testing.T) {
	q := testQueue(t)
	for i := 1; i <= 3; i++ {
		q.Enqueue(mkTurn(i))
	}

	a := &fakeAdapter{name: "a"}
	b := &fakeAdapter{name: "b"}
	drained := q.Drain(context.Background(), []backend.Adapter{a, b})
	if drained != 3 {
		t.Errorf("drained = %d, want 3", drained)
	}
	for _, ad := range []*fakeAdapter{a, b} {
		if len(ad.emitted) != 3 {
			t.Fatalf("adapter %s emitted %d, want 3", ad.name, len(ad.emitted))
		}
		for i, n := range ad.emitted {
			if n != i+1 {
				t.Errorf("adapter %s emit order: %v", ad.name, ad.emitted)
				break
			}
		}
	}
	if q.Depth() != 0 {
		t.Errorf("queue depth after drain = %d", q.Depth())
	}
}

func TestDrain_AdapterFailureDoesNotStopDrain(t *testing.T) {
	q := testQueue(t)
	q.Enqueue(mkTurn(1))
	q.Enqueue(mkTurn(2))

	bad := &fakeAdapter{name: "bad", fail: true}
	good := &fakeAdapter{name: "good"}
	drained := q.Drain(context.Background(), []backend.Adapter{bad, good})
	if drained != 2 {
		t.Errorf("drained = %d, want 2", drained)
	}
	if len(good.emitted) != 2 {
		t.Errorf("healthy adapter emitted %d, want 2", len(good.emitted))
	}
	if q.Depth() != 0 {
		t.Errorf("failed deliveries must not requeue, depth = %d", q.Depth())
	}
}

func TestDrain_InterruptRequeuesRemainder(t *testing.T) {
	q := testQueue(t)
	for i := 1; i <= 4; i++ {
		q.Enqueue(mkTurn(i))
	}
	before := q.LoadAll()

	ctx, cancel := context.WithCancel(context.Background())
	a := &fakeAdapter{name: "a", cancel: cancel}
	drained := q.Drain(ctx, []backend.Adapter{a})
	if drained != 1 {
		t.Fatalf("drained = %d, want 1", drained)
	}

	remaining := q.LoadAll()
	if len(remaining) != 3 {
		t.Fatalf("requeued %d entries, want 3", len(remaining))
	}
	for i, entry := range remaining {
		if entry.Turn.TurnNumber != i+2 {
			t.Errorf("requeued order wrong: entry %d is turn %d", i, entry.Turn.TurnNumber)
		}
		// Requeue keeps the original enqueue timestamps.
		if !entry.QueuedAt.Equal(before[i+1].QueuedAt) {
			t.Errorf("entry %d QueuedAt changed on requeue", i)
		}
	}
}

type dyingAdapter struct{}

func (dyingAdapter) Name() string                         { return "dying" }
func (dyingAdapter) HealthCheck(context.Context) bool     { return true }
func (dyingAdapter) Emit(context.Context, *turn.Turn) error {
	panic("process killed mid-delivery")
}

func TestDrain_AbortMidDeliveryLosesNothing(t *testing.T) {
	q := testQueue(t)
	for i := 1; i <= 3; i++ {
		q.Enqueue(mkTurn(i))
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("adapter was expected to die")
			}
		}()
		q.Drain(context.Background(), []backend.Adapter{dyingAdapter{}})
	}()

	// The queue file is untouched until delivery finishes, so the whole
	// batch survives for the next pass. Replay beats loss.
	entries := q.LoadAll()
	if len(entries) != 3 {
		t.Fatalf("%d of 3 queued turns survive an aborted drain", len(entries))
	}
	for i, entry := range entries {
		if entry.Turn.TurnNumber != i+1 {
			t.Errorf("entry %d is turn %d, want %d", i, entry.Turn.TurnNumber, i+1)
		}
	}
}

func TestDrain_EmptyQueue(t *testing.T) {
	q := testQueue(t)
	a := &fakeAdapter{name: "a"}
	if drained := q.Drain(context.Background(), []backend.Adapter{a}); drained != 0 {
		t.Errorf("drained = %d, want 0", drained)
	}
}

func TestRequeue_PreservesTimestamps(t *testing.T) {
	q := testQueue(t)
	q.Enqueue(mkTurn(1))
	entries := q.LoadAll()
	if err := q.Clear(); err != nil {
		t.Fatal(err)
	}

	q.Requeue(entries)
	after := q.LoadAll()
	if len(after) != 1 {
		t.Fatalf("requeued %d entries, want 1", len(after))
	}
	if !after[0].QueuedAt.Equal(entries[0].QueuedAt) {
		t.Errorf("QueuedAt = %v, want %v", after[0].QueuedAt, entries[0].QueuedAt)
	}
}

func TestEnqueue_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pending.jsonl")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	New(path, logger).Enqueue(mkTurn(9))

	reopened := New(path, logger)
	entries := reopened.LoadAll()
	if len(entries) != 1 || entries[0].Turn.TurnNumber != 9 {
		t.Fatalf("entries = %+v", entries)
	}
}
