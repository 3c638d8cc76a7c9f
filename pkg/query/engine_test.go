package query

import (
	"context"
	"os"
	"testing"

	"github.com/ssargent/muninn/pkg/index"
	"github.com/ssargent/muninn/pkg/replay"
	"github.com/ssargent/muninn/pkg/store"
)

// newTestEngine builds an engine over a real store and index populated
// with a few runs.
func newTestEngine(t *testing.T) (*Engine, *store.RunStore, *index.StateIndex, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "muninn_query_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	rs, err := store.NewRunStore(store.RunStoreConfig{DataDir: tmpDir})
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to create store: %v", err)
	}
	if _, err := rs.Open(); err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to open store: %v", err)
	}

	si := index.NewStateIndex(4)
	engine := NewEngine(si, rs)

	cleanup := func() {
		rs.Close()
		os.RemoveAll(tmpDir)
	}
	return engine, rs, si, cleanup
}

func recordIndexed(t *testing.T, rs *store.RunStore, si *index.StateIndex, id string, state *replay.State) {
	t.Helper()
	if err := rs.Record(id, state); err != nil {
		t.Fatalf("Failed to record %s: %v", id, err)
	}
	si.Insert(id, state)
}

func TestEngine_Run_Equality(t *testing.T) {
	engine, rs, si, cleanup := newTestEngine(t)
	defer cleanup()

	recordIndexed(t, rs, si, "suite/a", &replay.State{Seed: 42, Size: 10})
	recordIndexed(t, rs, si, "suite/b", &replay.State{Seed: 42, Size: 20})
	recordIndexed(t, rs, si, "suite/c", &replay.State{Seed: 99, Size: 30})

	it, err := engine.Run(context.Background(), FieldQuery{Field: "seed", Op: "=", Value: 42})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	defer it.Close()

	var ids []string
	for it.Next() {
		result := it.Result()
		if result.State == nil {
			t.Errorf("result %s has nil state", result.ID)
		} else if result.State.Seed != 42 {
			t.Errorf("result %s has seed %d, want 42", result.ID, result.State.Seed)
		}
		ids = append(ids, result.ID)
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iteration error: %v", err)
	}

	if len(ids) != 2 || ids[0] != "suite/a" || ids[1] != "suite/b" {
		t.Errorf("Expected [suite/a suite/b], got %v", ids)
	}
}

func TestEngine_Run_RangeOperators(t *testing.T) {
	engine, rs, si, cleanup := newTestEngine(t)
	defer cleanup()

	recordIndexed(t, rs, si, "run-10", &replay.State{Seed: 1, Size: 10})
	recordIndexed(t, rs, si, "run-20", &replay.State{Seed: 2, Size: 20})
	recordIndexed(t, rs, si, "run-30", &replay.State{Seed: 3, Size: 30})

	tests := []struct {
		name  string
		query FieldQuery
		want  []string
	}{
		{"greater than", FieldQuery{Field: "size", Op: ">", Value: 10}, []string{"run-20", "run-30"}},
		{"greater or equal", FieldQuery{Field: "size", Op: ">=", Value: 20}, []string{"run-20", "run-30"}},
		{"less than", FieldQuery{Field: "size", Op: "<", Value: 30}, []string{"run-10", "run-20"}},
		{"less or equal", FieldQuery{Field: "size", Op: "<=", Value: 20}, []string{"run-10", "run-20"}},
		{"no matches", FieldQuery{Field: "size", Op: ">", Value: 100}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := engine.Run(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			defer it.Close()

			var ids []string
			for it.Next() {
				ids = append(ids, it.Result().ID)
			}
			if err := it.Err(); err != nil {
				t.Fatalf("iteration error: %v", err)
			}

			if len(ids) != len(tt.want) {
				t.Fatalf("got %v, want %v", ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Errorf("result %d = %s, want %s", i, ids[i], tt.want[i])
				}
			}
		})
	}
}

func TestEngine_Run_SkipsForgotten(t *testing.T) {
	engine, rs, si, cleanup := newTestEngine(t)
	defer cleanup()

	recordIndexed(t, rs, si, "suite/keep", &replay.State{Seed: 42})
	recordIndexed(t, rs, si, "suite/drop", &replay.State{Seed: 42})

	// Forget one run but leave its index entry stale.
	if err := rs.Forget("suite/drop"); err != nil {
		t.Fatalf("Forget failed: %v", err)
	}

	it, err := engine.Run(context.Background(), FieldQuery{Field: "seed", Op: "=", Value: 42})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	defer it.Close()

	var ids []string
	for it.Next() {
		ids = append(ids, it.Result().ID)
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iteration error: %v", err)
	}

	if len(ids) != 1 || ids[0] != "suite/keep" {
		t.Errorf("Expected [suite/keep], got %v", ids)
	}
}

func TestEngine_Run_InvalidQuery(t *testing.T) {
	engine, _, _, cleanup := newTestEngine(t)
	defer cleanup()

	if _, err := engine.Run(context.Background(), FieldQuery{Field: "flavor", Op: "=", Value: 1}); err == nil {
		t.Error("Expected error for unknown field")
	}

	if _, err := engine.Run(context.Background(), FieldQuery{Field: "seed", Op: "!=", Value: 1}); err == nil {
		t.Error("Expected error for invalid operator")
	}
}

func TestEngine_Run_ContextCancellation(t *testing.T) {
	engine, rs, si, cleanup := newTestEngine(t)
	defer cleanup()

	for i := uint64(1); i <= 10; i++ {
		id := "suite/run-" + string(rune('a'+i-1))
		recordIndexed(t, rs, si, id, &replay.State{Seed: 7, Counter: i})
	}

	ctx, cancel := context.WithCancel(context.Background())
	it, err := engine.Run(ctx, FieldQuery{Field: "seed", Op: "=", Value: 7})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	defer it.Close()

	if !it.Next() {
		t.Fatal("Expected at least one result before cancellation")
	}

	cancel()

	if it.Next() {
		t.Error("Next returned true after cancellation")
	}
	if it.Err() != context.Canceled {
		t.Errorf("Err() = %v, want context.Canceled", it.Err())
	}
}

func TestEngine_Between(t *testing.T) {
	engine, rs, si, cleanup := newTestEngine(t)
	defer cleanup()

	recordIndexed(t, rs, si, "run-a", &replay.State{Seed: 1, Counter: 100})
	recordIndexed(t, rs, si, "run-b", &replay.State{Seed: 2, Counter: 200})
	recordIndexed(t, rs, si, "run-c", &replay.State{Seed: 3, Counter: 300})

	it, err := engine.Between(context.Background(), "counter", 150, 300)
	if err != nil {
		t.Fatalf("Between failed: %v", err)
	}
	defer it.Close()

	var ids []string
	for it.Next() {
		ids = append(ids, it.Result().ID)
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iteration error: %v", err)
	}

	if len(ids) != 2 || ids[0] != "run-b" || ids[1] != "run-c" {
		t.Errorf("Expected [run-b run-c], got %v", ids)
	}

	if _, err := engine.Between(context.Background(), "flavor", 0, 1); err == nil {
		t.Error("Expected error for unknown field")
	}
}
