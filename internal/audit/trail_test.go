package audit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// trails returns both implementations so each test runs the same
// behavioral suite against sqlite and memory.
func trails(t *testing.T) map[string]Trail {
	t.Helper()
	sq, err := NewSQLiteTrail(SQLiteConfig{Path: filepath.Join(t.TempDir(), "audit.db")})
	if err != nil {
		t.Fatalf("NewSQLiteTrail: %v", err)
	}
	return map[string]Trail{
		"sqlite": sq,
		"memory": NewMemoryTrail(),
	}
}

func mustRecord(t *testing.T, planID string, kind RecordKind, artifact any) Record {
	t.Helper()
	rec, err := NewRecord(planID, kind, artifact)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	return rec
}

func TestAppendAndQuery(t *testing.T) {
	for name, trail := range trails(t) {
		t.Run(name, func(t *testing.T) {
			defer trail.Close()
			ctx := context.Background()

			for _, kind := range Kinds() {
				if err := trail.Append(ctx, mustRecord(t, "plan-1", kind, map[string]string{"k": string(kind)})); err != nil {
					t.Fatalf("Append %s: %v", kind, err)
				}
			}
			if err := trail.Append(ctx, mustRecord(t, "plan-2", KindIntent, "other")); err != nil {
				t.Fatalf("Append plan-2: %v", err)
			}

			all, err := trail.Query(ctx, Filter{PlanID: "plan-1"})
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(all) != 4 {
				t.Fatalf("got %d records, want 4", len(all))
			}
			for i, kind := range Kinds() {
				if all[i].Kind != kind {
					t.Errorf("record %d kind = %s, want %s (append order)", i, all[i].Kind, kind)
				}
			}

			results, err := trail.Query(ctx, Filter{Kind: KindResult})
			if err != nil {
				t.Fatalf("Query by kind: %v", err)
			}
			if len(results) != 1 || results[0].PlanID != "plan-1" {
				t.Errorf("result query = %+v", results)
			}

			limited, err := trail.Query(ctx, Filter{PlanID: "plan-1", Limit: 2})
			if err != nil {
				t.Fatalf("Query with limit: %v", err)
			}
			if len(limited) != 2 {
				t.Errorf("limit ignored: got %d records", len(limited))
			}
		})
	}
}

func TestDuplicateKindRejected(t *testing.T) {
	for name, trail := range trails(t) {
		t.Run(name, func(t *testing.T) {
			defer trail.Close()
			ctx := context.Background()

			if err := trail.Append(ctx, mustRecord(t, "plan-1", KindResult, "first")); err != nil {
				t.Fatalf("first Append: %v", err)
			}
			err := trail.Append(ctx, mustRecord(t, "plan-1", KindResult, "second"))
			if !errors.Is(err, ErrDuplicate) {
				t.Fatalf("second Append err = %v, want ErrDuplicate", err)
			}

			// The first record is untouched.
			recs, err := trail.Query(ctx, Filter{PlanID: "plan-1", Kind: KindResult})
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(recs) != 1 || string(recs[0].Payload) != `"first"` {
				t.Errorf("trail mutated by rejected append: %+v", recs)
			}
		})
	}
}

func TestHasResult(t *testing.T) {
	for name, trail := range trails(t) {
		t.Run(name, func(t *testing.T) {
			defer trail.Close()
			ctx := context.Background()

			ok, err := trail.HasResult(ctx, "plan-1")
			if err != nil || ok {
				t.Fatalf("HasResult before append = %v, %v", ok, err)
			}
			// A report alone does not count as executed.
			if err := trail.Append(ctx, mustRecord(t, "plan-1", KindReport, "r")); err != nil {
				t.Fatal(err)
			}
			if ok, _ := trail.HasResult(ctx, "plan-1"); ok {
				t.Error("report record should not satisfy HasResult")
			}
			if err := trail.Append(ctx, mustRecord(t, "plan-1", KindResult, "res")); err != nil {
				t.Fatal(err)
			}
			if ok, _ := trail.HasResult(ctx, "plan-1"); !ok {
				t.Error("HasResult should be true after result append")
			}
		})
	}
}

func TestWatchDeliversNewRecords(t *testing.T) {
	for name, trail := range trails(t) {
		t.Run(name, func(t *testing.T) {
			defer trail.Close()
			ctx := context.Background()

			ch, stop := trail.Watch()
			defer stop()

			rec := mustRecord(t, "plan-w", KindPlan, "p")
			if err := trail.Append(ctx, rec); err != nil {
				t.Fatal(err)
			}

			select {
			case got := <-ch:
				if got.ID != rec.ID {
					t.Errorf("watched record id = %s, want %s", got.ID, rec.ID)
				}
			case <-time.After(time.Second):
				t.Fatal("no record delivered to watcher")
			}

			stop()
			if _, open := <-ch; open {
				t.Error("channel should be closed after stop")
			}
		})
	}
}
