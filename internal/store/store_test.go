package store

import (
	"context"
	"testing"
)

// openTestStore opens an in-memory SQLiteStore for use in tests.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func Test_Store_RecordAndSources(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Record(ctx, "handbook", "/docs/handbook.pdf", 42); err != nil {
		t.Fatalf("record: %v", err)
	}

	runs, err := s.Sources(ctx, "handbook")
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("want 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.Collection != "handbook" || run.Source != "/docs/handbook.pdf" || run.Chunks != 42 {
		t.Errorf("unexpected run: %+v", run)
	}
	if run.IngestedAt.IsZero() {
		t.Error("ingested_at not set")
	}
}

func Test_Store_RecordUpsertsSameSource(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Record(ctx, "handbook", "/docs/handbook.pdf", 42); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := s.Record(ctx, "handbook", "/docs/handbook.pdf", 50); err != nil {
		t.Fatalf("second record: %v", err)
	}

	runs, err := s.Sources(ctx, "handbook")
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("re-ingest must overwrite, want 1 run, got %d", len(runs))
	}
	if runs[0].Chunks != 50 {
		t.Errorf("chunks = %d, want the updated 50", runs[0].Chunks)
	}
}

func Test_Store_Collections(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Record(ctx, "handbook", "/docs/handbook.pdf", 10); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.Record(ctx, "handbook", "/docs/handbook-appendix.pdf", 4); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.Record(ctx, "leave_policy", "https://example.com/leave.txt", 6); err != nil {
		t.Fatalf("record: %v", err)
	}

	names, err := s.Collections(ctx)
	if err != nil {
		t.Fatalf("collections: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("want 2 distinct collections, got %d: %v", len(names), names)
	}
}

func Test_Store_Forget(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Record(ctx, "handbook", "/docs/handbook.pdf", 10); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.Record(ctx, "leave_policy", "/docs/leave.txt", 3); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := s.Forget(ctx, "handbook"); err != nil {
		t.Fatalf("forget: %v", err)
	}

	runs, err := s.Sources(ctx, "handbook")
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("forgotten collection still has %d runs", len(runs))
	}

	names, err := s.Collections(ctx)
	if err != nil {
		t.Fatalf("collections: %v", err)
	}
	if len(names) != 1 || names[0] != "leave_policy" {
		t.Errorf("collections after forget = %v", names)
	}
}

func Test_Store_EmptyQueries(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	names, err := s.Collections(ctx)
	if err != nil {
		t.Fatalf("collections: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected no collections, got %v", names)
	}

	runs, err := s.Sources(ctx, "missing")
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %v", runs)
	}
}
