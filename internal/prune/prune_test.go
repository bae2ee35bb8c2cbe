package prune

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/franz/podlib/internal/blob"
	"github.com/franz/podlib/internal/cascade"
	"github.com/franz/podlib/internal/report"
	"github.com/franz/podlib/internal/store"
)

func newTestPruner(t *testing.T, cfg *Config) (*Pruner, *store.Store, *blob.Store) {
	t.Helper()
	dir := t.TempDir()

	db, err := store.Open(filepath.Join(dir, "state.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	blobs, err := blob.Open(filepath.Join(dir, "blobs.db"))
	if err != nil {
		t.Fatalf("failed to open blob store: %v", err)
	}
	t.Cleanup(func() { blobs.Close() })

	cfg.Store = db
	cfg.Deleter = cascade.New(&cascade.Config{Store: db, Blobs: blobs, Logger: report.NullLogger()})
	cfg.Logger = report.NullLogger()
	if cfg.Yield == 0 {
		cfg.Yield = time.Millisecond
	}
	return New(cfg), db, blobs
}

func seedSessions(t *testing.T, db *store.Store, n int, newest time.Time, step time.Duration) {
	t.Helper()
	for i := 0; i < n; i++ {
		ts := newest.Add(-time.Duration(i) * step).UnixMilli()
		sess := &store.Session{
			Source:       store.SourceRemote,
			Title:        fmt.Sprintf("Episode %d", i),
			CreatedAt:    ts,
			LastPlayedAt: ts,
		}
		if err := db.CreateSession(sess); err != nil {
			t.Fatalf("failed to seed session: %v", err)
		}
	}
}

func TestPruneByCount(t *testing.T) {
	p, db, _ := newTestPruner(t, &Config{MaxSessions: 10, RetentionDays: 365, BatchSize: 4})

	// 15 recent sessions, all within the retention window: the count
	// threshold is the restrictive one and trims down to 10
	seedSessions(t, db, 15, time.Now(), time.Minute)

	result, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if result.Deleted != 5 {
		t.Errorf("expected 5 deleted, got %d", result.Deleted)
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}

	count, err := db.CountSessions()
	if err != nil {
		t.Fatalf("failed to count sessions: %v", err)
	}
	if count != 10 {
		t.Errorf("expected 10 sessions kept, got %d", count)
	}
}

func TestPruneByAge(t *testing.T) {
	p, db, _ := newTestPruner(t, &Config{MaxSessions: 1000, RetentionDays: 30, BatchSize: 100})

	// 5 recent, 3 well past the window: the age threshold wins
	seedSessions(t, db, 5, time.Now(), time.Minute)
	seedSessions(t, db, 3, time.Now().AddDate(0, 0, -60), time.Minute)

	result, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if result.Deleted != 3 {
		t.Errorf("expected 3 deleted, got %d", result.Deleted)
	}

	count, _ := db.CountSessions()
	if count != 5 {
		t.Errorf("expected 5 sessions kept, got %d", count)
	}
}

func TestPruneStricterThresholdWins(t *testing.T) {
	// Both thresholds bite: 8 sessions, cap of 5, and the oldest 4 are
	// past the window. Age alone would delete 4, count alone 3; the
	// stricter combination deletes 4.
	p, db, _ := newTestPruner(t, &Config{MaxSessions: 5, RetentionDays: 30, BatchSize: 100})

	seedSessions(t, db, 4, time.Now(), time.Minute)
	seedSessions(t, db, 4, time.Now().AddDate(0, 0, -60), time.Minute)

	result, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if result.Deleted != 4 {
		t.Errorf("expected 4 deleted, got %d", result.Deleted)
	}
}

func TestPruneNothingToDo(t *testing.T) {
	p, db, _ := newTestPruner(t, &Config{MaxSessions: 100, RetentionDays: 180, BatchSize: 10})

	seedSessions(t, db, 5, time.Now(), time.Minute)

	result, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if result.Deleted != 0 {
		t.Errorf("expected nothing deleted, got %d", result.Deleted)
	}
}

func TestPruneCascadesSessionBlobs(t *testing.T) {
	p, db, blobs := newTestPruner(t, &Config{MaxSessions: 1, RetentionDays: 30, BatchSize: 10})

	meta := &blob.Meta{Filename: "old.mp3", SizeBytes: 3}
	if err := blobs.Put(blob.KindAudio, meta, []byte("old")); err != nil {
		t.Fatalf("failed to put blob: %v", err)
	}

	old := time.Now().AddDate(0, 0, -90).UnixMilli()
	stale := &store.Session{
		Source:       store.SourceRemote,
		Title:        "Stale cached episode",
		CreatedAt:    old,
		LastPlayedAt: old,
		AudioBlobID:  meta.ID,
		Cached:       true,
	}
	if err := db.CreateSession(stale); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	seedSessions(t, db, 1, time.Now(), time.Minute)

	result, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if result.Deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", result.Deleted)
	}
	if blobs.Has(blob.KindAudio, meta.ID) {
		t.Error("expected pruned session's cached audio to be reclaimed")
	}
}

func TestPruneBatches(t *testing.T) {
	p, db, _ := newTestPruner(t, &Config{MaxSessions: 2, RetentionDays: 365, BatchSize: 3})

	seedSessions(t, db, 11, time.Now(), time.Minute)

	result, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if result.Deleted != 9 {
		t.Errorf("expected 9 deleted, got %d", result.Deleted)
	}
	if result.Batches != 3 {
		t.Errorf("expected 3 batches, got %d", result.Batches)
	}
}

func TestPruneRespectsContext(t *testing.T) {
	p, db, _ := newTestPruner(t, &Config{MaxSessions: 1, RetentionDays: 365, BatchSize: 10})

	seedSessions(t, db, 5, time.Now(), time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Prune(ctx)
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
