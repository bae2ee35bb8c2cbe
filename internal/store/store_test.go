package store

import (
	"database/sql"
	"os"
	"testing"
)

func TestStoreOpenAndMigrate(t *testing.T) {
	// Create a temporary database file
	tmpFile := "test-store.db"
	defer os.Remove(tmpFile)
	defer os.Remove(tmpFile + "-shm")
	defer os.Remove(tmpFile + "-wal")

	store, err := Open(tmpFile)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	version, err := store.getSchemaVersion()
	if err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("expected schema version %d, got %d", currentSchemaVersion, version)
	}

	// Verify tables exist
	tables := []string{
		"playback_sessions", "subscriptions", "favorites", "settings",
		"folders", "local_tracks", "local_subtitles", "id_seq", "schema_version",
	}
	for _, table := range tables {
		var count int
		err := store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}

	// Verify v2 performance indexes exist
	v2Indexes := []string{
		"idx_sessions_audio_url",
		"idx_sessions_track",
		"idx_tracks_created",
	}
	for _, index := range v2Indexes {
		var count int
		err := store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", index).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query index %s: %v", index, err)
		}
		if count != 1 {
			t.Errorf("expected index %s to exist (schema v2)", index)
		}
	}
}

func TestStoreReopenKeepsData(t *testing.T) {
	tmpFile := "test-reopen.db"
	defer os.Remove(tmpFile)
	defer os.Remove(tmpFile + "-shm")
	defer os.Remove(tmpFile + "-wal")

	store, err := Open(tmpFile)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := store.SetSetting("theme", "dark"); err != nil {
		t.Fatalf("failed to set setting: %v", err)
	}
	store.Close()

	store, err = Open(tmpFile)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer store.Close()

	setting, err := store.GetSetting("theme")
	if err != nil {
		t.Fatalf("failed to get setting: %v", err)
	}
	if setting == nil || setting.Value != "dark" {
		t.Errorf("expected setting to survive reopen, got %+v", setting)
	}
}

func TestIDAllocatorIsGloballyUnique(t *testing.T) {
	tmpFile := "test-ids.db"
	defer os.Remove(tmpFile)
	defer os.Remove(tmpFile + "-shm")
	defer os.Remove(tmpFile + "-wal")

	store, err := Open(tmpFile)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	// Entities from different collections must never share a numeric ID
	folder := &Folder{Name: "News"}
	if err := store.CreateFolder(folder); err != nil {
		t.Fatalf("failed to create folder: %v", err)
	}
	track := &Track{Name: "Episode 1", AudioBlobID: "blob-a"}
	if err := store.CreateTrack(track); err != nil {
		t.Fatalf("failed to create track: %v", err)
	}
	sub := &Subscription{FeedURL: "https://example.com/feed.xml"}
	if err := store.UpsertSubscription(sub); err != nil {
		t.Fatalf("failed to upsert subscription: %v", err)
	}
	fav := &Favorite{FeedURL: "https://example.com/feed.xml", AudioURL: "https://example.com/ep1.mp3"}
	if err := store.AddFavorite(fav); err != nil {
		t.Fatalf("failed to add favorite: %v", err)
	}

	seen := map[int64]bool{}
	for _, id := range []int64{folder.ID, track.ID, sub.ID, fav.ID} {
		if id == 0 {
			t.Fatal("expected a non-zero allocated id")
		}
		if seen[id] {
			t.Errorf("id %d allocated twice across collections", id)
		}
		seen[id] = true
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	tmpFile := "test-tx.db"
	defer os.Remove(tmpFile)
	defer os.Remove(tmpFile + "-shm")
	defer os.Remove(tmpFile + "-wal")

	store, err := Open(tmpFile)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	if err := store.SetSetting("keep", "me"); err != nil {
		t.Fatalf("failed to set setting: %v", err)
	}

	wantErr := os.ErrInvalid
	err = store.Transaction(func(tx *sql.Tx) error {
		if err := store.ClearAllTx(tx); err != nil {
			return err
		}
		return wantErr
	})
	if err == nil {
		t.Fatal("expected transaction error")
	}

	setting, err := store.GetSetting("keep")
	if err != nil {
		t.Fatalf("failed to get setting: %v", err)
	}
	if setting == nil {
		t.Error("expected setting to survive rolled-back transaction")
	}
}

func TestCheckIntegrity(t *testing.T) {
	tmpFile := "test-integrity.db"
	defer os.Remove(tmpFile)
	defer os.Remove(tmpFile + "-shm")
	defer os.Remove(tmpFile + "-wal")

	store, err := Open(tmpFile)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	if err := store.CheckIntegrity(); err != nil {
		t.Errorf("expected fresh database to pass integrity check: %v", err)
	}
}
