package blob

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/franz/podlib/internal/util"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "blobs.db"))
	if err != nil {
		t.Fatalf("failed to open blob store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenFailureKeepsCause(t *testing.T) {
	// Opening a directory as a database fails; the error carries both
	// the sentinel and the bolt cause
	_, err := Open(t.TempDir())
	if !errors.Is(err, util.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if err.Error() == "failed to open blob store: "+util.ErrStorageUnavailable.Error() {
		t.Error("expected the underlying open error to be included")
	}
}

func TestPutAndGet(t *testing.T) {
	store := openTestStore(t)

	payload := []byte("fake mp3 bytes")
	meta := &Meta{Filename: "episode.mp3", MimeType: "audio/mpeg", Format: "mp3", SizeBytes: int64(len(payload))}
	if err := store.Put(KindAudio, meta, payload); err != nil {
		t.Fatalf("failed to put blob: %v", err)
	}
	if meta.ID == "" {
		t.Fatal("expected a generated blob id")
	}
	if meta.StoredAt == 0 {
		t.Error("expected stored_at to default to now")
	}

	got, gotMeta, err := store.Get(KindAudio, meta.ID)
	if err != nil {
		t.Fatalf("failed to get blob: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("payload mismatch")
	}
	if gotMeta.Filename != "episode.mp3" || gotMeta.MimeType != "audio/mpeg" {
		t.Errorf("meta mismatch: %+v", gotMeta)
	}
}

func TestKindsAreIsolated(t *testing.T) {
	store := openTestStore(t)

	meta := &Meta{Filename: "captions.srt"}
	if err := store.Put(KindSubtitle, meta, []byte("1\n00:00:01 --> 00:00:02\nhi\n")); err != nil {
		t.Fatalf("failed to put blob: %v", err)
	}

	// The same id under a different kind does not exist
	if store.Has(KindAudio, meta.ID) {
		t.Error("subtitle blob leaked into the audio bucket")
	}
	if _, _, err := store.Get(KindAudio, meta.ID); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteAndMissing(t *testing.T) {
	store := openTestStore(t)

	meta := &Meta{Filename: "a.mp3"}
	if err := store.Put(KindAudio, meta, []byte("x")); err != nil {
		t.Fatalf("failed to put blob: %v", err)
	}
	if err := store.Delete(KindAudio, meta.ID); err != nil {
		t.Fatalf("failed to delete blob: %v", err)
	}
	if store.Has(KindAudio, meta.ID) {
		t.Error("expected blob to be gone")
	}
	// Deleting a missing blob is not an error
	if err := store.Delete(KindAudio, "no-such-id"); err != nil {
		t.Errorf("expected idempotent delete, got %v", err)
	}
}

func TestDeleteManyAndAccounting(t *testing.T) {
	store := openTestStore(t)

	var ids []string
	for _, payload := range []string{"aaa", "bbbbb", "c"} {
		meta := &Meta{Filename: "f.mp3", SizeBytes: int64(len(payload))}
		if err := store.Put(KindAudio, meta, []byte(payload)); err != nil {
			t.Fatalf("failed to put blob: %v", err)
		}
		ids = append(ids, meta.ID)
	}

	count, err := store.Count(KindAudio)
	if err != nil {
		t.Fatalf("failed to count blobs: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 blobs, got %d", count)
	}
	size, err := store.TotalSize(KindAudio)
	if err != nil {
		t.Fatalf("failed to size blobs: %v", err)
	}
	if size != 9 {
		t.Errorf("expected 9 bytes total, got %d", size)
	}

	if err := store.DeleteMany(KindAudio, ids[:2]); err != nil {
		t.Fatalf("failed to delete blobs: %v", err)
	}
	count, _ = store.Count(KindAudio)
	if count != 1 {
		t.Errorf("expected 1 blob left, got %d", count)
	}

	keys, err := store.Keys(KindAudio)
	if err != nil {
		t.Fatalf("failed to list keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != ids[2] {
		t.Errorf("unexpected keys: %v", keys)
	}
}
