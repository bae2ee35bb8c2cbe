package cascade

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/franz/podlib/internal/blob"
	"github.com/franz/podlib/internal/report"
	"github.com/franz/podlib/internal/store"
	"github.com/franz/podlib/internal/util"
)

func newTestDeleter(t *testing.T) (*Deleter, *store.Store, *blob.Store) {
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

	d := New(&Config{Store: db, Blobs: blobs, Logger: report.NullLogger()})
	return d, db, blobs
}

func putBlob(t *testing.T, blobs *blob.Store, kind blob.Kind, payload string) string {
	t.Helper()
	meta := &blob.Meta{Filename: "f", SizeBytes: int64(len(payload))}
	if err := blobs.Put(kind, meta, []byte(payload)); err != nil {
		t.Fatalf("failed to put blob: %v", err)
	}
	return meta.ID
}

func TestDeleteFolderCascades(t *testing.T) {
	d, db, blobs := newTestDeleter(t)

	folder := &store.Folder{Name: "Lectures"}
	if err := db.CreateFolder(folder); err != nil {
		t.Fatalf("failed to create folder: %v", err)
	}

	audioID := putBlob(t, blobs, blob.KindAudio, "audio bytes")
	subBlobID := putBlob(t, blobs, blob.KindSubtitle, "caption bytes")

	track := &store.Track{FolderID: folder.ID, Name: "Intro", AudioBlobID: audioID}
	if err := db.CreateTrack(track); err != nil {
		t.Fatalf("failed to create track: %v", err)
	}
	sub := &store.TrackSubtitle{TrackID: track.ID, Name: "en.srt", SubtitleBlobID: subBlobID}
	if err := db.CreateTrackSubtitle(sub); err != nil {
		t.Fatalf("failed to create subtitle: %v", err)
	}
	sess := &store.Session{Source: store.SourceLocal, Title: "Intro", TrackID: track.ID}
	if err := db.CreateSession(sess); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	if err := d.DeleteFolder(folder.ID); err != nil {
		t.Fatalf("failed to delete folder: %v", err)
	}

	// No record that referenced the folder survives
	if got, _ := db.GetFolder(folder.ID); got != nil {
		t.Error("expected folder to be gone")
	}
	if got, _ := db.GetTrack(track.ID); got != nil {
		t.Error("expected track to be gone")
	}
	if got, _ := db.GetTrackSubtitle(sub.ID); got != nil {
		t.Error("expected subtitle to be gone")
	}
	if got, _ := db.GetSession(sess.ID); got != nil {
		t.Error("expected session to be gone")
	}
	if blobs.Has(blob.KindAudio, audioID) {
		t.Error("expected audio blob to be gone")
	}
	if blobs.Has(blob.KindSubtitle, subBlobID) {
		t.Error("expected subtitle blob to be gone")
	}
}

func TestDeleteTrackKeepsFolder(t *testing.T) {
	d, db, blobs := newTestDeleter(t)

	folder := &store.Folder{Name: "Keep me"}
	if err := db.CreateFolder(folder); err != nil {
		t.Fatalf("failed to create folder: %v", err)
	}
	audioID := putBlob(t, blobs, blob.KindAudio, "bytes")
	track := &store.Track{FolderID: folder.ID, Name: "Gone", AudioBlobID: audioID}
	if err := db.CreateTrack(track); err != nil {
		t.Fatalf("failed to create track: %v", err)
	}

	if err := d.DeleteTrack(track.ID); err != nil {
		t.Fatalf("failed to delete track: %v", err)
	}

	if got, _ := db.GetFolder(folder.ID); got == nil {
		t.Error("expected folder to survive track deletion")
	}
	if blobs.Has(blob.KindAudio, audioID) {
		t.Error("expected track audio blob to be gone")
	}
}

func TestDeleteSessionOwnedBlobs(t *testing.T) {
	d, db, blobs := newTestDeleter(t)

	audioID := putBlob(t, blobs, blob.KindAudio, "cached episode")
	subID := putBlob(t, blobs, blob.KindSubtitle, "transcript")

	sess := &store.Session{
		Source:         store.SourceRemote,
		Title:          "Cached episode",
		AudioBlobID:    audioID,
		SubtitleBlobID: subID,
		Cached:         true,
	}
	if err := db.CreateSession(sess); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	if err := d.DeleteSession(sess.ID); err != nil {
		t.Fatalf("failed to delete session: %v", err)
	}
	if got, _ := db.GetSession(sess.ID); got != nil {
		t.Error("expected session to be gone")
	}
	if blobs.Has(blob.KindAudio, audioID) || blobs.Has(blob.KindSubtitle, subID) {
		t.Error("expected session-owned blobs to be gone")
	}
}

func TestDeleteSessionLeavesTrackAlone(t *testing.T) {
	d, db, blobs := newTestDeleter(t)

	audioID := putBlob(t, blobs, blob.KindAudio, "track audio")
	track := &store.Track{Name: "Local file", AudioBlobID: audioID}
	if err := db.CreateTrack(track); err != nil {
		t.Fatalf("failed to create track: %v", err)
	}
	sess := &store.Session{Source: store.SourceLocal, TrackID: track.ID}
	if err := db.CreateSession(sess); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	if err := d.DeleteSession(sess.ID); err != nil {
		t.Fatalf("failed to delete session: %v", err)
	}

	// The session referenced the track's audio; it never owned it
	if got, _ := db.GetTrack(track.ID); got == nil {
		t.Error("expected track to survive session deletion")
	}
	if !blobs.Has(blob.KindAudio, audioID) {
		t.Error("expected track audio blob to survive session deletion")
	}
}

func TestDeleteMissingEntity(t *testing.T) {
	d, _, _ := newTestDeleter(t)

	if err := d.DeleteFolder(42); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := d.DeleteTrack(42); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := d.DeleteSession("nope"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClearAllAudioBlobs(t *testing.T) {
	d, db, blobs := newTestDeleter(t)

	// Two cached sessions, one track-backed session, one local track
	cachedA := putBlob(t, blobs, blob.KindAudio, "episode a")
	cachedB := putBlob(t, blobs, blob.KindAudio, "episode bb")
	trackAudio := putBlob(t, blobs, blob.KindAudio, "imported")

	track := &store.Track{Name: "Imported", AudioBlobID: trackAudio}
	if err := db.CreateTrack(track); err != nil {
		t.Fatalf("failed to create track: %v", err)
	}

	sessA := &store.Session{Source: store.SourceRemote, AudioBlobID: cachedA, SizeBytes: 9, Cached: true}
	sessB := &store.Session{Source: store.SourceRemote, AudioBlobID: cachedB, SizeBytes: 10, Cached: true}
	sessT := &store.Session{Source: store.SourceLocal, TrackID: track.ID}
	for _, sess := range []*store.Session{sessA, sessB, sessT} {
		if err := db.CreateSession(sess); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}
	}

	result, err := d.ClearAllAudioBlobs()
	if err != nil {
		t.Fatalf("failed to clear cache: %v", err)
	}
	if result.BlobsDeleted != 2 || result.SessionsCleared != 2 {
		t.Errorf("unexpected result: %+v", result)
	}
	if result.BytesFreed != 19 {
		t.Errorf("expected 19 bytes freed, got %d", result.BytesFreed)
	}

	// Sessions survive with their references cleared
	for _, id := range []string{sessA.ID, sessB.ID} {
		got, err := db.GetSession(id)
		if err != nil || got == nil {
			t.Fatalf("expected session %s to survive: %v", id, err)
		}
		if got.AudioBlobID != "" || got.Cached {
			t.Errorf("expected cleared references, got %+v", got)
		}
	}

	// The imported track's audio is untouched
	if !blobs.Has(blob.KindAudio, trackAudio) {
		t.Error("expected track audio to survive clear-cache")
	}
	if blobs.Has(blob.KindAudio, cachedA) || blobs.Has(blob.KindAudio, cachedB) {
		t.Error("expected cached audio to be gone")
	}
}
