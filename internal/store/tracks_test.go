package store

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/franz/podlib/internal/util"
)

func TestFolderLifecycle(t *testing.T) {
	tmpFile := "test-folders.db"
	defer os.Remove(tmpFile)
	defer os.Remove(tmpFile + "-shm")
	defer os.Remove(tmpFile + "-wal")

	store, err := Open(tmpFile)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	folder := &Folder{Name: "Tech"}
	if err := store.CreateFolder(folder); err != nil {
		t.Fatalf("failed to create folder: %v", err)
	}
	if folder.ID == 0 || folder.CreatedAt == 0 {
		t.Fatal("expected id and timestamp to be set")
	}

	if err := store.RenameFolder(folder.ID, "Technology"); err != nil {
		t.Fatalf("failed to rename folder: %v", err)
	}
	got, err := store.GetFolder(folder.ID)
	if err != nil {
		t.Fatalf("failed to get folder: %v", err)
	}
	if got.Name != "Technology" {
		t.Errorf("expected renamed folder, got %s", got.Name)
	}

	if err := store.SetFolderPinned(folder.ID, true); err != nil {
		t.Fatalf("failed to pin folder: %v", err)
	}
	got, _ = store.GetFolder(folder.ID)
	if got.PinnedAt == 0 {
		t.Error("expected pinned_at to be set")
	}

	if err := store.RenameFolder(9999, "x"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFolderOrderPinnedFirst(t *testing.T) {
	tmpFile := "test-folder-order.db"
	defer os.Remove(tmpFile)
	defer os.Remove(tmpFile + "-shm")
	defer os.Remove(tmpFile + "-wal")

	store, err := Open(tmpFile)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	for _, name := range []string{"zebra", "Apple", "mango"} {
		if err := store.CreateFolder(&Folder{Name: name}); err != nil {
			t.Fatalf("failed to create folder: %v", err)
		}
	}
	mango, err := store.GetFolderByName("mango")
	if err != nil {
		t.Fatalf("failed to get folder: %v", err)
	}
	if err := store.SetFolderPinned(mango.ID, true); err != nil {
		t.Fatalf("failed to pin folder: %v", err)
	}

	folders, err := store.AllFolders()
	if err != nil {
		t.Fatalf("failed to list folders: %v", err)
	}
	if len(folders) != 3 {
		t.Fatalf("expected 3 folders, got %d", len(folders))
	}
	if folders[0].Name != "mango" {
		t.Errorf("expected pinned folder first, got %s", folders[0].Name)
	}
	if folders[1].Name != "Apple" || folders[2].Name != "zebra" {
		t.Errorf("expected case-insensitive name order, got %s, %s", folders[1].Name, folders[2].Name)
	}
}

func TestTrackLifecycle(t *testing.T) {
	tmpFile := "test-tracks.db"
	defer os.Remove(tmpFile)
	defer os.Remove(tmpFile + "-shm")
	defer os.Remove(tmpFile + "-wal")

	store, err := Open(tmpFile)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	// A track requires an audio blob
	if err := store.CreateTrack(&Track{Name: "no blob"}); err == nil {
		t.Error("expected error for track without audio blob")
	}

	folder := &Folder{Name: "Audiobooks"}
	if err := store.CreateFolder(folder); err != nil {
		t.Fatalf("failed to create folder: %v", err)
	}

	track := &Track{Name: "Chapter 1", AudioBlobID: "blob-1", SizeBytes: 2048}
	if err := store.CreateTrack(track); err != nil {
		t.Fatalf("failed to create track: %v", err)
	}

	if err := store.MoveTrack(track.ID, folder.ID); err != nil {
		t.Fatalf("failed to move track: %v", err)
	}
	inFolder, err := store.TracksByFolder(folder.ID)
	if err != nil {
		t.Fatalf("failed to list tracks: %v", err)
	}
	if len(inFolder) != 1 || inFolder[0].ID != track.ID {
		t.Errorf("expected track in folder, got %+v", inFolder)
	}

	// Moving back to the root
	if err := store.MoveTrack(track.ID, 0); err != nil {
		t.Fatalf("failed to move track to root: %v", err)
	}
	atRoot, err := store.TracksByFolder(0)
	if err != nil {
		t.Fatalf("failed to list root tracks: %v", err)
	}
	if len(atRoot) != 1 {
		t.Errorf("expected track at root, got %d", len(atRoot))
	}

	if err := store.RenameTrack(track.ID, "Prologue"); err != nil {
		t.Fatalf("failed to rename track: %v", err)
	}
	got, err := store.GetTrack(track.ID)
	if err != nil {
		t.Fatalf("failed to get track: %v", err)
	}
	if got.Name != "Prologue" {
		t.Errorf("expected renamed track, got %s", got.Name)
	}
}

func TestSubtitleLifecycle(t *testing.T) {
	tmpFile := "test-subtitles.db"
	defer os.Remove(tmpFile)
	defer os.Remove(tmpFile + "-shm")
	defer os.Remove(tmpFile + "-wal")

	store, err := Open(tmpFile)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	// A subtitle requires a blob
	if err := store.CreateTrackSubtitle(&TrackSubtitle{TrackID: 1, Name: "x"}); err == nil {
		t.Error("expected error for subtitle without blob")
	}

	track := &Track{Name: "Lecture", AudioBlobID: "blob-a"}
	if err := store.CreateTrack(track); err != nil {
		t.Fatalf("failed to create track: %v", err)
	}

	sub := &TrackSubtitle{TrackID: track.ID, Name: "english.srt", SubtitleBlobID: "blob-s"}
	if err := store.CreateTrackSubtitle(sub); err != nil {
		t.Fatalf("failed to create subtitle: %v", err)
	}
	if err := store.SetActiveSubtitle(track.ID, sub.ID); err != nil {
		t.Fatalf("failed to set active subtitle: %v", err)
	}

	got, err := store.GetTrack(track.ID)
	if err != nil {
		t.Fatalf("failed to get track: %v", err)
	}
	if got.ActiveSubtitleID != sub.ID {
		t.Errorf("expected active subtitle %d, got %d", sub.ID, got.ActiveSubtitleID)
	}

	subs, err := store.SubtitlesByTrack(track.ID)
	if err != nil {
		t.Fatalf("failed to list subtitles: %v", err)
	}
	if len(subs) != 1 || subs[0].Name != "english.srt" {
		t.Errorf("unexpected subtitles: %+v", subs)
	}
}

func TestSearchTracks(t *testing.T) {
	tmpFile := "test-track-search.db"
	defer os.Remove(tmpFile)
	defer os.Remove(tmpFile + "-shm")
	defer os.Remove(tmpFile + "-wal")

	store, err := Open(tmpFile)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	names := []string{"Go Time 101", "The History Hour", "go time 202"}
	for i, name := range names {
		track := &Track{Name: name, AudioBlobID: fmt.Sprintf("blob-%d", i)}
		if err := store.CreateTrack(track); err != nil {
			t.Fatalf("failed to create track: %v", err)
		}
	}

	matches, err := store.SearchTracks("GO TIME", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("expected 2 matches, got %d", len(matches))
	}
}
