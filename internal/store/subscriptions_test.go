package store

import (
	"os"
	"testing"
)

func TestSubscriptionUpsert(t *testing.T) {
	tmpFile := "test-subs.db"
	defer os.Remove(tmpFile)
	defer os.Remove(tmpFile + "-shm")
	defer os.Remove(tmpFile + "-wal")

	store, err := Open(tmpFile)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	sub := &Subscription{FeedURL: "https://example.com/feed.xml", Title: "Example"}
	if err := store.UpsertSubscription(sub); err != nil {
		t.Fatalf("failed to upsert subscription: %v", err)
	}
	if sub.ID == 0 || sub.AddedAt == 0 {
		t.Fatal("expected id and timestamp to be set")
	}
	firstID, firstAdded := sub.ID, sub.AddedAt

	// Upserting the same feed updates metadata but keeps identity
	again := &Subscription{FeedURL: "https://example.com/feed.xml", Title: "Example (new)"}
	if err := store.UpsertSubscription(again); err != nil {
		t.Fatalf("failed to re-upsert subscription: %v", err)
	}
	if again.ID != firstID {
		t.Errorf("expected stable id %d, got %d", firstID, again.ID)
	}

	got, err := store.GetSubscription("https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("failed to get subscription: %v", err)
	}
	if got.Title != "Example (new)" {
		t.Errorf("expected updated title, got %s", got.Title)
	}
	if got.AddedAt != firstAdded {
		t.Error("expected added_at to survive upsert")
	}

	count, err := store.CountSubscriptions()
	if err != nil {
		t.Fatalf("failed to count subscriptions: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 subscription, got %d", count)
	}

	if err := store.DeleteSubscription("https://example.com/feed.xml"); err != nil {
		t.Fatalf("failed to delete subscription: %v", err)
	}
	got, err = store.GetSubscription("https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Error("expected subscription to be gone")
	}
}

func TestFavoriteAddAndRemove(t *testing.T) {
	tmpFile := "test-favs.db"
	defer os.Remove(tmpFile)
	defer os.Remove(tmpFile + "-shm")
	defer os.Remove(tmpFile + "-wal")

	store, err := Open(tmpFile)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	fav := &Favorite{
		FeedURL:      "https://example.com/feed.xml",
		AudioURL:     "https://example.com/ep1.mp3",
		EpisodeTitle: "Pilot",
	}
	if err := store.AddFavorite(fav); err != nil {
		t.Fatalf("failed to add favorite: %v", err)
	}
	firstID := fav.ID

	// The (feedUrl, audioUrl) pair is the natural key: re-adding updates in place
	dup := &Favorite{
		FeedURL:      "https://example.com/feed.xml",
		AudioURL:     "https://example.com/ep1.mp3",
		EpisodeTitle: "Pilot (remastered)",
	}
	if err := store.AddFavorite(dup); err != nil {
		t.Fatalf("failed to re-add favorite: %v", err)
	}
	if dup.ID != firstID {
		t.Errorf("expected stable id %d, got %d", firstID, dup.ID)
	}

	count, err := store.CountFavorites()
	if err != nil {
		t.Fatalf("failed to count favorites: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 favorite, got %d", count)
	}

	isFav, err := store.IsFavorite("https://example.com/feed.xml", "https://example.com/ep1.mp3")
	if err != nil {
		t.Fatalf("failed to check favorite: %v", err)
	}
	if !isFav {
		t.Error("expected favorite to exist")
	}

	if err := store.RemoveFavorite("https://example.com/feed.xml", "https://example.com/ep1.mp3"); err != nil {
		t.Fatalf("failed to remove favorite: %v", err)
	}
	isFav, _ = store.IsFavorite("https://example.com/feed.xml", "https://example.com/ep1.mp3")
	if isFav {
		t.Error("expected favorite to be gone")
	}
}

func TestSettingsUpsert(t *testing.T) {
	tmpFile := "test-settings.db"
	defer os.Remove(tmpFile)
	defer os.Remove(tmpFile + "-shm")
	defer os.Remove(tmpFile + "-wal")

	store, err := Open(tmpFile)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	if err := store.SetSetting("playback-speed", "1.5"); err != nil {
		t.Fatalf("failed to set setting: %v", err)
	}
	if err := store.SetSetting("playback-speed", "2.0"); err != nil {
		t.Fatalf("failed to update setting: %v", err)
	}

	got, err := store.GetSetting("playback-speed")
	if err != nil {
		t.Fatalf("failed to get setting: %v", err)
	}
	if got == nil || got.Value != "2.0" {
		t.Errorf("expected updated value, got %+v", got)
	}

	missing, err := store.GetSetting("no-such-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing setting")
	}
}
