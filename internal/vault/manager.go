package vault

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/franz/podlib/internal/store"
)

// Manager exports and restores snapshots against a metadata store.
// Blob content never travels through the vault: a restored library
// re-fetches or re-imports its media.
type Manager struct {
	store *store.Store
}

func NewManager(st *store.Store) *Manager {
	return &Manager{store: st}
}

// Export reads every metadata collection into a snapshot. The result
// is a point-in-time copy; concurrent writers are not blocked.
func (m *Manager) Export() (*Snapshot, error) {
	snap := &Snapshot{
		Version:    CurrentVersion,
		ExportedAt: time.Now().UnixMilli(),
	}

	folders, err := m.store.AllFolders()
	if err != nil {
		return nil, fmt.Errorf("exporting folders: %w", err)
	}
	for _, f := range folders {
		snap.Data.Folders = append(snap.Data.Folders, FolderRecord{
			ID:        f.ID,
			Name:      f.Name,
			CreatedAt: f.CreatedAt,
			PinnedAt:  f.PinnedAt,
			Extra:     decodeExtra(f.ExtraJSON),
		})
	}

	tracks, err := m.store.AllTracks()
	if err != nil {
		return nil, fmt.Errorf("exporting tracks: %w", err)
	}
	for _, t := range tracks {
		snap.Data.LocalTracks = append(snap.Data.LocalTracks, TrackRecord{
			ID:               t.ID,
			FolderID:         t.FolderID,
			Name:             t.Name,
			AudioID:          t.AudioBlobID,
			SizeBytes:        t.SizeBytes,
			DurationSeconds:  t.DurationSeconds,
			CreatedAt:        t.CreatedAt,
			ActiveSubtitleID: t.ActiveSubtitleID,
			Extra:            decodeExtra(t.ExtraJSON),
		})
	}

	subtitles, err := m.store.AllSubtitles()
	if err != nil {
		return nil, fmt.Errorf("exporting subtitles: %w", err)
	}
	for _, sub := range subtitles {
		snap.Data.LocalSubtitles = append(snap.Data.LocalSubtitles, SubtitleRecord{
			ID:         sub.ID,
			TrackID:    sub.TrackID,
			Name:       sub.Name,
			SubtitleID: sub.SubtitleBlobID,
			Extra:      decodeExtra(sub.ExtraJSON),
		})
	}

	subscriptions, err := m.store.AllSubscriptions()
	if err != nil {
		return nil, fmt.Errorf("exporting subscriptions: %w", err)
	}
	for _, sub := range subscriptions {
		snap.Data.Subscriptions = append(snap.Data.Subscriptions, SubscriptionRecord{
			ID:                sub.ID,
			FeedURL:           sub.FeedURL,
			Title:             sub.Title,
			Author:            sub.Author,
			ArtworkURL:        sub.ArtworkURL,
			AddedAt:           sub.AddedAt,
			ProviderPodcastID: sub.ProviderPodcastID,
			Extra:             decodeExtra(sub.ExtraJSON),
		})
	}

	favorites, err := m.store.AllFavorites()
	if err != nil {
		return nil, fmt.Errorf("exporting favorites: %w", err)
	}
	for _, f := range favorites {
		snap.Data.Favorites = append(snap.Data.Favorites, FavoriteRecord{
			ID:              f.ID,
			FeedURL:         f.FeedURL,
			AudioURL:        f.AudioURL,
			EpisodeTitle:    f.EpisodeTitle,
			PodcastTitle:    f.PodcastTitle,
			ArtworkURL:      f.ArtworkURL,
			DurationSeconds: f.DurationSeconds,
			AddedAt:         f.AddedAt,
			EpisodeID:       f.EpisodeID,
			Extra:           decodeExtra(f.ExtraJSON),
		})
	}

	sessions, err := m.store.AllSessions()
	if err != nil {
		return nil, fmt.Errorf("exporting sessions: %w", err)
	}
	for _, sess := range sessions {
		snap.Data.Sessions = append(snap.Data.Sessions, SessionRecord{
			ID:              sess.ID,
			Source:          sess.Source,
			Title:           sess.Title,
			CreatedAt:       sess.CreatedAt,
			LastPlayedAt:    sess.LastPlayedAt,
			SizeBytes:       sess.SizeBytes,
			DurationSeconds: sess.DurationSeconds,
			ProgressSeconds: sess.ProgressSeconds,
			AudioID:         sess.AudioBlobID,
			SubtitleID:      sess.SubtitleBlobID,
			TrackID:         sess.TrackID,
			FeedURL:         sess.FeedURL,
			EpisodeID:       sess.EpisodeID,
			AudioURL:        sess.AudioURL,
			Cached:          sess.Cached,
			Extra:           decodeExtra(sess.ExtraJSON),
		})
	}

	settings, err := m.store.AllSettings()
	if err != nil {
		return nil, fmt.Errorf("exporting settings: %w", err)
	}
	for _, set := range settings {
		snap.Data.Settings = append(snap.Data.Settings, SettingRecord{
			Key:       set.Key,
			Value:     set.Value,
			UpdatedAt: set.UpdatedAt,
			Extra:     decodeExtra(set.ExtraJSON),
		})
	}

	return snap, nil
}

// Import replaces the entire library's metadata with the snapshot.
// The snapshot is validated and verified first; nothing is touched if
// either fails. The replacement itself runs in one transaction, so a
// failed restore leaves the previous library intact.
func (m *Manager) Import(snap *Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	if verr := VerifySnapshot(snap, time.Now()); verr != nil {
		return verr
	}

	return m.store.Transaction(func(tx *sql.Tx) error {
		if err := m.store.ClearAllTx(tx); err != nil {
			return err
		}

		var maxID int64
		bump := func(id int64) {
			if id > maxID {
				maxID = id
			}
		}

		for _, f := range snap.Data.Folders {
			bump(f.ID)
			if err := m.store.InsertFolderTx(tx, &store.Folder{
				ID:        f.ID,
				Name:      f.Name,
				CreatedAt: f.CreatedAt,
				PinnedAt:  f.PinnedAt,
				ExtraJSON: encodeExtra(f.Extra),
			}); err != nil {
				return fmt.Errorf("restoring folder %d: %w", f.ID, err)
			}
		}

		for _, t := range snap.Data.LocalTracks {
			bump(t.ID)
			if err := m.store.InsertTrackTx(tx, &store.Track{
				ID:               t.ID,
				FolderID:         t.FolderID,
				Name:             t.Name,
				AudioBlobID:      t.AudioID,
				SizeBytes:        t.SizeBytes,
				DurationSeconds:  t.DurationSeconds,
				CreatedAt:        t.CreatedAt,
				ActiveSubtitleID: t.ActiveSubtitleID,
				ExtraJSON:        encodeExtra(t.Extra),
			}); err != nil {
				return fmt.Errorf("restoring track %d: %w", t.ID, err)
			}
		}

		for _, sub := range snap.Data.LocalSubtitles {
			bump(sub.ID)
			if err := m.store.InsertSubtitleTx(tx, &store.TrackSubtitle{
				ID:             sub.ID,
				TrackID:        sub.TrackID,
				Name:           sub.Name,
				SubtitleBlobID: sub.SubtitleID,
				ExtraJSON:      encodeExtra(sub.Extra),
			}); err != nil {
				return fmt.Errorf("restoring subtitle %d: %w", sub.ID, err)
			}
		}

		for _, sub := range snap.Data.Subscriptions {
			bump(sub.ID)
			if err := m.store.InsertSubscriptionTx(tx, &store.Subscription{
				ID:                sub.ID,
				FeedURL:           sub.FeedURL,
				Title:             sub.Title,
				Author:            sub.Author,
				ArtworkURL:        sub.ArtworkURL,
				AddedAt:           sub.AddedAt,
				ProviderPodcastID: sub.ProviderPodcastID,
				ExtraJSON:         encodeExtra(sub.Extra),
			}); err != nil {
				return fmt.Errorf("restoring subscription %d: %w", sub.ID, err)
			}
		}

		for _, f := range snap.Data.Favorites {
			bump(f.ID)
			if err := m.store.InsertFavoriteTx(tx, &store.Favorite{
				ID:              f.ID,
				FeedURL:         f.FeedURL,
				AudioURL:        f.AudioURL,
				EpisodeTitle:    f.EpisodeTitle,
				PodcastTitle:    f.PodcastTitle,
				ArtworkURL:      f.ArtworkURL,
				DurationSeconds: f.DurationSeconds,
				AddedAt:         f.AddedAt,
				EpisodeID:       f.EpisodeID,
				ExtraJSON:       encodeExtra(f.Extra),
			}); err != nil {
				return fmt.Errorf("restoring favorite %d: %w", f.ID, err)
			}
		}

		for _, sess := range snap.Data.Sessions {
			if err := m.store.InsertSessionTx(tx, &store.Session{
				ID:              sess.ID,
				Source:          sess.Source,
				Title:           sess.Title,
				CreatedAt:       sess.CreatedAt,
				LastPlayedAt:    sess.LastPlayedAt,
				SizeBytes:       sess.SizeBytes,
				DurationSeconds: sess.DurationSeconds,
				ProgressSeconds: sess.ProgressSeconds,
				AudioBlobID:     sess.AudioID,
				SubtitleBlobID:  sess.SubtitleID,
				TrackID:         sess.TrackID,
				FeedURL:         sess.FeedURL,
				EpisodeID:       sess.EpisodeID,
				AudioURL:        sess.AudioURL,
				Cached:          sess.Cached,
				ExtraJSON:       encodeExtra(sess.Extra),
			}); err != nil {
				return fmt.Errorf("restoring session %s: %w", sess.ID, err)
			}
		}

		for _, set := range snap.Data.Settings {
			if err := m.store.InsertSettingTx(tx, &store.Setting{
				Key:       set.Key,
				Value:     set.Value,
				UpdatedAt: set.UpdatedAt,
				ExtraJSON: encodeExtra(set.Extra),
			}); err != nil {
				return fmt.Errorf("restoring setting %s: %w", set.Key, err)
			}
		}

		return m.store.BumpIDSequenceTx(tx, maxID)
	})
}

func decodeExtra(raw string) map[string]json.RawMessage {
	if raw == "" {
		return nil
	}
	var m map[string]json.RawMessage
	if json.Unmarshal([]byte(raw), &m) != nil || len(m) == 0 {
		return nil
	}
	return m
}

func encodeExtra(extra map[string]json.RawMessage) string {
	if len(extra) == 0 {
		return ""
	}
	raw, err := json.Marshal(extra)
	if err != nil {
		return ""
	}
	return string(raw)
}
