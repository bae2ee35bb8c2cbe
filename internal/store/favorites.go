package store

import (
	"database/sql"
	"fmt"
)

// Favorite is a starred episode, keyed by (feed_url, audio_url)
type Favorite struct {
	ID              int64
	FeedURL         string
	AudioURL        string
	EpisodeTitle    string
	PodcastTitle    string
	ArtworkURL      string
	DurationSeconds float64
	AddedAt         int64 // epoch ms
	EpisodeID       string
	ExtraJSON       string
}

const favoriteCols = `id, feed_url, audio_url, episode_title, podcast_title, artwork_url, duration_seconds, added_at, episode_id, extra_json`

func scanFavorite(row rowScanner) (*Favorite, error) {
	f := &Favorite{}
	err := row.Scan(&f.ID, &f.FeedURL, &f.AudioURL, &f.EpisodeTitle, &f.PodcastTitle,
		&f.ArtworkURL, &f.DurationSeconds, &f.AddedAt, &f.EpisodeID, &f.ExtraJSON)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// AddFavorite stars an episode; re-adding an existing favorite
// refreshes its metadata but keeps added_at
func (s *Store) AddFavorite(f *Favorite) error {
	if f.AddedAt == 0 {
		f.AddedAt = nowMillis()
	}
	if f.ID == 0 {
		id, err := s.nextID()
		if err != nil {
			return err
		}
		f.ID = id
	}
	_, err := s.db.Exec(`
		INSERT INTO favorites (`+favoriteCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(feed_url, audio_url) DO UPDATE SET
			episode_title = excluded.episode_title,
			podcast_title = excluded.podcast_title,
			artwork_url = excluded.artwork_url,
			duration_seconds = excluded.duration_seconds,
			episode_id = excluded.episode_id
	`, f.ID, f.FeedURL, f.AudioURL, f.EpisodeTitle, f.PodcastTitle, f.ArtworkURL,
		f.DurationSeconds, f.AddedAt, f.EpisodeID, f.ExtraJSON)
	if err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}

	// On conflict the stored id is the existing row's
	err = s.db.QueryRow("SELECT id FROM favorites WHERE feed_url = ? AND audio_url = ?",
		f.FeedURL, f.AudioURL).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("failed to get favorite ID: %w", err)
	}
	return nil
}

// GetFavorite retrieves a favorite by its composite key, or nil
func (s *Store) GetFavorite(feedURL, audioURL string) (*Favorite, error) {
	f, err := scanFavorite(s.db.QueryRow(`
		SELECT `+favoriteCols+` FROM favorites WHERE feed_url = ? AND audio_url = ?
	`, feedURL, audioURL))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get favorite: %w", err)
	}
	return f, nil
}

// IsFavorite reports whether an episode is starred
func (s *Store) IsFavorite(feedURL, audioURL string) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM favorites WHERE feed_url = ? AND audio_url = ?",
		feedURL, audioURL).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}
	return count > 0, nil
}

// RemoveFavorite unstars an episode
func (s *Store) RemoveFavorite(feedURL, audioURL string) error {
	_, err := s.db.Exec("DELETE FROM favorites WHERE feed_url = ? AND audio_url = ?", feedURL, audioURL)
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

// AllFavorites returns every favorite, most recently added first
func (s *Store) AllFavorites() ([]*Favorite, error) {
	rows, err := s.db.Query(`
		SELECT ` + favoriteCols + ` FROM favorites ORDER BY added_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	var favs []*Favorite
	for rows.Next() {
		f, err := scanFavorite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		favs = append(favs, f)
	}
	return favs, rows.Err()
}

// CountFavorites returns the number of favorites
func (s *Store) CountFavorites() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM favorites").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count favorites: %w", err)
	}
	return count, nil
}

// InsertFavoriteTx inserts a favorite with all fields as given,
// including its id. Used by the vault import.
func (s *Store) InsertFavoriteTx(tx *sql.Tx, f *Favorite) error {
	_, err := tx.Exec(`
		INSERT INTO favorites (`+favoriteCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.ID, f.FeedURL, f.AudioURL, f.EpisodeTitle, f.PodcastTitle,
		f.ArtworkURL, f.DurationSeconds, f.AddedAt, f.EpisodeID, f.ExtraJSON)
	if err != nil {
		return fmt.Errorf("failed to insert favorite: %w", err)
	}
	return nil
}
