package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/franz/podlib/internal/util"
)

// Track is a locally imported audio file. It owns exactly one audio
// blob and zero or more subtitles. FolderID 0 means the track lives at
// the root.
type Track struct {
	ID               int64
	FolderID         int64 // 0 = root
	Name             string
	AudioBlobID      string
	SizeBytes        int64
	DurationSeconds  float64 // 0 = unknown
	CreatedAt        int64   // epoch ms
	ActiveSubtitleID int64   // 0 = none
	ExtraJSON        string
}

const trackCols = `id, folder_id, name, audio_blob_id, size_bytes, duration_seconds, created_at, active_subtitle_id, extra_json`

func scanTrack(row rowScanner) (*Track, error) {
	t := &Track{}
	err := row.Scan(&t.ID, &t.FolderID, &t.Name, &t.AudioBlobID, &t.SizeBytes,
		&t.DurationSeconds, &t.CreatedAt, &t.ActiveSubtitleID, &t.ExtraJSON)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CreateTrack inserts a new track, allocating its id
func (s *Store) CreateTrack(t *Track) error {
	if t.AudioBlobID == "" {
		return fmt.Errorf("track requires an audio blob")
	}
	if t.CreatedAt == 0 {
		t.CreatedAt = nowMillis()
	}
	if t.ID == 0 {
		id, err := s.nextID()
		if err != nil {
			return err
		}
		t.ID = id
	}
	_, err := s.db.Exec(`
		INSERT INTO local_tracks (`+trackCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.FolderID, t.Name, t.AudioBlobID, t.SizeBytes, t.DurationSeconds,
		t.CreatedAt, t.ActiveSubtitleID, t.ExtraJSON)
	if err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}
	return nil
}

// GetTrack retrieves a track by ID, or nil if absent
func (s *Store) GetTrack(id int64) (*Track, error) {
	t, err := scanTrack(s.db.QueryRow(`
		SELECT `+trackCols+` FROM local_tracks WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get track: %w", err)
	}
	return t, nil
}

// RenameTrack changes a track's display name
func (s *Store) RenameTrack(id int64, name string) error {
	result, err := s.db.Exec("UPDATE local_tracks SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return fmt.Errorf("failed to rename track: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("track %d: %w", id, util.ErrNotFound)
	}
	return nil
}

// MoveTrack moves a track to another folder (0 = root)
func (s *Store) MoveTrack(id, folderID int64) error {
	result, err := s.db.Exec("UPDATE local_tracks SET folder_id = ? WHERE id = ?", folderID, id)
	if err != nil {
		return fmt.Errorf("failed to move track: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("track %d: %w", id, util.ErrNotFound)
	}
	return nil
}

// SetActiveSubtitle selects which subtitle a track plays with (0
// clears the selection)
func (s *Store) SetActiveSubtitle(trackID, subtitleID int64) error {
	result, err := s.db.Exec("UPDATE local_tracks SET active_subtitle_id = ? WHERE id = ?", subtitleID, trackID)
	if err != nil {
		return fmt.Errorf("failed to set active subtitle: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("track %d: %w", trackID, util.ErrNotFound)
	}
	return nil
}

func (s *Store) queryTracks(query string, args ...interface{}) ([]*Track, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// TracksByFolder returns all tracks in a folder (0 = root), newest
// first
func (s *Store) TracksByFolder(folderID int64) ([]*Track, error) {
	return s.queryTracks(`
		SELECT `+trackCols+` FROM local_tracks
		WHERE folder_id = ? ORDER BY created_at DESC
	`, folderID)
}

// AllTracks returns every track, newest first
func (s *Store) AllTracks() ([]*Track, error) {
	return s.queryTracks(`
		SELECT ` + trackCols + ` FROM local_tracks ORDER BY created_at DESC`)
}

// CountTracks returns the number of tracks
func (s *Store) CountTracks() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM local_tracks").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return count, nil
}

// SearchTracks returns up to limit tracks whose name contains the
// query, case-insensitively, preserving the created_at ordering of the
// underlying scan
func (s *Store) SearchTracks(query string, limit int) ([]*Track, error) {
	needle := foldSearch(query)
	rows, err := s.db.Query(`
		SELECT ` + trackCols + ` FROM local_tracks ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var matches []*Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		if !strings.Contains(foldSearch(t.Name), needle) {
			continue
		}
		matches = append(matches, t)
		if limit > 0 && len(matches) >= limit {
			break
		}
	}
	return matches, rows.Err()
}

// DeleteTrackTx deletes a track row only. Its subtitles and blobs are
// the cascade deleter's responsibility.
func (s *Store) DeleteTrackTx(tx *sql.Tx, id int64) error {
	_, err := tx.Exec("DELETE FROM local_tracks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}
	return nil
}

// InsertTrackTx inserts a track with its explicit id. Used by the
// vault import.
func (s *Store) InsertTrackTx(tx *sql.Tx, t *Track) error {
	_, err := tx.Exec(`
		INSERT INTO local_tracks (`+trackCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.FolderID, t.Name, t.AudioBlobID, t.SizeBytes,
		t.DurationSeconds, t.CreatedAt, t.ActiveSubtitleID, t.ExtraJSON)
	if err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}
	return nil
}
