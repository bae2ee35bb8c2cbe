package store

import (
	"database/sql"
	"fmt"
)

// TrackSubtitle is a caption file attached to exactly one track. It
// owns one subtitle blob.
type TrackSubtitle struct {
	ID             int64
	TrackID        int64
	Name           string
	SubtitleBlobID string
	ExtraJSON      string
}

const subtitleCols = `id, track_id, name, subtitle_blob_id, extra_json`

func scanSubtitle(row rowScanner) (*TrackSubtitle, error) {
	sub := &TrackSubtitle{}
	err := row.Scan(&sub.ID, &sub.TrackID, &sub.Name, &sub.SubtitleBlobID, &sub.ExtraJSON)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// CreateTrackSubtitle inserts a new subtitle, allocating its id
func (s *Store) CreateTrackSubtitle(sub *TrackSubtitle) error {
	if sub.SubtitleBlobID == "" {
		return fmt.Errorf("subtitle requires a subtitle blob")
	}
	if sub.ID == 0 {
		id, err := s.nextID()
		if err != nil {
			return err
		}
		sub.ID = id
	}
	_, err := s.db.Exec(`
		INSERT INTO local_subtitles (`+subtitleCols+`)
		VALUES (?, ?, ?, ?, ?)
	`, sub.ID, sub.TrackID, sub.Name, sub.SubtitleBlobID, sub.ExtraJSON)
	if err != nil {
		return fmt.Errorf("failed to insert subtitle: %w", err)
	}
	return nil
}

// GetTrackSubtitle retrieves a subtitle by ID, or nil if absent
func (s *Store) GetTrackSubtitle(id int64) (*TrackSubtitle, error) {
	sub, err := scanSubtitle(s.db.QueryRow(`
		SELECT `+subtitleCols+` FROM local_subtitles WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subtitle: %w", err)
	}
	return sub, nil
}

func (s *Store) querySubtitles(query string, args ...interface{}) ([]*TrackSubtitle, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subtitles: %w", err)
	}
	defer rows.Close()

	var subs []*TrackSubtitle
	for rows.Next() {
		sub, err := scanSubtitle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subtitle: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// SubtitlesByTrack returns all subtitles attached to a track
func (s *Store) SubtitlesByTrack(trackID int64) ([]*TrackSubtitle, error) {
	return s.querySubtitles(`
		SELECT `+subtitleCols+` FROM local_subtitles WHERE track_id = ? ORDER BY id
	`, trackID)
}

// AllSubtitles returns every subtitle
func (s *Store) AllSubtitles() ([]*TrackSubtitle, error) {
	return s.querySubtitles(`
		SELECT ` + subtitleCols + ` FROM local_subtitles ORDER BY id`)
}

// DeleteTrackSubtitleTx deletes a subtitle row only; the cascade
// deleter reclaims its blob
func (s *Store) DeleteTrackSubtitleTx(tx *sql.Tx, id int64) error {
	_, err := tx.Exec("DELETE FROM local_subtitles WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete subtitle: %w", err)
	}
	return nil
}

// InsertSubtitleTx inserts a subtitle with its explicit id. Used by
// the vault import.
func (s *Store) InsertSubtitleTx(tx *sql.Tx, sub *TrackSubtitle) error {
	_, err := tx.Exec(`
		INSERT INTO local_subtitles (`+subtitleCols+`)
		VALUES (?, ?, ?, ?, ?)
	`, sub.ID, sub.TrackID, sub.Name, sub.SubtitleBlobID, sub.ExtraJSON)
	if err != nil {
		return fmt.Errorf("failed to insert subtitle: %w", err)
	}
	return nil
}
