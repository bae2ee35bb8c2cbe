package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/franz/podlib/internal/util"
)

// Session sources
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

// Session is one playback history record. A session either owns cached
// audio directly (AudioBlobID) or points at a local track (TrackID);
// the two are mutually exclusive variants of the session's origin and
// CreateSession rejects a record setting both.
type Session struct {
	ID              string
	Source          string // "local" or "remote"
	Title           string
	CreatedAt       int64 // epoch ms
	LastPlayedAt    int64 // epoch ms
	SizeBytes       int64
	DurationSeconds float64
	ProgressSeconds float64
	AudioBlobID     string // owned cached audio, empty if none
	SubtitleBlobID  string // owned caption blob, empty if none
	TrackID         int64  // local track reference, 0 if none
	FeedURL         string
	EpisodeID       string
	AudioURL        string
	Cached          bool
	ExtraJSON       string
}

// SessionPatch is a partial update; nil fields are left unchanged.
// UpdateSession always refreshes last_played_at.
type SessionPatch struct {
	Title           *string
	SizeBytes       *int64
	DurationSeconds *float64
	ProgressSeconds *float64
	AudioBlobID     *string
	SubtitleBlobID  *string
	Cached          *bool
	LastPlayedAt    *int64
}

const sessionCols = `id, source, title, created_at, last_played_at, size_bytes,
       duration_seconds, progress_seconds, audio_blob_id, subtitle_blob_id,
       track_id, feed_url, episode_id, audio_url, cached, extra_json`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*Session, error) {
	s := &Session{}
	var cached int
	err := row.Scan(
		&s.ID, &s.Source, &s.Title, &s.CreatedAt, &s.LastPlayedAt, &s.SizeBytes,
		&s.DurationSeconds, &s.ProgressSeconds, &s.AudioBlobID, &s.SubtitleBlobID,
		&s.TrackID, &s.FeedURL, &s.EpisodeID, &s.AudioURL, &cached, &s.ExtraJSON,
	)
	if err != nil {
		return nil, err
	}
	s.Cached = cached != 0
	return s, nil
}

// CreateSession inserts a new session. A missing ID is minted; missing
// timestamps default to now.
func (s *Store) CreateSession(sess *Session) error {
	if sess.Source != SourceLocal && sess.Source != SourceRemote {
		return fmt.Errorf("invalid session source %q", sess.Source)
	}
	if sess.AudioBlobID != "" && sess.TrackID != 0 {
		return fmt.Errorf("session cannot both own audio blob %s and reference track %d", sess.AudioBlobID, sess.TrackID)
	}
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.CreatedAt == 0 {
		sess.CreatedAt = nowMillis()
	}
	if sess.LastPlayedAt == 0 {
		sess.LastPlayedAt = sess.CreatedAt
	}

	cached := 0
	if sess.Cached {
		cached = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO playback_sessions (`+sessionCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sess.ID, sess.Source, sess.Title, sess.CreatedAt, sess.LastPlayedAt, sess.SizeBytes,
		sess.DurationSeconds, sess.ProgressSeconds, sess.AudioBlobID, sess.SubtitleBlobID,
		sess.TrackID, sess.FeedURL, sess.EpisodeID, sess.AudioURL, cached, sess.ExtraJSON)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by id, or nil if absent
func (s *Store) GetSession(id string) (*Session, error) {
	sess, err := scanSession(s.db.QueryRow(`
		SELECT `+sessionCols+` FROM playback_sessions WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// UpdateSession applies a partial update to a session. Every update
// refreshes last_played_at (to the patch value if set, otherwise now).
// Returns util.ErrNotFound if the session does not exist.
func (s *Store) UpdateSession(id string, patch *SessionPatch) error {
	sets := []string{"last_played_at = ?"}
	lastPlayed := nowMillis()
	if patch.LastPlayedAt != nil {
		lastPlayed = *patch.LastPlayedAt
	}
	args := []interface{}{lastPlayed}

	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.SizeBytes != nil {
		sets = append(sets, "size_bytes = ?")
		args = append(args, *patch.SizeBytes)
	}
	if patch.DurationSeconds != nil {
		sets = append(sets, "duration_seconds = ?")
		args = append(args, *patch.DurationSeconds)
	}
	if patch.ProgressSeconds != nil {
		sets = append(sets, "progress_seconds = ?")
		args = append(args, *patch.ProgressSeconds)
	}
	if patch.AudioBlobID != nil {
		sets = append(sets, "audio_blob_id = ?")
		args = append(args, *patch.AudioBlobID)
	}
	if patch.SubtitleBlobID != nil {
		sets = append(sets, "subtitle_blob_id = ?")
		args = append(args, *patch.SubtitleBlobID)
	}
	if patch.Cached != nil {
		cached := 0
		if *patch.Cached {
			cached = 1
		}
		sets = append(sets, "cached = ?")
		args = append(args, cached)
	}

	args = append(args, id)
	result, err := s.db.Exec(
		"UPDATE playback_sessions SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, util.ErrNotFound)
	}
	return nil
}

// DeleteSessionTx deletes a session row only. Blob cleanup belongs to
// the cascade deleter.
func (s *Store) DeleteSessionTx(tx *sql.Tx, id string) error {
	_, err := tx.Exec("DELETE FROM playback_sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *Store) querySessions(query string, args ...interface{}) ([]*Session, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// SessionsMostRecentFirst returns sessions ordered by last_played_at
// descending. limit <= 0 means no limit.
func (s *Store) SessionsMostRecentFirst(limit int) ([]*Session, error) {
	q := "SELECT " + sessionCols + " FROM playback_sessions ORDER BY last_played_at DESC"
	if limit > 0 {
		return s.querySessions(q+" LIMIT ?", limit)
	}
	return s.querySessions(q)
}

// AllSessions returns every session, most recent first
func (s *Store) AllSessions() ([]*Session, error) {
	return s.SessionsMostRecentFirst(0)
}

// SessionByAudioURL returns the session for a remote audio URL, or nil
func (s *Store) SessionByAudioURL(audioURL string) (*Session, error) {
	sess, err := scanSession(s.db.QueryRow(`
		SELECT `+sessionCols+` FROM playback_sessions WHERE audio_url = ?
	`, audioURL))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// SessionsByTrack returns all sessions referencing a local track
func (s *Store) SessionsByTrack(trackID int64) ([]*Session, error) {
	return s.querySessions(`
		SELECT `+sessionCols+` FROM playback_sessions
		WHERE track_id = ? ORDER BY last_played_at DESC
	`, trackID)
}

// SessionsOlderThan returns up to limit sessions with last_played_at
// strictly below cutoff, oldest first. A non-positive limit returns
// all of them. This is the pruner's batch read.
func (s *Store) SessionsOlderThan(cutoff int64, limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.querySessions(`
		SELECT `+sessionCols+` FROM playback_sessions
		WHERE last_played_at < ? ORDER BY last_played_at ASC LIMIT ?
	`, cutoff, limit)
}

// NthMostRecentLastPlayed returns the last_played_at of the nth most
// recent session (1-based), or 0 if fewer than n sessions exist.
func (s *Store) NthMostRecentLastPlayed(n int) (int64, error) {
	var ts int64
	err := s.db.QueryRow(`
		SELECT last_played_at FROM playback_sessions
		ORDER BY last_played_at DESC LIMIT 1 OFFSET ?
	`, n-1).Scan(&ts)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query session cutoff: %w", err)
	}
	return ts, nil
}

// CountSessions returns the number of sessions
func (s *Store) CountSessions() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM playback_sessions").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

// SearchSessions returns up to limit sessions whose title contains the
// query, case-insensitively. The scan walks the last_played_at index
// most recent first and filters in memory, so results keep recency
// order.
func (s *Store) SearchSessions(query string, limit int) ([]*Session, error) {
	needle := foldSearch(query)
	rows, err := s.db.Query(`
		SELECT ` + sessionCols + ` FROM playback_sessions ORDER BY last_played_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var matches []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if !strings.Contains(foldSearch(sess.Title), needle) {
			continue
		}
		matches = append(matches, sess)
		if limit > 0 && len(matches) >= limit {
			break
		}
	}
	return matches, rows.Err()
}

// SessionsWithAudioBlob returns all sessions that directly own cached
// audio (the clear-cache soft cascade operates on these)
func (s *Store) SessionsWithAudioBlob() ([]*Session, error) {
	return s.querySessions(`
		SELECT ` + sessionCols + ` FROM playback_sessions WHERE audio_blob_id != ''`)
}

// ClearSessionAudioRefsTx clears audio_blob_id and the cached flag on
// every session that held one, preserving the rest of the record
func (s *Store) ClearSessionAudioRefsTx(tx *sql.Tx) (int64, error) {
	result, err := tx.Exec(`
		UPDATE playback_sessions SET audio_blob_id = '', cached = 0
		WHERE audio_blob_id != ''`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear session audio refs: %w", err)
	}
	return result.RowsAffected()
}

// InsertSessionTx inserts a session with all fields as given. Used by
// the vault import inside its replace transaction.
func (s *Store) InsertSessionTx(tx *sql.Tx, sess *Session) error {
	cached := 0
	if sess.Cached {
		cached = 1
	}
	_, err := tx.Exec(`
		INSERT INTO playback_sessions (`+sessionCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sess.ID, sess.Source, sess.Title, sess.CreatedAt, sess.LastPlayedAt, sess.SizeBytes,
		sess.DurationSeconds, sess.ProgressSeconds, sess.AudioBlobID, sess.SubtitleBlobID,
		sess.TrackID, sess.FeedURL, sess.EpisodeID, sess.AudioURL, cached, sess.ExtraJSON)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}
