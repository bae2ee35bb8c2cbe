// Package vault implements the full-library snapshot: a versioned
// export of every metadata collection (never blob content), the pure
// integrity verifier that gates a restore, and the manager that
// performs the atomic replace.
package vault

import (
	"encoding/json"
	"fmt"

	"github.com/franz/podlib/internal/util"
)

// CurrentVersion is the snapshot schema version this build writes and
// accepts
const CurrentVersion = 1

// Snapshot is the vault wire document
type Snapshot struct {
	Version    int          `json:"version"`
	ExportedAt int64        `json:"exportedAt"`
	Data       SnapshotData `json:"data"`
}

// SnapshotData holds every metadata collection
type SnapshotData struct {
	Folders        []FolderRecord       `json:"folders"`
	LocalTracks    []TrackRecord        `json:"local_tracks"`
	LocalSubtitles []SubtitleRecord     `json:"local_subtitles"`
	Subscriptions  []SubscriptionRecord `json:"subscriptions"`
	Favorites      []FavoriteRecord     `json:"favorites"`
	Sessions       []SessionRecord      `json:"playback_sessions"`
	Settings       []SettingRecord      `json:"settings"`
}

// Unknown attributes on any record are preserved, not rejected: each
// record type keeps them in an Extra map and re-emits them on export.
// Known keys always win over a colliding extra.

// FolderRecord is one folder on the wire
type FolderRecord struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
	PinnedAt  int64  `json:"pinnedAt,omitempty"`
	Extra     map[string]json.RawMessage `json:"-"`
}

func (r *FolderRecord) UnmarshalJSON(data []byte) error {
	type alias FolderRecord
	if err := json.Unmarshal(data, (*alias)(r)); err != nil {
		return err
	}
	r.Extra = captureExtra(data, "id", "name", "createdAt", "pinnedAt")
	return nil
}

func (r FolderRecord) MarshalJSON() ([]byte, error) {
	type alias FolderRecord
	return mergeExtra(alias(r), r.Extra)
}

// TrackRecord is one locally imported track on the wire
type TrackRecord struct {
	ID               int64   `json:"id"`
	FolderID         int64   `json:"folderId,omitempty"`
	Name             string  `json:"name"`
	AudioID          string  `json:"audioId"`
	SizeBytes        int64   `json:"sizeBytes"`
	DurationSeconds  float64 `json:"durationSeconds,omitempty"`
	CreatedAt        int64   `json:"createdAt"`
	ActiveSubtitleID int64   `json:"activeSubtitleId,omitempty"`
	Extra            map[string]json.RawMessage `json:"-"`
}

func (r *TrackRecord) UnmarshalJSON(data []byte) error {
	type alias TrackRecord
	if err := json.Unmarshal(data, (*alias)(r)); err != nil {
		return err
	}
	r.Extra = captureExtra(data, "id", "folderId", "name", "audioId", "sizeBytes",
		"durationSeconds", "createdAt", "activeSubtitleId")
	return nil
}

func (r TrackRecord) MarshalJSON() ([]byte, error) {
	type alias TrackRecord
	return mergeExtra(alias(r), r.Extra)
}

// SubtitleRecord is one track caption on the wire
type SubtitleRecord struct {
	ID         int64  `json:"id"`
	TrackID    int64  `json:"trackId"`
	Name       string `json:"name"`
	SubtitleID string `json:"subtitleId"`
	Extra      map[string]json.RawMessage `json:"-"`
}

func (r *SubtitleRecord) UnmarshalJSON(data []byte) error {
	type alias SubtitleRecord
	if err := json.Unmarshal(data, (*alias)(r)); err != nil {
		return err
	}
	r.Extra = captureExtra(data, "id", "trackId", "name", "subtitleId")
	return nil
}

func (r SubtitleRecord) MarshalJSON() ([]byte, error) {
	type alias SubtitleRecord
	return mergeExtra(alias(r), r.Extra)
}

// SubscriptionRecord is one followed feed on the wire
type SubscriptionRecord struct {
	ID                int64  `json:"id"`
	FeedURL           string `json:"feedUrl"`
	Title             string `json:"title,omitempty"`
	Author            string `json:"author,omitempty"`
	ArtworkURL        string `json:"artworkUrl,omitempty"`
	AddedAt           int64  `json:"addedAt"`
	ProviderPodcastID string `json:"providerPodcastId,omitempty"`
	Extra             map[string]json.RawMessage `json:"-"`
}

func (r *SubscriptionRecord) UnmarshalJSON(data []byte) error {
	type alias SubscriptionRecord
	if err := json.Unmarshal(data, (*alias)(r)); err != nil {
		return err
	}
	r.Extra = captureExtra(data, "id", "feedUrl", "title", "author", "artworkUrl",
		"addedAt", "providerPodcastId")
	return nil
}

func (r SubscriptionRecord) MarshalJSON() ([]byte, error) {
	type alias SubscriptionRecord
	return mergeExtra(alias(r), r.Extra)
}

// FavoriteRecord is one starred episode on the wire
type FavoriteRecord struct {
	ID              int64   `json:"id"`
	FeedURL         string  `json:"feedUrl"`
	AudioURL        string  `json:"audioUrl"`
	EpisodeTitle    string  `json:"episodeTitle,omitempty"`
	PodcastTitle    string  `json:"podcastTitle,omitempty"`
	ArtworkURL      string  `json:"artworkUrl,omitempty"`
	DurationSeconds float64 `json:"duration,omitempty"`
	AddedAt         int64   `json:"addedAt"`
	EpisodeID       string  `json:"episodeId,omitempty"`
	Extra           map[string]json.RawMessage `json:"-"`
}

func (r *FavoriteRecord) UnmarshalJSON(data []byte) error {
	type alias FavoriteRecord
	if err := json.Unmarshal(data, (*alias)(r)); err != nil {
		return err
	}
	r.Extra = captureExtra(data, "id", "feedUrl", "audioUrl", "episodeTitle",
		"podcastTitle", "artworkUrl", "duration", "addedAt", "episodeId")
	return nil
}

func (r FavoriteRecord) MarshalJSON() ([]byte, error) {
	type alias FavoriteRecord
	return mergeExtra(alias(r), r.Extra)
}

// SessionRecord is one playback session on the wire
type SessionRecord struct {
	ID              string  `json:"id"`
	Source          string  `json:"source"`
	Title           string  `json:"title,omitempty"`
	CreatedAt       int64   `json:"createdAt"`
	LastPlayedAt    int64   `json:"lastPlayedAt"`
	SizeBytes       int64   `json:"sizeBytes,omitempty"`
	DurationSeconds float64 `json:"duration,omitempty"`
	ProgressSeconds float64 `json:"progress,omitempty"`
	AudioID         string  `json:"audioId,omitempty"`
	SubtitleID      string  `json:"subtitleId,omitempty"`
	TrackID         int64   `json:"trackId,omitempty"`
	FeedURL         string  `json:"feedUrl,omitempty"`
	EpisodeID       string  `json:"episodeId,omitempty"`
	AudioURL        string  `json:"audioUrl,omitempty"`
	Cached          bool    `json:"cached,omitempty"`
	Extra           map[string]json.RawMessage `json:"-"`
}

func (r *SessionRecord) UnmarshalJSON(data []byte) error {
	type alias SessionRecord
	if err := json.Unmarshal(data, (*alias)(r)); err != nil {
		return err
	}
	r.Extra = captureExtra(data, "id", "source", "title", "createdAt", "lastPlayedAt",
		"sizeBytes", "duration", "progress", "audioId", "subtitleId", "trackId",
		"feedUrl", "episodeId", "audioUrl", "cached")
	return nil
}

func (r SessionRecord) MarshalJSON() ([]byte, error) {
	type alias SessionRecord
	return mergeExtra(alias(r), r.Extra)
}

// SettingRecord is one key-value setting on the wire
type SettingRecord struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedAt int64  `json:"updatedAt"`
	Extra     map[string]json.RawMessage `json:"-"`
}

func (r *SettingRecord) UnmarshalJSON(data []byte) error {
	type alias SettingRecord
	if err := json.Unmarshal(data, (*alias)(r)); err != nil {
		return err
	}
	r.Extra = captureExtra(data, "key", "value", "updatedAt")
	return nil
}

func (r SettingRecord) MarshalJSON() ([]byte, error) {
	type alias SettingRecord
	return mergeExtra(alias(r), r.Extra)
}

// captureExtra returns every JSON key of data not in the known list
func captureExtra(data []byte, known ...string) map[string]json.RawMessage {
	var all map[string]json.RawMessage
	if json.Unmarshal(data, &all) != nil {
		return nil
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil
	}
	return all
}

// mergeExtra marshals the known fields and folds preserved extras back
// in. A known field always wins over a colliding extra.
func mergeExtra(known interface{}, extra map[string]json.RawMessage) ([]byte, error) {
	base, err := json.Marshal(known)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return base, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// Validate performs structural validation only: recognized schema
// version and required attributes present on every record. It runs
// before the integrity verifier and fails with ErrMalformedSnapshot.
// Unknown extra attributes never fail validation.
func (s *Snapshot) Validate() error {
	if s.Version != CurrentVersion {
		return fmt.Errorf("%w: unrecognized schema version %d", util.ErrMalformedSnapshot, s.Version)
	}

	for i, f := range s.Data.Folders {
		if f.ID == 0 || f.Name == "" || f.CreatedAt == 0 {
			return fmt.Errorf("%w: folder %d missing required attributes", util.ErrMalformedSnapshot, i)
		}
	}
	for i, t := range s.Data.LocalTracks {
		if t.ID == 0 || t.Name == "" || t.AudioID == "" || t.CreatedAt == 0 {
			return fmt.Errorf("%w: track %d missing required attributes", util.ErrMalformedSnapshot, i)
		}
	}
	for i, sub := range s.Data.LocalSubtitles {
		if sub.ID == 0 || sub.TrackID == 0 || sub.Name == "" || sub.SubtitleID == "" {
			return fmt.Errorf("%w: subtitle %d missing required attributes", util.ErrMalformedSnapshot, i)
		}
	}
	for i, sub := range s.Data.Subscriptions {
		if sub.ID == 0 || sub.FeedURL == "" || sub.AddedAt == 0 {
			return fmt.Errorf("%w: subscription %d missing required attributes", util.ErrMalformedSnapshot, i)
		}
	}
	for i, f := range s.Data.Favorites {
		if f.ID == 0 || f.FeedURL == "" || f.AudioURL == "" || f.AddedAt == 0 {
			return fmt.Errorf("%w: favorite %d missing required attributes", util.ErrMalformedSnapshot, i)
		}
	}
	for i, sess := range s.Data.Sessions {
		if sess.ID == "" || sess.CreatedAt == 0 || sess.LastPlayedAt == 0 {
			return fmt.Errorf("%w: session %d missing required attributes", util.ErrMalformedSnapshot, i)
		}
		if sess.Source != "local" && sess.Source != "remote" {
			return fmt.Errorf("%w: session %d has invalid source %q", util.ErrMalformedSnapshot, i, sess.Source)
		}
		// A session either owns cached audio or points at a track, never both.
		if sess.AudioID != "" && sess.TrackID != 0 {
			return fmt.Errorf("%w: session %d sets both audioId and trackId", util.ErrMalformedSnapshot, i)
		}
	}
	for i, set := range s.Data.Settings {
		if set.Key == "" {
			return fmt.Errorf("%w: setting %d missing key", util.ErrMalformedSnapshot, i)
		}
	}
	return nil
}
