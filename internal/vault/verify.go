package vault

import (
	"fmt"
	"strconv"
	"time"
)

// Integrity error codes
const (
	DuplicateID               = "duplicate_id"
	DanglingSubtitleReference = "dangling_subtitle_reference"
	DanglingTrackReference    = "dangling_track_reference"
	DanglingSessionReference  = "dangling_session_reference"
	FutureTimestamp           = "future_timestamp"
	DuplicateSubscriptionFeed = "duplicate_subscription_feed"
	DuplicateFavoriteKey      = "duplicate_favorite_key"
)

// futureTolerance absorbs clock skew between the exporting and
// verifying machine
const futureTolerance = 24 * time.Hour

// IntegrityError is one violated consistency rule. The verifier stops
// at the first violation it finds.
type IntegrityError struct {
	Code   string
	Reason string
}

func (e *IntegrityError) Error() string {
	return e.Reason
}

// VerifySnapshot audits a structurally valid snapshot against the
// library's consistency rules. It is a pure function: no store, no
// clock other than the now it is handed. Checks run uniqueness first,
// then referential integrity, then timestamps, then natural-key
// duplicates, and stop at the first hit.
func VerifySnapshot(s *Snapshot, now time.Time) *IntegrityError {
	if err := verifyUniqueIDs(s); err != nil {
		return err
	}
	if err := verifyReferences(s); err != nil {
		return err
	}
	if err := verifyTimestamps(s, now); err != nil {
		return err
	}
	return verifyNaturalKeys(s)
}

// verifyUniqueIDs checks that no ID repeats anywhere in the snapshot.
// IDs from different collections share one namespace, so a folder and
// a favorite carrying the same numeric ID is a violation.
func verifyUniqueIDs(s *Snapshot) *IntegrityError {
	seen := make(map[string]bool)
	check := func(id string) *IntegrityError {
		if seen[id] {
			return &IntegrityError{
				Code:   DuplicateID,
				Reason: fmt.Sprintf("Duplicate ID: %s", id),
			}
		}
		seen[id] = true
		return nil
	}

	for _, f := range s.Data.Folders {
		if err := check(strconv.FormatInt(f.ID, 10)); err != nil {
			return err
		}
	}
	for _, t := range s.Data.LocalTracks {
		if err := check(strconv.FormatInt(t.ID, 10)); err != nil {
			return err
		}
	}
	for _, sub := range s.Data.LocalSubtitles {
		if err := check(strconv.FormatInt(sub.ID, 10)); err != nil {
			return err
		}
	}
	for _, sub := range s.Data.Subscriptions {
		if err := check(strconv.FormatInt(sub.ID, 10)); err != nil {
			return err
		}
	}
	for _, f := range s.Data.Favorites {
		if err := check(strconv.FormatInt(f.ID, 10)); err != nil {
			return err
		}
	}
	for _, sess := range s.Data.Sessions {
		if err := check(sess.ID); err != nil {
			return err
		}
	}
	return nil
}

// verifyReferences checks every cross-record pointer lands on a record
// that exists in the same snapshot
func verifyReferences(s *Snapshot) *IntegrityError {
	tracks := make(map[int64]bool, len(s.Data.LocalTracks))
	for _, t := range s.Data.LocalTracks {
		tracks[t.ID] = true
	}

	for _, sub := range s.Data.LocalSubtitles {
		if !tracks[sub.TrackID] {
			return &IntegrityError{
				Code:   DanglingSubtitleReference,
				Reason: fmt.Sprintf("Dangling subtitle reference: subtitle %d points at missing track %d", sub.ID, sub.TrackID),
			}
		}
	}

	folders := make(map[int64]bool, len(s.Data.Folders))
	for _, f := range s.Data.Folders {
		folders[f.ID] = true
	}
	for _, t := range s.Data.LocalTracks {
		if t.FolderID != 0 && !folders[t.FolderID] {
			return &IntegrityError{
				Code:   DanglingTrackReference,
				Reason: fmt.Sprintf("Dangling track reference: track %d points at missing folder %d", t.ID, t.FolderID),
			}
		}
	}

	for _, sess := range s.Data.Sessions {
		if sess.Source == "local" && sess.TrackID != 0 && !tracks[sess.TrackID] {
			return &IntegrityError{
				Code:   DanglingSessionReference,
				Reason: fmt.Sprintf("Dangling session reference: session %s points at missing track %d", sess.ID, sess.TrackID),
			}
		}
	}
	return nil
}

// verifyTimestamps rejects any creation or play timestamp beyond
// now plus the skew tolerance
func verifyTimestamps(s *Snapshot, now time.Time) *IntegrityError {
	limit := now.Add(futureTolerance).UnixMilli()
	future := func(kind, id string, ts int64) *IntegrityError {
		if ts > limit {
			return &IntegrityError{
				Code:   FutureTimestamp,
				Reason: fmt.Sprintf("Future timestamp: %s %s at %d", kind, id, ts),
			}
		}
		return nil
	}

	for _, f := range s.Data.Folders {
		if err := future("folder", strconv.FormatInt(f.ID, 10), f.CreatedAt); err != nil {
			return err
		}
	}
	for _, t := range s.Data.LocalTracks {
		if err := future("track", strconv.FormatInt(t.ID, 10), t.CreatedAt); err != nil {
			return err
		}
	}
	for _, sub := range s.Data.Subscriptions {
		if err := future("subscription", strconv.FormatInt(sub.ID, 10), sub.AddedAt); err != nil {
			return err
		}
	}
	for _, f := range s.Data.Favorites {
		if err := future("favorite", strconv.FormatInt(f.ID, 10), f.AddedAt); err != nil {
			return err
		}
	}
	for _, sess := range s.Data.Sessions {
		if err := future("session", sess.ID, sess.CreatedAt); err != nil {
			return err
		}
		if err := future("session", sess.ID, sess.LastPlayedAt); err != nil {
			return err
		}
	}
	for _, set := range s.Data.Settings {
		if err := future("setting", set.Key, set.UpdatedAt); err != nil {
			return err
		}
	}
	return nil
}

// verifyNaturalKeys rejects duplicate subscription feeds and duplicate
// favorite (feedUrl, audioUrl) pairs
func verifyNaturalKeys(s *Snapshot) *IntegrityError {
	feeds := make(map[string]bool, len(s.Data.Subscriptions))
	for _, sub := range s.Data.Subscriptions {
		if feeds[sub.FeedURL] {
			return &IntegrityError{
				Code:   DuplicateSubscriptionFeed,
				Reason: fmt.Sprintf("Duplicate subscription feedUrl: %s", sub.FeedURL),
			}
		}
		feeds[sub.FeedURL] = true
	}

	pairs := make(map[string]bool, len(s.Data.Favorites))
	for _, f := range s.Data.Favorites {
		key := f.FeedURL + "|" + f.AudioURL
		if pairs[key] {
			return &IntegrityError{
				Code:   DuplicateFavoriteKey,
				Reason: fmt.Sprintf("Duplicate favorite key: %s|%s", f.FeedURL, f.AudioURL),
			}
		}
		pairs[key] = true
	}
	return nil
}

// FeedListEntry is one feed in an interchange feed list (OPML or
// similar). Feed lists are merged, not restored, so they get a far
// more forgiving check than snapshots.
type FeedListEntry struct {
	Title   string
	FeedURL string
}

// VerifyFeedList accepts any list whose entries all carry a feed URL.
// Duplicates are fine here: the merge on import collapses them.
func VerifyFeedList(entries []FeedListEntry) error {
	for i, e := range entries {
		if e.FeedURL == "" {
			return fmt.Errorf("feed list entry %d has no feedUrl", i)
		}
	}
	return nil
}
