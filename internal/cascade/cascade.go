// Package cascade removes parent records together with their dependent
// children and exclusively-owned blobs, child-before-parent, so that
// no orphan record or dangling blob reference survives a delete.
package cascade

import (
	"database/sql"
	"fmt"

	"github.com/franz/podlib/internal/blob"
	"github.com/franz/podlib/internal/report"
	"github.com/franz/podlib/internal/store"
	"github.com/franz/podlib/internal/util"
)

// Deleter performs cascade deletions against the entity store and the
// blob store
type Deleter struct {
	store  *store.Store
	blobs  *blob.Store
	logger *report.EventLogger
}

// Config holds deleter dependencies
type Config struct {
	Store  *store.Store
	Blobs  *blob.Store
	Logger *report.EventLogger
}

// New creates a new Deleter
func New(cfg *Config) *Deleter {
	return &Deleter{
		store:  cfg.Store,
		blobs:  cfg.Blobs,
		logger: cfg.Logger,
	}
}

// deletionPlan is the full set of row and blob deletions for one
// top-level call, collected before anything is applied. Rows are
// deleted in one transaction; blobs follow. A blob-side failure can
// only leak an unreferenced payload, never leave a live record with a
// dangling reference.
type deletionPlan struct {
	sessionIDs    []string
	subtitleIDs   []int64
	trackIDs      []int64
	folderIDs     []int64
	audioBlobs    []string
	subtitleBlobs []string
}

func (p *deletionPlan) records() int {
	return len(p.sessionIDs) + len(p.subtitleIDs) + len(p.trackIDs) + len(p.folderIDs)
}

func (p *deletionPlan) blobs() int {
	return len(p.audioBlobs) + len(p.subtitleBlobs)
}

// collectTrack adds a track, its subtitles, the sessions referencing
// it, and all their blobs to the plan
func (d *Deleter) collectTrack(p *deletionPlan, t *store.Track) error {
	subs, err := d.store.SubtitlesByTrack(t.ID)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		p.subtitleIDs = append(p.subtitleIDs, sub.ID)
		if sub.SubtitleBlobID != "" {
			p.subtitleBlobs = append(p.subtitleBlobs, sub.SubtitleBlobID)
		}
	}

	// Sessions pointing at the track go with it; a track-referencing
	// session never owns audio, but it can own its own caption blob
	sessions, err := d.store.SessionsByTrack(t.ID)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		p.sessionIDs = append(p.sessionIDs, sess.ID)
		if sess.SubtitleBlobID != "" {
			p.subtitleBlobs = append(p.subtitleBlobs, sess.SubtitleBlobID)
		}
	}

	p.trackIDs = append(p.trackIDs, t.ID)
	if t.AudioBlobID != "" {
		p.audioBlobs = append(p.audioBlobs, t.AudioBlobID)
	}
	return nil
}

// apply executes the plan: all row deletions in one transaction
// (children first), then blob deletions. Blob failures are logged and
// absorbed; the metadata delete has already committed and is the
// source of truth.
func (d *Deleter) apply(p *deletionPlan) error {
	err := d.store.Transaction(func(tx *sql.Tx) error {
		for _, id := range p.subtitleIDs {
			if err := d.store.DeleteTrackSubtitleTx(tx, id); err != nil {
				return err
			}
		}
		for _, id := range p.trackIDs {
			if err := d.store.DeleteTrackTx(tx, id); err != nil {
				return err
			}
		}
		for _, id := range p.folderIDs {
			if err := d.store.DeleteFolderTx(tx, id); err != nil {
				return err
			}
		}
		for _, id := range p.sessionIDs {
			if err := d.store.DeleteSessionTx(tx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := d.blobs.DeleteMany(blob.KindAudio, p.audioBlobs); err != nil {
		util.WarnLog("orphaned audio blobs left behind: %v", err)
		d.logger.LogError(report.EventDelete, "", err)
	}
	if err := d.blobs.DeleteMany(blob.KindSubtitle, p.subtitleBlobs); err != nil {
		util.WarnLog("orphaned subtitle blobs left behind: %v", err)
		d.logger.LogError(report.EventDelete, "", err)
	}
	return nil
}

// DeleteFolder removes a folder, every track in it, every subtitle of
// those tracks, and all blobs they own
func (d *Deleter) DeleteFolder(id int64) error {
	folder, err := d.store.GetFolder(id)
	if err != nil {
		return err
	}
	if folder == nil {
		return fmt.Errorf("folder %d: %w", id, util.ErrNotFound)
	}

	tracks, err := d.store.TracksByFolder(id)
	if err != nil {
		return err
	}

	p := &deletionPlan{}
	for _, t := range tracks {
		if err := d.collectTrack(p, t); err != nil {
			return err
		}
	}
	p.folderIDs = append(p.folderIDs, id)

	if err := d.apply(p); err != nil {
		return fmt.Errorf("failed to delete folder %d: %w", id, err)
	}
	d.logger.LogDelete("folder", fmt.Sprintf("%d", id), p.records(), p.blobs())
	return nil
}

// DeleteTrack removes a track, its subtitles, its audio blob, and its
// subtitles' blobs
func (d *Deleter) DeleteTrack(id int64) error {
	track, err := d.store.GetTrack(id)
	if err != nil {
		return err
	}
	if track == nil {
		return fmt.Errorf("track %d: %w", id, util.ErrNotFound)
	}

	p := &deletionPlan{}
	if err := d.collectTrack(p, track); err != nil {
		return err
	}

	if err := d.apply(p); err != nil {
		return fmt.Errorf("failed to delete track %d: %w", id, err)
	}
	d.logger.LogDelete("track", fmt.Sprintf("%d", id), p.records(), p.blobs())
	return nil
}

// DeleteSession removes a session and any blobs it directly owns. A
// session that references a track's audio via its track reference does
// not own that blob; track lifecycle is independent of sessions
// pointing at it.
func (d *Deleter) DeleteSession(id string) error {
	sess, err := d.store.GetSession(id)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("session %s: %w", id, util.ErrNotFound)
	}

	p := &deletionPlan{sessionIDs: []string{id}}
	if sess.AudioBlobID != "" {
		p.audioBlobs = append(p.audioBlobs, sess.AudioBlobID)
	}
	if sess.SubtitleBlobID != "" {
		p.subtitleBlobs = append(p.subtitleBlobs, sess.SubtitleBlobID)
	}

	if err := d.apply(p); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	d.logger.LogDelete("session", id, p.records(), p.blobs())
	return nil
}

// ClearCacheResult summarizes a ClearAllAudioBlobs run
type ClearCacheResult struct {
	BlobsDeleted    int
	BytesFreed      int64
	SessionsCleared int
}

// ClearAllAudioBlobs deletes every session-owned cached audio blob and
// clears the owning sessions' references, marking them no longer
// cached. Session metadata survives; track-owned audio is untouched.
// This is the soft cascade that reclaims space without losing history.
func (d *Deleter) ClearAllAudioBlobs() (*ClearCacheResult, error) {
	sessions, err := d.store.SessionsWithAudioBlob()
	if err != nil {
		return nil, err
	}

	result := &ClearCacheResult{}
	var blobIDs []string
	for _, sess := range sessions {
		blobIDs = append(blobIDs, sess.AudioBlobID)
		result.BytesFreed += sess.SizeBytes
	}

	// References first: once no session points at a blob, a failure
	// deleting it only leaks space.
	err = d.store.Transaction(func(tx *sql.Tx) error {
		cleared, err := d.store.ClearSessionAudioRefsTx(tx)
		if err != nil {
			return err
		}
		result.SessionsCleared = int(cleared)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to clear cached audio: %w", err)
	}

	if err := d.blobs.DeleteMany(blob.KindAudio, blobIDs); err != nil {
		util.WarnLog("orphaned audio blobs left behind: %v", err)
	} else {
		result.BlobsDeleted = len(blobIDs)
	}

	d.logger.LogClearCache(result.BlobsDeleted, result.BytesFreed, result.SessionsCleared)
	return result, nil
}
