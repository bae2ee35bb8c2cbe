// Package prune bounds the playback history with a dual-threshold
// retention policy: keep at most a fixed number of sessions AND at
// most a fixed age of history, whichever is more restrictive.
package prune

import (
	"context"
	"time"

	"github.com/franz/podlib/internal/cascade"
	"github.com/franz/podlib/internal/report"
	"github.com/franz/podlib/internal/store"
	"github.com/franz/podlib/internal/util"
)

// Defaults for the retention policy
const (
	DefaultMaxSessions   = 1000
	DefaultRetentionDays = 180
	DefaultBatchSize     = 100
	DefaultYield         = 30 * time.Millisecond
)

// Pruner deletes expired sessions in small batches, yielding between
// batches so it never monopolizes the scheduler
type Pruner struct {
	store   *store.Store
	deleter *cascade.Deleter
	logger  *report.EventLogger

	maxSessions   int
	retentionDays int
	batchSize     int
	yield         time.Duration
}

// Config holds pruner dependencies and policy overrides. Zero values
// take the defaults.
type Config struct {
	Store         *store.Store
	Deleter       *cascade.Deleter
	Logger        *report.EventLogger
	MaxSessions   int
	RetentionDays int
	BatchSize     int
	Yield         time.Duration
}

// New creates a new Pruner
func New(cfg *Config) *Pruner {
	p := &Pruner{
		store:         cfg.Store,
		deleter:       cfg.Deleter,
		logger:        cfg.Logger,
		maxSessions:   cfg.MaxSessions,
		retentionDays: cfg.RetentionDays,
		batchSize:     cfg.BatchSize,
		yield:         cfg.Yield,
	}
	if p.maxSessions <= 0 {
		p.maxSessions = DefaultMaxSessions
	}
	if p.retentionDays <= 0 {
		p.retentionDays = DefaultRetentionDays
	}
	if p.batchSize <= 0 {
		p.batchSize = DefaultBatchSize
	}
	if p.yield <= 0 {
		p.yield = DefaultYield
	}
	return p
}

// Result summarizes a prune run
type Result struct {
	Cutoff  int64 // effective cutoff, epoch ms
	Deleted int
	Batches int
	Errors  []error
}

// Cutoff computes the effective cutoff: the larger of the count cutoff
// (last_played_at of the Nth most recent session; 0 when fewer than N
// exist) and the time cutoff (now minus the retention window). A
// larger cutoff deletes strictly more records, so taking the max makes
// the policy "whichever threshold is more restrictive".
func (p *Pruner) Cutoff(now time.Time) (int64, error) {
	countCutoff, err := p.store.NthMostRecentLastPlayed(p.maxSessions)
	if err != nil {
		return 0, err
	}

	timeCutoff := now.AddDate(0, 0, -p.retentionDays).UnixMilli()

	if countCutoff > timeCutoff {
		return countCutoff, nil
	}
	return timeCutoff, nil
}

// Prune deletes every session with last_played_at strictly below the
// effective cutoff, through the full per-session cascade so owned
// blobs are reclaimed. Deletion happens in fixed-size batches with a
// short yield between them. Per-session failures are logged, collected
// into the Result, and never abort the run: pruning is best-effort
// maintenance, not a user-facing operation.
func (p *Pruner) Prune(ctx context.Context) (*Result, error) {
	start := time.Now()

	cutoff, err := p.Cutoff(start)
	if err != nil {
		return nil, err
	}

	result := &Result{Cutoff: cutoff}
	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		batch, err := p.store.SessionsOlderThan(cutoff, p.batchSize)
		if err != nil {
			result.Errors = append(result.Errors, err)
			break
		}
		if len(batch) == 0 {
			break
		}

		deleted := 0
		for _, sess := range batch {
			if err := p.deleter.DeleteSession(sess.ID); err != nil {
				util.WarnLog("prune: failed to delete session %s: %v", sess.ID, err)
				result.Errors = append(result.Errors, err)
				continue
			}
			deleted++
		}
		result.Deleted += deleted
		result.Batches++

		// A batch that made no progress would come back identical;
		// stop instead of spinning on undeletable sessions.
		if deleted == 0 {
			break
		}
		if len(batch) < p.batchSize {
			break
		}

		// Yield so other pending work gets scheduled between batches
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(p.yield):
		}
	}

	p.logger.LogPrune(result.Deleted, result.Batches, cutoff, time.Since(start))
	util.DebugLog("prune: deleted %d sessions in %d batches (cutoff %d)",
		result.Deleted, result.Batches, cutoff)
	return result, nil
}
