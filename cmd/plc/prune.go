package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/franz/podlib/internal/cascade"
	"github.com/franz/podlib/internal/prune"
	"github.com/franz/podlib/internal/util"
	"github.com/spf13/cobra"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Prune stale playback history",
	Long: `Delete playback sessions past the retention policy.

Two thresholds apply and the stricter one wins: sessions beyond the
most recent N (--max-sessions), and sessions not played within the
retention window (--retention-days). Each deleted session takes its
cached audio and caption blobs with it. Deletion runs in small batches
so a large backlog never blocks the library for long.`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().Bool("dry-run", false, "report what would be deleted without deleting")
	pruneCmd.Flags().Int("max-sessions", 0, "session count cap (default from config)")
	pruneCmd.Flags().Int("retention-days", 0, "session age cap in days (default from config)")
	pruneCmd.Flags().Int("batch", 0, "sessions deleted per batch (default from config)")
}

func runPrune(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	maxSessions, _ := cmd.Flags().GetInt("max-sessions")
	retentionDays, _ := cmd.Flags().GetInt("retention-days")
	batch, _ := cmd.Flags().GetInt("batch")

	if maxSessions <= 0 {
		maxSessions = util.GetMaxSessions()
	}
	if retentionDays <= 0 {
		retentionDays = util.GetRetentionDays()
	}
	if batch <= 0 {
		batch = util.GetPruneBatch()
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	blobs, err := openBlobs()
	if err != nil {
		return err
	}
	defer blobs.Close()

	logger := newEventLogger()
	defer logger.Close()

	deleter := cascade.New(&cascade.Config{Store: db, Blobs: blobs, Logger: logger})
	pruner := prune.New(&prune.Config{
		Store:         db,
		Deleter:       deleter,
		Logger:        logger,
		MaxSessions:   maxSessions,
		RetentionDays: retentionDays,
		BatchSize:     batch,
	})

	if dryRun {
		cutoff, err := pruner.Cutoff(time.Now())
		if err != nil {
			return err
		}
		if cutoff <= 0 {
			util.InfoLog("Nothing to prune")
			return nil
		}
		stale, err := db.SessionsOlderThan(cutoff, 0)
		if err != nil {
			return err
		}
		util.InfoLog("Cutoff: %s", humanize.Time(time.UnixMilli(cutoff)))
		util.InfoLog("Would delete %d session(s)", len(stale))
		for _, sess := range stale {
			fmt.Printf("  %s  %s  last played %s\n", sess.ID, sess.Title,
				humanize.Time(time.UnixMilli(sess.LastPlayedAt)))
		}
		return nil
	}

	result, err := pruner.Prune(context.Background())
	if err != nil {
		return err
	}

	if result.Deleted == 0 {
		util.InfoLog("Nothing to prune")
		return nil
	}
	util.SuccessLog("Pruned %d session(s) in %d batch(es)", result.Deleted, result.Batches)
	if len(result.Errors) > 0 {
		util.WarnLog("%d session(s) could not be deleted; see event log", len(result.Errors))
	}
	return nil
}
