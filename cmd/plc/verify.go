package main

import (
	"fmt"
	"time"

	"github.com/franz/podlib/internal/blob"
	"github.com/franz/podlib/internal/util"
	"github.com/franz/podlib/internal/vault"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Audit the library's integrity",
	Long: `Run the full integrity audit against the live library.

The audit checks ID uniqueness across every collection, referential
integrity (no subtitle, track or session pointing at a missing parent),
plausible timestamps, natural-key duplicates, and the physical health
of the metadata database. With --blobs-too it also reports track and
session blob references that have no stored payload.`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().Bool("blobs-too", false, "also check blob references against the blob store")
}

func runVerify(cmd *cobra.Command, args []string) error {
	applyLogFlags()
	checkBlobs, _ := cmd.Flags().GetBool("blobs-too")

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.CheckIntegrity(); err != nil {
		return fmt.Errorf("database integrity check failed: %w", err)
	}
	util.InfoLog("Database file: OK")

	snap, err := vault.NewManager(db).Export()
	if err != nil {
		return fmt.Errorf("failed to read library: %w", err)
	}
	if verr := vault.VerifySnapshot(snap, time.Now()); verr != nil {
		return fmt.Errorf("integrity violation: %s", verr.Reason)
	}
	util.InfoLog("Metadata consistency: OK (%d records)", snapshotRecords(snap))

	if checkBlobs {
		blobs, err := openBlobs()
		if err != nil {
			return err
		}
		defer blobs.Close()

		missing := 0
		for _, t := range snap.Data.LocalTracks {
			if !blobs.Has(blob.KindAudio, t.AudioID) {
				util.WarnLog("Track %d audio blob %s not in blob store", t.ID, t.AudioID)
				missing++
			}
		}
		for _, sub := range snap.Data.LocalSubtitles {
			if !blobs.Has(blob.KindSubtitle, sub.SubtitleID) {
				util.WarnLog("Subtitle %d blob %s not in blob store", sub.ID, sub.SubtitleID)
				missing++
			}
		}
		for _, sess := range snap.Data.Sessions {
			if sess.AudioID != "" && !blobs.Has(blob.KindAudio, sess.AudioID) {
				util.WarnLog("Session %s audio blob %s not in blob store", sess.ID, sess.AudioID)
				missing++
			}
		}
		if missing > 0 {
			return fmt.Errorf("%d blob reference(s) have no stored payload", missing)
		}
		util.InfoLog("Blob references: OK")
	}

	util.SuccessLog("Library is consistent")
	return nil
}
