package main

import (
	"github.com/dustin/go-humanize"
	"github.com/franz/podlib/internal/cascade"
	"github.com/franz/podlib/internal/util"
	"github.com/spf13/cobra"
)

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Delete all cached episode audio",
	Long: `Delete every cached episode audio blob and mark the owning
sessions as no longer cached.

Playback history and progress survive; only downloaded episode audio is
removed. Imported local tracks are never touched.`,
	RunE: runClearCache,
}

func init() {
	rootCmd.AddCommand(clearCacheCmd)
}

func runClearCache(cmd *cobra.Command, args []string) error {
	applyLogFlags()

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
	result, err := deleter.ClearAllAudioBlobs()
	if err != nil {
		return err
	}

	if result.BlobsDeleted == 0 {
		util.InfoLog("Cache is already empty")
		return nil
	}
	util.SuccessLog("Freed %s (%d blob(s), %d session(s) kept)",
		humanize.Bytes(uint64(result.BytesFreed)), result.BlobsDeleted, result.SessionsCleared)
	return nil
}
