package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/franz/podlib/internal/blob"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show library statistics",
	Long: `Display a summary of the library: record counts per collection
and the space the blob store uses.`,
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
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

	folders, err := db.CountFolders()
	if err != nil {
		return err
	}
	tracks, err := db.CountTracks()
	if err != nil {
		return err
	}
	sessions, err := db.CountSessions()
	if err != nil {
		return err
	}
	subscriptions, err := db.CountSubscriptions()
	if err != nil {
		return err
	}
	favorites, err := db.CountFavorites()
	if err != nil {
		return err
	}

	audioCount, err := blobs.Count(blob.KindAudio)
	if err != nil {
		return err
	}
	audioSize, err := blobs.TotalSize(blob.KindAudio)
	if err != nil {
		return err
	}
	subCount, err := blobs.Count(blob.KindSubtitle)
	if err != nil {
		return err
	}
	subSize, err := blobs.TotalSize(blob.KindSubtitle)
	if err != nil {
		return err
	}

	fmt.Println("Library")
	fmt.Printf("  Folders:        %d\n", folders)
	fmt.Printf("  Local tracks:   %d\n", tracks)
	fmt.Printf("  Sessions:       %d\n", sessions)
	fmt.Printf("  Subscriptions:  %d\n", subscriptions)
	fmt.Printf("  Favorites:      %d\n", favorites)
	fmt.Println("Storage")
	fmt.Printf("  Audio blobs:    %d (%s)\n", audioCount, humanize.Bytes(uint64(audioSize)))
	fmt.Printf("  Subtitle blobs: %d (%s)\n", subCount, humanize.Bytes(uint64(subSize)))
	return nil
}
