package main

import (
	"fmt"
	"strconv"

	"github.com/franz/podlib/internal/cascade"
	"github.com/franz/podlib/internal/util"
	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm",
	Short: "Delete a folder, track or session with its dependents",
	Long: `Delete a library entity and everything that depends on it.

Deleting a folder takes its tracks, their subtitles, their sessions and
their blobs. Deleting a track takes its subtitles, sessions and blobs.
Deleting a session takes only the blobs the session itself owns. No
deletion ever leaves a dangling reference behind.`,
}

var rmFolderCmd = &cobra.Command{
	Use:   "folder <id>",
	Short: "Delete a folder and all tracks inside it",
	Args:  cobra.ExactArgs(1),
	RunE:  runRmFolder,
}

var rmTrackCmd = &cobra.Command{
	Use:   "track <id>",
	Short: "Delete a local track, its subtitles and its sessions",
	Args:  cobra.ExactArgs(1),
	RunE:  runRmTrack,
}

var rmSessionCmd = &cobra.Command{
	Use:   "session <id>",
	Short: "Delete a playback session and its cached blobs",
	Args:  cobra.ExactArgs(1),
	RunE:  runRmSession,
}

func init() {
	rootCmd.AddCommand(rmCmd)
	rmCmd.AddCommand(rmFolderCmd)
	rmCmd.AddCommand(rmTrackCmd)
	rmCmd.AddCommand(rmSessionCmd)
}

func newDeleter() (*cascade.Deleter, func(), error) {
	db, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	blobs, err := openBlobs()
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	logger := newEventLogger()

	cleanup := func() {
		logger.Close()
		blobs.Close()
		db.Close()
	}
	return cascade.New(&cascade.Config{Store: db, Blobs: blobs, Logger: logger}), cleanup, nil
}

func runRmFolder(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid folder id: %s", args[0])
	}

	deleter, cleanup, err := newDeleter()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := deleter.DeleteFolder(id); err != nil {
		return err
	}
	util.SuccessLog("Deleted folder %d", id)
	return nil
}

func runRmTrack(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid track id: %s", args[0])
	}

	deleter, cleanup, err := newDeleter()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := deleter.DeleteTrack(id); err != nil {
		return err
	}
	util.SuccessLog("Deleted track %d", id)
	return nil
}

func runRmSession(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	deleter, cleanup, err := newDeleter()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := deleter.DeleteSession(args[0]); err != nil {
		return err
	}
	util.SuccessLog("Deleted session %s", args[0])
	return nil
}
