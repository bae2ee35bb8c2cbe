package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/franz/podlib/internal/report"
	"github.com/franz/podlib/internal/util"
	"github.com/franz/podlib/internal/vault"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export the library to a vault snapshot",
	Long: `Write the entire library's metadata to a vault snapshot file.

The snapshot covers folders, tracks, subtitles, subscriptions,
favorites, playback history and settings. Media blobs are not included;
a restored library re-imports or re-downloads its media.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Restore the library from a vault snapshot",
	Long: `Replace the entire library's metadata with a vault snapshot.

The snapshot is validated and its integrity verified before anything is
touched. The replacement runs in one transaction: a failed restore
leaves the current library exactly as it was.`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(restoreCmd)
}

func snapshotRecords(s *vault.Snapshot) int {
	return len(s.Data.Folders) + len(s.Data.LocalTracks) + len(s.Data.LocalSubtitles) +
		len(s.Data.Subscriptions) + len(s.Data.Favorites) + len(s.Data.Sessions) +
		len(s.Data.Settings)
}

func runExport(cmd *cobra.Command, args []string) error {
	applyLogFlags()
	path := args[0]

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	logger := newEventLogger()
	defer logger.Close()

	snap, err := vault.NewManager(db).Export()
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	logger.LogVault(report.EventVaultExport, path, snapshotRecords(snap))
	util.SuccessLog("Exported %d record(s) to %s (%s)",
		snapshotRecords(snap), path, humanize.Bytes(uint64(len(data))))
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	applyLogFlags()
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap vault.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("%w: %v", util.ErrMalformedSnapshot, err)
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	logger := newEventLogger()
	defer logger.Close()

	if err := vault.NewManager(db).Import(&snap); err != nil {
		logger.LogError(report.EventVaultRestore, path, err)
		return fmt.Errorf("restore failed: %w", err)
	}

	logger.LogVault(report.EventVaultRestore, path, snapshotRecords(&snap))
	util.SuccessLog("Restored %d record(s) from %s", snapshotRecords(&snap), path)
	util.InfoLog("Media blobs are not part of the vault; re-import or re-download as needed")
	return nil
}
