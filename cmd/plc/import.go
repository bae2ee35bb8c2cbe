package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/franz/podlib/internal/blob"
	"github.com/franz/podlib/internal/report"
	"github.com/franz/podlib/internal/store"
	"github.com/franz/podlib/internal/util"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import [files or directories...]",
	Short: "Import local audio files into the library",
	Long: `Import audio files into the local library.

Each file is stored as a blob and registered as a local track. Embedded
tags provide the track name when present; the filename is the fallback.
A sidecar caption file (.srt or .vtt) with the same base name is
imported alongside the track and set as its active subtitle.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

var audioExtensions = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".m4b":  "audio/mp4",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
	".wav":  "audio/wav",
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().String("folder", "", "place imported tracks in this folder (created if missing)")
}

func runImport(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	folderName, _ := cmd.Flags().GetString("folder")

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

	var folderID int64
	if folderName != "" {
		folder, err := db.GetFolderByName(folderName)
		if err != nil {
			return err
		}
		if folder == nil {
			folder = &store.Folder{Name: folderName}
			if err := db.CreateFolder(folder); err != nil {
				return fmt.Errorf("failed to create folder %q: %w", folderName, err)
			}
			util.InfoLog("Created folder: %s", folderName)
		}
		folderID = folder.ID
	}

	files, err := collectAudioFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no audio files found")
	}

	util.InfoLog("Importing %d file(s)", len(files))
	bar := progressbar.Default(int64(len(files)), "importing")

	imported := 0
	for _, path := range files {
		if err := importFile(db, blobs, logger, path, folderID); err != nil {
			util.WarnLog("Skipping %s: %v", path, err)
			logger.LogError(report.EventImport, path, err)
		} else {
			imported++
		}
		bar.Add(1)
	}

	util.SuccessLog("Imported %d of %d file(s)", imported, len(files))
	return nil
}

// collectAudioFiles expands the argument list into a flat list of
// audio file paths, walking directories recursively
func collectAudioFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if !info.IsDir() {
			if _, ok := audioExtensions[strings.ToLower(filepath.Ext(arg))]; ok {
				files = append(files, arg)
			}
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if _, ok := audioExtensions[strings.ToLower(filepath.Ext(path))]; ok {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func importFile(db *store.Store, blobs *blob.Store, logger *report.EventLogger, path string, folderID int64) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if m, err := tag.ReadFrom(bytes.NewReader(payload)); err == nil && m.Title() != "" {
		name = m.Title()
	}

	audioMeta := &blob.Meta{
		Filename:  filepath.Base(path),
		MimeType:  audioExtensions[ext],
		Format:    strings.TrimPrefix(ext, "."),
		SizeBytes: int64(len(payload)),
	}
	if err := blobs.Put(blob.KindAudio, audioMeta, payload); err != nil {
		return fmt.Errorf("storing audio blob: %w", err)
	}

	track := &store.Track{
		FolderID:    folderID,
		Name:        name,
		AudioBlobID: audioMeta.ID,
		SizeBytes:   int64(len(payload)),
	}
	if err := db.CreateTrack(track); err != nil {
		// Roll back the orphaned blob so a failed import leaves nothing behind
		blobs.Delete(blob.KindAudio, audioMeta.ID)
		return err
	}
	logger.LogImport(path, track.ID, int64(len(payload)))

	if err := importSidecar(db, blobs, path, track.ID); err != nil {
		util.WarnLog("Sidecar for %s: %v", path, err)
	}
	return nil
}

// importSidecar looks for a caption file next to the audio file and
// attaches it as the track's active subtitle
func importSidecar(db *store.Store, blobs *blob.Store, audioPath string, trackID int64) error {
	base := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	for _, ext := range []string{".srt", ".vtt"} {
		sidecar := base + ext
		payload, err := os.ReadFile(sidecar)
		if err != nil {
			continue
		}

		subMeta := &blob.Meta{
			Filename:  filepath.Base(sidecar),
			Format:    strings.TrimPrefix(ext, "."),
			SizeBytes: int64(len(payload)),
		}
		if err := blobs.Put(blob.KindSubtitle, subMeta, payload); err != nil {
			return fmt.Errorf("storing subtitle blob: %w", err)
		}

		sub := &store.TrackSubtitle{
			TrackID:        trackID,
			Name:           filepath.Base(sidecar),
			SubtitleBlobID: subMeta.ID,
		}
		if err := db.CreateTrackSubtitle(sub); err != nil {
			blobs.Delete(blob.KindSubtitle, subMeta.ID)
			return err
		}
		if err := db.SetActiveSubtitle(trackID, sub.ID); err != nil {
			return err
		}
		util.DebugLog("Attached subtitle %s", sidecar)
		return nil
	}
	return nil
}
