package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/franz/podlib/internal/store"
	"github.com/franz/podlib/internal/util"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List playback history",
	Long: `List playback sessions, most recently played first.

Use --search to filter by title and --limit to cap the output.`,
	RunE: runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)

	sessionsCmd.Flags().IntP("limit", "n", 25, "maximum sessions to show (0 = all)")
	sessionsCmd.Flags().StringP("search", "s", "", "filter sessions by title")
}

func runSessions(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	limit, _ := cmd.Flags().GetInt("limit")
	search, _ := cmd.Flags().GetString("search")

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	var sessions []*store.Session
	if search != "" {
		sessions, err = db.SearchSessions(search, limit)
	} else {
		sessions, err = db.SessionsMostRecentFirst(limit)
	}
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		util.InfoLog("No sessions")
		return nil
	}

	width := util.TerminalWidth()
	for _, sess := range sessions {
		title := sess.Title
		if title == "" {
			title = "(untitled)"
		}
		marker := " "
		if sess.Cached {
			marker = "*"
		}
		line := fmt.Sprintf("%s %-8s %-40s %s", marker, sess.Source, title,
			humanize.Time(time.UnixMilli(sess.LastPlayedAt)))
		if width > 0 && len(line) > width {
			line = line[:width]
		}
		fmt.Println(line)
	}
	return nil
}
