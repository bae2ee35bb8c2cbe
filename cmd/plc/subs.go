package main

import (
	"fmt"
	"os"

	"github.com/franz/podlib/internal/opml"
	"github.com/franz/podlib/internal/store"
	"github.com/franz/podlib/internal/util"
	"github.com/franz/podlib/internal/vault"
	"github.com/spf13/cobra"
)

var subsCmd = &cobra.Command{
	Use:   "subs",
	Short: "Manage podcast subscriptions",
}

var subsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List subscriptions",
	RunE:  runSubsList,
}

var subsImportCmd = &cobra.Command{
	Use:   "import <file.opml>",
	Short: "Import subscriptions from an OPML feed list",
	Long: `Merge the feeds of an OPML file into the subscription list.

Unlike a vault restore, a feed list is merged, not replaced: feeds
already subscribed keep their existing record, duplicates inside the
file collapse to one subscription, and nothing is deleted.`,
	Args: cobra.ExactArgs(1),
	RunE: runSubsImport,
}

var subsExportCmd = &cobra.Command{
	Use:   "export <file.opml>",
	Short: "Export subscriptions as an OPML feed list",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubsExport,
}

func init() {
	rootCmd.AddCommand(subsCmd)
	subsCmd.AddCommand(subsListCmd)
	subsCmd.AddCommand(subsImportCmd)
	subsCmd.AddCommand(subsExportCmd)
}

func runSubsList(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	subs, err := db.AllSubscriptions()
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		util.InfoLog("No subscriptions")
		return nil
	}
	for _, sub := range subs {
		title := sub.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%-40s %s\n", title, sub.FeedURL)
	}
	return nil
}

func runSubsImport(cmd *cobra.Command, args []string) error {
	applyLogFlags()
	path := args[0]

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open feed list: %w", err)
	}
	defer f.Close()

	feeds, err := opml.Parse(f)
	if err != nil {
		return err
	}

	entries := make([]vault.FeedListEntry, len(feeds))
	for i, feed := range feeds {
		entries[i] = vault.FeedListEntry{Title: feed.Title, FeedURL: feed.FeedURL}
	}
	if err := vault.VerifyFeedList(entries); err != nil {
		return fmt.Errorf("invalid feed list: %w", err)
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	added := 0
	seen := make(map[string]bool, len(feeds))
	for _, feed := range feeds {
		if seen[feed.FeedURL] {
			continue
		}
		seen[feed.FeedURL] = true

		existing, err := db.GetSubscription(feed.FeedURL)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := db.UpsertSubscription(&store.Subscription{
			FeedURL: feed.FeedURL,
			Title:   feed.Title,
		}); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", feed.FeedURL, err)
		}
		added++
	}

	util.SuccessLog("Added %d subscription(s) from %d feed(s)", added, len(feeds))
	return nil
}

func runSubsExport(cmd *cobra.Command, args []string) error {
	applyLogFlags()
	path := args[0]

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	subs, err := db.AllSubscriptions()
	if err != nil {
		return err
	}

	feeds := make([]opml.Feed, len(subs))
	for i, sub := range subs {
		feeds[i] = opml.Feed{Title: sub.Title, FeedURL: sub.FeedURL}
	}

	data, err := opml.Export("plc subscriptions", feeds)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write feed list: %w", err)
	}

	util.SuccessLog("Exported %d feed(s) to %s", len(feeds), path)
	return nil
}
