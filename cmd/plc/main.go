package main

import (
	"fmt"
	"os"

	"github.com/franz/podlib/internal/blob"
	"github.com/franz/podlib/internal/report"
	"github.com/franz/podlib/internal/store"
	"github.com/franz/podlib/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "plc",
		Short: "Podcast Library Client - local-first podcast and media library",
		Long: `plc is a local-first podcast and media library. It keeps subscriptions,
favorites, playback history, imported audio files and their captions in
a local store, prunes stale history on a dual-threshold retention
policy, and exports the whole library as a portable vault snapshot.`,
		Version: Version,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/example.yaml)")
	rootCmd.PersistentFlags().String("db", "podlib.db", "metadata database file")
	rootCmd.PersistentFlags().String("blobs", "podlib-blobs.db", "media blob database file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")

	// Bind flags to viper
	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("blobs", rootCmd.PersistentFlags().Lookup("blobs"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in common locations
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("example")
		viper.SetConfigType("yaml")
	}

	// Read in environment variables that match
	viper.SetEnvPrefix("PLC")
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		util.InfoLog("Using config file: %s", viper.ConfigFileUsed())
	}
}

// applyLogFlags sets the util log level from the global flags
func applyLogFlags() {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))
}

// openStore opens the metadata database from the global --db flag
func openStore() (*store.Store, error) {
	dbPath := viper.GetString("db")
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// openBlobs opens the blob database from the global --blobs flag
func openBlobs() (*blob.Store, error) {
	blobPath := viper.GetString("blobs")
	blobs, err := blob.Open(blobPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}
	return blobs, nil
}

// newEventLogger creates the JSONL event logger, falling back to a
// no-op logger when the artifacts directory is unavailable
func newEventLogger() *report.EventLogger {
	logLevel := report.LevelInfo
	if viper.GetBool("quiet") {
		logLevel = report.LevelWarning
	} else if viper.GetBool("verbose") {
		logLevel = report.LevelDebug
	}

	logger, err := report.NewEventLogger("artifacts", logLevel)
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		return report.NullLogger()
	}
	if logger.Path() != "" {
		util.DebugLog("Event log: %s", logger.Path())
	}
	return logger
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
