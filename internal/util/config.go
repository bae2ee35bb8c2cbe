package util

import "github.com/spf13/viper"

// Retention policy defaults. The pruner keeps at most MaxSessions
// history records AND at most RetentionDays of history, whichever is
// more restrictive.
const (
	DefaultMaxSessions   = 1000
	DefaultRetentionDays = 180
	DefaultPruneBatch    = 100
)

// GetMaxSessions returns the session-count retention cap
func GetMaxSessions() int {
	if n := viper.GetInt("retention-max"); n > 0 {
		return n
	}
	return DefaultMaxSessions
}

// GetRetentionDays returns the age retention cap in days
func GetRetentionDays() int {
	if n := viper.GetInt("retention-days"); n > 0 {
		return n
	}
	return DefaultRetentionDays
}

// GetPruneBatch returns the number of sessions deleted per prune batch
func GetPruneBatch() int {
	if n := viper.GetInt("prune-batch"); n > 0 {
		return n
	}
	return DefaultPruneBatch
}
