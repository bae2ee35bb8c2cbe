package store

import (
	"database/sql"
	"fmt"
)

// metadataTables lists every metadata table, children before parents
var metadataTables = []string{
	"local_subtitles",
	"local_tracks",
	"folders",
	"playback_sessions",
	"subscriptions",
	"favorites",
	"settings",
}

// ClearAllTx empties every metadata table inside the given
// transaction. The vault import runs this followed by the snapshot's
// bulk inserts, all in one transaction, so a failed restore leaves the
// prior state untouched.
func (s *Store) ClearAllTx(tx *sql.Tx) error {
	for _, table := range metadataTables {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	// Reset auto-increment counters; restored records carry explicit
	// ids. The table only exists after the first auto-increment insert.
	tx.Exec("DELETE FROM sqlite_sequence")
	return nil
}
