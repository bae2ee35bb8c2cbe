package store

import (
	"database/sql"
	"fmt"
)

// Setting is an independent key-value record
type Setting struct {
	Key       string
	Value     string
	UpdatedAt int64 // epoch ms
	ExtraJSON string
}

// SetSetting upserts a setting and refreshes updated_at
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, nowMillis())
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

// GetSetting retrieves a setting by key, or nil if absent
func (s *Store) GetSetting(key string) (*Setting, error) {
	set := &Setting{}
	err := s.db.QueryRow(`
		SELECT key, value, updated_at, extra_json FROM settings WHERE key = ?
	`, key).Scan(&set.Key, &set.Value, &set.UpdatedAt, &set.ExtraJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	return set, nil
}

// DeleteSetting removes a setting
func (s *Store) DeleteSetting(key string) error {
	_, err := s.db.Exec("DELETE FROM settings WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	return nil
}

// AllSettings returns every setting ordered by key
func (s *Store) AllSettings() ([]*Setting, error) {
	rows, err := s.db.Query("SELECT key, value, updated_at, extra_json FROM settings ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	var settings []*Setting
	for rows.Next() {
		set := &Setting{}
		if err := rows.Scan(&set.Key, &set.Value, &set.UpdatedAt, &set.ExtraJSON); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings = append(settings, set)
	}
	return settings, rows.Err()
}

// InsertSettingTx inserts a setting as given. Used by the vault import.
func (s *Store) InsertSettingTx(tx *sql.Tx, set *Setting) error {
	_, err := tx.Exec(`
		INSERT INTO settings (key, value, updated_at, extra_json)
		VALUES (?, ?, ?, ?)
	`, set.Key, set.Value, set.UpdatedAt, set.ExtraJSON)
	if err != nil {
		return fmt.Errorf("failed to insert setting: %w", err)
	}
	return nil
}
