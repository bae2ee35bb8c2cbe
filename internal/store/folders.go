package store

import (
	"database/sql"
	"fmt"

	"github.com/franz/podlib/internal/util"
)

// Folder groups locally imported tracks. PinnedAt > 0 means pinned.
type Folder struct {
	ID        int64
	Name      string
	CreatedAt int64 // epoch ms
	PinnedAt  int64 // epoch ms, 0 = not pinned
	ExtraJSON string
}

const folderCols = `id, name, created_at, pinned_at, extra_json`

func scanFolder(row rowScanner) (*Folder, error) {
	f := &Folder{}
	err := row.Scan(&f.ID, &f.Name, &f.CreatedAt, &f.PinnedAt, &f.ExtraJSON)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// CreateFolder inserts a new folder, allocating its id
func (s *Store) CreateFolder(f *Folder) error {
	if f.CreatedAt == 0 {
		f.CreatedAt = nowMillis()
	}
	if f.ID == 0 {
		id, err := s.nextID()
		if err != nil {
			return err
		}
		f.ID = id
	}
	_, err := s.db.Exec(`
		INSERT INTO folders (id, name, created_at, pinned_at, extra_json)
		VALUES (?, ?, ?, ?, ?)
	`, f.ID, f.Name, f.CreatedAt, f.PinnedAt, f.ExtraJSON)
	if err != nil {
		return fmt.Errorf("failed to insert folder: %w", err)
	}
	return nil
}

// GetFolder retrieves a folder by ID, or nil if absent
func (s *Store) GetFolder(id int64) (*Folder, error) {
	f, err := scanFolder(s.db.QueryRow(`
		SELECT `+folderCols+` FROM folders WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	return f, nil
}

// GetFolderByName retrieves the first folder with the given name, or
// nil. Names are not unique; import uses this to reuse a target folder.
func (s *Store) GetFolderByName(name string) (*Folder, error) {
	f, err := scanFolder(s.db.QueryRow(`
		SELECT `+folderCols+` FROM folders WHERE name = ? ORDER BY id LIMIT 1
	`, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	return f, nil
}

// RenameFolder changes a folder's name
func (s *Store) RenameFolder(id int64, name string) error {
	result, err := s.db.Exec("UPDATE folders SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return fmt.Errorf("failed to rename folder: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("folder %d: %w", id, util.ErrNotFound)
	}
	return nil
}

// SetFolderPinned pins or unpins a folder
func (s *Store) SetFolderPinned(id int64, pinned bool) error {
	pinnedAt := int64(0)
	if pinned {
		pinnedAt = nowMillis()
	}
	result, err := s.db.Exec("UPDATE folders SET pinned_at = ? WHERE id = ?", pinnedAt, id)
	if err != nil {
		return fmt.Errorf("failed to pin folder: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("folder %d: %w", id, util.ErrNotFound)
	}
	return nil
}

// AllFolders returns every folder, pinned folders first, then by name
func (s *Store) AllFolders() ([]*Folder, error) {
	rows, err := s.db.Query(`
		SELECT ` + folderCols + ` FROM folders
		ORDER BY (pinned_at > 0) DESC, name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer rows.Close()

	var folders []*Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

// CountFolders returns the number of folders
func (s *Store) CountFolders() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM folders").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count folders: %w", err)
	}
	return count, nil
}

// DeleteFolderTx deletes a folder row only. Its tracks must already be
// gone; the cascade deleter owns that ordering.
func (s *Store) DeleteFolderTx(tx *sql.Tx, id int64) error {
	_, err := tx.Exec("DELETE FROM folders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	return nil
}

// InsertFolderTx inserts a folder with its explicit id. Used by the
// vault import.
func (s *Store) InsertFolderTx(tx *sql.Tx, f *Folder) error {
	_, err := tx.Exec(`
		INSERT INTO folders (`+folderCols+`)
		VALUES (?, ?, ?, ?, ?)
	`, f.ID, f.Name, f.CreatedAt, f.PinnedAt, f.ExtraJSON)
	if err != nil {
		return fmt.Errorf("failed to insert folder: %w", err)
	}
	return nil
}
