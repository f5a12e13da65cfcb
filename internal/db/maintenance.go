package db

import (
	"database/sql"
	"time"

	"aicopilot/core/internal/models"
)

// Stats reports row counts for the UI's storage screen.
type Stats struct {
	Notes       int `json:"notes"`
	Messages    int `json:"messages"`
	Files       int `json:"files"`
	PendingSync int `json:"pendingSync"`
}

// StorageStats returns row counts per table plus the queue depth.
func (s *Store) StorageStats() (*Stats, error) {
	var st Stats
	err := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM notes),
			(SELECT COUNT(*) FROM messages),
			(SELECT COUNT(*) FROM files),
			(SELECT COUNT(*) FROM sync_queue)`).
		Scan(&st.Notes, &st.Messages, &st.Files, &st.PendingSync)
	if err != nil {
		return nil, storageErr("storage stats", err)
	}
	return &st, nil
}

// LastSyncTime returns the newest last_sync_at across notes, or zero if
// nothing has ever synced.
func (s *Store) LastSyncTime() (time.Time, error) {
	var ms sql.NullInt64
	err := s.db.QueryRow(`SELECT MAX(last_sync_at) FROM notes WHERE last_sync_at > 0`).Scan(&ms)
	if err != nil {
		return time.Time{}, storageErr("last sync time", err)
	}
	if !ms.Valid || ms.Int64 == 0 {
		return time.Time{}, nil
	}
	return time.UnixMilli(ms.Int64), nil
}

// Snapshot is a full dump of the entity tables, used for backup.
type Snapshot struct {
	Notes      []*models.Note    `json:"notes"`
	Messages   []*models.Message `json:"messages"`
	Files      []*models.File    `json:"files"`
	ExportedAt int64             `json:"exportedAt"`
}

// Export dumps all entity rows. Queue items are deliberately excluded:
// a restored database re-syncs from entity status, not queue history.
func (s *Store) Export() (*Snapshot, error) {
	notes, err := s.ListNotes(0, 0)
	if err != nil {
		return nil, err
	}
	messages, err := s.scanMessages(`SELECT `+messageColumns+` FROM messages ORDER BY timestamp ASC`, nil)
	if err != nil {
		return nil, err
	}
	files, err := s.ListFiles()
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Notes:      notes,
		Messages:   messages,
		Files:      files,
		ExportedAt: time.Now().UnixMilli(),
	}, nil
}

// Import replaces all local data with the snapshot's rows. Rows keep the
// sync status they were exported with.
func (s *Store) Import(snap *Snapshot) error {
	return s.withTx(func(tx *sql.Tx) error {
		for _, table := range []string{"notes", "messages", "files", "sync_queue"} {
			if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
				return storageErr("clear "+table, err)
			}
		}
		for _, n := range snap.Notes {
			_, err := tx.Exec(
				`INSERT INTO notes (id, title, content, created_at, updated_at, sync_status, last_sync_at, server_id)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				n.ID, n.Title, n.Content, n.CreatedAt, n.UpdatedAt, n.SyncStatus, n.LastSyncAt, n.ServerID,
			)
			if err != nil {
				return storageErr("import note", err)
			}
		}
		for _, m := range snap.Messages {
			_, err := tx.Exec(
				`INSERT INTO messages (id, text, sender, timestamp, sync_status, conversation_id)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				m.ID, m.Text, m.Sender, m.Timestamp, m.SyncStatus, m.ConversationID,
			)
			if err != nil {
				return storageErr("import message", err)
			}
		}
		for _, f := range snap.Files {
			_, err := tx.Exec(
				`INSERT INTO files (id, filename, original_name, mime_type, size, local_path, sync_status, server_id, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				f.ID, f.Filename, f.OriginalName, f.MimeType, f.Size, f.LocalPath, f.SyncStatus, f.ServerID, f.CreatedAt,
			)
			if err != nil {
				return storageErr("import file", err)
			}
		}
		return nil
	})
}

// ClearAll wipes every table. Used on logout.
func (s *Store) ClearAll() error {
	return s.withTx(func(tx *sql.Tx) error {
		for _, table := range []string{"notes", "messages", "files", "sync_queue"} {
			if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
				return storageErr("clear "+table, err)
			}
		}
		return nil
	})
}

// Vacuum reclaims disk space after large deletes.
func (s *Store) Vacuum() error {
	if _, err := s.db.Exec(`VACUUM`); err != nil {
		return storageErr("vacuum", err)
	}
	return nil
}
