package db

import (
	"database/sql"
	"encoding/json"
	"time"

	apperrors "aicopilot/core/internal/errors"
	"aicopilot/core/internal/localid"
	"aicopilot/core/internal/models"
)

// Store provides CRUD over the entity tables and the sync queue.
//
// Every write that changes what the server should eventually see appends a
// queue item inside the same transaction as the row change. Reads never
// touch the queue.
type Store struct {
	db *DB
}

// NewStore creates a Store over an open database.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "begin transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "commit transaction", err)
	}
	return nil
}

// enqueueTx appends a sync queue item within the caller's transaction.
// The snapshot is marshaled to JSON and stored opaquely.
func enqueueTx(tx *sql.Tx, entityType models.EntityType, entityID string, op models.Operation, snapshot any) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "marshal queue snapshot", err)
	}
	_, err = tx.Exec(
		`INSERT INTO sync_queue (id, entity_type, entity_id, operation, data, created_at, retries)
		 VALUES (?, ?, ?, ?, ?, ?, 0)`,
		localid.NewQueueID(), entityType, entityID, op, string(data), time.Now().UnixMilli(),
	)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "append sync queue item", err)
	}
	return nil
}

// storageErr wraps any sqlite failure as a StorageError, mapping
// sql.ErrNoRows to NOT_FOUND.
func storageErr(op string, err error) error {
	if err == sql.ErrNoRows {
		return apperrors.Wrap(apperrors.ErrNotFound, op, err)
	}
	return apperrors.Wrap(apperrors.ErrStorage, op, err)
}

// SetSyncStatus updates an entity's sync status. Notes additionally get
// last_sync_at stamped when they reach SYNCED.
func (s *Store) SetSyncStatus(entityType models.EntityType, id string, status models.SyncStatus) error {
	var err error
	switch entityType {
	case models.EntityNote:
		if status == models.StatusSynced {
			_, err = s.db.Exec(`UPDATE notes SET sync_status = ?, last_sync_at = ? WHERE id = ?`,
				status, time.Now().UnixMilli(), id)
		} else {
			_, err = s.db.Exec(`UPDATE notes SET sync_status = ? WHERE id = ?`, status, id)
		}
	case models.EntityMessage:
		_, err = s.db.Exec(`UPDATE messages SET sync_status = ? WHERE id = ?`, status, id)
	case models.EntityFile:
		_, err = s.db.Exec(`UPDATE files SET sync_status = ? WHERE id = ?`, status, id)
	default:
		return apperrors.New(apperrors.ErrValidation, "unknown entity type: "+string(entityType))
	}
	if err != nil {
		return storageErr("set sync status", err)
	}
	return nil
}

// SetServerID records the canonical remote id assigned by the server.
// Messages have no server id column; their local id is canonical.
func (s *Store) SetServerID(entityType models.EntityType, id, serverID string) error {
	var err error
	switch entityType {
	case models.EntityNote:
		_, err = s.db.Exec(`UPDATE notes SET server_id = ? WHERE id = ?`, serverID, id)
	case models.EntityFile:
		_, err = s.db.Exec(`UPDATE files SET server_id = ? WHERE id = ?`, serverID, id)
	case models.EntityMessage:
		return nil
	default:
		return apperrors.New(apperrors.ErrValidation, "unknown entity type: "+string(entityType))
	}
	if err != nil {
		return storageErr("set server id", err)
	}
	return nil
}

// MarkAllPending flips every SYNCED row of one entity table back to
// PENDING, forcing a full re-push on the next cycle.
func (s *Store) MarkAllPending(entityType models.EntityType) error {
	table, ok := tableFor(entityType)
	if !ok {
		return apperrors.New(apperrors.ErrValidation, "unknown entity type: "+string(entityType))
	}
	_, err := s.db.Exec(`UPDATE `+table+` SET sync_status = ? WHERE sync_status = ?`,
		models.StatusPending, models.StatusSynced)
	if err != nil {
		return storageErr("mark all pending", err)
	}
	return nil
}

func tableFor(entityType models.EntityType) (string, bool) {
	switch entityType {
	case models.EntityNote:
		return "notes", true
	case models.EntityMessage:
		return "messages", true
	case models.EntityFile:
		return "files", true
	}
	return "", false
}

// UnsyncedCount returns the number of entities still waiting to be
// replayed (sync status PENDING across all three tables).
func (s *Store) UnsyncedCount() (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM notes    WHERE sync_status = 'PENDING') +
			(SELECT COUNT(*) FROM messages WHERE sync_status = 'PENDING') +
			(SELECT COUNT(*) FROM files    WHERE sync_status = 'PENDING')`).Scan(&count)
	if err != nil {
		return 0, storageErr("count unsynced", err)
	}
	return count, nil
}

// ConflictItems groups every entity currently in CONFLICT, newest first.
type ConflictItems struct {
	Notes    []*models.Note    `json:"notes"`
	Messages []*models.Message `json:"messages"`
	Files    []*models.File    `json:"files"`
}

// Conflicts returns all entities awaiting manual conflict resolution.
func (s *Store) Conflicts() (*ConflictItems, error) {
	notes, err := s.scanNotes(`SELECT ` + noteColumns + ` FROM notes WHERE sync_status = 'CONFLICT' ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	messages, err := s.scanMessages(`SELECT `+messageColumns+` FROM messages WHERE sync_status = 'CONFLICT' ORDER BY timestamp DESC`, nil)
	if err != nil {
		return nil, err
	}
	files, err := s.scanFiles(`SELECT ` + fileColumns + ` FROM files WHERE sync_status = 'CONFLICT' ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return &ConflictItems{Notes: notes, Messages: messages, Files: files}, nil
}

// RequeueLocal re-enqueues the current local snapshot of an entity as a
// fresh UPDATE and sets it back to PENDING. This is the "keep local"
// branch of conflict resolution: the local state will override the remote
// on the next cycle.
func (s *Store) RequeueLocal(entityType models.EntityType, id string) error {
	switch entityType {
	case models.EntityNote:
		note, err := s.NoteByID(id)
		if err != nil {
			return err
		}
		note.SyncStatus = models.StatusPending
		return s.withTx(func(tx *sql.Tx) error {
			if _, err := tx.Exec(`UPDATE notes SET sync_status = ? WHERE id = ?`, models.StatusPending, id); err != nil {
				return storageErr("requeue note", err)
			}
			return enqueueTx(tx, models.EntityNote, id, models.OpUpdate, note)
		})
	case models.EntityMessage:
		msg, err := s.MessageByID(id)
		if err != nil {
			return err
		}
		msg.SyncStatus = models.StatusPending
		return s.withTx(func(tx *sql.Tx) error {
			if _, err := tx.Exec(`UPDATE messages SET sync_status = ? WHERE id = ?`, models.StatusPending, id); err != nil {
				return storageErr("requeue message", err)
			}
			return enqueueTx(tx, models.EntityMessage, id, models.OpUpdate, msg)
		})
	case models.EntityFile:
		file, err := s.FileByID(id)
		if err != nil {
			return err
		}
		file.SyncStatus = models.StatusPending
		return s.withTx(func(tx *sql.Tx) error {
			if _, err := tx.Exec(`UPDATE files SET sync_status = ? WHERE id = ?`, models.StatusPending, id); err != nil {
				return storageErr("requeue file", err)
			}
			return enqueueTx(tx, models.EntityFile, id, models.OpUpdate, file)
		})
	}
	return apperrors.New(apperrors.ErrValidation, "unknown entity type: "+string(entityType))
}

// AcceptRemote accepts the remote state for an entity, discarding local
// changes: status becomes SYNCED and any queued mutations for the entity
// are purged.
func (s *Store) AcceptRemote(entityType models.EntityType, id string) error {
	return s.withTx(func(tx *sql.Tx) error {
		table, ok := tableFor(entityType)
		if !ok {
			return apperrors.New(apperrors.ErrValidation, "unknown entity type: "+string(entityType))
		}
		if entityType == models.EntityNote {
			if _, err := tx.Exec(`UPDATE notes SET sync_status = ?, last_sync_at = ? WHERE id = ?`,
				models.StatusSynced, time.Now().UnixMilli(), id); err != nil {
				return storageErr("accept remote", err)
			}
		} else {
			if _, err := tx.Exec(`UPDATE `+table+` SET sync_status = ? WHERE id = ?`,
				models.StatusSynced, id); err != nil {
				return storageErr("accept remote", err)
			}
		}
		if _, err := tx.Exec(`DELETE FROM sync_queue WHERE entity_type = ? AND entity_id = ?`,
			entityType, id); err != nil {
			return storageErr("purge queue for entity", err)
		}
		return nil
	})
}
