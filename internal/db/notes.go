package db

import (
	"database/sql"
	"time"

	apperrors "aicopilot/core/internal/errors"
	"aicopilot/core/internal/localid"
	"aicopilot/core/internal/models"
)

const noteColumns = `id, title, content, created_at, updated_at, sync_status, last_sync_at, server_id`

// NoteUpdate carries a partial note edit. Nil fields are left untouched.
type NoteUpdate struct {
	Title   *string
	Content *string
}

// CreateNote persists a new note with a locally generated id, status
// PENDING, and a CREATE queue item — all in one transaction.
func (s *Store) CreateNote(title, content string) (*models.Note, error) {
	now := time.Now().UnixMilli()
	note := &models.Note{
		ID:         localid.NewNoteID(),
		Title:      title,
		Content:    content,
		CreatedAt:  now,
		UpdatedAt:  now,
		SyncStatus: models.StatusPending,
	}

	err := s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO notes (id, title, content, created_at, updated_at, sync_status, last_sync_at, server_id)
			 VALUES (?, ?, ?, ?, ?, ?, 0, '')`,
			note.ID, note.Title, note.Content, note.CreatedAt, note.UpdatedAt, note.SyncStatus,
		)
		if err != nil {
			return storageErr("insert note", err)
		}
		return enqueueTx(tx, models.EntityNote, note.ID, models.OpCreate, note)
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// UpdateNote applies a partial edit, stamps updated_at, resets the status
// to PENDING and appends an UPDATE queue item carrying the full
// post-update snapshot.
func (s *Store) UpdateNote(id string, upd NoteUpdate) (*models.Note, error) {
	note, err := s.NoteByID(id)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		note.Title = *upd.Title
	}
	if upd.Content != nil {
		note.Content = *upd.Content
	}
	note.Touch()

	err = s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`UPDATE notes SET title = ?, content = ?, updated_at = ?, sync_status = ? WHERE id = ?`,
			note.Title, note.Content, note.UpdatedAt, note.SyncStatus, note.ID,
		)
		if err != nil {
			return storageErr("update note", err)
		}
		return enqueueTx(tx, models.EntityNote, note.ID, models.OpUpdate, note)
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// DeleteNote removes the row immediately (no tombstone) and queues a
// DELETE carrying the ids the server needs for idempotent deletion.
func (s *Store) DeleteNote(id string) error {
	note, err := s.NoteByID(id)
	if err != nil {
		return err
	}
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, id); err != nil {
			return storageErr("delete note", err)
		}
		payload := models.DeletePayload{ID: id, ServerID: note.ServerID}
		return enqueueTx(tx, models.EntityNote, id, models.OpDelete, payload)
	})
}

// NoteByID fetches a single note.
func (s *Store) NoteByID(id string) (*models.Note, error) {
	row := s.db.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	note, err := scanNote(row)
	if err != nil {
		return nil, storageErr("get note", err)
	}
	return note, nil
}

// ListNotes returns notes most recently updated first. A limit of 0 or
// less returns everything.
func (s *Store) ListNotes(limit, offset int) ([]*models.Note, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	// rowid tiebreak keeps pages stable when edits share a millisecond.
	return s.scanNotes(
		`SELECT `+noteColumns+` FROM notes ORDER BY updated_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
}

// SearchNotes performs a substring match over title and content.
// The match uses sqlite LIKE, which is case-insensitive for ASCII only.
func (s *Store) SearchNotes(query string) ([]*models.Note, error) {
	pattern := "%" + query + "%"
	return s.scanNotes(
		`SELECT `+noteColumns+` FROM notes WHERE title LIKE ? OR content LIKE ? ORDER BY updated_at DESC`,
		pattern, pattern,
	)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(r rowScanner) (*models.Note, error) {
	var n models.Note
	err := r.Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt,
		&n.SyncStatus, &n.LastSyncAt, &n.ServerID)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *Store) scanNotes(query string, args ...any) ([]*models.Note, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("query notes", err)
	}
	defer rows.Close()

	var notes []*models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorage, "scan note", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "iterate notes", err)
	}
	return notes, nil
}
