package db

import (
	"database/sql"
	"time"

	apperrors "aicopilot/core/internal/errors"
	"aicopilot/core/internal/localid"
	"aicopilot/core/internal/models"
)

const fileColumns = `id, filename, original_name, mime_type, size, local_path, sync_status, server_id, created_at`

// FileParams carries the metadata for a newly attached file.
type FileParams struct {
	Filename     string
	OriginalName string
	MimeType     string
	Size         int64
	LocalPath    string
}

// CreateFile records a file attachment for upload. The bytes stay at
// LocalPath; only metadata is persisted here.
func (s *Store) CreateFile(p FileParams) (*models.File, error) {
	file := &models.File{
		ID:           localid.NewFileID(),
		Filename:     p.Filename,
		OriginalName: p.OriginalName,
		MimeType:     p.MimeType,
		Size:         p.Size,
		LocalPath:    p.LocalPath,
		SyncStatus:   models.StatusPending,
		CreatedAt:    time.Now().UnixMilli(),
	}

	err := s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO files (id, filename, original_name, mime_type, size, local_path, sync_status, server_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, '', ?)`,
			file.ID, file.Filename, file.OriginalName, file.MimeType, file.Size,
			file.LocalPath, file.SyncStatus, file.CreatedAt,
		)
		if err != nil {
			return storageErr("insert file", err)
		}
		return enqueueTx(tx, models.EntityFile, file.ID, models.OpCreate, file)
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}

// DeleteFile removes the metadata row and queues the remote delete.
// Removing the bytes at LocalPath is the caller's concern.
func (s *Store) DeleteFile(id string) error {
	file, err := s.FileByID(id)
	if err != nil {
		return err
	}
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM files WHERE id = ?`, id); err != nil {
			return storageErr("delete file", err)
		}
		payload := models.DeletePayload{ID: id, ServerID: file.ServerID}
		return enqueueTx(tx, models.EntityFile, id, models.OpDelete, payload)
	})
}

// FileByID fetches a single file row.
func (s *Store) FileByID(id string) (*models.File, error) {
	row := s.db.QueryRow(`SELECT `+fileColumns+` FROM files WHERE id = ?`, id)
	file, err := scanFile(row)
	if err != nil {
		return nil, storageErr("get file", err)
	}
	return file, nil
}

// ListFiles returns all file rows, newest first.
func (s *Store) ListFiles() ([]*models.File, error) {
	return s.scanFiles(`SELECT ` + fileColumns + ` FROM files ORDER BY created_at DESC`)
}

// SetFileStatus updates a file's sync status, optionally recording the
// server id in the same statement.
func (s *Store) SetFileStatus(id string, status models.SyncStatus, serverID string) error {
	var err error
	if serverID != "" {
		_, err = s.db.Exec(`UPDATE files SET sync_status = ?, server_id = ? WHERE id = ?`,
			status, serverID, id)
	} else {
		_, err = s.db.Exec(`UPDATE files SET sync_status = ? WHERE id = ?`, status, id)
	}
	if err != nil {
		return storageErr("set file status", err)
	}
	return nil
}

func scanFile(r rowScanner) (*models.File, error) {
	var f models.File
	err := r.Scan(&f.ID, &f.Filename, &f.OriginalName, &f.MimeType, &f.Size,
		&f.LocalPath, &f.SyncStatus, &f.ServerID, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Store) scanFiles(query string, args ...any) ([]*models.File, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("query files", err)
	}
	defer rows.Close()

	var files []*models.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorage, "scan file", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "iterate files", err)
	}
	return files, nil
}
