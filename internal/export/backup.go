// Package export writes local data to portable backup archives and
// restores from them. Archives are gzip-compressed JSON with a manifest
// carrying a checksum, so a damaged or truncated file is rejected before
// anything touches the database.
package export

import (
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"aicopilot/core/internal/db"
	apperrors "aicopilot/core/internal/errors"
)

const formatVersion = "1.0"

// Manifest describes a backup archive.
type Manifest struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Notes      int       `json:"notes"`
	Messages   int       `json:"messages"`
	Files      int       `json:"files"`
	Checksum   string    `json:"checksum"` // sha256 of the data document
}

// archive is the on-disk layout inside the gzip stream.
type archive struct {
	Manifest Manifest        `json:"manifest"`
	Data     json.RawMessage `json:"data"`
}

// Result summarizes a completed backup.
type Result struct {
	Path      string
	SizeBytes int64
	Manifest  Manifest
}

// Service performs backup and restore against the store.
type Service struct {
	store *db.Store
}

// NewService creates a backup service.
func NewService(store *db.Store) *Service {
	return &Service{store: store}
}

// Backup writes the full local dataset to path. An empty path picks a
// timestamped file under dir "backups".
func (s *Service) Backup(path string) (*Result, error) {
	snap, err := s.store.Export()
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "marshal snapshot", err)
	}

	manifest := Manifest{
		Version:    formatVersion,
		ExportedAt: time.Now(),
		Notes:      len(snap.Notes),
		Messages:   len(snap.Messages),
		Files:      len(snap.Files),
		Checksum:   checksum(data),
	}

	if path == "" {
		path = filepath.Join("backups", fmt.Sprintf("backup_%s.json.gz",
			manifest.ExportedAt.Format("20060102_150405")))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "create backup directory", err)
	}

	if err := writeArchive(path, archive{Manifest: manifest, Data: data}); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "stat backup", err)
	}
	return &Result{Path: path, SizeBytes: info.Size(), Manifest: manifest}, nil
}

// Restore replaces all local data with the archive's contents. The
// checksum is verified before the database is touched; restored entities
// keep their recorded sync statuses, and the sync queue starts empty.
func (s *Service) Restore(path string) (*Manifest, error) {
	arch, err := readArchive(path)
	if err != nil {
		return nil, err
	}

	if arch.Manifest.Version != formatVersion {
		return nil, apperrors.New(apperrors.ErrValidation,
			"unsupported backup version: "+arch.Manifest.Version)
	}
	if got := checksum(arch.Data); got != arch.Manifest.Checksum {
		return nil, apperrors.New(apperrors.ErrValidation, "backup checksum mismatch")
	}

	var snap db.Snapshot
	if err := json.Unmarshal(arch.Data, &snap); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, "decode backup data", err)
	}
	if err := s.store.Import(&snap); err != nil {
		return nil, err
	}
	return &arch.Manifest, nil
}

// ReadManifest returns an archive's manifest without restoring it.
func ReadManifest(path string) (*Manifest, error) {
	arch, err := readArchive(path)
	if err != nil {
		return nil, err
	}
	return &arch.Manifest, nil
}

func writeArchive(path string, arch archive) error {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "create backup file", err)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	if err := json.NewEncoder(zw).Encode(arch); err != nil {
		zw.Close()
		return apperrors.Wrap(apperrors.ErrStorage, "write backup", err)
	}
	if err := zw.Close(); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "finish backup", err)
	}
	return f.Sync()
}

func readArchive(path string) (*archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "open backup", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, "backup is not gzip", err)
	}
	defer zr.Close()

	var arch archive
	if err := json.NewDecoder(zr).Decode(&arch); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, "decode backup", err)
	}
	return &arch, nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
