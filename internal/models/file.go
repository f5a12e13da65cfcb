package models

// File represents a file attachment tracked for upload.
//
// Only metadata lives here; the bytes stay on disk at LocalPath and are
// streamed to the server by the sync engine.
type File struct {
	ID           string     `db:"id" json:"id"`
	Filename     string     `db:"filename" json:"filename"`
	OriginalName string     `db:"original_name" json:"originalName"`
	MimeType     string     `db:"mime_type" json:"mimeType"`
	Size         int64      `db:"size" json:"size"`
	LocalPath    string     `db:"local_path" json:"localPath"`
	SyncStatus   SyncStatus `db:"sync_status" json:"syncStatus"`
	ServerID     string     `db:"server_id" json:"serverId,omitempty"`
	CreatedAt    int64      `db:"created_at" json:"createdAt"`
}

// TableName returns the table name for File.
func (File) TableName() string {
	return "files"
}
