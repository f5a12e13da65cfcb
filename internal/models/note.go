package models

import "time"

// Note represents a locally stored note.
//
// Notes created offline carry a locally generated ID until the first
// successful sync assigns a ServerID. Timestamps are Unix milliseconds.
type Note struct {
	ID         string     `db:"id" json:"id"`
	Title      string     `db:"title" json:"title"`
	Content    string     `db:"content" json:"content"`
	CreatedAt  int64      `db:"created_at" json:"createdAt"`
	UpdatedAt  int64      `db:"updated_at" json:"updatedAt"`
	SyncStatus SyncStatus `db:"sync_status" json:"syncStatus"`
	LastSyncAt int64      `db:"last_sync_at" json:"lastSyncAt,omitempty"` // 0 = never synced
	ServerID   string     `db:"server_id" json:"serverId,omitempty"`
}

// TableName returns the table name for Note.
func (Note) TableName() string {
	return "notes"
}

// UpdatedAtTime returns UpdatedAt as time.Time.
func (n *Note) UpdatedAtTime() time.Time {
	return time.UnixMilli(n.UpdatedAt)
}

// Touch stamps the UpdatedAt timestamp and resets the sync status so the
// local edit is picked up by the next sync cycle.
func (n *Note) Touch() {
	n.UpdatedAt = time.Now().UnixMilli()
	n.SyncStatus = StatusPending
}
