// Package models provides data model definitions for the offline core.
package models

// SyncStatus represents an entity's replay state relative to the remote API.
type SyncStatus string

const (
	StatusPending   SyncStatus = "PENDING"
	StatusSynced    SyncStatus = "SYNCED"
	StatusConflict  SyncStatus = "CONFLICT"
	StatusUploading SyncStatus = "UPLOADING" // files only, while an upload is in flight
)

// EntityType identifies which table a sync queue item belongs to.
type EntityType string

const (
	EntityNote    EntityType = "note"
	EntityMessage EntityType = "message"
	EntityFile    EntityType = "file"
)

// Operation is the kind of pending mutation recorded in the sync queue.
type Operation string

const (
	OpCreate Operation = "CREATE"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// Sender identifies who produced a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// ValidEntityType reports whether s names a known entity table.
func ValidEntityType(s string) bool {
	switch EntityType(s) {
	case EntityNote, EntityMessage, EntityFile:
		return true
	}
	return false
}
