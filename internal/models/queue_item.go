package models

import "encoding/json"

// QueueItem represents one pending mutation awaiting replay against the
// remote API.
//
// Items are append-only: nothing is ever rewritten except the Retries
// counter, and an item is removed once its replay succeeds (or is
// classified as terminal). Replay order is CreatedAt ascending.
type QueueItem struct {
	ID         string          `db:"id" json:"id"`
	EntityType EntityType      `db:"entity_type" json:"entityType"`
	EntityID   string          `db:"entity_id" json:"entityId"`
	Operation  Operation       `db:"operation" json:"operation"`
	Data       json.RawMessage `db:"data" json:"data"`
	CreatedAt  int64           `db:"created_at" json:"createdAt"`
	Retries    int             `db:"retries" json:"retries"`
}

// TableName returns the table name for QueueItem.
func (QueueItem) TableName() string {
	return "sync_queue"
}

// DeletePayload is the snapshot carried by DELETE queue items. The server
// id is captured at delete time because the local row is already gone when
// the item is replayed.
type DeletePayload struct {
	ID       string `json:"id"`
	ServerID string `json:"serverId,omitempty"`
}
