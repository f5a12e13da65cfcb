package models

// Message represents a chat message cached locally.
//
// Messages are grouped by ConversationID and append-only except for
// explicit edits and deletes.
type Message struct {
	ID             string     `db:"id" json:"id"`
	Text           string     `db:"text" json:"text"`
	Sender         Sender     `db:"sender" json:"sender"`
	Timestamp      int64      `db:"timestamp" json:"timestamp"`
	SyncStatus     SyncStatus `db:"sync_status" json:"syncStatus"`
	ConversationID string     `db:"conversation_id" json:"conversationId"`
}

// TableName returns the table name for Message.
func (Message) TableName() string {
	return "messages"
}

// Conversation summarizes the messages of one conversation for listing.
type Conversation struct {
	ConversationID string `json:"conversationId"`
	MessageCount   int    `json:"messageCount"`
	LastMessage    string `json:"lastMessage"`
	LastTimestamp  int64  `json:"lastTimestamp"`
}
