package db

import (
	"database/sql"
	"time"

	apperrors "aicopilot/core/internal/errors"
	"aicopilot/core/internal/localid"
	"aicopilot/core/internal/models"
)

const messageColumns = `id, text, sender, timestamp, sync_status, conversation_id`

// CreateMessage appends a chat message to a conversation. Like every
// local mutation it starts PENDING with a CREATE queue item.
func (s *Store) CreateMessage(text string, sender models.Sender, conversationID string) (*models.Message, error) {
	msg := &models.Message{
		ID:             localid.NewMessageID(),
		Text:           text,
		Sender:         sender,
		Timestamp:      time.Now().UnixMilli(),
		SyncStatus:     models.StatusPending,
		ConversationID: conversationID,
	}

	err := s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO messages (id, text, sender, timestamp, sync_status, conversation_id)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			msg.ID, msg.Text, msg.Sender, msg.Timestamp, msg.SyncStatus, msg.ConversationID,
		)
		if err != nil {
			return storageErr("insert message", err)
		}
		return enqueueTx(tx, models.EntityMessage, msg.ID, models.OpCreate, msg)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// UpdateMessage edits a message's text and re-queues it.
func (s *Store) UpdateMessage(id, text string) (*models.Message, error) {
	msg, err := s.MessageByID(id)
	if err != nil {
		return nil, err
	}
	msg.Text = text
	msg.SyncStatus = models.StatusPending

	err = s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE messages SET text = ?, sync_status = ? WHERE id = ?`,
			msg.Text, msg.SyncStatus, msg.ID)
		if err != nil {
			return storageErr("update message", err)
		}
		return enqueueTx(tx, models.EntityMessage, msg.ID, models.OpUpdate, msg)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// DeleteMessage removes the row and queues the remote delete.
func (s *Store) DeleteMessage(id string) error {
	if _, err := s.MessageByID(id); err != nil {
		return err
	}
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM messages WHERE id = ?`, id); err != nil {
			return storageErr("delete message", err)
		}
		return enqueueTx(tx, models.EntityMessage, id, models.OpDelete, models.DeletePayload{ID: id})
	})
}

// MessageByID fetches a single message.
func (s *Store) MessageByID(id string) (*models.Message, error) {
	row := s.db.QueryRow(`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	msg, err := scanMessage(row)
	if err != nil {
		return nil, storageErr("get message", err)
	}
	return msg, nil
}

// MessagesByConversation returns a conversation's messages oldest first.
// A limit of 0 or less returns everything.
func (s *Store) MessagesByConversation(conversationID string, limit, offset int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.scanMessages(
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id = ? ORDER BY timestamp ASC, rowid ASC LIMIT ? OFFSET ?`,
		[]any{conversationID, limit, offset},
	)
}

// SearchMessages performs a substring match over message text, optionally
// scoped to one conversation. Newest first.
func (s *Store) SearchMessages(query, conversationID string) ([]*models.Message, error) {
	sqlStr := `SELECT ` + messageColumns + ` FROM messages WHERE text LIKE ?`
	args := []any{"%" + query + "%"}
	if conversationID != "" {
		sqlStr += ` AND conversation_id = ?`
		args = append(args, conversationID)
	}
	sqlStr += ` ORDER BY timestamp DESC`
	return s.scanMessages(sqlStr, args)
}

// Conversations summarizes all conversations, most recent activity first.
func (s *Store) Conversations() ([]*models.Conversation, error) {
	rows, err := s.db.Query(`
		SELECT conversation_id,
		       COUNT(*),
		       (SELECT text FROM messages m2
		        WHERE m2.conversation_id = m.conversation_id
		        ORDER BY m2.timestamp DESC, m2.rowid DESC LIMIT 1),
		       MAX(timestamp)
		FROM messages m
		GROUP BY conversation_id
		ORDER BY MAX(timestamp) DESC`)
	if err != nil {
		return nil, storageErr("query conversations", err)
	}
	defer rows.Close()

	var convs []*models.Conversation
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ConversationID, &c.MessageCount, &c.LastMessage, &c.LastTimestamp); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorage, "scan conversation", err)
		}
		convs = append(convs, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "iterate conversations", err)
	}
	return convs, nil
}

func scanMessage(r rowScanner) (*models.Message, error) {
	var m models.Message
	err := r.Scan(&m.ID, &m.Text, &m.Sender, &m.Timestamp, &m.SyncStatus, &m.ConversationID)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) scanMessages(query string, args []any) ([]*models.Message, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("query messages", err)
	}
	defer rows.Close()

	var msgs []*models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorage, "scan message", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "iterate messages", err)
	}
	return msgs, nil
}
