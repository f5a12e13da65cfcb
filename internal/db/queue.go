package db

import (
	"encoding/json"

	apperrors "aicopilot/core/internal/errors"
	"aicopilot/core/internal/models"
)

const queueColumns = `id, entity_type, entity_id, operation, data, created_at, retries`

// PendingQueue returns every queue item in replay order: created_at
// ascending, rowid breaking ties from same-millisecond inserts.
//
// The result is a fresh snapshot of storage on every call (no in-memory
// cursor), so items enqueued while a cycle runs show up on the next call.
func (s *Store) PendingQueue() ([]*models.QueueItem, error) {
	rows, err := s.db.Query(`SELECT ` + queueColumns + ` FROM sync_queue ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, storageErr("query sync queue", err)
	}
	defer rows.Close()

	var items []*models.QueueItem
	for rows.Next() {
		var item models.QueueItem
		var data string
		if err := rows.Scan(&item.ID, &item.EntityType, &item.EntityID, &item.Operation,
			&data, &item.CreatedAt, &item.Retries); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorage, "scan queue item", err)
		}
		item.Data = json.RawMessage(data)
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "iterate sync queue", err)
	}
	return items, nil
}

// RemoveQueueItem deletes one item after a confirmed replay. Returns
// false when the item was already gone, which makes duplicate replay
// triggers harmless.
func (s *Store) RemoveQueueItem(id string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM sync_queue WHERE id = ?`, id)
	if err != nil {
		return false, storageErr("remove queue item", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("remove queue item", err)
	}
	return n > 0, nil
}

// IncrementRetries bumps an item's retry counter after a retryable
// failure. The item itself is never otherwise mutated.
func (s *Store) IncrementRetries(id string) error {
	if _, err := s.db.Exec(`UPDATE sync_queue SET retries = retries + 1 WHERE id = ?`, id); err != nil {
		return storageErr("increment retries", err)
	}
	return nil
}

// QueueLen returns the number of un-replayed queue items.
func (s *Store) QueueLen() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sync_queue`).Scan(&n); err != nil {
		return 0, storageErr("count sync queue", err)
	}
	return n, nil
}

// QueueItemsFor returns the queued mutations for one entity, in replay
// order.
func (s *Store) QueueItemsFor(entityType models.EntityType, entityID string) ([]*models.QueueItem, error) {
	rows, err := s.db.Query(
		`SELECT `+queueColumns+` FROM sync_queue WHERE entity_type = ? AND entity_id = ? ORDER BY created_at ASC, rowid ASC`,
		entityType, entityID,
	)
	if err != nil {
		return nil, storageErr("query queue for entity", err)
	}
	defer rows.Close()

	var items []*models.QueueItem
	for rows.Next() {
		var item models.QueueItem
		var data string
		if err := rows.Scan(&item.ID, &item.EntityType, &item.EntityID, &item.Operation,
			&data, &item.CreatedAt, &item.Retries); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorage, "scan queue item", err)
		}
		item.Data = json.RawMessage(data)
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "iterate queue for entity", err)
	}
	return items, nil
}
