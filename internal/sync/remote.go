// Package sync replays locally queued mutations against the remote API
// and keeps per-entity sync status in step with what the server has seen.
package sync

import (
	"context"
	"encoding/json"

	"aicopilot/core/internal/models"
)

// Remote is the server-side API the engine replays queued mutations
// against. Implementations map entity types onto REST resources; the
// engine never sees URLs.
type Remote interface {
	// Create pushes a new entity snapshot and returns the id the server
	// assigned to it.
	Create(ctx context.Context, entityType models.EntityType, data json.RawMessage) (serverID string, err error)

	// Update pushes a full entity snapshot over an existing server record.
	Update(ctx context.Context, entityType models.EntityType, serverID string, data json.RawMessage) error

	// Delete removes a server record. Deleting a record that is already
	// gone is success.
	Delete(ctx context.Context, entityType models.EntityType, serverID string) error
}
