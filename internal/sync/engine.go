package sync

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"aicopilot/core/internal/db"
	apperrors "aicopilot/core/internal/errors"
	"aicopilot/core/internal/models"
)

// ErrCycleRunning is returned when a sync cycle is requested while one
// is already in flight. Callers coalesce: the running cycle will drain
// whatever the caller wanted pushed.
var ErrCycleRunning = errors.New("sync cycle already running")

// Engine drains the sync queue against the remote API. At most one
// cycle runs at a time; within a cycle items replay strictly in the
// order they were enqueued.
type Engine struct {
	store      *db.Store
	remote     Remote
	logger     *slog.Logger
	maxRetries int
	running    atomic.Bool
}

// NewEngine creates an Engine. maxRetries bounds how often a retryable
// failure may recur on one queue item before the item is treated as
// terminally failed.
func NewEngine(store *db.Store, remote Remote, maxRetries int, logger *slog.Logger) *Engine {
	return &Engine{
		store:      store,
		remote:     remote,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// CycleResult summarizes one sync cycle.
type CycleResult struct {
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Pushed    int           `json:"pushed"`    // items replayed successfully
	Conflicts int           `json:"conflicts"` // items that ended in CONFLICT
	Remaining int           `json:"remaining"` // items still queued when the cycle ended
}

// RunSyncCycle replays the pending queue front to back. It stops at the
// first retryable failure, leaving the rest of the queue for a later
// cycle, and returns that failure. Terminal failures consume their item
// and the cycle continues.
func (e *Engine) RunSyncCycle(ctx context.Context) (*CycleResult, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrCycleRunning
	}
	defer e.running.Store(false)

	result := &CycleResult{StartTime: time.Now()}
	defer func() { result.Duration = time.Since(result.StartTime) }()

	items, err := e.store.PendingQueue()
	if err != nil {
		return result, err
	}
	e.logger.Debug("sync cycle started", "queued", len(items))

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			result.Remaining = len(items) - i
			return result, err
		}

		err := e.replay(ctx, item)
		switch {
		case err == nil:
			result.Pushed++

		case apperrors.Retryable(err):
			if item.Retries+1 >= e.maxRetries {
				// The item has had its chances. Surface it to the user
				// instead of blocking the queue forever.
				e.logger.Warn("queue item exhausted retries",
					"item", item.ID, "entity", item.EntityID, "retries", item.Retries+1, "error", err)
				if ferr := e.failItem(item); ferr != nil {
					result.Remaining = len(items) - i
					return result, ferr
				}
				result.Conflicts++
				continue
			}
			if ierr := e.store.IncrementRetries(item.ID); ierr != nil {
				result.Remaining = len(items) - i
				return result, ierr
			}
			e.logger.Info("sync cycle stopped on retryable failure",
				"item", item.ID, "entity", item.EntityID, "retries", item.Retries+1, "error", err)
			result.Remaining = len(items) - i
			return result, err

		case apperrors.Is(err, apperrors.ErrConflict), apperrors.Is(err, apperrors.ErrNotFound),
			apperrors.Is(err, apperrors.ErrValidation):
			// A 404 on update means the record was deleted remotely while
			// we held local edits. A rejected payload is the same shape of
			// dead end: the server will never accept this item, so consume
			// it and surface the entity for manual resolution rather than
			// leaving it stranded with an empty queue.
			e.logger.Warn("remote rejected item", "item", item.ID, "entity", item.EntityID, "error", err)
			if ferr := e.failItem(item); ferr != nil {
				result.Remaining = len(items) - i
				return result, ferr
			}
			result.Conflicts++

		default:
			// Storage failure or other fatal error: abort, change nothing.
			result.Remaining = len(items) - i
			return result, err
		}
	}

	e.logger.Info("sync cycle finished",
		"pushed", result.Pushed, "conflicts", result.Conflicts)
	return result, nil
}

// failItem consumes a queue item whose replay terminally failed and
// flags the entity for manual resolution. For DELETE items the local
// row is already gone, so the status write is a no-op and the failure
// surfaces only through CycleResult and the log; the local and remote
// ends agree the entity should not exist, so there is nothing left for
// the user to resolve.
func (e *Engine) failItem(item *models.QueueItem) error {
	if _, err := e.store.RemoveQueueItem(item.ID); err != nil {
		return err
	}
	return e.store.SetSyncStatus(item.EntityType, item.EntityID, models.StatusConflict)
}

// replay pushes one queue item to the remote.
func (e *Engine) replay(ctx context.Context, item *models.QueueItem) error {
	switch item.Operation {
	case models.OpCreate:
		return e.replayCreate(ctx, item)
	case models.OpUpdate:
		return e.replayUpdate(ctx, item)
	case models.OpDelete:
		return e.replayDelete(ctx, item)
	}
	return apperrors.New(apperrors.ErrValidation, "unknown operation: "+string(item.Operation))
}

func (e *Engine) replayCreate(ctx context.Context, item *models.QueueItem) error {
	_, exists, err := e.serverIDFor(item.EntityType, item.EntityID)
	if err != nil {
		return err
	}
	if !exists {
		// Created and deleted before ever syncing; the server never needs
		// to hear about it.
		e.logger.Debug("skipping create for locally deleted entity", "entity", item.EntityID)
		_, err := e.store.RemoveQueueItem(item.ID)
		return err
	}

	if item.EntityType == models.EntityFile {
		// Uploads are visible in the UI while in flight.
		if err := e.store.SetFileStatus(item.EntityID, models.StatusUploading, ""); err != nil {
			return err
		}
	}

	serverID, err := e.remote.Create(ctx, item.EntityType, item.Data)
	if err != nil {
		if item.EntityType == models.EntityFile {
			// Back out of UPLOADING so the item shows as waiting again.
			if serr := e.store.SetFileStatus(item.EntityID, models.StatusPending, ""); serr != nil {
				return serr
			}
		}
		return err
	}

	if err := e.store.SetServerID(item.EntityType, item.EntityID, serverID); err != nil {
		return err
	}
	return e.finishItem(item)
}

func (e *Engine) replayUpdate(ctx context.Context, item *models.QueueItem) error {
	serverID, exists, err := e.serverIDFor(item.EntityType, item.EntityID)
	if err != nil {
		return err
	}
	if !exists {
		// Entity was deleted locally after this update was queued; the
		// queued DELETE further down will handle the remote side.
		e.logger.Debug("skipping update for locally deleted entity", "entity", item.EntityID)
		_, err := e.store.RemoveQueueItem(item.ID)
		return err
	}
	if serverID == "" {
		// Never created remotely (the original create failed terminally).
		// Recover by creating from this snapshot.
		serverID, err = e.remote.Create(ctx, item.EntityType, item.Data)
		if err != nil {
			return err
		}
		if err := e.store.SetServerID(item.EntityType, item.EntityID, serverID); err != nil {
			return err
		}
		return e.finishItem(item)
	}

	if err := e.remote.Update(ctx, item.EntityType, serverID, item.Data); err != nil {
		return err
	}
	return e.finishItem(item)
}

func (e *Engine) replayDelete(ctx context.Context, item *models.QueueItem) error {
	var payload models.DeletePayload
	if err := json.Unmarshal(item.Data, &payload); err != nil {
		return apperrors.Wrap(apperrors.ErrValidation, "decode delete payload", err)
	}

	serverID := payload.ServerID
	if serverID == "" && item.EntityType == models.EntityMessage {
		// Messages keep their client-assigned id server-side.
		serverID = payload.ID
	}
	if serverID != "" {
		if err := e.remote.Delete(ctx, item.EntityType, serverID); err != nil {
			return err
		}
	}
	// No server id: the entity never reached the server, nothing to undo.
	_, err := e.store.RemoveQueueItem(item.ID)
	return err
}

// finishItem consumes a replayed queue item and marks the entity SYNCED
// once nothing else is queued for it.
func (e *Engine) finishItem(item *models.QueueItem) error {
	if _, err := e.store.RemoveQueueItem(item.ID); err != nil {
		return err
	}
	rest, err := e.store.QueueItemsFor(item.EntityType, item.EntityID)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return nil
	}
	return e.store.SetSyncStatus(item.EntityType, item.EntityID, models.StatusSynced)
}

// serverIDFor resolves the entity's current server id. exists reports
// whether the entity still has a local row.
func (e *Engine) serverIDFor(entityType models.EntityType, id string) (serverID string, exists bool, err error) {
	switch entityType {
	case models.EntityNote:
		note, err := e.store.NoteByID(id)
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		return note.ServerID, true, nil
	case models.EntityMessage:
		_, err := e.store.MessageByID(id)
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		// Client id is canonical for messages.
		return id, true, nil
	case models.EntityFile:
		file, err := e.store.FileByID(id)
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		return file.ServerID, true, nil
	}
	return "", false, apperrors.New(apperrors.ErrValidation, "unknown entity type: "+string(entityType))
}

// Resolution selects a side when resolving a conflict.
type Resolution string

const (
	KeepLocal  Resolution = "local"  // re-push the local snapshot
	KeepRemote Resolution = "remote" // accept the server's state
)

// ResolveConflict settles one conflicted entity. KeepLocal re-enqueues
// the local snapshot so the next cycle overwrites the server; KeepRemote
// marks the entity synced and discards its queued mutations.
func (e *Engine) ResolveConflict(entityType models.EntityType, id string, res Resolution) error {
	switch res {
	case KeepLocal:
		return e.store.RequeueLocal(entityType, id)
	case KeepRemote:
		return e.store.AcceptRemote(entityType, id)
	}
	return apperrors.New(apperrors.ErrValidation, "unknown resolution: "+string(res))
}
