// Package query is the read side of the app core: everything list views,
// search screens and status badges need, assembled from the store without
// touching the sync queue's write path.
package query

import (
	"log/slog"

	"aicopilot/core/internal/db"
	"aicopilot/core/internal/models"
)

// Service answers read queries for the UI layer.
type Service struct {
	store  *db.Store
	logger *slog.Logger
}

// NewService creates a query service over the store.
func NewService(store *db.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// NoteResult is a note decorated with a display snippet.
type NoteResult struct {
	Note    *models.Note `json:"note"`
	Snippet string       `json:"snippet"`
}

// MessageResult is a chat message decorated with a display snippet.
type MessageResult struct {
	Message *models.Message `json:"message"`
	Snippet string          `json:"snippet"`
}

// Notes lists notes for one result page, most recently edited first.
// limit <= 0 disables paging.
func (s *Service) Notes(limit, offset int) ([]*models.Note, error) {
	return s.store.ListNotes(limit, offset)
}

// Note returns a single note by id.
func (s *Service) Note(id string) (*models.Note, error) {
	return s.store.NoteByID(id)
}

// SearchNotes finds notes whose title or content contains query and
// attaches a plain-text snippet around the first match.
func (s *Service) SearchNotes(query string) ([]*NoteResult, error) {
	notes, err := s.store.SearchNotes(query)
	if err != nil {
		return nil, err
	}
	results := make([]*NoteResult, 0, len(notes))
	for _, n := range notes {
		results = append(results, &NoteResult{Note: n, Snippet: snippet(n.Content, query)})
	}
	s.logger.Debug("note search", "query", query, "hits", len(results))
	return results, nil
}

// Messages returns one page of a conversation, oldest first. limit <= 0
// disables paging.
func (s *Service) Messages(conversationID string, limit, offset int) ([]*models.Message, error) {
	return s.store.MessagesByConversation(conversationID, limit, offset)
}

// SearchMessages finds messages containing query. An empty conversationID
// searches every conversation.
func (s *Service) SearchMessages(query, conversationID string) ([]*MessageResult, error) {
	msgs, err := s.store.SearchMessages(query, conversationID)
	if err != nil {
		return nil, err
	}
	results := make([]*MessageResult, 0, len(msgs))
	for _, m := range msgs {
		results = append(results, &MessageResult{Message: m, Snippet: snippet(m.Text, query)})
	}
	s.logger.Debug("message search", "query", query, "conversation", conversationID, "hits", len(results))
	return results, nil
}

// Conversations lists conversation summaries, most recent first.
func (s *Service) Conversations() ([]*models.Conversation, error) {
	return s.store.Conversations()
}

// Files lists stored file metadata, newest first.
func (s *Service) Files() ([]*models.File, error) {
	return s.store.ListFiles()
}

// UnsyncedCount returns how many entities still await a push.
func (s *Service) UnsyncedCount() (int, error) {
	return s.store.UnsyncedCount()
}

// Conflicts returns everything waiting on manual conflict resolution.
func (s *Service) Conflicts() (*db.ConflictItems, error) {
	return s.store.Conflicts()
}

// StorageStats reports row counts and pending work for a status screen.
func (s *Service) StorageStats() (*db.Stats, error) {
	return s.store.StorageStats()
}
