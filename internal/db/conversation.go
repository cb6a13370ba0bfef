package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConversationTurn is one stored turn of a conversation, used so an
// orchestrator client can resume a multi-turn exchange by conversation ID
// instead of replaying the full turn list on every request.
type ConversationTurn struct {
	ID             string
	ConversationID string
	Role           string
	Content        string
	CreatedAt      time.Time
}

// ConversationStore provides CRUD operations for conversation turn history.
// This is optional, process-scoped convenience state, not the durable
// regulation corpus or any cross-session memory.
type ConversationStore struct {
	db *DB
}

// NewConversationStore creates a ConversationStore backed by the given database.
func NewConversationStore(database *DB) *ConversationStore {
	return &ConversationStore{db: database}
}

// StartConversation creates a new conversation row and returns its ID.
func (s *ConversationStore) StartConversation(ctx context.Context) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `INSERT INTO conversations (id) VALUES (?)`, id)
	if err != nil {
		return "", fmt.Errorf("starting conversation: %w", err)
	}
	return id, nil
}

// AppendTurn appends a turn to a conversation, touching its updated_at.
func (s *ConversationStore) AppendTurn(ctx context.Context, conversationID, role, content string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO conversation_turns (id, conversation_id, role, content) VALUES (?, ?, ?, ?)`,
		uuid.New().String(), conversationID, role, content); err != nil {
		return fmt.Errorf("inserting conversation turn: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = datetime('now') WHERE id = ?`, conversationID); err != nil {
		return fmt.Errorf("touching conversation: %w", err)
	}

	return tx.Commit()
}

// Turns returns every turn of a conversation in chronological order.
func (s *ConversationStore) Turns(ctx context.Context, conversationID string) ([]ConversationTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, created_at FROM conversation_turns
		 WHERE conversation_id = ? ORDER BY created_at ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying conversation turns: %w", err)
	}
	defer rows.Close()

	var turns []ConversationTurn
	for rows.Next() {
		var t ConversationTurn
		if err := rows.Scan(&t.ID, &t.ConversationID, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
