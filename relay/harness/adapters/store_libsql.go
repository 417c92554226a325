package adapters

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	ports "github.com/ZanzyTHEbar/context-relay/relay/harness/ports"
)

// LibSQLConversationStore keeps one row per thread in the threads table,
// with the transcript stored as the same JSON array the file store writes.
type LibSQLConversationStore struct {
	db *sql.DB
}

// NewLibSQLConversationStore wraps an open database whose schema has been migrated.
func NewLibSQLConversationStore(db *sql.DB) *LibSQLConversationStore {
	return &LibSQLConversationStore{db: db}
}

// Append runs its read-modify-write inside a single transaction.
func (s *LibSQLConversationStore) Append(ctx context.Context, threadID string, turns ...ports.Turn) (err error) {
	if err := ports.ValidateThreadID(threadID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	existing, err := loadTurns(ctx, tx, threadID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(append(existing, turns...))
	if err != nil {
		return fmt.Errorf("failed to encode thread %s: %w", threadID, err)
	}

	const upsert = `
		INSERT INTO threads (thread_id, turns, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET turns = excluded.turns, updated_at = excluded.updated_at
	`
	if _, err = tx.ExecContext(ctx, upsert, threadID, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save thread %s: %w", threadID, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit thread %s: %w", threadID, err)
	}
	return nil
}

func (s *LibSQLConversationStore) Load(ctx context.Context, threadID string) ([]ports.Turn, error) {
	if err := ports.ValidateThreadID(threadID); err != nil {
		return nil, err
	}
	return loadTurns(ctx, s.db, threadID)
}

func (s *LibSQLConversationStore) Clear(ctx context.Context, threadID string) error {
	if err := ports.ValidateThreadID(threadID); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM threads WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("failed to clear thread %s: %w", threadID, err)
	}
	return nil
}

func (s *LibSQLConversationStore) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM threads`); err != nil {
		return fmt.Errorf("failed to clear threads: %w", err)
	}
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadTurns(ctx context.Context, q queryRower, threadID string) ([]ports.Turn, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT turns FROM threads WHERE thread_id = ?`, threadID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []ports.Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load thread %s: %w", threadID, err)
	}

	turns := []ports.Turn{}
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		return nil, fmt.Errorf("failed to decode thread %s: %w", threadID, err)
	}
	return turns, nil
}

var _ ports.ConversationStore = (*LibSQLConversationStore)(nil)
