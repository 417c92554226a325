package harnessports

import (
	"context"
	"errors"
	"strings"
)

// Turn roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrInvalidThreadID is returned for ids that cannot name a durable record.
var ErrInvalidThreadID = errors.New("invalid thread id")

// Turn is one message of a thread transcript.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationStore persists per-thread transcripts, one record per thread.
type ConversationStore interface {
	// Append loads the thread (empty if missing), appends turns in order and
	// persists the whole sequence in a single write.
	Append(ctx context.Context, threadID string, turns ...Turn) error
	// Load returns the thread's turns, or an empty slice if no record exists.
	Load(ctx context.Context, threadID string) ([]Turn, error)
	// Clear deletes one thread. Clearing a missing thread is not an error.
	Clear(ctx context.Context, threadID string) error
	// ClearAll deletes every thread.
	ClearAll(ctx context.Context) error
}

// ValidateThreadID rejects ids that are empty or could escape the store's namespace.
func ValidateThreadID(threadID string) error {
	if strings.TrimSpace(threadID) == "" ||
		strings.ContainsAny(threadID, `/\`) ||
		strings.Contains(threadID, "..") ||
		strings.ContainsRune(threadID, 0) {
		return ErrInvalidThreadID
	}
	return nil
}
