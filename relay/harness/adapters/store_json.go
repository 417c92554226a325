package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ports "github.com/ZanzyTHEbar/context-relay/relay/harness/ports"
)

const threadFileExt = ".json"

// JSONFileStore keeps one indented JSON array of turns per thread in dir.
// Records are replaced by rename, so readers never observe a partial write.
type JSONFileStore struct {
	mu  sync.Mutex
	dir string
}

// NewJSONFileStore creates the store, making dir if needed.
func NewJSONFileStore(dir string) (*JSONFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create thread directory %s: %w", dir, err)
	}
	return &JSONFileStore{dir: dir}, nil
}

// Dir returns the directory holding thread records.
func (s *JSONFileStore) Dir() string { return s.dir }

func (s *JSONFileStore) Append(ctx context.Context, threadID string, turns ...ports.Turn) error {
	if err := ports.ValidateThreadID(threadID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read(threadID)
	if err != nil {
		return err
	}
	return s.write(threadID, append(existing, turns...))
}

func (s *JSONFileStore) Load(ctx context.Context, threadID string) ([]ports.Turn, error) {
	if err := ports.ValidateThreadID(threadID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(threadID)
}

func (s *JSONFileStore) Clear(_ context.Context, threadID string) error {
	if err := ports.ValidateThreadID(threadID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(threadID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear thread %s: %w", threadID, err)
	}
	return nil
}

func (s *JSONFileStore) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to list thread directory: %w", err)
	}

	var errs []error
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), threadFileExt) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *JSONFileStore) path(threadID string) string {
	return filepath.Join(s.dir, threadID+threadFileExt)
}

// read returns an empty slice for a missing record. Caller holds mu.
func (s *JSONFileStore) read(threadID string) ([]ports.Turn, error) {
	data, err := os.ReadFile(s.path(threadID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []ports.Turn{}, nil
		}
		return nil, fmt.Errorf("failed to read thread %s: %w", threadID, err)
	}

	turns := []ports.Turn{}
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("failed to decode thread %s: %w", threadID, err)
	}
	return turns, nil
}

// write replaces the record via temp file + rename. Caller holds mu.
func (s *JSONFileStore) write(threadID string, turns []ports.Turn) error {
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode thread %s: %w", threadID, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+threadID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp record: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write thread %s: %w", threadID, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync thread %s: %w", threadID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close thread %s: %w", threadID, err)
	}
	if err := os.Rename(tmpName, s.path(threadID)); err != nil {
		return fmt.Errorf("failed to commit thread %s: %w", threadID, err)
	}
	return nil
}

var _ ports.ConversationStore = (*JSONFileStore)(nil)
