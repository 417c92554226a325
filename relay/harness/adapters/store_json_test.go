package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	ports "github.com/ZanzyTHEbar/context-relay/relay/harness/ports"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type JSONFileStoreSuite struct {
	suite.Suite
	dir   string
	store *JSONFileStore
	ctx   context.Context
}

func TestJSONFileStoreSuite(t *testing.T) {
	suite.Run(t, new(JSONFileStoreSuite))
}

func (s *JSONFileStoreSuite) SetupTest() {
	s.dir = filepath.Join(s.T().TempDir(), "contexts")
	store, err := NewJSONFileStore(s.dir)
	s.Require().NoError(err)
	s.store = store
	s.ctx = context.Background()
}

func (s *JSONFileStoreSuite) TestLoadMissingThreadIsEmpty() {
	turns, err := s.store.Load(s.ctx, "nope")
	s.Require().NoError(err)
	s.NotNil(turns)
	s.Empty(turns)
}

func (s *JSONFileStoreSuite) TestAppendThenLoadPreservesOrder() {
	s.Require().NoError(s.store.Append(s.ctx, "t1", ports.Turn{Role: ports.RoleUser, Content: "hello"}))
	s.Require().NoError(s.store.Append(s.ctx, "t1",
		ports.Turn{Role: ports.RoleAssistant, Content: "hi"},
		ports.Turn{Role: ports.RoleUser, Content: "again"},
	))

	turns, err := s.store.Load(s.ctx, "t1")
	s.Require().NoError(err)

	want := []ports.Turn{
		{Role: ports.RoleUser, Content: "hello"},
		{Role: ports.RoleAssistant, Content: "hi"},
		{Role: ports.RoleUser, Content: "again"},
	}
	if diff := cmp.Diff(want, turns); diff != "" {
		s.T().Errorf("turns mismatch (-want +got):\n%s", diff)
	}
}

func (s *JSONFileStoreSuite) TestRecordFormat() {
	s.Require().NoError(s.store.Append(s.ctx, "fmt", ports.Turn{Role: ports.RoleUser, Content: "héllo"}))

	data, err := os.ReadFile(filepath.Join(s.dir, "fmt.json"))
	s.Require().NoError(err)
	s.Contains(string(data), "\n  {", "record is indented")
	s.Contains(string(data), "héllo", "non-ASCII kept as UTF-8")

	var raw []map[string]string
	s.Require().NoError(json.Unmarshal(data, &raw))
	s.Equal([]map[string]string{{"role": "user", "content": "héllo"}}, raw)
}

func (s *JSONFileStoreSuite) TestWriteLeavesNoTempFiles() {
	for i := range 5 {
		s.Require().NoError(s.store.Append(s.ctx, "t", ports.Turn{Role: ports.RoleUser, Content: fmt.Sprint(i)}))
	}

	entries, err := os.ReadDir(s.dir)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("t.json", entries[0].Name())
}

func (s *JSONFileStoreSuite) TestCorruptRecordIsAnError() {
	s.Require().NoError(os.WriteFile(filepath.Join(s.dir, "bad.json"), []byte("{not json"), 0o644))

	_, err := s.store.Load(s.ctx, "bad")
	s.Error(err)

	// A failed append must not replace the existing record
	err = s.store.Append(s.ctx, "bad", ports.Turn{Role: ports.RoleUser, Content: "x"})
	s.Error(err)
	data, readErr := os.ReadFile(filepath.Join(s.dir, "bad.json"))
	s.Require().NoError(readErr)
	s.Equal("{not json", string(data))
}

func (s *JSONFileStoreSuite) TestClearIsIdempotent() {
	s.Require().NoError(s.store.Append(s.ctx, "t1", ports.Turn{Role: ports.RoleUser, Content: "a"}))

	s.Require().NoError(s.store.Clear(s.ctx, "t1"))
	s.Require().NoError(s.store.Clear(s.ctx, "t1"))

	turns, err := s.store.Load(s.ctx, "t1")
	s.Require().NoError(err)
	s.Empty(turns)
}

func (s *JSONFileStoreSuite) TestClearAllRemovesOnlyRecords() {
	s.Require().NoError(s.store.Append(s.ctx, "a", ports.Turn{Role: ports.RoleUser, Content: "a"}))
	s.Require().NoError(s.store.Append(s.ctx, "b", ports.Turn{Role: ports.RoleUser, Content: "b"}))
	s.Require().NoError(os.WriteFile(filepath.Join(s.dir, "notes.txt"), []byte("keep"), 0o644))

	s.Require().NoError(s.store.ClearAll(s.ctx))

	for _, id := range []string{"a", "b"} {
		turns, err := s.store.Load(s.ctx, id)
		s.Require().NoError(err)
		s.Empty(turns)
	}
	_, err := os.Stat(filepath.Join(s.dir, "notes.txt"))
	s.NoError(err)
}

func (s *JSONFileStoreSuite) TestInvalidThreadIDs() {
	for _, id := range []string{"", "../escape", "a/b"} {
		s.ErrorIs(s.store.Append(s.ctx, id, ports.Turn{Role: ports.RoleUser, Content: "x"}), ports.ErrInvalidThreadID)
		_, err := s.store.Load(s.ctx, id)
		s.ErrorIs(err, ports.ErrInvalidThreadID)
		s.ErrorIs(s.store.Clear(s.ctx, id), ports.ErrInvalidThreadID)
	}
}

func (s *JSONFileStoreSuite) TestConcurrentAppendsAreSerialized() {
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := s.store.Append(s.ctx, "busy",
				ports.Turn{Role: ports.RoleUser, Content: fmt.Sprintf("q%d", n)},
				ports.Turn{Role: ports.RoleAssistant, Content: fmt.Sprintf("a%d", n)},
			)
			assert.NoError(s.T(), err)
		}(i)
	}
	wg.Wait()

	turns, err := s.store.Load(s.ctx, "busy")
	s.Require().NoError(err)
	s.Len(turns, 40)
	// Each append's pair stays adjacent
	for i := 0; i < len(turns); i += 2 {
		s.Equal(ports.RoleUser, turns[i].Role)
		s.Equal(ports.RoleAssistant, turns[i+1].Role)
		s.Equal(turns[i].Content[1:], turns[i+1].Content[1:])
	}
}

func TestNewJSONFileStoreCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	store, err := NewJSONFileStore(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
