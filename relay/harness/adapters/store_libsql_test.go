package adapters

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/context-relay/relay/db"
	ports "github.com/ZanzyTHEbar/context-relay/relay/harness/ports"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLibSQLStore(t *testing.T) *LibSQLConversationStore {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Connect(context.Background(), db.Config{
		DSN:     "file:" + filepath.Join(dir, "relay.db"),
		DataDir: dir,
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewLibSQLConversationStore(conn)
}

func TestLibSQLConversationStore_AppendLoad(t *testing.T) {
	store := newTestLibSQLStore(t)
	ctx := context.Background()

	turns, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, turns)

	require.NoError(t, store.Append(ctx, "t1",
		ports.Turn{Role: ports.RoleUser, Content: "hello"},
		ports.Turn{Role: ports.RoleAssistant, Content: "hi"},
	))
	require.NoError(t, store.Append(ctx, "t1", ports.Turn{Role: ports.RoleUser, Content: "more"}))

	turns, err = store.Load(ctx, "t1")
	require.NoError(t, err)
	want := []ports.Turn{
		{Role: ports.RoleUser, Content: "hello"},
		{Role: ports.RoleAssistant, Content: "hi"},
		{Role: ports.RoleUser, Content: "more"},
	}
	if diff := cmp.Diff(want, turns); diff != "" {
		t.Errorf("turns mismatch (-want +got):\n%s", diff)
	}
}

func TestLibSQLConversationStore_Clear(t *testing.T) {
	store := newTestLibSQLStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "a", ports.Turn{Role: ports.RoleUser, Content: "a"}))
	require.NoError(t, store.Append(ctx, "b", ports.Turn{Role: ports.RoleUser, Content: "b"}))

	require.NoError(t, store.Clear(ctx, "a"))
	require.NoError(t, store.Clear(ctx, "a"))
	turns, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, turns)

	turns, err = store.Load(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, turns, 1)

	require.NoError(t, store.ClearAll(ctx))
	turns, err = store.Load(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestLibSQLConversationStore_InvalidThreadID(t *testing.T) {
	store := newTestLibSQLStore(t)
	err := store.Append(context.Background(), "", ports.Turn{Role: ports.RoleUser, Content: "x"})
	assert.ErrorIs(t, err, ports.ErrInvalidThreadID)
}
