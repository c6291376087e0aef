package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/guild-ledger/internal/model"
)

func setupCheckpoints(t *testing.T) (*SQLiteStorage, *CheckpointManager) {
	t.Helper()
	store, cleanup := createTestStorage(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, kvmRecord("2024-03-01", "Bob")))
	require.NoError(t, store.SaveMember(ctx, &model.GuildMember{ID: "m1", Name: "Alice"}))

	cm, err := store.NewCheckpointManager()
	require.NoError(t, err)
	return store, cm
}

func TestCheckpointManager_Create(t *testing.T) {
	_, cm := setupCheckpoints(t)
	ctx := context.Background()

	info, err := cm.Create(ctx, "before-import", "manual")
	require.NoError(t, err)
	assert.Equal(t, "before-import", info.ID)
	assert.Equal(t, ExpectedSchemaVersion, info.SchemaVersion)
	assert.Equal(t, map[string]int{"templates": 0, "members": 1, "records": 1}, info.RowCounts)
	assert.Positive(t, info.FileSize)
	assert.FileExists(t, filepath.Join(cm.checkpointsDir, "before-import.db"))

	_, err = cm.Create(ctx, "before-import", "again")
	assert.ErrorIs(t, err, ErrCheckpointExists)
}

func TestCheckpointManager_InvalidTag(t *testing.T) {
	_, cm := setupCheckpoints(t)

	for _, tag := range []string{"../escape", "a/b", "quote'd"} {
		_, err := cm.Create(context.Background(), tag, "")
		assert.Error(t, err, tag)
	}
}

func TestCheckpointManager_ListNewestFirst(t *testing.T) {
	_, cm := setupCheckpoints(t)
	ctx := context.Background()

	_, err := cm.Create(ctx, "one", "")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	_, err = cm.Create(ctx, "two", "")
	require.NoError(t, err)

	list, err := cm.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "two", list[0].ID)
	assert.Equal(t, "one", list[1].ID)
}

func TestCheckpointManager_Restore(t *testing.T) {
	store, cm := setupCheckpoints(t)
	ctx := context.Background()

	_, err := cm.Create(ctx, "snap", "")
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, kvmRecord("2024-03-08", "Carol")))

	require.NoError(t, cm.Restore(ctx, "snap"))

	reopened, err := NewSQLiteStorage(store.Path())
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	dates, err := reopened.GetDates(ctx, model.ModuleKVM)
	require.NoError(t, err)
	require.Len(t, dates, 1)
	assert.Equal(t, "2024-03-01", dates[0].String())

	assert.ErrorIs(t, cm.Restore(ctx, "missing"), ErrCheckpointNotFound)
}

func TestCheckpointManager_RestoreCorrupted(t *testing.T) {
	_, cm := setupCheckpoints(t)

	path := filepath.Join(cm.checkpointsDir, "bad.db")
	require.NoError(t, os.WriteFile(path, []byte("not a database"), 0600))

	assert.ErrorIs(t, cm.Restore(context.Background(), "bad"), ErrCheckpointCorrupted)
}

func TestCheckpointManager_Delete(t *testing.T) {
	_, cm := setupCheckpoints(t)
	ctx := context.Background()

	_, err := cm.Create(ctx, "gone", "")
	require.NoError(t, err)
	require.NoError(t, cm.Delete(ctx, "gone"))
	assert.ErrorIs(t, cm.Delete(ctx, "gone"), ErrCheckpointNotFound)

	list, err := cm.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCheckpointManager_AutoCheckpointPrunes(t *testing.T) {
	_, cm := setupCheckpoints(t)
	ctx := context.Background()

	for i := 0; i < maxAutoCheckpoints+2; i++ {
		info, err := cm.create(ctx, "auto-"+string(rune('a'+i)), "", true)
		require.NoError(t, err)
		require.True(t, info.IsAuto)
		time.Sleep(5 * time.Millisecond)
	}
	_, err := cm.Create(ctx, "manual", "")
	require.NoError(t, err)

	info, err := cm.AutoCheckpoint(ctx, "import")
	require.NoError(t, err)
	assert.True(t, info.IsAuto)

	list, err := cm.List(ctx)
	require.NoError(t, err)
	auto := 0
	for _, cp := range list {
		if cp.IsAuto {
			auto++
		}
	}
	assert.Equal(t, maxAutoCheckpoints, auto)
	assert.Len(t, list, maxAutoCheckpoints+1)
}
