package badger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/corpusvec/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *CheckpointRepository {
	t.Helper()
	repo, err := NewMemoryCheckpointRepository()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestLoadCheckpoint_Default(t *testing.T) {
	repo := newTestRepo(t)

	cp, err := repo.LoadCheckpoint(context.Background(), "pubmed")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, "pubmed", cp.Key)
	assert.Equal(t, int64(0), cp.Offset)
	assert.False(t, cp.VocabularyBuilt)
	assert.False(t, cp.Completed)
	assert.True(t, cp.IsZero())
}

func TestCheckpoint_RoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	before := time.Now().UTC()
	cp := &core.Checkpoint{Key: "pubmed", Offset: 500, VocabularyBuilt: true}
	require.NoError(t, repo.SaveCheckpoint(ctx, cp))
	assert.False(t, cp.UpdatedAt.Before(before.Truncate(time.Microsecond)))

	loaded, err := repo.LoadCheckpoint(ctx, "pubmed")
	require.NoError(t, err)
	assert.Equal(t, int64(500), loaded.Offset)
	assert.True(t, loaded.VocabularyBuilt)
	assert.False(t, loaded.Completed)
	assert.Equal(t, cp.UpdatedAt.Truncate(time.Microsecond), loaded.UpdatedAt)
}

func TestSaveCheckpoint_Overwrites(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveCheckpoint(ctx, &core.Checkpoint{Key: "pubmed", Offset: 100}))
	require.NoError(t, repo.SaveCheckpoint(ctx, &core.Checkpoint{Key: "pubmed", Offset: 40, VocabularyBuilt: true}))

	loaded, err := repo.LoadCheckpoint(ctx, "pubmed")
	require.NoError(t, err)
	assert.Equal(t, int64(40), loaded.Offset)
	assert.True(t, loaded.VocabularyBuilt)
}

func TestSaveCheckpoint_KeysAreIndependent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveCheckpoint(ctx, &core.Checkpoint{Key: "a", Offset: 1}))
	require.NoError(t, repo.SaveCheckpoint(ctx, &core.Checkpoint{Key: "b", Offset: 2}))

	a, err := repo.LoadCheckpoint(ctx, "a")
	require.NoError(t, err)
	b, err := repo.LoadCheckpoint(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.Offset)
	assert.Equal(t, int64(2), b.Offset)
}

func TestSaveCheckpoint_Invalid(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveCheckpoint(ctx, &core.Checkpoint{Key: "pubmed", Offset: 20}))

	err := repo.SaveCheckpoint(ctx, &core.Checkpoint{Key: "pubmed", Offset: -1})
	assert.ErrorIs(t, err, core.ErrInvalidCheckpoint)
	err = repo.SaveCheckpoint(ctx, &core.Checkpoint{Key: "pubmed", Completed: true})
	assert.ErrorIs(t, err, core.ErrInvalidCheckpoint)
	err = repo.SaveCheckpoint(ctx, &core.Checkpoint{Offset: 5})
	assert.ErrorIs(t, err, core.ErrEmptyKey)

	loaded, err := repo.LoadCheckpoint(ctx, "pubmed")
	require.NoError(t, err)
	assert.Equal(t, int64(20), loaded.Offset, "last good checkpoint stays valid")
}

func TestDeleteCheckpoint(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveCheckpoint(ctx, &core.Checkpoint{Key: "pubmed", Offset: 60}))
	require.NoError(t, repo.DeleteCheckpoint(ctx, "pubmed"))

	loaded, err := repo.LoadCheckpoint(ctx, "pubmed")
	require.NoError(t, err)
	assert.True(t, loaded.IsZero())

	assert.NoError(t, repo.DeleteCheckpoint(ctx, "missing"))
	assert.ErrorIs(t, repo.DeleteCheckpoint(ctx, ""), core.ErrEmptyKey)
}

func TestCheckpoint_CanceledContext(t *testing.T) {
	repo := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, repo.SaveCheckpoint(ctx, &core.Checkpoint{Key: "k"}), context.Canceled)
	_, err := repo.LoadCheckpoint(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenCheckpointRepository_Persists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	ctx := context.Background()

	repo, err := OpenCheckpointRepository(dir)
	require.NoError(t, err)
	require.NoError(t, repo.SaveCheckpoint(ctx, &core.Checkpoint{Key: "pubmed", Offset: 500, VocabularyBuilt: true}))
	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close(), "close is idempotent")

	reopened, err := OpenCheckpointRepository(dir)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.LoadCheckpoint(ctx, "pubmed")
	require.NoError(t, err)
	assert.Equal(t, int64(500), loaded.Offset)
	assert.True(t, loaded.VocabularyBuilt)
}

func TestNewCheckpointRepository_SharedBackend(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	repo := NewCheckpointRepository(backend)
	require.NoError(t, repo.Close())
	assert.False(t, backend.IsClosed(), "shared backend stays open")
}
