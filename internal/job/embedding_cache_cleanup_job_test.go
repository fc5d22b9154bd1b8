package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	cutoff int64
	err    error
}

func (f *fakePruner) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	f.cutoff = cutoff
	return 2, f.err
}

func TestEmbeddingCacheCleanupJob_Cutoff(t *testing.T) {
	pruner := &fakePruner{}
	j := NewEmbeddingCacheCleanupJob(pruner, 7)
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return now }

	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, now.Add(-7*24*time.Hour).Unix(), pruner.cutoff)
	require.Equal(t, "embedding_cache_cleanup", j.Name())
}

func TestEmbeddingCacheCleanupJob_Defaults(t *testing.T) {
	require.Equal(t, defaultCacheMaxAgeDays, NewEmbeddingCacheCleanupJob(nil, 0).maxAgeDays)
	require.NoError(t, NewEmbeddingCacheCleanupJob(nil, 0).Run(context.Background()))

	boom := errors.New("boom")
	err := NewEmbeddingCacheCleanupJob(&fakePruner{err: boom}, 1).Run(context.Background())
	require.ErrorIs(t, err, boom)
}
