package embedcache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/embedlab/internal/ai"
	"github.com/xxxsen/embedlab/internal/model"
	appErr "github.com/xxxsen/embedlab/internal/pkg/errors"
)

type countingEmbedder struct {
	seen     [][]string
	readyErr error
}

func (c *countingEmbedder) Ready() error { return c.readyErr }

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.seen = append(c.seen, texts)
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		out = append(out, []float32{float32(len(text)), 1})
	}
	return out, nil
}

func (c *countingEmbedder) ModelName() string { return "test-model" }

type memoryCacheRepo struct {
	mu    sync.Mutex
	items map[string][]float32
	saves int
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]float32{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, modelName, contentHash string) ([]float32, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[modelName+"/"+contentHash]
	return v, ok, nil
}

func (m *memoryCacheRepo) Save(ctx context.Context, item *model.EmbeddingCache) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.items[item.ModelName+"/"+item.ContentHash] = item.Embedding
	return nil
}

func TestLruEmbedder_OnlyMissesReachNext(t *testing.T) {
	next := &countingEmbedder{}
	e := WrapLruCacheToEmbedder(next, 10, time.Minute)
	require.Equal(t, "test-model", e.ModelName())

	first, err := e.Embed(context.Background(), []string{"a", "bb"})
	require.NoError(t, err)
	second, err := e.Embed(context.Background(), []string{"bb", "ccc", "a"})
	require.NoError(t, err)

	require.Equal(t, [][]float32{{1, 1}, {2, 1}}, first)
	require.Equal(t, [][]float32{{2, 1}, {3, 1}, {1, 1}}, second)
	require.Equal(t, [][]string{{"a", "bb"}, {"ccc"}}, next.seen)

	second[0][0] = 99
	again, err := e.Embed(context.Background(), []string{"bb"})
	require.NoError(t, err)
	require.Equal(t, float32(2), again[0][0])
}

func TestLruEmbedder_DisabledReturnsNext(t *testing.T) {
	next := &countingEmbedder{}
	require.Equal(t, next, WrapLruCacheToEmbedder(next, 0, time.Minute))
}

func TestDBEmbedder_PersistsMisses(t *testing.T) {
	repo := newMemoryCacheRepo()
	next := &countingEmbedder{}
	e := WrapDBCacheToEmbedder(next, repo)

	_, err := e.Embed(context.Background(), []string{"dogs", "cats"})
	require.NoError(t, err)
	require.Equal(t, 2, repo.saves)

	out, err := e.Embed(context.Background(), []string{"cats", "fish"})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{4, 1}, {4, 1}}, out)
	require.Equal(t, [][]string{{"dogs", "cats"}, {"fish"}}, next.seen)
	require.Equal(t, 3, repo.saves)
}

type failingEmbedder struct{ countingEmbedder }

func (f *failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("provider down")
}

func TestDBEmbedder_PropagatesErrors(t *testing.T) {
	repo := newMemoryCacheRepo()
	_, err := WrapDBCacheToEmbedder(&failingEmbedder{}, repo).Embed(context.Background(), []string{"x"})
	require.ErrorContains(t, err, "provider down")
	require.Zero(t, repo.saves)
}

func TestFillMisses_CountMismatch(t *testing.T) {
	_, _, err := fillMisses(context.Background(), []string{"a", "b"},
		func(ctx context.Context, i int) ([]float32, bool, error) { return nil, false, nil },
		func(ctx context.Context, texts []string) ([][]float32, error) { return [][]float32{{1}}, nil },
	)
	require.ErrorContains(t, err, "count mismatch")
}

func TestBuildCacheKey(t *testing.T) {
	key, hash, name := buildCacheKey(" ", "hello")
	require.Equal(t, "unknown", name)
	require.Len(t, hash, 64)
	require.Equal(t, "embed:unknown:"+hash, key)

	keyA, _, _ := buildCacheKey("a", "hello")
	keyB, _, _ := buildCacheKey("b", "hello")
	require.NotEqual(t, keyA, keyB)
}

func TestDBEmbedder_CachedHitStillNeedsCredentials(t *testing.T) {
	const modelName = "embed-english-v2.0"
	repo := newMemoryCacheRepo()
	_, hash, name := buildCacheKey(modelName, "pets")
	repo.items[name+"/"+hash] = []float32{1, 2, 3}

	provider, err := ai.NewEmbedProvider("cohere", map[string]string{"api_key": ""})
	require.NoError(t, err)
	inner := ai.NewEmbedder(provider, modelName, 0, ai.CallPolicy{MaxAttempts: 1})

	for _, e := range []ai.IEmbedder{
		WrapDBCacheToEmbedder(inner, repo),
		WrapLruCacheToEmbedder(WrapDBCacheToEmbedder(inner, repo), 10, time.Minute),
	} {
		vectors, err := e.Embed(context.Background(), []string{"pets"})
		require.ErrorIs(t, err, appErr.ErrMissingCredentials)
		require.Nil(t, vectors)
		require.ErrorIs(t, ai.CheckReady(e), appErr.ErrMissingCredentials)
	}
	require.Zero(t, repo.saves)
}

func TestLruEmbedder_ChecksReadinessBeforeHits(t *testing.T) {
	next := &countingEmbedder{}
	e := WrapLruCacheToEmbedder(next, 10, time.Minute)
	_, err := e.Embed(context.Background(), []string{"pets"})
	require.NoError(t, err)

	next.readyErr = appErr.ErrMissingCredentials
	_, err = e.Embed(context.Background(), []string{"pets"})
	require.ErrorIs(t, err, appErr.ErrMissingCredentials)
	require.Len(t, next.seen, 1)
}
