package embedcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/embedlab/internal/ai"
)

func WrapLruCacheToEmbedder(e ai.IEmbedder, size int, ttl time.Duration) ai.IEmbedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		next:  e,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  ai.IEmbedder
	cache *expirable.LRU[string, []float32]
}

func (l *lruEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := l.Ready(); err != nil {
		return nil, err
	}
	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i], _, _ = buildCacheKey(l.next.ModelName(), text)
	}
	hits := 0
	out, missed, err := fillMisses(ctx, texts, func(ctx context.Context, i int) ([]float32, bool, error) {
		cached, ok := l.cache.Get(keys[i])
		if !ok {
			return nil, false, nil
		}
		hits++
		return cloneEmbedding(cached), true, nil
	}, l.next.Embed)
	if err != nil {
		return nil, err
	}
	if hits > 0 {
		logutil.GetLogger(ctx).Debug("embedding cache hit (lru)", zap.Int("hits", hits), zap.Int("total", len(texts)))
	}
	for _, idx := range missed {
		l.cache.Add(keys[idx], cloneEmbedding(out[idx]))
	}
	return out, nil
}

// Ready is checked before the cache so a hit cannot hide missing
// credentials.
func (l *lruEmbedder) Ready() error {
	return ai.CheckReady(l.next)
}

func (l *lruEmbedder) ModelName() string {
	return l.next.ModelName()
}
