package embedcache

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/embedlab/internal/ai"
	"github.com/xxxsen/embedlab/internal/model"
)

type CacheRepo interface {
	Get(ctx context.Context, modelName, contentHash string) ([]float32, bool, error)
	Save(ctx context.Context, item *model.EmbeddingCache) error
}

func WrapDBCacheToEmbedder(e ai.IEmbedder, cacheRepo CacheRepo) ai.IEmbedder {
	if e == nil || cacheRepo == nil {
		return e
	}
	return &dbEmbedder{next: e, repo: cacheRepo}
}

type dbEmbedder struct {
	next ai.IEmbedder
	repo CacheRepo
}

func (d *dbEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := d.Ready(); err != nil {
		return nil, err
	}
	hashes := make([]string, len(texts))
	modelName := ""
	for i, text := range texts {
		_, hashes[i], modelName = buildCacheKey(d.next.ModelName(), text)
	}
	out, missed, err := fillMisses(ctx, texts, func(ctx context.Context, i int) ([]float32, bool, error) {
		return d.repo.Get(ctx, modelName, hashes[i])
	}, d.next.Embed)
	if err != nil {
		return nil, err
	}
	if hit := len(texts) - len(missed); hit > 0 {
		logutil.GetLogger(ctx).Debug("embedding cache hit (db)", zap.Int("hits", hit), zap.Int("total", len(texts)))
	}
	now := time.Now().Unix()
	for _, idx := range missed {
		if err := d.repo.Save(ctx, &model.EmbeddingCache{
			ModelName:   modelName,
			ContentHash: hashes[idx],
			Embedding:   out[idx],
			Ctime:       now,
		}); err != nil {
			logutil.GetLogger(ctx).Warn("failed to cache embedding", zap.Error(err))
		}
	}
	return out, nil
}

// Ready is checked before the cache so a hit cannot hide missing
// credentials.
func (d *dbEmbedder) Ready() error {
	return ai.CheckReady(d.next)
}

func (d *dbEmbedder) ModelName() string {
	return d.next.ModelName()
}
