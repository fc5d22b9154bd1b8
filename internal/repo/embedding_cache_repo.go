package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/embedlab/internal/model"
	"github.com/xxxsen/embedlab/internal/pkg/dbutil"
)

type EmbeddingCacheRepo struct {
	db *sql.DB
}

func NewEmbeddingCacheRepo(db *sql.DB) *EmbeddingCacheRepo {
	return &EmbeddingCacheRepo{db: db}
}

func (r *EmbeddingCacheRepo) Get(ctx context.Context, modelName, contentHash string) ([]float32, bool, error) {
	sqlStr, args := dbutil.Finalize(
		"SELECT embedding FROM embedding_cache WHERE model_name=? AND content_hash=?",
		[]interface{}{modelName, contentHash},
	)
	var embedding pgvector.Vector
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&embedding); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return embedding.Slice(), true, nil
}

func (r *EmbeddingCacheRepo) Save(ctx context.Context, item *model.EmbeddingCache) error {
	const query = `
		INSERT INTO embedding_cache (model_name, content_hash, embedding, ctime)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (model_name, content_hash) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			ctime = EXCLUDED.ctime
	`
	_, err := r.db.ExecContext(ctx, query,
		item.ModelName,
		item.ContentHash,
		pgvector.NewVector(item.Embedding),
		item.Ctime,
	)
	return err
}

func (r *EmbeddingCacheRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	sqlStr, args := dbutil.Finalize("DELETE FROM embedding_cache WHERE ctime < ?", []interface{}{cutoff})
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
