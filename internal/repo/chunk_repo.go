package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/embedlab/internal/model"
	"github.com/xxxsen/embedlab/internal/pkg/dbutil"
	appErr "github.com/xxxsen/embedlab/internal/pkg/errors"
)

// ChunkMatch is one row of a nearest-neighbor scan. Distance is NULL for
// chunks stored without a vector.
type ChunkMatch struct {
	ID       string
	Content  string
	Position int
	Distance sql.NullFloat64
}

type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// InsertBatch appends chunks after the current last position in a single
// transaction.
func (r *ChunkRepo) InsertBatch(ctx context.Context, collectionID string, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()
	sqlStr, args := dbutil.Finalize("SELECT COUNT(*) FROM collection_chunks WHERE collection_id=?", []interface{}{collectionID})
	base := 0
	if err := tx.QueryRowContext(ctx, sqlStr, args...).Scan(&base); err != nil {
		return err
	}
	rows := make([]map[string]interface{}, 0, len(chunks))
	for i, ch := range chunks {
		var embedding interface{}
		if len(ch.Embedding) > 0 {
			embedding = pgvector.NewVector(ch.Embedding)
		}
		rows = append(rows, map[string]interface{}{
			"collection_id": collectionID,
			"id":            ch.ID,
			"position":      base + i,
			"content":       ch.Text,
			"embedding":     embedding,
		})
	}
	sqlStr, args, err = builder.BuildInsert("collection_chunks", rows)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return tx.Commit()
}

func (r *ChunkRepo) Count(ctx context.Context, collectionID string) (int, error) {
	sqlStr, args := dbutil.Finalize("SELECT COUNT(*) FROM collection_chunks WHERE collection_id=?", []interface{}{collectionID})
	count := 0
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Nearest orders chunks by cosine distance to vector.
func (r *ChunkRepo) Nearest(ctx context.Context, collectionID string, vector []float32, limit int) ([]ChunkMatch, error) {
	sqlStr := `
		SELECT id, content, position, embedding <=> ? AS distance
		FROM collection_chunks
		WHERE collection_id = ?
		ORDER BY distance ASC NULLS LAST, position ASC
		LIMIT ?
	`
	args := []interface{}{pgvector.NewVector(vector), collectionID, limit}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, nearestErr(err)
	}
	defer rows.Close()
	items := make([]ChunkMatch, 0, limit)
	for rows.Next() {
		var item ChunkMatch
		if err := rows.Scan(&item.ID, &item.Content, &item.Position, &item.Distance); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, nearestErr(err)
	}
	return items, nil
}

func nearestErr(err error) error {
	if dbutil.IsDimensionMismatch(err) {
		return fmt.Errorf("%w: %w", appErr.ErrDimensionMismatch, err)
	}
	return err
}
