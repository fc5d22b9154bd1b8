package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/embedlab/internal/model"
	"github.com/xxxsen/embedlab/internal/pkg/dbutil"
	appErr "github.com/xxxsen/embedlab/internal/pkg/errors"
)

var collectionColumns = []string{"id", "name", "embedding_model", "retrieval_method", "chunk_size", "display_name", "ctime"}

type CollectionRepo struct {
	db *sql.DB
}

func NewCollectionRepo(db *sql.DB) *CollectionRepo {
	return &CollectionRepo{db: db}
}

func (r *CollectionRepo) Create(ctx context.Context, c *model.Collection) error {
	data := map[string]interface{}{
		"id":               c.ID,
		"name":             c.Name,
		"embedding_model":  string(c.Metadata.EmbeddingModel),
		"retrieval_method": string(c.Metadata.RetrievalMethod),
		"chunk_size":       c.Metadata.ChunkSize,
		"display_name":     c.Metadata.Name,
		"ctime":            c.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("collections", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *CollectionRepo) GetByID(ctx context.Context, id string) (*model.Collection, error) {
	return r.getOne(ctx, map[string]interface{}{"id": id})
}

func (r *CollectionRepo) GetByName(ctx context.Context, name string) (*model.Collection, error) {
	return r.getOne(ctx, map[string]interface{}{"name": name})
}

func (r *CollectionRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.Collection, error) {
	sqlStr, args, err := builder.BuildSelect("collections", where, collectionColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	c, err := scanCollection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *CollectionRepo) List(ctx context.Context) ([]model.Collection, error) {
	sqlStr := `
		SELECT c.id, c.name, c.embedding_model, c.retrieval_method, c.chunk_size, c.display_name, c.ctime,
			(SELECT COUNT(*) FROM collection_chunks cc WHERE cc.collection_id = c.id) AS chunk_count
		FROM collections c
		ORDER BY c.ctime DESC, c.id ASC
	`
	rows, err := r.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.Collection, 0)
	for rows.Next() {
		var c model.Collection
		var embeddingModel, method string
		if err := rows.Scan(&c.ID, &c.Name, &embeddingModel, &method, &c.Metadata.ChunkSize, &c.Metadata.Name, &c.Ctime, &c.ChunkCount); err != nil {
			return nil, err
		}
		c.Metadata.EmbeddingModel = model.EmbeddingModel(embeddingModel)
		c.Metadata.RetrievalMethod = model.RetrievalMethod(method)
		items = append(items, c)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCollection(row rowScanner) (*model.Collection, error) {
	var c model.Collection
	var embeddingModel, method string
	if err := row.Scan(&c.ID, &c.Name, &embeddingModel, &method, &c.Metadata.ChunkSize, &c.Metadata.Name, &c.Ctime); err != nil {
		return nil, err
	}
	c.Metadata.EmbeddingModel = model.EmbeddingModel(embeddingModel)
	c.Metadata.RetrievalMethod = model.RetrievalMethod(method)
	return &c, nil
}
