package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xxxsen/embedlab/internal/model"
	"github.com/xxxsen/embedlab/internal/repo"
)

// PGVectorStore keeps collections in postgres and delegates the
// nearest-neighbor scan to the pgvector cosine operator.
type PGVectorStore struct {
	collections *repo.CollectionRepo
	chunks      *repo.ChunkRepo
}

type pgCollection struct {
	info   model.Collection
	chunks *repo.ChunkRepo
}

func NewPGVectorStore(db *sql.DB) (*PGVectorStore, error) {
	if db == nil {
		return nil, fmt.Errorf("pgvector store requires a database")
	}
	return &PGVectorStore{
		collections: repo.NewCollectionRepo(db),
		chunks:      repo.NewChunkRepo(db),
	}, nil
}

func (s *PGVectorStore) Type() string {
	return "pgvector"
}

func (s *PGVectorStore) Create(ctx context.Context, name string, meta model.CollectionMetadata) (Collection, error) {
	info := model.Collection{ID: uuid.NewString(), Name: name, Metadata: meta, Ctime: time.Now().UnixMilli()}
	if info.Name == "" {
		info.Name = info.ID
	}
	if err := s.collections.Create(ctx, &info); err != nil {
		return nil, err
	}
	return &pgCollection{info: info, chunks: s.chunks}, nil
}

func (s *PGVectorStore) Get(ctx context.Context, id string) (Collection, error) {
	info, err := s.collections.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &pgCollection{info: *info, chunks: s.chunks}, nil
}

func (s *PGVectorStore) GetByName(ctx context.Context, name string) (Collection, error) {
	info, err := s.collections.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return &pgCollection{info: *info, chunks: s.chunks}, nil
}

func (s *PGVectorStore) List(ctx context.Context) ([]model.Collection, error) {
	return s.collections.List(ctx)
}

// Close is a no-op; the database handle is owned by the caller.
func (s *PGVectorStore) Close() error {
	return nil
}

func (c *pgCollection) ID() string                         { return c.info.ID }
func (c *pgCollection) Name() string                       { return c.info.Name }
func (c *pgCollection) Metadata() model.CollectionMetadata { return c.info.Metadata }

func (c *pgCollection) Count(ctx context.Context) (int, error) {
	return c.chunks.Count(ctx, c.info.ID)
}

func (c *pgCollection) Add(ctx context.Context, chunks []model.Chunk) error {
	return c.chunks.InsertBatch(ctx, c.info.ID, chunks)
}

func (c *pgCollection) Query(ctx context.Context, vector []float32, n int) ([]Neighbor, error) {
	if n <= 0 {
		return []Neighbor{}, nil
	}
	matches, err := c.chunks.Nearest(ctx, c.info.ID, vector, n)
	if err != nil {
		return nil, err
	}
	out := make([]Neighbor, 0, len(matches))
	for _, m := range matches {
		nb := Neighbor{ID: m.ID, Content: m.Content}
		if m.Distance.Valid {
			d := m.Distance.Float64
			nb.Distance = &d
		}
		out = append(out, nb)
	}
	return out, nil
}

func init() {
	Register("pgvector", func(args FactoryArgs) (Store, error) {
		return NewPGVectorStore(args.DB)
	})
}
