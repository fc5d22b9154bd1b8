//go:build chroma

package chromastore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/google/uuid"

	"github.com/xxxsen/embedlab/internal/model"
	appErr "github.com/xxxsen/embedlab/internal/pkg/errors"
	"github.com/xxxsen/embedlab/internal/vectorstore"
)

var errPrecomputed = errors.New("chroma: vectors are computed by embedlab")

// precomputed keeps chroma from loading its default embedding function.
// Every vector is supplied by the caller.
type precomputed struct{}

func (precomputed) EmbedDocuments(ctx context.Context, texts []string) ([]embeddings.Embedding, error) {
	return nil, errPrecomputed
}

func (precomputed) EmbedQuery(ctx context.Context, text string) (embeddings.Embedding, error) {
	return nil, errPrecomputed
}

// Store maps each embedlab collection onto a chroma collection of the
// same name. Collection ids are chroma names.
type Store struct {
	client chroma.Client
}

type collection struct {
	col   chroma.Collection
	meta  model.CollectionMetadata
	ctime int64
}

func New(url string) (*Store, error) {
	client, err := chroma.NewHTTPClient(chroma.WithBaseURL(url))
	if err != nil {
		return nil, fmt.Errorf("init chroma client: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Type() string {
	return "chroma"
}

func (s *Store) Create(ctx context.Context, name string, meta model.CollectionMetadata) (vectorstore.Collection, error) {
	if name == "" {
		name = uuid.NewString()
	}
	attrs := metadataAttrs(meta, time.Now().UnixMilli())
	list := make([]*chroma.MetaAttribute, 0, len(attrs))
	for k, v := range attrs {
		list = append(list, chroma.NewStringAttribute(k, v))
	}
	col, err := s.client.CreateCollection(ctx, name,
		chroma.WithCollectionMetadataCreate(chroma.NewMetadata(list...)),
		chroma.WithEmbeddingFunctionCreate(precomputed{}),
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrap(col), nil
}

func (s *Store) Get(ctx context.Context, id string) (vectorstore.Collection, error) {
	return s.GetByName(ctx, id)
}

func (s *Store) GetByName(ctx context.Context, name string) (vectorstore.Collection, error) {
	col, err := s.client.GetCollection(ctx, name, chroma.WithEmbeddingFunctionGet(precomputed{}))
	if err != nil {
		return nil, mapErr(err)
	}
	return wrap(col), nil
}

func (s *Store) List(ctx context.Context) ([]model.Collection, error) {
	cols, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	items := make([]model.Collection, 0, len(cols))
	for _, col := range cols {
		c := wrap(col)
		count, err := c.Count(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, model.Collection{
			ID:         c.ID(),
			Name:       c.Name(),
			Metadata:   c.meta,
			ChunkCount: count,
			Ctime:      c.ctime,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Ctime != items[j].Ctime {
			return items[i].Ctime > items[j].Ctime
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (s *Store) Close() error {
	if c, ok := s.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func wrap(col chroma.Collection) *collection {
	md := col.Metadata()
	meta, ctime := metadataFrom(func(key string) (string, bool) {
		if md == nil {
			return "", false
		}
		return md.GetString(key)
	})
	return &collection{col: col, meta: meta, ctime: ctime}
}

func (c *collection) ID() string { return c.col.Name() }

func (c *collection) Name() string {
	if c.meta.Name != "" {
		return c.meta.Name
	}
	return c.col.Name()
}

func (c *collection) Metadata() model.CollectionMetadata { return c.meta }

func (c *collection) Count(ctx context.Context) (int, error) {
	n, err := c.col.Count(ctx)
	if err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

func (c *collection) Add(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	ids := make([]chroma.DocumentID, 0, len(chunks))
	texts := make([]string, 0, len(chunks))
	vectors := make([]embeddings.Embedding, 0, len(chunks))
	for _, ch := range chunks {
		if len(ch.Embedding) == 0 {
			return fmt.Errorf("%w: chunk %s has no vector", appErr.ErrInvalid, ch.ID)
		}
		ids = append(ids, chroma.DocumentID(ch.ID))
		texts = append(texts, ch.Text)
		vectors = append(vectors, embeddings.NewEmbeddingFromFloat32(ch.Embedding))
	}
	err := c.col.Add(ctx,
		chroma.WithIDs(ids...),
		chroma.WithTexts(texts...),
		chroma.WithEmbeddings(vectors...),
	)
	if err != nil {
		return mapErr(err)
	}
	return nil
}

func (c *collection) Query(ctx context.Context, vector []float32, n int) ([]vectorstore.Neighbor, error) {
	if n <= 0 {
		return []vectorstore.Neighbor{}, nil
	}
	res, err := c.col.Query(ctx,
		chroma.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chroma.WithNResults(n),
		chroma.WithIncludeQuery(chroma.IncludeDocuments, chroma.IncludeDistances),
	)
	if err != nil {
		return nil, mapErr(err)
	}
	idGroups := res.GetIDGroups()
	if len(idGroups) == 0 {
		return []vectorstore.Neighbor{}, nil
	}
	ids := make([]string, 0, len(idGroups[0]))
	for _, id := range idGroups[0] {
		ids = append(ids, string(id))
	}
	var docs []string
	if groups := res.GetDocumentsGroups(); len(groups) > 0 {
		for _, doc := range groups[0] {
			docs = append(docs, doc.ContentString())
		}
	}
	var distances []float64
	if groups := res.GetDistancesGroups(); len(groups) > 0 {
		for _, d := range groups[0] {
			distances = append(distances, float64(d))
		}
	}
	return neighbors(ids, docs, distances), nil
}

func mapErr(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "does not exist"), strings.Contains(msg, "not found"):
		return fmt.Errorf("%w: %s", appErr.ErrNotFound, err.Error())
	case strings.Contains(msg, "already exists"):
		return fmt.Errorf("%w: %s", appErr.ErrConflict, err.Error())
	case strings.Contains(msg, "dimension"):
		return fmt.Errorf("%w: %s", appErr.ErrDimensionMismatch, err.Error())
	}
	return fmt.Errorf("chroma: %w", err)
}

func serverURL() string {
	host := strings.TrimSpace(os.Getenv("CHROMA_SERVER_HOST"))
	if host == "" {
		return defaultURL
	}
	port := strings.TrimSpace(os.Getenv("CHROMA_SERVER_HTTP_PORT"))
	if port == "" {
		port = "8000"
	}
	return fmt.Sprintf("http://%s:%s", host, port)
}

func init() {
	vectorstore.Register("chroma", func(args vectorstore.FactoryArgs) (vectorstore.Store, error) {
		if args.Data == nil {
			return New(serverURL())
		}
		cfg, err := decodeConfig(args.Data)
		if err != nil {
			return nil, err
		}
		return New(cfg.URL)
	})
}
