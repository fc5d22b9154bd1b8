package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xxxsen/embedlab/internal/model"
	appErr "github.com/xxxsen/embedlab/internal/pkg/errors"
)

// Neighbor is one nearest-neighbor hit. Distance is nil when the
// backend could not compute one, e.g. a record stored without a vector.
type Neighbor struct {
	ID       string
	Content  string
	Distance *float64
}

type Collection interface {
	ID() string
	Name() string
	Metadata() model.CollectionMetadata
	Count(ctx context.Context) (int, error)
	Add(ctx context.Context, chunks []model.Chunk) error
	// Query returns at most n neighbors of vector, nearest first.
	Query(ctx context.Context, vector []float32, n int) ([]Neighbor, error)
}

type Store interface {
	Type() string
	Create(ctx context.Context, name string, meta model.CollectionMetadata) (Collection, error)
	Get(ctx context.Context, id string) (Collection, error)
	GetByName(ctx context.Context, name string) (Collection, error)
	List(ctx context.Context) ([]model.Collection, error)
	Close() error
}

// GetOrCreate resolves a collection by name, creating it with meta when
// it does not exist yet.
func GetOrCreate(ctx context.Context, s Store, name string, meta model.CollectionMetadata) (Collection, error) {
	c, err := s.GetByName(ctx, name)
	if err == nil {
		return c, nil
	}
	if !appErr.IsNotFound(err) {
		return nil, err
	}
	c, err = s.Create(ctx, name, meta)
	if appErr.IsConflict(err) {
		return s.GetByName(ctx, name)
	}
	return c, err
}

type FactoryArgs struct {
	Data interface{}
	DB   *sql.DB
}

type Factory func(args FactoryArgs) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(storeType string, args FactoryArgs) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(storeType))
	if key == "" {
		return nil, fmt.Errorf("vector_store.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported vector store type: %s", storeType)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode vector store config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode vector store config: %w", err)
	}
	return nil
}
