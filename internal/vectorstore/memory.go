package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xxxsen/embedlab/internal/model"
	appErr "github.com/xxxsen/embedlab/internal/pkg/errors"
)

// MemoryStore keeps every collection in process memory. It backs tests
// and local runs without a database.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
	names       map[string]string
}

type memoryCollection struct {
	mu     sync.RWMutex
	id     string
	name   string
	meta   model.CollectionMetadata
	ctime  int64
	chunks []model.Chunk
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*memoryCollection),
		names:       make(map[string]string),
	}
}

func (s *MemoryStore) Type() string {
	return "memory"
}

func (s *MemoryStore) Create(ctx context.Context, name string, meta model.CollectionMetadata) (Collection, error) {
	id := uuid.NewString()
	if name == "" {
		name = id
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.names[name]; ok {
		return nil, fmt.Errorf("%w: collection %q exists", appErr.ErrConflict, name)
	}
	c := &memoryCollection{id: id, name: name, meta: meta, ctime: time.Now().UnixMilli()}
	s.collections[id] = c
	s.names[name] = id
	return c, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) GetByName(ctx context.Context, name string) (Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.names[name]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return s.collections[id], nil
}

func (s *MemoryStore) List(ctx context.Context) ([]model.Collection, error) {
	s.mu.RLock()
	items := make([]model.Collection, 0, len(s.collections))
	for _, c := range s.collections {
		items = append(items, c.snapshot())
	}
	s.mu.RUnlock()
	sort.Slice(items, func(i, j int) bool {
		if items[i].Ctime != items[j].Ctime {
			return items[i].Ctime > items[j].Ctime
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func (c *memoryCollection) ID() string                         { return c.id }
func (c *memoryCollection) Name() string                       { return c.name }
func (c *memoryCollection) Metadata() model.CollectionMetadata { return c.meta }

func (c *memoryCollection) snapshot() model.Collection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return model.Collection{ID: c.id, Name: c.name, Metadata: c.meta, ChunkCount: len(c.chunks), Ctime: c.ctime}
}

func (c *memoryCollection) Count(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.chunks), nil
}

func (c *memoryCollection) Add(ctx context.Context, chunks []model.Chunk) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[string]struct{}, len(c.chunks)+len(chunks))
	for _, ch := range c.chunks {
		seen[ch.ID] = struct{}{}
	}
	for _, ch := range chunks {
		if _, ok := seen[ch.ID]; ok {
			return fmt.Errorf("%w: chunk %q exists", appErr.ErrConflict, ch.ID)
		}
		seen[ch.ID] = struct{}{}
	}
	base := len(c.chunks)
	for i, ch := range chunks {
		ch.Position = base + i
		ch.Embedding = append([]float32(nil), ch.Embedding...)
		c.chunks = append(c.chunks, ch)
	}
	return nil
}

func (c *memoryCollection) Query(ctx context.Context, vector []float32, n int) ([]Neighbor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	items := make([]scored, 0, len(c.chunks))
	for _, ch := range c.chunks {
		d, err := score(vector, ch.Embedding)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", ch.ID, err)
		}
		items = append(items, scored{id: ch.ID, content: ch.Text, position: ch.Position, distance: d})
	}
	return rank(items, n), nil
}

func init() {
	Register("memory", func(args FactoryArgs) (Store, error) {
		return NewMemoryStore(), nil
	})
}
