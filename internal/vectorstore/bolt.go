package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/xxxsen/embedlab/internal/model"
	appErr "github.com/xxxsen/embedlab/internal/pkg/errors"
)

var (
	bucketCollections = []byte("collections")
	bucketNames       = []byte("names")
)

const chunkBucketPrefix = "chunks:"

type boltConfig struct {
	Path string `json:"path"`
}

// BoltStore persists collections in a single bbolt file. Chunks live in
// one bucket per collection keyed by zero-padded position, so a cursor
// walk yields insertion order.
type BoltStore struct {
	db *bbolt.DB
}

type boltCollectionRecord struct {
	ID       string                   `json:"id"`
	Name     string                   `json:"name"`
	Metadata model.CollectionMetadata `json:"metadata"`
	Ctime    int64                    `json:"ctime"`
}

type boltCollection struct {
	db  *bbolt.DB
	rec boltCollectionRecord
}

func NewBoltStore(path string) (*BoltStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("bolt vector store path is required")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt store: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketCollections); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketNames)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Type() string {
	return "bolt"
}

func (s *BoltStore) Create(ctx context.Context, name string, meta model.CollectionMetadata) (Collection, error) {
	rec := boltCollectionRecord{ID: uuid.NewString(), Name: name, Metadata: meta, Ctime: time.Now().UnixMilli()}
	if rec.Name == "" {
		rec.Name = rec.ID
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		names := tx.Bucket(bucketNames)
		if names.Get([]byte(rec.Name)) != nil {
			return fmt.Errorf("%w: collection %q exists", appErr.ErrConflict, rec.Name)
		}
		raw, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketCollections).Put([]byte(rec.ID), raw); err != nil {
			return err
		}
		if err := names.Put([]byte(rec.Name), []byte(rec.ID)); err != nil {
			return err
		}
		_, err = tx.CreateBucket(chunkBucket(rec.ID))
		return err
	})
	if err != nil {
		return nil, err
	}
	return &boltCollection{db: s.db, rec: rec}, nil
}

func (s *BoltStore) Get(ctx context.Context, id string) (Collection, error) {
	var rec boltCollectionRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		return loadCollection(tx, id, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &boltCollection{db: s.db, rec: rec}, nil
}

func (s *BoltStore) GetByName(ctx context.Context, name string) (Collection, error) {
	var rec boltCollectionRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucketNames).Get([]byte(name))
		if id == nil {
			return appErr.ErrNotFound
		}
		return loadCollection(tx, string(id), &rec)
	})
	if err != nil {
		return nil, err
	}
	return &boltCollection{db: s.db, rec: rec}, nil
}

func (s *BoltStore) List(ctx context.Context) ([]model.Collection, error) {
	items := make([]model.Collection, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCollections).ForEach(func(k, v []byte) error {
			var rec boltCollectionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			count := 0
			if b := tx.Bucket(chunkBucket(rec.ID)); b != nil {
				count = b.Stats().KeyN
			}
			items = append(items, model.Collection{
				ID:         rec.ID,
				Name:       rec.Name,
				Metadata:   rec.Metadata,
				ChunkCount: count,
				Ctime:      rec.Ctime,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Ctime != items[j].Ctime {
			return items[i].Ctime > items[j].Ctime
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (c *boltCollection) ID() string                         { return c.rec.ID }
func (c *boltCollection) Name() string                       { return c.rec.Name }
func (c *boltCollection) Metadata() model.CollectionMetadata { return c.rec.Metadata }

func (c *boltCollection) Count(ctx context.Context) (int, error) {
	count := 0
	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(chunkBucket(c.rec.ID))
		if b == nil {
			return appErr.ErrNotFound
		}
		count = b.Stats().KeyN
		return nil
	})
	return count, err
}

func (c *boltCollection) Add(ctx context.Context, chunks []model.Chunk) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(chunkBucket(c.rec.ID))
		if b == nil {
			return appErr.ErrNotFound
		}
		seen := make(map[string]struct{})
		base := 0
		if err := b.ForEach(func(k, v []byte) error {
			base++
			var ch model.Chunk
			if err := json.Unmarshal(v, &ch); err != nil {
				return err
			}
			seen[ch.ID] = struct{}{}
			return nil
		}); err != nil {
			return err
		}
		for i, ch := range chunks {
			if _, ok := seen[ch.ID]; ok {
				return fmt.Errorf("%w: chunk %q exists", appErr.ErrConflict, ch.ID)
			}
			seen[ch.ID] = struct{}{}
			ch.Position = base + i
			raw, err := json.Marshal(ch)
			if err != nil {
				return err
			}
			if err := b.Put(positionKey(ch.Position), raw); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *boltCollection) Query(ctx context.Context, vector []float32, n int) ([]Neighbor, error) {
	items := make([]scored, 0)
	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(chunkBucket(c.rec.ID))
		if b == nil {
			return appErr.ErrNotFound
		}
		return b.ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var ch model.Chunk
			if err := json.Unmarshal(v, &ch); err != nil {
				return err
			}
			d, err := score(vector, ch.Embedding)
			if err != nil {
				return fmt.Errorf("chunk %s: %w", ch.ID, err)
			}
			items = append(items, scored{id: ch.ID, content: ch.Text, position: ch.Position, distance: d})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rank(items, n), nil
}

func loadCollection(tx *bbolt.Tx, id string, rec *boltCollectionRecord) error {
	raw := tx.Bucket(bucketCollections).Get([]byte(id))
	if raw == nil {
		return appErr.ErrNotFound
	}
	return json.Unmarshal(raw, rec)
}

func chunkBucket(id string) []byte {
	return []byte(chunkBucketPrefix + id)
}

func positionKey(pos int) []byte {
	return []byte(fmt.Sprintf("%012d", pos))
}

func init() {
	Register("bolt", func(args FactoryArgs) (Store, error) {
		cfg := &boltConfig{}
		if err := decodeConfig(args.Data, cfg); err != nil {
			return nil, err
		}
		return NewBoltStore(cfg.Path)
	})
}
