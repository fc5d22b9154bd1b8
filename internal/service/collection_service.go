package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xxxsen/embedlab/internal/filestore"
	"github.com/xxxsen/embedlab/internal/model"
	appErr "github.com/xxxsen/embedlab/internal/pkg/errors"
	"github.com/xxxsen/embedlab/internal/vectorstore"
)

type CollectionService struct {
	store vectorstore.Store
	files filestore.Store
}

func NewCollectionService(store vectorstore.Store, files filestore.Store) *CollectionService {
	return &CollectionService{store: store, files: files}
}

func (s *CollectionService) List(ctx context.Context) ([]model.Collection, error) {
	return s.store.List(ctx)
}

func (s *CollectionService) Get(ctx context.Context, id string) (*model.Collection, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, appErr.ErrInvalid
	}
	coll, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := coll.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &model.Collection{
		ID:         coll.ID(),
		Name:       coll.Name(),
		Metadata:   coll.Metadata(),
		ChunkCount: count,
	}, nil
}

// Source describes where a collection's source document can be read.
// Exactly one of Reader and URL is set.
type Source struct {
	Key    string
	Reader filestore.ReadSeekCloser
	URL    string
}

func (s *CollectionService) OpenSource(ctx context.Context, id string) (*Source, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	if s.files == nil {
		return nil, appErr.ErrNotFound
	}
	key := SourceKey(id)
	if linker, ok := s.files.(filestore.Linker); ok {
		return &Source{Key: key, URL: linker.URL(key)}, nil
	}
	r, err := s.files.Open(ctx, key)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("open source %s: %w", key, err)
	}
	return &Source{Key: key, Reader: r}, nil
}
