package ai

import (
	"fmt"

	"github.com/xxxsen/embedlab/internal/model"
	appErr "github.com/xxxsen/embedlab/internal/pkg/errors"
)

// EmbedderSet holds one embedder per supported embedding model. It is
// built once at startup; requests only look models up.
type EmbedderSet struct {
	items map[model.EmbeddingModel]IEmbedder
}

func NewEmbedderSet(items map[model.EmbeddingModel]IEmbedder) *EmbedderSet {
	copied := make(map[model.EmbeddingModel]IEmbedder, len(items))
	for k, v := range items {
		if v == nil {
			continue
		}
		copied[k] = v
	}
	return &EmbedderSet{items: copied}
}

func (s *EmbedderSet) Resolve(m model.EmbeddingModel) (IEmbedder, error) {
	if !m.Supported() {
		return nil, fmt.Errorf("%w: %q", appErr.ErrUnsupportedModel, m)
	}
	e, ok := s.items[m]
	if !ok {
		return nil, fmt.Errorf("%w: %q has no embedder", appErr.ErrUnsupportedModel, m)
	}
	return e, nil
}
