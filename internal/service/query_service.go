package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/embedlab/internal/model"
	appErr "github.com/xxxsen/embedlab/internal/pkg/errors"
	"github.com/xxxsen/embedlab/internal/retrieval"
	"github.com/xxxsen/embedlab/internal/vectorstore"
)

type QueryService struct {
	store        vectorstore.Store
	orchestrator *retrieval.Orchestrator
}

func NewQueryService(store vectorstore.Store, orchestrator *retrieval.Orchestrator) *QueryService {
	return &QueryService{store: store, orchestrator: orchestrator}
}

// Query retrieves from the collection named in q using the method and
// model it was built with. topK <= 0 uses the configured maximum.
func (s *QueryService) Query(ctx context.Context, q model.Query, topK int) ([]model.Result, error) {
	id := strings.TrimSpace(q.CollectionID)
	if id == "" {
		return nil, fmt.Errorf("%w: collection_id is required", appErr.ErrInvalid)
	}
	coll, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.orchestrator.Retrieve(ctx, q.Content, coll.Metadata(), coll, topK)
}
