package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/embedlab/internal/model"
	"github.com/xxxsen/embedlab/internal/pkg/errcode"
	appErr "github.com/xxxsen/embedlab/internal/pkg/errors"
	"github.com/xxxsen/embedlab/internal/retrieval"
	"github.com/xxxsen/embedlab/internal/vectorstore"
)

type CompareConfig struct {
	TopK      int
	ChunkSize int
	Timeout   time.Duration
}

// CompareService runs one similarity pipeline per supported model
// against the collection named after that model.
type CompareService struct {
	store        vectorstore.Store
	orchestrator *retrieval.Orchestrator
	ingest       *IngestService
	models       []model.EmbeddingModel
	cfg          CompareConfig
}

func NewCompareService(store vectorstore.Store, orchestrator *retrieval.Orchestrator, ingest *IngestService, cfg CompareConfig) *CompareService {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 500
	}
	models := make([]model.EmbeddingModel, 0)
	for _, info := range model.SupportedModels() {
		models = append(models, info.Name)
	}
	return &CompareService{store: store, orchestrator: orchestrator, ingest: ingest, models: models, cfg: cfg}
}

func (s *CompareService) Models() []model.EmbeddingModel {
	return append([]model.EmbeddingModel(nil), s.models...)
}

func (s *CompareService) collectionMetadata(m model.EmbeddingModel) model.CollectionMetadata {
	return model.CollectionMetadata{
		EmbeddingModel:  m,
		RetrievalMethod: model.RetrievalMethodSimilarity,
		ChunkSize:       s.cfg.ChunkSize,
		Name:            string(m),
	}
}

// Compare returns one outcome per model in catalogue order. A failing
// model carries its error in the outcome and does not affect the others.
func (s *CompareService) Compare(ctx context.Context, query string) ([]model.ModelOutcome, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", appErr.ErrInvalid)
	}
	outcomes := make([]model.ModelOutcome, len(s.models))
	s.fanOut(ctx, func(ctx context.Context, i int, m model.EmbeddingModel) {
		outcomes[i] = s.compareOne(ctx, m, query)
	})
	return outcomes, nil
}

func (s *CompareService) compareOne(ctx context.Context, m model.EmbeddingModel, query string) model.ModelOutcome {
	out := model.ModelOutcome{Model: m, Items: []model.Output{}}
	results, err := s.retrieveFor(ctx, m, query)
	if err != nil {
		out.Code, out.Error = errcode.FromError(err)
		logutil.GetLogger(ctx).Warn("compare model failed", zap.String("model", string(m)), zap.Error(err))
		return out
	}
	for _, r := range results {
		d := r.Distance
		out.Items = append(out.Items, model.Output{Text: r.Content, Distance: &d})
	}
	return out
}

func (s *CompareService) retrieveFor(ctx context.Context, m model.EmbeddingModel, query string) ([]model.Result, error) {
	coll, err := vectorstore.GetOrCreate(ctx, s.store, string(m), s.collectionMetadata(m))
	if err != nil {
		return nil, err
	}
	meta := coll.Metadata()
	meta.EmbeddingModel = m
	meta.RetrievalMethod = model.RetrievalMethodSimilarity
	return s.orchestrator.Retrieve(ctx, query, meta, coll, s.cfg.TopK)
}

// Seed appends text to every per-model comparison collection.
func (s *CompareService) Seed(ctx context.Context, text string) ([]model.SeedOutcome, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", appErr.ErrInvalid)
	}
	if s.ingest == nil {
		return nil, fmt.Errorf("%w: ingestion not configured", appErr.ErrInternal)
	}
	outcomes := make([]model.SeedOutcome, len(s.models))
	s.fanOut(ctx, func(ctx context.Context, i int, m model.EmbeddingModel) {
		out := model.SeedOutcome{Model: m}
		coll, err := vectorstore.GetOrCreate(ctx, s.store, string(m), s.collectionMetadata(m))
		if err == nil {
			out.CollectionID = coll.ID()
			out.Chunks, err = s.ingest.Populate(ctx, coll, text)
		}
		if err != nil {
			_, out.Error = errcode.FromError(err)
			logutil.GetLogger(ctx).Warn("seed model failed", zap.String("model", string(m)), zap.Error(err))
		}
		outcomes[i] = out
	})
	return outcomes, nil
}

// fanOut runs fn for every model concurrently under the compare
// deadline. fn records its own failure; the group never cancels early.
func (s *CompareService) fanOut(ctx context.Context, fn func(ctx context.Context, i int, m model.EmbeddingModel)) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	var g errgroup.Group
	for i, m := range s.models {
		g.Go(func() error {
			fn(ctx, i, m)
			return nil
		})
	}
	_ = g.Wait()
}
