package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/embedlab/internal/ai"
	"github.com/xxxsen/embedlab/internal/model"
	appErr "github.com/xxxsen/embedlab/internal/pkg/errors"
	"github.com/xxxsen/embedlab/internal/vectorstore"
)

const DefaultMaxResults = 10

// EmbedderResolver returns the embedder bound to a model.
type EmbedderResolver interface {
	Resolve(m model.EmbeddingModel) (ai.IEmbedder, error)
}

// PassageWriter produces the hypothetical answer used by Hyde.
type PassageWriter interface {
	WriteHypotheticalAnswer(ctx context.Context, question string) (string, error)
}

type Config struct {
	MaxResults int
	// StoreTimeout bounds each vector store call.
	StoreTimeout time.Duration
}

type Orchestrator struct {
	embedders EmbedderResolver
	writer    PassageWriter
	cfg       Config
}

func NewOrchestrator(embedders EmbedderResolver, writer PassageWriter, cfg Config) *Orchestrator {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	return &Orchestrator{embedders: embedders, writer: writer, cfg: cfg}
}

func (o *Orchestrator) MaxResults() int {
	return o.cfg.MaxResults
}

// Retrieve runs query against coll using the method and model recorded
// in meta. k caps the result count; values outside 1..MaxResults use
// MaxResults. Results keep the order returned by the store.
func (o *Orchestrator) Retrieve(ctx context.Context, query string, meta model.CollectionMetadata, coll vectorstore.Collection, k int) ([]model.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query content is empty", appErr.ErrInvalid)
	}
	method, err := ParseMethod(meta.RetrievalMethod)
	if err != nil {
		return nil, err
	}
	embedder, err := o.embedders.Resolve(meta.EmbeddingModel)
	if err != nil {
		return nil, err
	}
	if k <= 0 || k > o.cfg.MaxResults {
		k = o.cfg.MaxResults
	}
	size, err := storeCall(ctx, o.cfg.StoreTimeout, coll.Count)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, fmt.Errorf("%w: %s", appErr.ErrEmptyCollection, coll.ID())
	}
	n := min(size, k)

	text, err := o.searchText(ctx, method, query)
	if err != nil {
		return nil, err
	}
	vectors, err := embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: %s returned %d vectors for 1 text", appErr.ErrProvider, embedder.ModelName(), len(vectors))
	}
	neighbors, err := storeCall(ctx, o.cfg.StoreTimeout, func(ctx context.Context) ([]vectorstore.Neighbor, error) {
		return coll.Query(ctx, vectors[0], n)
	})
	if err != nil {
		return nil, err
	}
	results := make([]model.Result, 0, len(neighbors))
	for _, nb := range neighbors {
		if nb.Distance == nil {
			return nil, fmt.Errorf("%w: chunk %s", appErr.ErrMissingDistance, nb.ID)
		}
		results = append(results, model.Result{Content: nb.Content, Distance: *nb.Distance})
	}
	logutil.GetLogger(ctx).Debug("retrieve finished",
		zap.String("collection", coll.ID()),
		zap.String("method", string(method.Name())),
		zap.String("model", string(meta.EmbeddingModel)),
		zap.Int("requested", n),
		zap.Int("returned", len(results)),
	)
	return results, nil
}

// searchText picks the text to embed for method.
func (o *Orchestrator) searchText(ctx context.Context, method Method, query string) (string, error) {
	switch method.(type) {
	case Similarity, ChunkSummarization:
		return query, nil
	case Hyde:
		if o.writer == nil {
			return "", fmt.Errorf("%w: no generator configured", appErr.ErrGenerationFailure)
		}
		passage, err := o.writer.WriteHypotheticalAnswer(ctx, query)
		if err != nil {
			return "", fmt.Errorf("%w: %w", appErr.ErrGenerationFailure, err)
		}
		passage = strings.TrimSpace(passage)
		if passage == "" {
			return "", fmt.Errorf("%w: empty passage", appErr.ErrGenerationFailure)
		}
		return passage, nil
	default:
		return "", fmt.Errorf("%w: %T", appErr.ErrUnsupportedRetrievalMethod, method)
	}
}

// storeCall applies the per-call timeout to a vector store operation. A
// timeout is reported as a provider failure.
func storeCall[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	res, err := fn(callCtx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		var zero T
		return zero, fmt.Errorf("%w: vector store: %w", appErr.ErrProvider, err)
	}
	return res, err
}
