package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/embedlab/internal/chunker"
	"github.com/xxxsen/embedlab/internal/filestore"
	"github.com/xxxsen/embedlab/internal/model"
	appErr "github.com/xxxsen/embedlab/internal/pkg/errors"
	"github.com/xxxsen/embedlab/internal/retrieval"
	"github.com/xxxsen/embedlab/internal/vectorstore"
)

// Summarizer condenses one chunk for chunk-summarization collections.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

type IngestConfig struct {
	MinChunkSize int
	MaxChunkSize int
}

type IngestService struct {
	store      vectorstore.Store
	embedders  retrieval.EmbedderResolver
	summarizer Summarizer
	files      filestore.Store
	cfg        IngestConfig
}

func NewIngestService(store vectorstore.Store, embedders retrieval.EmbedderResolver, summarizer Summarizer, files filestore.Store, cfg IngestConfig) *IngestService {
	if cfg.MinChunkSize <= 0 {
		cfg.MinChunkSize = 1
	}
	return &IngestService{store: store, embedders: embedders, summarizer: summarizer, files: files, cfg: cfg}
}

// SourceFile is an uploaded document.
type SourceFile struct {
	Name        string
	ContentType string
	Size        int64
	Reader      filestore.ReadSeekCloser
}

type IngestInput struct {
	Metadata model.CollectionMetadata
	Text     string
	File     *SourceFile
	// Sample selects the built-in corpus even when Text or File is set.
	Sample bool
}

// CreateCollection splits the input, embeds every chunk and stores them
// in a new collection named by a fresh id. Nothing is stored unless all
// chunks were embedded.
func (s *IngestService) CreateCollection(ctx context.Context, in IngestInput) (*model.Collection, error) {
	meta, err := s.validateMetadata(in.Metadata)
	if err != nil {
		return nil, err
	}
	content, raw, err := s.readContent(in)
	if err != nil {
		return nil, err
	}
	chunks, err := s.buildChunks(ctx, chunker.ForChunkSize(meta.ChunkSize).Split(content), meta)
	if err != nil {
		return nil, err
	}
	coll, err := s.store.Create(ctx, "", meta)
	if err != nil {
		return nil, err
	}
	if err := coll.Add(ctx, chunks); err != nil {
		return nil, err
	}
	s.saveSource(ctx, coll.ID(), raw)
	logutil.GetLogger(ctx).Info("collection created",
		zap.String("collection", coll.ID()),
		zap.String("model", string(meta.EmbeddingModel)),
		zap.String("method", string(meta.RetrievalMethod)),
		zap.Int("chunk_size", meta.ChunkSize),
		zap.Int("chunks", len(chunks)),
	)
	return &model.Collection{
		ID:         coll.ID(),
		Name:       coll.Name(),
		Metadata:   coll.Metadata(),
		ChunkCount: len(chunks),
	}, nil
}

// Populate appends content to an existing collection using its stored
// metadata. It backs comparison seeding, which cuts plain chunk_size
// slices instead of running the recursive splitter.
func (s *IngestService) Populate(ctx context.Context, coll vectorstore.Collection, content string) (int, error) {
	meta := coll.Metadata()
	chunks, err := s.buildChunks(ctx, chunker.FixedSplit(content, meta.ChunkSize), meta)
	if err != nil {
		return 0, err
	}
	if err := coll.Add(ctx, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

func (s *IngestService) validateMetadata(meta model.CollectionMetadata) (model.CollectionMetadata, error) {
	meta.EmbeddingModel = model.EmbeddingModel(strings.TrimSpace(string(meta.EmbeddingModel)))
	if !meta.EmbeddingModel.Supported() {
		return meta, fmt.Errorf("%w: %q", appErr.ErrUnsupportedModel, meta.EmbeddingModel)
	}
	method, err := retrieval.Normalize(meta.RetrievalMethod)
	if err != nil {
		return meta, err
	}
	meta.RetrievalMethod = method
	if meta.ChunkSize < s.cfg.MinChunkSize || (s.cfg.MaxChunkSize > 0 && meta.ChunkSize > s.cfg.MaxChunkSize) {
		return meta, fmt.Errorf("%w: chunk_size must be within %d..%d", appErr.ErrInvalid, s.cfg.MinChunkSize, s.cfg.MaxChunkSize)
	}
	meta.Name = strings.TrimSpace(meta.Name)
	return meta, nil
}

// readContent returns the text to split plus the raw bytes kept as the
// collection source.
func (s *IngestService) readContent(in IngestInput) (string, []byte, error) {
	if in.Sample || (in.File == nil && in.Text == "") {
		content := normalizeNewlines(SampleCorpus())
		return content, []byte(content), nil
	}
	if in.File == nil {
		content := normalizeNewlines(in.Text)
		if strings.TrimSpace(content) == "" {
			return "", nil, fmt.Errorf("%w: file or text is required", appErr.ErrInvalid)
		}
		return content, []byte(content), nil
	}
	raw, err := io.ReadAll(in.File.Reader)
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	head := raw
	if len(head) > 512 {
		head = head[:512]
	}
	kind, err := detectKind(in.File.Name, in.File.ContentType, head)
	if err != nil {
		return "", nil, err
	}
	content, err := extractText(kind, raw)
	if err != nil {
		return "", nil, err
	}
	if strings.TrimSpace(content) == "" {
		return "", nil, fmt.Errorf("%w: file has no text", appErr.ErrInvalid)
	}
	return content, raw, nil
}

// buildChunks embeds each piece of text. Chunk-summarization collections
// embed a generated summary while keeping the raw text.
func (s *IngestService) buildChunks(ctx context.Context, texts []string, meta model.CollectionMetadata) ([]model.Chunk, error) {
	method, err := retrieval.ParseMethod(meta.RetrievalMethod)
	if err != nil {
		return nil, err
	}
	embedder, err := s.embedders.Resolve(meta.EmbeddingModel)
	if err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: content produced no chunks", appErr.ErrInvalid)
	}
	inputs := texts
	if _, ok := method.(retrieval.ChunkSummarization); ok {
		inputs, err = s.summarize(ctx, texts)
		if err != nil {
			return nil, err
		}
	}
	vectors, err := embedder.Embed(ctx, inputs)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: %s returned %d vectors for %d chunks", appErr.ErrProvider, embedder.ModelName(), len(vectors), len(texts))
	}
	chunks := make([]model.Chunk, 0, len(texts))
	for i, t := range texts {
		chunks = append(chunks, model.Chunk{ID: uuid.NewString(), Position: i, Text: t, Embedding: vectors[i]})
	}
	return chunks, nil
}

func (s *IngestService) summarize(ctx context.Context, texts []string) ([]string, error) {
	if s.summarizer == nil {
		return nil, fmt.Errorf("%w: no generator configured", appErr.ErrGenerationFailure)
	}
	logger := logutil.GetLogger(ctx)
	out := make([]string, 0, len(texts))
	for i, t := range texts {
		summary, err := s.summarizer.Summarize(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("%w: summarize chunk %d: %w", appErr.ErrGenerationFailure, i, err)
		}
		if strings.TrimSpace(summary) == "" {
			return nil, fmt.Errorf("%w: empty summary for chunk %d", appErr.ErrGenerationFailure, i)
		}
		out = append(out, summary)
	}
	logger.Debug("chunks summarized", zap.Int("chunks", len(texts)))
	return out, nil
}

// saveSource keeps the extracted document next to the collection. A
// failure here does not undo the collection.
func (s *IngestService) saveSource(ctx context.Context, id string, raw []byte) {
	if s.files == nil {
		return
	}
	key := SourceKey(id)
	r := nopCloser{bytes.NewReader(raw)}
	if err := s.files.Save(ctx, key, r, int64(len(raw))); err != nil {
		logutil.GetLogger(ctx).Warn("save collection source failed", zap.String("key", key), zap.Error(err))
	}
}

// SourceKey is where a collection's uploaded document is kept. Markdown
// and plain text share the key; both are served as text.
func SourceKey(id string) string {
	return id + ".txt"
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
