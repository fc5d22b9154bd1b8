package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/embedlab/internal/ai"
	"github.com/xxxsen/embedlab/internal/model"
	appErr "github.com/xxxsen/embedlab/internal/pkg/errors"
	"github.com/xxxsen/embedlab/internal/vectorstore"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	calls   [][]string
	err     error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, append([]string(nil), texts...))
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, ok := f.vectors[text]
		if !ok {
			v = []float32{1, 1, 1}
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeEmbedder) ModelName() string {
	return "fake"
}

type fakeResolver struct {
	embedder ai.IEmbedder
}

func (r fakeResolver) Resolve(m model.EmbeddingModel) (ai.IEmbedder, error) {
	if !m.Supported() {
		return nil, appErr.ErrUnsupportedModel
	}
	return r.embedder, nil
}

type fakeWriter struct {
	passage string
	err     error
	calls   int
}

func (w *fakeWriter) WriteHypotheticalAnswer(ctx context.Context, question string) (string, error) {
	w.calls++
	return w.passage, w.err
}

type countingCollection struct {
	vectorstore.Collection
	queries int
}

func (c *countingCollection) Query(ctx context.Context, vector []float32, n int) ([]vectorstore.Neighbor, error) {
	c.queries++
	return c.Collection.Query(ctx, vector, n)
}

func petCollection(t *testing.T, method model.RetrievalMethod) (*countingCollection, model.CollectionMetadata) {
	t.Helper()
	meta := model.CollectionMetadata{
		EmbeddingModel:  model.EmbeddingModelOpenAIAda002,
		RetrievalMethod: method,
		ChunkSize:       500,
	}
	ctx := context.Background()
	coll, err := vectorstore.NewMemoryStore().Create(ctx, "", meta)
	require.NoError(t, err)
	require.NoError(t, coll.Add(ctx, []model.Chunk{
		{ID: "1", Text: "cats are great", Embedding: []float32{0.9, 0.1, 0}},
		{ID: "2", Text: "dogs are loyal", Embedding: []float32{0.7, 0.7, 0}},
		{ID: "3", Text: "fish swim", Embedding: []float32{0, 0.2, 1}},
	}))
	return &countingCollection{Collection: coll}, meta
}

func petEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vectors: map[string][]float32{
		"pets":              {1, 0, 0},
		"pets are animals.": {0, 0, 1},
	}}
}

func TestRetrieve_SimilarityReturnsAllChunksInOrder(t *testing.T) {
	coll, meta := petCollection(t, model.RetrievalMethodSimilarity)
	emb := petEmbedder()
	o := NewOrchestrator(fakeResolver{embedder: emb}, nil, Config{})

	res, err := o.Retrieve(context.Background(), "pets", meta, coll, 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	require.Equal(t, "cats are great", res[0].Content)
	require.Equal(t, "dogs are loyal", res[1].Content)
	require.Equal(t, "fish swim", res[2].Content)
	for i := 1; i < len(res); i++ {
		require.LessOrEqual(t, res[i-1].Distance, res[i].Distance)
	}
	require.Equal(t, [][]string{{"pets"}}, emb.calls)
}

func TestRetrieve_CapsAtCollectionSize(t *testing.T) {
	coll, meta := petCollection(t, model.RetrievalMethodSimilarity)
	o := NewOrchestrator(fakeResolver{embedder: petEmbedder()}, nil, Config{MaxResults: 10})

	res, err := o.Retrieve(context.Background(), "pets", meta, coll, 10)
	require.NoError(t, err)
	require.Len(t, res, 3)

	res, err = o.Retrieve(context.Background(), "pets", meta, coll, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
}

func TestRetrieve_EmptyCollection(t *testing.T) {
	meta := model.CollectionMetadata{EmbeddingModel: model.EmbeddingModelCohereEnglish, RetrievalMethod: model.RetrievalMethodSimilarity}
	coll, err := vectorstore.NewMemoryStore().Create(context.Background(), "", meta)
	require.NoError(t, err)
	emb := petEmbedder()
	o := NewOrchestrator(fakeResolver{embedder: emb}, nil, Config{})

	res, err := o.Retrieve(context.Background(), "pets", meta, coll, 3)
	require.ErrorIs(t, err, appErr.ErrEmptyCollection)
	require.Nil(t, res)
	require.Empty(t, emb.calls)
}

func TestRetrieve_HydeEmbedsGeneratedPassage(t *testing.T) {
	coll, meta := petCollection(t, model.RetrievalMethodHyde)
	emb := petEmbedder()
	writer := &fakeWriter{passage: "pets are animals."}
	o := NewOrchestrator(fakeResolver{embedder: emb}, writer, Config{})

	res, err := o.Retrieve(context.Background(), "pets", meta, coll, 3)
	require.NoError(t, err)
	require.Equal(t, 1, writer.calls)
	require.Equal(t, [][]string{{"pets are animals."}}, emb.calls)
	require.Equal(t, "fish swim", res[0].Content)
}

func TestRetrieve_HydeGenerationFailureSkipsEmbedAndSearch(t *testing.T) {
	cases := map[string]*fakeWriter{
		"empty":   {passage: "  "},
		"error":   {err: errors.New("upstream down")},
		"missing": nil,
	}
	for name, writer := range cases {
		t.Run(name, func(t *testing.T) {
			coll, meta := petCollection(t, model.RetrievalMethodHyde)
			emb := petEmbedder()
			var w PassageWriter
			if writer != nil {
				w = writer
			}
			o := NewOrchestrator(fakeResolver{embedder: emb}, w, Config{})

			_, err := o.Retrieve(context.Background(), "pets", meta, coll, 3)
			require.ErrorIs(t, err, appErr.ErrGenerationFailure)
			require.Empty(t, emb.calls)
			require.Zero(t, coll.queries)
		})
	}
}

func TestRetrieve_ChunkSummarizationEmbedsQuery(t *testing.T) {
	coll, meta := petCollection(t, model.RetrievalMethodChunkSummarization)
	emb := petEmbedder()
	writer := &fakeWriter{passage: "unused"}
	o := NewOrchestrator(fakeResolver{embedder: emb}, writer, Config{})

	res, err := o.Retrieve(context.Background(), "pets", meta, coll, 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	require.Zero(t, writer.calls)
	require.Equal(t, [][]string{{"pets"}}, emb.calls)
}

func TestRetrieve_RejectsUnknownInputs(t *testing.T) {
	coll, meta := petCollection(t, model.RetrievalMethodSimilarity)
	emb := petEmbedder()
	o := NewOrchestrator(fakeResolver{embedder: emb}, nil, Config{})
	ctx := context.Background()

	badMethod := meta
	badMethod.RetrievalMethod = "mmr"
	_, err := o.Retrieve(ctx, "pets", badMethod, coll, 3)
	require.ErrorIs(t, err, appErr.ErrUnsupportedRetrievalMethod)

	badModel := meta
	badModel.EmbeddingModel = "text-embedding-3-large"
	_, err = o.Retrieve(ctx, "pets", badModel, coll, 3)
	require.ErrorIs(t, err, appErr.ErrUnsupportedModel)

	_, err = o.Retrieve(ctx, "   ", meta, coll, 3)
	require.ErrorIs(t, err, appErr.ErrInvalid)

	require.Empty(t, emb.calls)
	require.Zero(t, coll.queries)
}

func TestRetrieve_MissingDistance(t *testing.T) {
	meta := model.CollectionMetadata{EmbeddingModel: model.EmbeddingModelOpenAIAda002}
	coll, err := vectorstore.NewMemoryStore().Create(context.Background(), "", meta)
	require.NoError(t, err)
	require.NoError(t, coll.Add(context.Background(), []model.Chunk{{ID: "a", Text: "unembedded"}}))
	o := NewOrchestrator(fakeResolver{embedder: petEmbedder()}, nil, Config{})

	_, err = o.Retrieve(context.Background(), "pets", meta, coll, 3)
	require.ErrorIs(t, err, appErr.ErrMissingDistance)
}

func TestRetrieve_EmbedFailurePropagates(t *testing.T) {
	coll, meta := petCollection(t, model.RetrievalMethodSimilarity)
	emb := &fakeEmbedder{err: appErr.ErrProvider}
	o := NewOrchestrator(fakeResolver{embedder: emb}, nil, Config{})

	_, err := o.Retrieve(context.Background(), "pets", meta, coll, 3)
	require.ErrorIs(t, err, appErr.ErrProvider)
	require.Zero(t, coll.queries)
}

type slowCollection struct {
	vectorstore.Collection
}

func (c slowCollection) Count(ctx context.Context) (int, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func TestRetrieve_StoreTimeoutIsProviderError(t *testing.T) {
	coll, meta := petCollection(t, model.RetrievalMethodSimilarity)
	o := NewOrchestrator(fakeResolver{embedder: petEmbedder()}, nil, Config{StoreTimeout: 10 * time.Millisecond})

	_, err := o.Retrieve(context.Background(), "pets", meta, slowCollection{Collection: coll}, 3)
	require.ErrorIs(t, err, appErr.ErrProvider)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("")
	require.NoError(t, err)
	require.Equal(t, Similarity{}, m)

	m, err = ParseMethod("hyde")
	require.NoError(t, err)
	require.Equal(t, Hyde{}, m)

	m, err = ParseMethod("chunk-summarization")
	require.NoError(t, err)
	require.Equal(t, ChunkSummarization{}, m)

	name, err := Normalize("similarity")
	require.NoError(t, err)
	require.Equal(t, model.RetrievalMethodSimilarity, name)

	_, err = ParseMethod("rerank")
	require.ErrorIs(t, err, appErr.ErrUnsupportedRetrievalMethod)
}

func TestParseMethod_RequiresExactNames(t *testing.T) {
	for _, name := range []model.RetrievalMethod{"HYDE", "HyDE", " hyde ", "Query-Similarity", "similarity ", "chunk_summarization"} {
		_, err := ParseMethod(name)
		require.ErrorIs(t, err, appErr.ErrUnsupportedRetrievalMethod, string(name))
	}
}
