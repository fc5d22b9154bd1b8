package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/embedlab/internal/ai"
	"github.com/xxxsen/embedlab/internal/filestore"
	"github.com/xxxsen/embedlab/internal/handler"
	"github.com/xxxsen/embedlab/internal/model"
	"github.com/xxxsen/embedlab/internal/pkg/errcode"
	appErr "github.com/xxxsen/embedlab/internal/pkg/errors"
	"github.com/xxxsen/embedlab/internal/pkg/jwt"
	"github.com/xxxsen/embedlab/internal/retrieval"
	"github.com/xxxsen/embedlab/internal/service"
	"github.com/xxxsen/embedlab/internal/vectorstore"
)

const petText = "cats are great\n\ndogs are loyal\n\nfish swim"

// seedText is cut into 14-character comparison chunks.
const seedText = "cats are great" + "dogs are loyal" + "fish swim fast"

var ingestSecret = []byte("ingest-secret")

type keywordEmbedder struct {
	err error
}

func (e *keywordEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		lower := strings.ToLower(text)
		out = append(out, []float32{
			float32(strings.Count(lower, "cat")) + 0.01,
			float32(strings.Count(lower, "dog")) + 0.01,
			float32(strings.Count(lower, "fish")) + 0.01,
		})
	}
	return out, nil
}

func (e *keywordEmbedder) ModelName() string { return "keyword" }

type resolver map[model.EmbeddingModel]ai.IEmbedder

func (r resolver) Resolve(m model.EmbeddingModel) (ai.IEmbedder, error) {
	e, ok := r[m]
	if !ok {
		return nil, appErr.ErrUnsupportedModel
	}
	return e, nil
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T, failing model.EmbeddingModel) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := vectorstore.NewMemoryStore()
	files := filestore.NewLocalStore(t.TempDir())
	embedders := resolver{}
	for _, info := range model.SupportedModels() {
		e := &keywordEmbedder{}
		if info.Name == failing {
			e.err = appErr.ErrProvider
		}
		embedders[info.Name] = e
	}
	orch := retrieval.NewOrchestrator(embedders, nil, retrieval.Config{MaxResults: 10})
	ingest := service.NewIngestService(store, embedders, nil, files, service.IngestConfig{MinChunkSize: 10, MaxChunkSize: 2000})
	collections := service.NewCollectionService(store, files)
	compare := service.NewCompareService(store, orch, ingest, service.CompareConfig{TopK: 3, ChunkSize: 14, Timeout: time.Second})

	r := gin.New()
	api := r.Group("/api/v1")
	handler.RegisterRoutes(api, handler.RouterDeps{
		Models:       handler.NewModelHandler(),
		Collections:  handler.NewCollectionHandler(ingest, collections, 1024),
		Query:        handler.NewQueryHandler(service.NewQueryService(store, orch)),
		Compare:      handler.NewCompareHandler(compare),
		IngestSecret: ingestSecret,
	})
	return r
}

func ingestToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.GenerateToken("tests", jwt.ScopeIngest, ingestSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}, token string) envelope {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	return env
}

func uploadCollection(t *testing.T, r http.Handler, meta string, fileName string, file []byte, text string, token string) envelope {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("collection_metadata", meta))
	if text != "" {
		require.NoError(t, w.WriteField("text", text))
	}
	if file != nil {
		part, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/collections", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	return env
}

type createdCollection struct {
	CollectionID string           `json:"collection_id"`
	Collection   model.Collection `json:"collection"`
}

func TestModels(t *testing.T) {
	r := setupRouter(t, "")
	env := doJSON(t, r, http.MethodGet, "/api/v1/models", nil, "")
	require.Equal(t, 0, env.Code)
	var data struct {
		Items            []model.ModelInfo       `json:"items"`
		RetrievalMethods []model.RetrievalMethod `json:"retrieval_methods"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Items, 3)
	require.Equal(t, model.EmbeddingModelOpenAIAda002, data.Items[0].Name)
	require.Contains(t, data.RetrievalMethods, model.RetrievalMethodHyde)
}

func TestCollections_IngestAndQuery(t *testing.T) {
	r := setupRouter(t, "")
	meta := `{"embedding_model":"text-embedding-ada-002","retrieval_method":"query-similarity","chunk_size":20,"name":"pets"}`

	env := uploadCollection(t, r, meta, "", nil, petText, "")
	require.Equal(t, errcode.ErrUnauthorized, env.Code)

	env = uploadCollection(t, r, meta, "", nil, petText, ingestToken(t))
	require.Equal(t, 0, env.Code, env.Msg)
	var created createdCollection
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotEmpty(t, created.CollectionID)
	require.Equal(t, 3, created.Collection.ChunkCount)

	env = doJSON(t, r, http.MethodGet, "/api/v1/collections", nil, "")
	require.Equal(t, 0, env.Code)
	var listed struct {
		Items []model.Collection `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed.Items, 1)
	require.Equal(t, "pets", listed.Items[0].Metadata.Name)

	env = doJSON(t, r, http.MethodPost, "/api/v1/query", map[string]interface{}{
		"content":       "fish",
		"collection_id": created.CollectionID,
		"top_k":         2,
	}, "")
	require.Equal(t, 0, env.Code, env.Msg)
	var queried struct {
		Results []model.Result `json:"results"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &queried))
	require.Len(t, queried.Results, 2)
	require.Equal(t, "fish swim", queried.Results[0].Content)
	require.LessOrEqual(t, queried.Results[0].Distance, queried.Results[1].Distance)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/collections/"+created.CollectionID+"/source", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, petText, resp.Body.String())
}

func TestCollections_Errors(t *testing.T) {
	r := setupRouter(t, "")
	token := ingestToken(t)

	env := uploadCollection(t, r, `{"embedding_model":"bert","chunk_size":20}`, "", nil, petText, token)
	require.Equal(t, errcode.ErrUnsupportedModel, env.Code)

	env = uploadCollection(t, r, `{"embedding_model":"text-embedding-ada-002","retrieval_method":"mmr","chunk_size":20}`, "", nil, petText, token)
	require.Equal(t, errcode.ErrUnsupportedRetrievalMethod, env.Code)

	env = uploadCollection(t, r, `not json`, "", nil, petText, token)
	require.Equal(t, errcode.ErrInvalid, env.Code)

	env = uploadCollection(t, r, `{"embedding_model":"text-embedding-ada-002","chunk_size":20}`, "big.txt", bytes.Repeat([]byte("a"), 2048), "", token)
	require.Equal(t, errcode.ErrInvalidFile, env.Code)

	env = doJSON(t, r, http.MethodGet, "/api/v1/collections/missing", nil, "")
	require.Equal(t, errcode.ErrNotFound, env.Code)

	env = doJSON(t, r, http.MethodPost, "/api/v1/query", map[string]interface{}{"content": "fish", "collection_id": "missing"}, "")
	require.Equal(t, errcode.ErrNotFound, env.Code)

	env = doJSON(t, r, http.MethodPost, "/api/v1/query", map[string]interface{}{"content": "fish"}, "")
	require.Equal(t, errcode.ErrInvalid, env.Code)
}

func TestCollections_MarkdownUpload(t *testing.T) {
	r := setupRouter(t, "")
	md := []byte("# Fish\n\nfish **swim** fast\n")
	env := uploadCollection(t, r, `{"embedding_model":"embed-english-v2.0","chunk_size":100}`, "notes.md", md, "", ingestToken(t))
	require.Equal(t, 0, env.Code, env.Msg)
	var created struct {
		Collection model.Collection `json:"collection"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.Equal(t, 1, created.Collection.ChunkCount)
	require.Equal(t, model.RetrievalMethodSimilarity, created.Collection.Metadata.RetrievalMethod)
}

func TestCollections_SampleCorpusUpload(t *testing.T) {
	r := setupRouter(t, "")
	env := uploadCollection(t, r, `{"embedding_model":"text-embedding-ada-002","chunk_size":500}`, "", nil, "", ingestToken(t))
	require.Equal(t, 0, env.Code, env.Msg)
	var created createdCollection
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.Greater(t, created.Collection.ChunkCount, 1)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/collections/"+created.CollectionID+"/source", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, service.SampleCorpus(), resp.Body.String())
}

func TestCompare_SeedAndIsolateFailure(t *testing.T) {
	r := setupRouter(t, model.EmbeddingModelPalmGecko)

	env := doJSON(t, r, http.MethodPost, "/api/v1/compare/collections", map[string]string{"text": seedText}, "")
	require.Equal(t, errcode.ErrUnauthorized, env.Code)

	env = doJSON(t, r, http.MethodPost, "/api/v1/compare/collections", map[string]string{"text": seedText}, ingestToken(t))
	require.Equal(t, 0, env.Code, env.Msg)
	var seeded struct {
		Items []model.SeedOutcome `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &seeded))
	require.Len(t, seeded.Items, 3)

	env = doJSON(t, r, http.MethodPost, "/api/v1/compare", map[string]string{"query": "dogs"}, "")
	require.Equal(t, 0, env.Code, env.Msg)
	var compared struct {
		Results map[model.EmbeddingModel]struct {
			Items []model.Output `json:"items"`
			Error string         `json:"error"`
			Code  int            `json:"code"`
		} `json:"results"`
		Order []model.EmbeddingModel `json:"order"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &compared))
	require.Len(t, compared.Order, 3)
	require.Len(t, compared.Results, 3)

	ok := compared.Results[model.EmbeddingModelOpenAIAda002]
	require.Empty(t, ok.Error)
	require.Len(t, ok.Items, 3)
	require.Equal(t, "dogs are loyal", ok.Items[0].Text)

	failed := compared.Results[model.EmbeddingModelPalmGecko]
	require.NotEmpty(t, failed.Error)
	require.Empty(t, failed.Items)

	env = doJSON(t, r, http.MethodPost, "/api/v1/compare", map[string]string{"query": "  "}, "")
	require.Equal(t, errcode.ErrInvalid, env.Code)
}
