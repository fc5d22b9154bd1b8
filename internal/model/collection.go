package model

type RetrievalMethod string

const (
	RetrievalMethodSimilarity         RetrievalMethod = "query-similarity"
	RetrievalMethodHyde               RetrievalMethod = "hyde"
	RetrievalMethodChunkSummarization RetrievalMethod = "chunk-summarization"
)

// CollectionMetadata is fixed when a collection is created.
type CollectionMetadata struct {
	EmbeddingModel  EmbeddingModel  `json:"embedding_model" yaml:"embedding_model"`
	RetrievalMethod RetrievalMethod `json:"retrieval_method" yaml:"retrieval_method"`
	ChunkSize       int             `json:"chunk_size" yaml:"chunk_size"`
	Name            string          `json:"name" yaml:"name"`
}

type Collection struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Metadata   CollectionMetadata `json:"metadata"`
	ChunkCount int                `json:"chunk_count"`
	Ctime      int64              `json:"ctime"`
}

type Chunk struct {
	ID        string    `json:"id"`
	Position  int       `json:"position"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
}

type Query struct {
	Content      string `json:"content"`
	CollectionID string `json:"collection_id"`
}

// Result distances are only comparable within one collection.
type Result struct {
	Content  string  `json:"content"`
	Distance float64 `json:"distance"`
}
