// Package chromastore keeps collections in a Chroma server. The client
// lives behind the "chroma" build tag; build with -tags chroma to
// register the "chroma" vector store type.
package chromastore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xxxsen/embedlab/internal/model"
	"github.com/xxxsen/embedlab/internal/vectorstore"
)

const (
	keyEmbeddingModel  = "embedding_model"
	keyRetrievalMethod = "retrieval_method"
	keyChunkSize       = "chunk_size"
	keyName            = "name"
	keyCtime           = "ctime"
)

const defaultURL = "http://localhost:8000"

type storeConfig struct {
	URL string `json:"url"`
}

func decodeConfig(args interface{}) (storeConfig, error) {
	var cfg storeConfig
	if args != nil {
		data, err := json.Marshal(args)
		if err != nil {
			return cfg, fmt.Errorf("encode chroma config: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode chroma config: %w", err)
		}
	}
	cfg.URL = strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if cfg.URL == "" {
		cfg.URL = defaultURL
	}
	return cfg, nil
}

// metadataAttrs flattens collection metadata into chroma string
// attributes.
func metadataAttrs(meta model.CollectionMetadata, ctime int64) map[string]string {
	return map[string]string{
		keyEmbeddingModel:  string(meta.EmbeddingModel),
		keyRetrievalMethod: string(meta.RetrievalMethod),
		keyChunkSize:       strconv.Itoa(meta.ChunkSize),
		keyName:            meta.Name,
		keyCtime:           strconv.FormatInt(ctime, 10),
	}
}

func metadataFrom(get func(key string) (string, bool)) (model.CollectionMetadata, int64) {
	value := func(key string) string {
		v, _ := get(key)
		return v
	}
	meta := model.CollectionMetadata{
		EmbeddingModel:  model.EmbeddingModel(value(keyEmbeddingModel)),
		RetrievalMethod: model.RetrievalMethod(value(keyRetrievalMethod)),
		Name:            value(keyName),
	}
	meta.ChunkSize, _ = strconv.Atoi(value(keyChunkSize))
	ctime, _ := strconv.ParseInt(value(keyCtime), 10, 64)
	return meta, ctime
}

// neighbors zips one query group. A row past the end of distances has no
// distance, which retrieval reports as MissingDistance.
func neighbors(ids, docs []string, distances []float64) []vectorstore.Neighbor {
	out := make([]vectorstore.Neighbor, 0, len(ids))
	for i, id := range ids {
		nb := vectorstore.Neighbor{ID: id}
		if i < len(docs) {
			nb.Content = docs[i]
		}
		if i < len(distances) {
			d := distances[i]
			nb.Distance = &d
		}
		out = append(out, nb)
	}
	return out
}
