package retrieval

import (
	"fmt"

	"github.com/xxxsen/embedlab/internal/model"
	appErr "github.com/xxxsen/embedlab/internal/pkg/errors"
)

// Method selects how a query is turned into the vector that is searched.
// The set is closed; see Similarity, Hyde and ChunkSummarization.
type Method interface {
	Name() model.RetrievalMethod
	isMethod()
}

// Similarity embeds the query text as is.
type Similarity struct{}

// Hyde embeds a generated passage that answers the query.
type Hyde struct{}

// ChunkSummarization searches vectors built from chunk summaries at
// ingestion. The query itself is embedded as in Similarity.
type ChunkSummarization struct{}

func (Similarity) Name() model.RetrievalMethod         { return model.RetrievalMethodSimilarity }
func (Hyde) Name() model.RetrievalMethod               { return model.RetrievalMethodHyde }
func (ChunkSummarization) Name() model.RetrievalMethod { return model.RetrievalMethodChunkSummarization }

func (Similarity) isMethod()         {}
func (Hyde) isMethod()               {}
func (ChunkSummarization) isMethod() {}

// ParseMethod maps a stored method name to its variant. Names must match
// exactly; an empty name selects Similarity and "similarity" is accepted
// as an alias.
func ParseMethod(name model.RetrievalMethod) (Method, error) {
	switch name {
	case "", model.RetrievalMethodSimilarity, "similarity":
		return Similarity{}, nil
	case model.RetrievalMethodHyde:
		return Hyde{}, nil
	case model.RetrievalMethodChunkSummarization:
		return ChunkSummarization{}, nil
	}
	return nil, fmt.Errorf("%w: %q", appErr.ErrUnsupportedRetrievalMethod, name)
}

// Normalize returns the canonical stored name for a method, or an error
// when the name is not recognized.
func Normalize(name model.RetrievalMethod) (model.RetrievalMethod, error) {
	m, err := ParseMethod(name)
	if err != nil {
		return "", err
	}
	return m.Name(), nil
}
