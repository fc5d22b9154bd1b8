package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// lookupFunc returns a cached vector for index i, if any.
type lookupFunc func(ctx context.Context, i int) ([]float32, bool, error)

// fillMisses resolves every text either from cache or through embed,
// which is called once with only the missing texts. Order is kept.
func fillMisses(ctx context.Context, texts []string, lookup lookupFunc, embed func(ctx context.Context, texts []string) ([][]float32, error)) ([][]float32, []int, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		values, ok, err := lookup(ctx, i)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			out[i] = values
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return out, nil, nil
	}
	res, err := embed(ctx, missTexts)
	if err != nil {
		return nil, nil, err
	}
	if len(res) != len(missTexts) {
		return nil, nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(missTexts), len(res))
	}
	for j, idx := range missIdx {
		out[idx] = res[j]
	}
	return out, missIdx, nil
}

func buildCacheKey(modelName, text string) (string, string, string) {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		modelName = "unknown"
	}
	hash := sha256.Sum256([]byte(text))
	contentHash := hex.EncodeToString(hash[:])
	return "embed:" + modelName + ":" + contentHash, contentHash, modelName
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
