package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xxxsen/embedlab/internal/ai"
	"github.com/xxxsen/embedlab/internal/model"
	appErr "github.com/xxxsen/embedlab/internal/pkg/errors"
)

// keywordEmbedder maps a text to a 3-d vector by counting keywords, so
// distances in tests are predictable.
type keywordEmbedder struct {
	mu    sync.Mutex
	name  string
	err   error
	calls [][]string
}

var keywords = []string{"cat", "dog", "fish"}

func (e *keywordEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, append([]string(nil), texts...))
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v := make([]float32, len(keywords))
		lower := strings.ToLower(text)
		for i, kw := range keywords {
			v[i] = float32(strings.Count(lower, kw)) + 0.01
		}
		out = append(out, v)
	}
	return out, nil
}

func (e *keywordEmbedder) ModelName() string {
	return e.name
}

type mapResolver map[model.EmbeddingModel]ai.IEmbedder

func (r mapResolver) Resolve(m model.EmbeddingModel) (ai.IEmbedder, error) {
	e, ok := r[m]
	if !ok {
		return nil, fmt.Errorf("%w: %s", appErr.ErrUnsupportedModel, m)
	}
	return e, nil
}

type fakeSummarizer struct {
	calls int
	err   error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "summary about fish", nil
}

type fakeWriter struct{}

func (fakeWriter) WriteHypotheticalAnswer(ctx context.Context, question string) (string, error) {
	return "a passage about " + question, nil
}
