package ai

import (
	"context"
	"fmt"
)

type generator struct {
	provider IAIProvider
	model    string
	policy   CallPolicy
}

func NewGenerator(p IAIProvider, model string, policy CallPolicy) IGenerator {
	return &generator{provider: p, model: model, policy: policy}
}

func (g *generator) Generate(ctx context.Context, prompt string) (string, error) {
	return invoke(ctx, g.policy, g.provider.Name(), func(ctx context.Context) (string, error) {
		return g.provider.Generate(ctx, g.model, prompt)
	})
}

type embedder struct {
	provider  IEmbedProvider
	model     string
	batchSize int
	policy    CallPolicy
}

func NewEmbedder(p IEmbedProvider, model string, batchSize int, policy CallPolicy) IEmbedder {
	return &embedder{provider: p, model: model, batchSize: batchSize, policy: policy}
}

// Ready fails with MissingCredentials when the provider has no key.
func (e *embedder) Ready() error {
	if err := CheckReady(e.provider); err != nil {
		return fmt.Errorf("%s: %w", e.provider.Name(), err)
	}
	return nil
}

func (e *embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.Ready(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, nil
	}
	size := e.batchSize
	if size <= 0 || size > len(texts) {
		size = len(texts)
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]
		vectors, err := invoke(ctx, e.policy, e.provider.Name(), func(ctx context.Context) ([][]float32, error) {
			res, err := e.provider.Embed(ctx, e.model, batch)
			if err != nil {
				return nil, err
			}
			if len(res) != len(batch) {
				return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(batch), len(res))
			}
			return res, nil
		})
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (e *embedder) ModelName() string {
	return e.model
}
