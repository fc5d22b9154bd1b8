package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type geminiConfig struct {
	APIKey string `json:"api_key"`
}

type geminiProvider struct {
	apiKey string
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) Ready() error {
	if p.apiKey == "" {
		return ErrUnavailable
	}
	return nil
}

func (p *geminiProvider) newClient(ctx context.Context) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func (p *geminiProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	if err := p.Ready(); err != nil {
		return "", err
	}
	client, err := p.newClient(ctx)
	if err != nil {
		return "", err
	}
	resp, err := client.Models.GenerateContent(
		ctx,
		model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		nil,
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

func (p *geminiProvider) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	client, err := p.newClient(ctx)
	if err != nil {
		return nil, err
	}
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: text}}})
	}
	resp, err := client.Models.EmbedContent(ctx, model, contents, nil)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding values returned")
	}
	out := make([][]float32, 0, len(resp.Embeddings))
	for _, item := range resp.Embeddings {
		if item == nil {
			return nil, fmt.Errorf("nil embedding returned")
		}
		out = append(out, item.Values)
	}
	return out, nil
}

func newGeminiProvider(args interface{}) (*geminiProvider, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return &geminiProvider{apiKey: strings.TrimSpace(cfg.APIKey)}, nil
}

func createGeminiFactory(args interface{}) (IAIProvider, error) {
	return newGeminiProvider(args)
}

func createGeminiEmbedFactory(args interface{}) (IEmbedProvider, error) {
	return newGeminiProvider(args)
}

func init() {
	Register("gemini", createGeminiFactory)
	Register("google", createGeminiFactory)
	RegisterEmbed("gemini", createGeminiEmbedFactory)
	RegisterEmbed("google", createGeminiEmbedFactory)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
