package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const defaultCohereBaseURL = "https://api.cohere.ai/v1"

type cohereConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

type cohereEmbedProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type cohereEmbedRequest struct {
	Model    string   `json:"model"`
	Texts    []string `json:"texts"`
	Truncate string   `json:"truncate"`
}

type cohereEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (p *cohereEmbedProvider) Name() string {
	return "cohere"
}

func (p *cohereEmbedProvider) Ready() error {
	if p.apiKey == "" {
		return ErrUnavailable
	}
	return nil
}

func (p *cohereEmbedProvider) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	endpoint := strings.TrimRight(p.baseURL, "/") + "/embed"
	data, err := json.Marshal(cohereEmbedRequest{Model: model, Texts: texts, Truncate: "END"})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus("cohere", resp); err != nil {
		return nil, err
	}
	var out cohereEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Embeddings) == 0 {
		return nil, fmt.Errorf("cohere response has no embeddings")
	}
	return out.Embeddings, nil
}

func createCohereEmbedFactory(args interface{}) (IEmbedProvider, error) {
	cfg := &cohereConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultCohereBaseURL
	}
	return &cohereEmbedProvider{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: baseURL,
		client:  http.DefaultClient,
	}, nil
}

func init() {
	RegisterEmbed("cohere", createCohereEmbedFactory)
}
