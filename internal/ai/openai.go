package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

type openAIConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

type openAIProvider struct {
	name    string
	apiKey  string
	baseURL string
	headers map[string]string
	client  *http.Client
}

type openAIChatRequest struct {
	Model    string          `json:"model"`
	Messages []openAIChatMsg `json:"messages"`
	Stream   bool            `json:"stream"`
}

type openAIChatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (p *openAIProvider) Name() string {
	return p.name
}

func (p *openAIProvider) Ready() error {
	if p.apiKey == "" {
		return ErrUnavailable
	}
	return nil
}

func (p *openAIProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	if err := p.Ready(); err != nil {
		return "", err
	}
	reqBody := openAIChatRequest{
		Model:    model,
		Messages: []openAIChatMsg{{Role: "user", Content: prompt}},
		Stream:   false,
	}
	var out openAIChatResponse
	if err := p.post(ctx, "/chat/completions", reqBody, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%s response has no choices", p.name)
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func (p *openAIProvider) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	var out openAIEmbedResponse
	if err := p.post(ctx, "/embeddings", openAIEmbedRequest{Model: model, Input: texts}, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("%s response has no embeddings", p.name)
	}
	sort.SliceStable(out.Data, func(i, j int) bool {
		return out.Data[i].Index < out.Data[j].Index
	})
	res := make([][]float32, 0, len(out.Data))
	for _, item := range out.Data {
		res = append(res, item.Embedding)
	}
	return res, nil
}

func (p *openAIProvider) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	endpoint := strings.TrimRight(p.baseURL, "/") + path
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(p.name, resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func newOpenAIProvider(args interface{}) (*openAIProvider, error) {
	cfg := &openAIConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &openAIProvider{
		name:    "openai",
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: baseURL,
		client:  http.DefaultClient,
	}, nil
}

func createOpenAIFactory(args interface{}) (IAIProvider, error) {
	return newOpenAIProvider(args)
}

func createOpenAIEmbedFactory(args interface{}) (IEmbedProvider, error) {
	return newOpenAIProvider(args)
}

func init() {
	Register("openai", createOpenAIFactory)
	RegisterEmbed("openai", createOpenAIEmbedFactory)
}
