package ai

import (
	"net/http"
	"strings"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

type openrouterConfig struct {
	APIKey      string `json:"api_key"`
	BaseURL     string `json:"base_url"`
	HTTPReferer string `json:"http_referer"`
	XTitle      string `json:"x_title"`
}

// OpenRouter speaks the OpenAI chat completions protocol.
func createOpenRouterFactory(args interface{}) (IAIProvider, error) {
	cfg := &openrouterConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	headers := map[string]string{"X-Title": "embedlab"}
	if v := strings.TrimSpace(cfg.XTitle); v != "" {
		headers["X-Title"] = v
	}
	if v := strings.TrimSpace(cfg.HTTPReferer); v != "" {
		headers["HTTP-Referer"] = v
	}
	return &openAIProvider{
		name:    "openrouter",
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: baseURL,
		headers: headers,
		client:  http.DefaultClient,
	}, nil
}

func init() {
	Register("openrouter", createOpenRouterFactory)
}
