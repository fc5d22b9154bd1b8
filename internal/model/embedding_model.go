package model

import "strings"

type EmbeddingModel string

const (
	EmbeddingModelOpenAIAda002  EmbeddingModel = "text-embedding-ada-002"
	EmbeddingModelCohereEnglish EmbeddingModel = "embed-english-v2.0"
	EmbeddingModelPalmGecko     EmbeddingModel = "embedding-gecko-001"
)

const (
	ProviderOpenAI = "openai"
	ProviderCohere = "cohere"
	ProviderGoogle = "google"
)

type ModelInfo struct {
	Name     EmbeddingModel `json:"name"`
	Company  string         `json:"company"`
	Provider string         `json:"provider"`
	Link     string         `json:"link"`
}

var supportedModels = []ModelInfo{
	{Name: EmbeddingModelOpenAIAda002, Company: "openai", Provider: ProviderOpenAI, Link: "https://platform.openai.com/docs/guides/embeddings"},
	{Name: EmbeddingModelCohereEnglish, Company: "cohere", Provider: ProviderCohere, Link: "https://docs.cohere.com/docs/embeddings"},
	{Name: EmbeddingModelPalmGecko, Company: "google", Provider: ProviderGoogle, Link: "https://developers.generativeai.google/tutorials/embed_node_quickstart"},
}

// SupportedModels returns the fixed catalogue in display order.
func SupportedModels() []ModelInfo {
	out := make([]ModelInfo, len(supportedModels))
	copy(out, supportedModels)
	return out
}

func LookupModel(name EmbeddingModel) (ModelInfo, bool) {
	key := EmbeddingModel(strings.TrimSpace(string(name)))
	for _, item := range supportedModels {
		if item.Name == key {
			return item, true
		}
	}
	return ModelInfo{}, false
}

func (m EmbeddingModel) Supported() bool {
	_, ok := LookupModel(m)
	return ok
}
