package model

type Output struct {
	Text     string   `json:"text"`
	Distance *float64 `json:"distance,omitempty"`
}

// ModelOutcome is one row of the comparison table. Error is set
// instead of Items when that model's pipeline failed.
type ModelOutcome struct {
	Model EmbeddingModel `json:"model"`
	Items []Output       `json:"items"`
	Error string         `json:"error,omitempty"`
	Code  int            `json:"code,omitempty"`
}

type SeedOutcome struct {
	Model        EmbeddingModel `json:"model"`
	CollectionID string         `json:"collection_id,omitempty"`
	Chunks       int            `json:"chunks"`
	Error        string         `json:"error,omitempty"`
}
