package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type ManagerConfig struct {
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
}

// Manager owns the prompts sent to generative models.
type Manager struct {
	generator IGenerator
	cfg       ManagerConfig
	cache     *expirable.LRU[string, string]
}

func NewManager(generator IGenerator, cfg ManagerConfig) *Manager {
	m := &Manager{generator: generator, cfg: cfg}
	if cfg.CacheSize > 0 && cfg.CacheTTL > 0 {
		m.cache = expirable.NewLRU[string, string](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return m
}

// Summarize condenses one chunk for chunk-summarization ingestion.
func (m *Manager) Summarize(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(`Summarize the following text:
%s
`, text)
	return m.generateCached(ctx, "summary", prompt)
}

// WriteHypotheticalAnswer writes the passage embedded in place of the
// query for hyde retrieval.
func (m *Manager) WriteHypotheticalAnswer(ctx context.Context, question string) (string, error) {
	prompt := fmt.Sprintf(`Please write a paragraph to answer the question.
- Write exactly one paragraph.
- Do not add explanations or headings.
- Output ONLY the paragraph.

QUESTION:
%s`, question)
	return m.generateCached(ctx, "hyde", prompt)
}

func (m *Manager) generateCached(ctx context.Context, feature, prompt string) (string, error) {
	key := cacheKey(feature, prompt)
	if m.cache != nil {
		if cached, ok := m.cache.Get(key); ok {
			return cached, nil
		}
	}
	res, err := m.generateText(ctx, prompt)
	if err != nil {
		return "", err
	}
	if m.cache != nil {
		m.cache.Add(key, res)
	}
	return res, nil
}

func (m *Manager) generateText(ctx context.Context, prompt string) (string, error) {
	if m.generator == nil {
		return "", fmt.Errorf("generator not configured")
	}
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}
	resp, err := m.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp)
	if text == "" {
		return "", fmt.Errorf("empty ai response")
	}
	return text, nil
}

func cacheKey(feature, text string) string {
	hash := sha256.Sum256([]byte(text))
	return feature + ":" + hex.EncodeToString(hash[:])
}
