package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xxxsen/common/logger"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port          int               `json:"port" yaml:"port"`
	LogConfig     logger.LogConfig  `json:"log_config" yaml:"log_config"`
	Database      DatabaseConfig    `json:"database" yaml:"database"`
	VectorStore   VectorStoreConfig `json:"vector_store" yaml:"vector_store"`
	FileStore     FileStoreConfig   `json:"file_store" yaml:"file_store"`
	Providers     ProvidersConfig   `json:"providers" yaml:"providers"`
	Generators    []GeneratorConfig `json:"generators" yaml:"generators"`
	Retrieval     RetrievalConfig   `json:"retrieval" yaml:"retrieval"`
	Ingest        IngestConfig      `json:"ingest" yaml:"ingest"`
	EmbedCache    EmbedCacheConfig  `json:"embed_cache" yaml:"embed_cache"`
	CORSAllowlist []string          `json:"cors_allowlist" yaml:"cors_allowlist"`
	RateLimitMs   int               `json:"rate_limit_ms" yaml:"rate_limit_ms"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn" yaml:"dsn"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	DBName   string `json:"dbname" yaml:"dbname"`
	SSLMode  string `json:"sslmode" yaml:"sslmode"`
}

func (c DatabaseConfig) Enabled() bool {
	return c.DSN != "" || c.Host != ""
}

type VectorStoreConfig struct {
	Type string      `json:"type" yaml:"type"`
	Data interface{} `json:"data" yaml:"data"`
}

type FileStoreConfig struct {
	Type string      `json:"type" yaml:"type"`
	Data interface{} `json:"data" yaml:"data"`
}

type ProviderConfig struct {
	APIKey    string `json:"api_key" yaml:"api_key"`
	APIKeyEnv string `json:"api_key_env" yaml:"api_key_env"`
	BaseURL   string `json:"base_url" yaml:"base_url"`
	Model     string `json:"model" yaml:"model"`
	BatchSize int    `json:"batch_size" yaml:"batch_size"`
}

type ProvidersConfig struct {
	OpenAI     ProviderConfig `json:"openai" yaml:"openai"`
	Cohere     ProviderConfig `json:"cohere" yaml:"cohere"`
	Google     ProviderConfig `json:"google" yaml:"google"`
	OpenRouter ProviderConfig `json:"openrouter" yaml:"openrouter"`
}

// Lookup returns the credentials block for a provider name.
func (p ProvidersConfig) Lookup(name string) (ProviderConfig, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai":
		return p.OpenAI, true
	case "cohere":
		return p.Cohere, true
	case "google", "gemini", "palm":
		return p.Google, true
	case "openrouter":
		return p.OpenRouter, true
	}
	return ProviderConfig{}, false
}

type GeneratorConfig struct {
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model" yaml:"model"`
}

type RetrievalConfig struct {
	TopK             int `json:"top_k" yaml:"top_k"`
	CompareTopK      int `json:"compare_top_k" yaml:"compare_top_k"`
	CompareChunkSize int `json:"compare_chunk_size" yaml:"compare_chunk_size"`
	CallTimeout      int `json:"call_timeout" yaml:"call_timeout"`
	CompareTimeout   int `json:"compare_timeout" yaml:"compare_timeout"`
	GenerateTimeout  int `json:"generate_timeout" yaml:"generate_timeout"`
	MaxAttempts      int `json:"max_attempts" yaml:"max_attempts"`
	RetryBaseDelayMs int `json:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
}

type IngestConfig struct {
	UploadSecret   string `json:"upload_secret" yaml:"upload_secret"`
	AllowAnonymous bool   `json:"allow_anonymous" yaml:"allow_anonymous"`
	TokenTTLHours  int    `json:"token_ttl_hours" yaml:"token_ttl_hours"`
	MaxFileSize    int64  `json:"max_file_size" yaml:"max_file_size"`
	MinChunkSize   int    `json:"min_chunk_size" yaml:"min_chunk_size"`
	MaxChunkSize   int    `json:"max_chunk_size" yaml:"max_chunk_size"`
}

type EmbedCacheConfig struct {
	LRUSize       int    `json:"lru_size" yaml:"lru_size"`
	LRUTTLMinutes int    `json:"lru_ttl_minutes" yaml:"lru_ttl_minutes"`
	Persist       bool   `json:"persist" yaml:"persist"`
	MaxAgeDays    int    `json:"max_age_days" yaml:"max_age_days"`
	CleanupCron   string `json:"cleanup_cron" yaml:"cleanup_cron"`
}

var defaultKeyEnvs = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"cohere":     "COHERE_API_KEY",
	"google":     "PALM_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) normalize() error {
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "pgvector"
	}
	switch cfg.VectorStore.Type {
	case "pgvector":
		if !cfg.Database.Enabled() {
			return fmt.Errorf("database is required for pgvector store")
		}
	case "bolt":
		if cfg.VectorStore.Data == nil {
			cfg.VectorStore.Data = map[string]interface{}{"path": "./data/embedlab.db"}
		}
	case "memory", "chroma":
	default:
		return fmt.Errorf("vector_store.type must be pgvector, bolt, chroma or memory")
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.FileStore.Type == "local" && cfg.FileStore.Data == nil {
		cfg.FileStore.Data = map[string]interface{}{"dir": "./data/sources"}
	}
	if len(cfg.Generators) == 0 {
		cfg.Generators = []GeneratorConfig{{Provider: "openai", Model: "gpt-3.5-turbo"}}
	}
	cfg.Providers.OpenAI = resolveKey("openai", cfg.Providers.OpenAI)
	cfg.Providers.Cohere = resolveKey("cohere", cfg.Providers.Cohere)
	cfg.Providers.Google = resolveKey("google", cfg.Providers.Google)
	cfg.Providers.OpenRouter = resolveKey("openrouter", cfg.Providers.OpenRouter)

	r := &cfg.Retrieval
	if r.TopK <= 0 {
		r.TopK = 10
	}
	if r.CompareTopK <= 0 {
		r.CompareTopK = 3
	}
	if r.CompareChunkSize <= 0 {
		r.CompareChunkSize = 500
	}
	if r.CallTimeout <= 0 {
		r.CallTimeout = 30
	}
	if r.CompareTimeout <= 0 {
		r.CompareTimeout = 60
	}
	if r.GenerateTimeout <= 0 {
		r.GenerateTimeout = 60
	}
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = 3
	}
	if r.RetryBaseDelayMs <= 0 {
		r.RetryBaseDelayMs = 500
	}

	in := &cfg.Ingest
	if in.TokenTTLHours <= 0 {
		in.TokenTTLHours = 24
	}
	if in.MaxFileSize <= 0 {
		in.MaxFileSize = 20 * 1024 * 1024
	}
	if in.MinChunkSize <= 0 {
		in.MinChunkSize = 100
	}
	if in.MaxChunkSize <= 0 {
		in.MaxChunkSize = 2000
	}
	if in.MinChunkSize > in.MaxChunkSize {
		return fmt.Errorf("ingest.min_chunk_size must not exceed ingest.max_chunk_size")
	}

	ec := &cfg.EmbedCache
	if ec.LRUSize == 0 {
		ec.LRUSize = 10000
	}
	if ec.LRUTTLMinutes == 0 {
		ec.LRUTTLMinutes = 120
	}
	if ec.MaxAgeDays <= 0 {
		ec.MaxAgeDays = 30
	}
	if ec.CleanupCron == "" {
		ec.CleanupCron = "30 3 * * *"
	}
	return nil
}

func resolveKey(name string, p ProviderConfig) ProviderConfig {
	p.APIKey = strings.TrimSpace(p.APIKey)
	if p.APIKey != "" {
		return p
	}
	env := p.APIKeyEnv
	if env == "" {
		env = defaultKeyEnvs[name]
	}
	p.APIKey = strings.TrimSpace(os.Getenv(env))
	return p
}
