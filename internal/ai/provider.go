package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"

	appErr "github.com/xxxsen/embedlab/internal/pkg/errors"
)

// ErrUnavailable is returned by a provider whose credential is absent.
// It is checked before any request is sent.
var ErrUnavailable = appErr.ErrMissingCredentials

type IAIProvider interface {
	Name() string
	Generate(ctx context.Context, model string, prompt string) (string, error)
}

type IEmbedProvider interface {
	Name() string
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)
}

type IGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// IEmbedder maps texts to vectors, one per input, in input order.
type IEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// Readier is implemented by providers and embedders that can tell,
// without a network call, whether they are able to serve requests.
type Readier interface {
	Ready() error
}

// CheckReady returns v's readiness error, or nil when v does not report
// readiness.
func CheckReady(v interface{}) error {
	if r, ok := v.(Readier); ok {
		return r.Ready()
	}
	return nil
}

type ProviderFactory func(args interface{}) (IAIProvider, error)

type EmbedProviderFactory func(args interface{}) (IEmbedProvider, error)

var (
	registryMu    sync.RWMutex
	registry      = map[string]ProviderFactory{}
	embedRegistry = map[string]EmbedProviderFactory{}
)

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func RegisterEmbed(name string, factory EmbedProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	embedRegistry[key] = factory
	registryMu.Unlock()
}

func NewProvider(name string, args interface{}) (IAIProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai provider is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}

func NewEmbedProvider(name string, args interface{}) (IEmbedProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("embed provider is required")
	}
	registryMu.RLock()
	factory := embedRegistry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("%w: no embed provider %s", appErr.ErrUnsupportedModel, name)
	}
	return factory(args)
}
