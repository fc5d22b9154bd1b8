package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type GeneratorEntry struct {
	Name      string
	Generator IGenerator
}

type groupGenerator struct {
	items []GeneratorEntry
}

// NewGroupGenerator tries each generator in order and returns the first
// non-empty answer. Embedders are never grouped: vectors from different
// models do not share a space.
func NewGroupGenerator(items []GeneratorEntry) IGenerator {
	if len(items) == 0 {
		return nil
	}
	if len(items) == 1 {
		return items[0].Generator
	}
	return &groupGenerator{items: items}
}

func (g *groupGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var errs []error
	for i, item := range g.items {
		if item.Generator == nil {
			continue
		}
		res, err := item.Generator.Generate(ctx, prompt)
		if err == nil {
			return res, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", item.Name, err))
		logutil.GetLogger(ctx).Warn("generator failed", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("generator not configured")
	}
	return "", errors.Join(errs...)
}
