package pipeline

import (
	"fmt"

	"labwatch/internal/artifact"
	"labwatch/internal/config"
)

// BuildRegistry registers the configured categories with their built-in
// producers.
func BuildRegistry(cfg *config.Config) (*artifact.Registry, error) {
	reg := artifact.NewRegistry()
	for _, cat := range cfg.Categories {
		producer, err := artifact.Builtin(cat.Producer)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", cat.Name, err)
		}
		if err := reg.Register(cat.Name, producer, cat.Extensions...); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
