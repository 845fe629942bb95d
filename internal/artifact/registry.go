package artifact

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnregistered reports a file whose extension maps to no category.
var ErrUnregistered = errors.New("no category registered for extension")

// Producer converts a raw instrument file into an artifact. Any error means
// "absent": the caller logs it and drops the file.
type Producer interface {
	Produce(ctx context.Context, path string) (*Artifact, error)
}

// ProducerFunc adapts a function into a Producer.
type ProducerFunc func(ctx context.Context, path string) (*Artifact, error)

// Produce calls f.
func (f ProducerFunc) Produce(ctx context.Context, path string) (*Artifact, error) {
	return f(ctx, path)
}

// Registry maps file extensions to categories and categories to producers.
// It is built once at startup and read-only afterwards.
type Registry struct {
	categories map[string]string
	producers  map[string]Producer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		categories: make(map[string]string),
		producers:  make(map[string]Producer),
	}
}

// Register binds a category name to its producer and extensions.
func (r *Registry) Register(category string, producer Producer, extensions ...string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return errors.New("category name is required")
	}
	if producer == nil {
		return fmt.Errorf("category %q: producer is required", category)
	}
	for _, ext := range extensions {
		ext = normalizeExt(ext)
		if ext == "" {
			continue
		}
		if owner, ok := r.categories[ext]; ok && owner != category {
			return fmt.Errorf("extension %s already registered to %q", ext, owner)
		}
		r.categories[ext] = category
	}
	r.producers[category] = producer
	return nil
}

// Category returns the category for path's extension.
func (r *Registry) Category(path string) (string, bool) {
	if r == nil {
		return "", false
	}
	category, ok := r.categories[normalizeExt(filepath.Ext(path))]
	return category, ok
}

// Producer returns the producer registered for category.
func (r *Registry) Producer(category string) (Producer, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.producers[category]
	return p, ok
}

// Resolve looks up both category and producer for path.
func (r *Registry) Resolve(path string) (string, Producer, error) {
	category, ok := r.Category(path)
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrUnregistered, filepath.Ext(path))
	}
	producer, ok := r.Producer(category)
	if !ok {
		return category, nil, fmt.Errorf("%w: category %q has no producer", ErrUnregistered, category)
	}
	return category, producer, nil
}

// Extensions lists registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.categories))
	for ext := range r.categories {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
