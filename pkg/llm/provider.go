// Package llm provides narrow capability interfaces for the external language
// model services the engine consumes: text completion (SQL generation) and
// text embedding (document search). Concrete providers register themselves by
// name so the serving layer can pick one from configuration.
package llm

import (
	"context"
	"fmt"
	"sync"
)

// Completer generates a single text completion for a prompt. The engine uses
// it to translate natural language into candidate SQL; its output is always
// treated as untrusted and routed through the safety gate.
type Completer interface {
	// Complete returns the model output for the given prompt.
	Complete(ctx context.Context, prompt string) (string, error)

	// Name returns the provider name.
	Name() string
}

// Embedder produces vector embeddings for texts.
type Embedder interface {
	// Embed generates one embedding per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle generates the embedding for a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Name returns the provider name.
	Name() string
}

// CompleterFactory builds a Completer from a provider config map.
type CompleterFactory func(config map[string]any) (Completer, error)

// EmbedderFactory builds an Embedder from a provider config map.
type EmbedderFactory func(config map[string]any) (Embedder, error)

var registry = &providerRegistry{
	completers: make(map[string]CompleterFactory),
	embedders:  make(map[string]EmbedderFactory),
}

type providerRegistry struct {
	mu         sync.RWMutex
	completers map[string]CompleterFactory
	embedders  map[string]EmbedderFactory
}

// RegisterCompleter registers a completion provider factory under name.
func RegisterCompleter(name string, factory CompleterFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.completers[name] = factory
}

// RegisterEmbedder registers an embedding provider factory under name.
func RegisterEmbedder(name string, factory EmbedderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.embedders[name] = factory
}

// NewCompleter creates a completion provider by name.
func NewCompleter(name string, config map[string]any) (Completer, error) {
	registry.mu.RLock()
	factory, ok := registry.completers[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown completion provider: %s", name)
	}
	return factory(config)
}

// NewEmbedder creates an embedding provider by name.
func NewEmbedder(name string, config map[string]any) (Embedder, error) {
	registry.mu.RLock()
	factory, ok := registry.embedders[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown embedding provider: %s", name)
	}
	return factory(config)
}
