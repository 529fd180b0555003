// Package embed defines the embedding-provider boundary the indexing
// pipeline and the searcher call through. The core holds no knowledge
// of transport; concrete providers (HTTP adapters to a model server)
// are injected by the caller and are outside the core's responsibility.
package embed

import "context"

// Provider turns text into dense vectors. Implementations must return
// one vector per input text, in input order, and must not be called
// with an empty texts slice (callers are expected to short-circuit
// that case themselves). ctx carries cancellation; a provider that
// does its own network I/O should honor ctx.Done() and return ctx.Err()
// promptly rather than completing a request after cancellation.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Func adapts a plain function to the Provider interface.
type Func func(ctx context.Context, texts []string) ([][]float32, error)

// Embed implements Provider.
func (f Func) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return f(ctx, texts)
}
