// Package ai is the alternative extraction backend: instead of local
// recognition and heuristics, page images are sent to a vision model
// that returns the structured record as JSON. It satisfies the same
// Extract signature as the local pipeline.
package ai

import "context"

// Usage reports provider token consumption for usage accounting.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Provider is a vision model that turns page images plus an extraction
// prompt into a JSON response.
type Provider interface {
	Name() string
	ExtractData(ctx context.Context, prompt string, pngPages [][]byte) (string, Usage, error)
}
