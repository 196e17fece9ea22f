package domain

import (
	"context"
	"encoding/json"
)

// GenerateOpts tunes a single text-generation request.
type GenerateOpts struct {
	Temperature float64
	MaxTokens   int
	// SchemaHint is an optional description of the JSON shape the caller
	// expects back. The collaborator may use it to constrain output; the
	// caller must still validate every field before trusting it.
	SchemaHint string
}

// TextGenerator is the text-generation collaborator. Implementations are
// network-latent and fallible; callers validate the returned JSON shape
// before using any field.
type TextGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, opts GenerateOpts) (json.RawMessage, error)
}
