package ai

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// ErrUnreachable is returned when the provider could not be contacted.
var ErrUnreachable = errors.New("AI provider unreachable")

// ProviderError is a rejection reported by the provider, e.g. an invalid key.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (%d): %s", e.StatusCode, e.Message)
}

// LLM is a text generation backend.
type LLM interface {
	// Stream calls onDelta with each text chunk as it arrives.
	Stream(ctx context.Context, apiKey, model string, msgs []Message, onDelta func(string) error) error
	Generate(ctx context.Context, apiKey, model, system, prompt string) (string, error)
	ValidateKey(ctx context.Context, apiKey string) error
}
