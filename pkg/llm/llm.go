// Package llm provides the text generation backends behind one contract.
//
// A backend is selected once at startup by NewClient. Adapters perform a
// single attempt per call; retry and backoff policy belongs to the caller.
package llm

import (
	"context"
	"time"
)

// Provider identifiers accepted in configuration.
const (
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderOllama   = "ollama"
	ProviderFallback = "fallback"
)

const (
	// DefaultTimeout bounds one generation request.
	DefaultTimeout = 120 * time.Second

	// UserAgent is sent on every outbound request.
	UserAgent = "Itinera/1.0"
)

// Client generates text from a prompt and an optional system instruction.
type Client interface {
	Generate(ctx context.Context, prompt, systemInstruction string) (string, error)
	// Name returns the provider identifier.
	Name() string
}
