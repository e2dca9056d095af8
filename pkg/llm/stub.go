package llm

import "context"

// StubClient is the zero-configuration backend. It never fails and always
// returns an empty JSON object.
type StubClient struct{}

// NewStubClient creates a stub adapter.
func NewStubClient() *StubClient {
	return &StubClient{}
}

// Name returns the provider identifier.
func (*StubClient) Name() string { return ProviderFallback }

// Generate returns "{}".
func (*StubClient) Generate(context.Context, string, string) (string, error) {
	return "{}", nil
}
