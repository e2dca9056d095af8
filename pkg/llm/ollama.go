package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "llama3"
)

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// OllamaClient calls a self-hosted Ollama server.
type OllamaClient struct {
	client *resty.Client
	model  string
}

// NewOllamaClient creates an Ollama adapter.
func NewOllamaClient(model, baseURL, proxyURL string, timeout time.Duration) (*OllamaClient, error) {
	if model == "" {
		model = defaultOllamaModel
	}
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	client, err := newRestyClient(baseURL, proxyURL, timeout)
	if err != nil {
		return nil, err
	}
	return &OllamaClient{client: client, model: model}, nil
}

// Name returns the provider identifier.
func (c *OllamaClient) Name() string { return ProviderOllama }

// Generate sends one non-streaming generate request.
func (c *OllamaClient) Generate(ctx context.Context, prompt, systemInstruction string) (string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(ollamaRequest{
			Model:  c.model,
			Prompt: prompt,
			System: systemInstruction,
			Stream: false,
		}).
		Post("/api/generate")
	if err != nil {
		return "", transportError(ProviderOllama, err)
	}

	var out ollamaResponse
	decodeErr := json.Unmarshal(resp.Body(), &out)

	if resp.IsError() {
		msg := out.Error
		if decodeErr != nil || msg == "" {
			msg = truncate(resp.String(), 512)
		}
		return "", statusError(ProviderOllama, resp.StatusCode(), msg)
	}
	if decodeErr != nil {
		return "", decodeError(ProviderOllama, decodeErr)
	}
	return out.Response, nil
}
