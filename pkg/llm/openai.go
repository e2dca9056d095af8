package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com"
	defaultOpenAIModel   = "gpt-4o"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// OpenAIClient calls the Chat Completions API.
type OpenAIClient struct {
	client *resty.Client
	apiKey string
	model  string
}

// NewOpenAIClient creates an OpenAI adapter. An empty apiKey yields a client
// whose every call fails with ErrMissingCredential.
func NewOpenAIClient(apiKey, model, baseURL, proxyURL string, timeout time.Duration) (*OpenAIClient, error) {
	if model == "" {
		model = defaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	client, err := newRestyClient(baseURL, proxyURL, timeout)
	if err != nil {
		return nil, err
	}
	return &OpenAIClient{client: client, apiKey: apiKey, model: model}, nil
}

// Name returns the provider identifier.
func (c *OpenAIClient) Name() string { return ProviderOpenAI }

// Generate sends one chat completion request.
func (c *OpenAIClient) Generate(ctx context.Context, prompt, systemInstruction string) (string, error) {
	if c.apiKey == "" {
		return "", missingCredential(ProviderOpenAI)
	}

	messages := make([]chatMessage, 0, 2)
	if systemInstruction != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemInstruction})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetBody(chatRequest{Model: c.model, Messages: messages, Temperature: 0.7}).
		Post("/v1/chat/completions")
	if err != nil {
		return "", transportError(ProviderOpenAI, err)
	}
	if resp.IsError() {
		return "", statusError(ProviderOpenAI, resp.StatusCode(), apiErrorMessage(resp.Body()))
	}

	var out chatResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", decodeError(ProviderOpenAI, err)
	}
	if len(out.Choices) == 0 {
		return "", &UpstreamError{Provider: ProviderOpenAI, Message: "response has no choices"}
	}
	return out.Choices[0].Message.Content, nil
}
