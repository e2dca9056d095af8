package llm

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultGeminiModel   = "gemini-1.5-flash"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// apiErrorResponse is the error body shared by the Gemini and OpenAI APIs.
type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Status  string `json:"status"`
		Type    string `json:"type"`
	} `json:"error"`
}

func apiErrorMessage(body []byte) string {
	var e apiErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return truncate(string(body), 512)
}

// GeminiClient calls the Google Generative Language generateContent API.
type GeminiClient struct {
	client *resty.Client
	apiKey string
	model  string
}

// NewGeminiClient creates a Gemini adapter. An empty apiKey yields a client
// whose every call fails with ErrMissingCredential.
func NewGeminiClient(apiKey, model, baseURL, proxyURL string, timeout time.Duration) (*GeminiClient, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	client, err := newRestyClient(baseURL, proxyURL, timeout)
	if err != nil {
		return nil, err
	}
	return &GeminiClient{client: client, apiKey: apiKey, model: model}, nil
}

// Name returns the provider identifier.
func (c *GeminiClient) Name() string { return ProviderGemini }

// Generate sends one generateContent request.
func (c *GeminiClient) Generate(ctx context.Context, prompt, systemInstruction string) (string, error) {
	if c.apiKey == "" {
		return "", missingCredential(ProviderGemini)
	}

	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	}
	if systemInstruction != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemInstruction}}}
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", c.apiKey).
		SetBody(body).
		Post("/v1beta/models/" + url.PathEscape(c.model) + ":generateContent")
	if err != nil {
		return "", transportError(ProviderGemini, err)
	}
	if resp.IsError() {
		return "", statusError(ProviderGemini, resp.StatusCode(), apiErrorMessage(resp.Body()))
	}

	var out geminiResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", decodeError(ProviderGemini, err)
	}
	if len(out.Candidates) == 0 {
		return "", &UpstreamError{Provider: ProviderGemini, Message: "response has no candidates"}
	}

	var text strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}
