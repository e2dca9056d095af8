package llm

import (
	"strings"

	"Itinera/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
)

// NewClient resolves the configured provider once. It never fails:
// an empty provider selects the stub, and an unknown provider or an adapter
// that cannot be built is logged as a configuration error and also selects
// the stub.
func NewClient(c *conf.Upstream, logger log.Logger) Client {
	helper := log.NewHelper(log.With(logger, "module", "pkg/llm"))
	if c == nil {
		c = &conf.Upstream{}
	}

	provider := strings.ToLower(strings.TrimSpace(c.Provider))
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var (
		client Client
		err    error
	)
	switch provider {
	case ProviderGemini:
		cred := credential(c.Gemini)
		client, err = NewGeminiClient(cred.ApiKey, c.Model, cred.BaseURL, c.ProxyURL, timeout)
		if err == nil && cred.ApiKey == "" {
			helper.Warnw("msg", "gemini selected without an API key, every call will fail")
		}
	case ProviderOpenAI:
		cred := credential(c.Openai)
		client, err = NewOpenAIClient(cred.ApiKey, c.Model, cred.BaseURL, c.ProxyURL, timeout)
		if err == nil && cred.ApiKey == "" {
			helper.Warnw("msg", "openai selected without an API key, every call will fail")
		}
	case ProviderOllama:
		client, err = NewOllamaClient(c.Model, c.BaseURL, c.ProxyURL, timeout)
	case ProviderFallback:
		return NewStubClient()
	case "":
		helper.Warnw("msg", "no upstream provider configured, using stub")
		return NewStubClient()
	default:
		helper.Errorw("msg", "configuration error: unknown upstream provider, using stub",
			"provider", c.Provider)
		return NewStubClient()
	}

	if err != nil {
		helper.Errorw("msg", "configuration error: failed to build upstream client, using stub",
			"provider", provider,
			"error", err)
		return NewStubClient()
	}

	helper.Infow("msg", "upstream client selected",
		"provider", client.Name(),
		"timeout", timeout.String())
	return client
}

func credential(c *conf.Upstream_Credential) conf.Upstream_Credential {
	if c == nil {
		return conf.Upstream_Credential{}
	}
	return *c
}
