// Package judge builds the chat-completion client used to judge speeches and
// interprets its responses and errors. Every provider speaks the OpenAI chat
// API, so a single go-openai client serves them all.
package judge

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

const (
	DefaultModel         = openai.GPT4o
	DefaultTimeout       = 2 * time.Minute
	DefaultOpenRouterURL = "https://openrouter.ai/api/v1"
	DefaultOllamaURL     = "http://localhost:11434/v1"

	openRouterReferer = "https://speechjudge.local"
	openRouterTitle   = "SpeechJudge"
)

// Config selects and configures the judge provider.
type Config struct {
	Provider         string        `mapstructure:"provider" validate:"oneof=openai openrouter ollama"`
	Model            string        `mapstructure:"model" validate:"required"`
	APIKey           string        `mapstructure:"api_key"`
	BaseURL          string        `mapstructure:"base_url" validate:"omitempty,url"`
	SystemPrompt     string        `mapstructure:"system_prompt"`
	SystemPromptFile string        `mapstructure:"system_prompt_file" validate:"omitempty,file"`
	Temperature      *float32      `mapstructure:"temperature" validate:"omitempty,gte=0,lte=2"`
	Timeout          time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

// NeedsAPIKey reports whether the provider rejects unauthenticated calls.
func (c Config) NeedsAPIKey() bool {
	return c.Provider != ProviderOllama
}

// NewClient returns a go-openai client for the configured provider. A missing
// API key is not an error here; the provider rejects the first call instead.
func NewClient(cfg Config) (*openai.Client, error) {
	cfg.ApplyDefaults()

	cc := openai.DefaultConfig(cfg.APIKey)
	var transport http.RoundTripper

	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.BaseURL != "" {
			cc.BaseURL = cfg.BaseURL
		}
	case ProviderOpenRouter:
		cc.BaseURL = DefaultOpenRouterURL
		if cfg.BaseURL != "" {
			cc.BaseURL = cfg.BaseURL
		}
		transport = &headerTransport{
			headers: map[string]string{
				"HTTP-Referer": openRouterReferer,
				"X-Title":      openRouterTitle,
			},
		}
	case ProviderOllama:
		if cfg.APIKey == "" {
			cc = openai.DefaultConfig(ProviderOllama)
		}
		cc.BaseURL = DefaultOllamaURL
		if cfg.BaseURL != "" {
			cc.BaseURL = cfg.BaseURL
		}
	default:
		return nil, fmt.Errorf("unknown judge provider %q", cfg.Provider)
	}

	cc.BaseURL = strings.TrimRight(cc.BaseURL, "/")
	cc.HTTPClient = &http.Client{Timeout: cfg.Timeout, Transport: transport}
	return openai.NewClientWithConfig(cc), nil
}

// headerTransport adds fixed headers to every request.
type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
