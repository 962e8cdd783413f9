package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	contractx "github.com/avanse/counselor/agent/contract"
)

// OpenAIConfig covers both the OpenAI API and OpenAI-compatible gateways.
type OpenAIConfig struct {
	BaseURL     string        `envconfig:"BASE_URL" split_words:"true"`
	Model       string        `envconfig:"MODEL" split_words:"true" default:"gpt-4o-mini"`
	Temperature float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	Timeout     time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`
}

// OpenRouterConfig mirrors OpenAIConfig plus the attribution headers
// OpenRouter recommends.
type OpenRouterConfig struct {
	BaseURL     string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	Model       string        `envconfig:"MODEL" split_words:"true" default:"openai/gpt-4o-mini"`
	Temperature float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	Timeout     time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`
	SiteURL     string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName    string        `envconfig:"SITE_NAME" split_words:"true"`
}

// ChatCompletions is an adapter over the OpenAI chat-completions protocol.
// The API key is attached per request, not at client construction, so one
// adapter serves every credential in the pool.
type ChatCompletions struct {
	provider    contractx.Provider
	client      openaisdk.Client
	model       string
	temperature float32
}

func NewOpenAI(cfg OpenAIConfig) *ChatCompletions {
	opts := []option.RequestOption{
		option.WithRequestTimeout(timeoutOrDefault(cfg.Timeout)),
	}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}
	return &ChatCompletions{
		provider:    contractx.ProviderOpenAI,
		client:      openaisdk.NewClient(opts...),
		model:       strings.TrimSpace(cfg.Model),
		temperature: cfg.Temperature,
	}
}

func NewOpenRouter(cfg OpenRouterConfig) *ChatCompletions {
	opts := []option.RequestOption{
		option.WithRequestTimeout(timeoutOrDefault(cfg.Timeout)),
		option.WithBaseURL(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")),
	}
	if cfg.SiteURL != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", cfg.SiteURL))
	}
	if cfg.SiteName != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.SiteName))
	}
	return &ChatCompletions{
		provider:    contractx.ProviderOpenRouter,
		client:      openaisdk.NewClient(opts...),
		model:       strings.TrimSpace(cfg.Model),
		temperature: cfg.Temperature,
	}
}

func (c *ChatCompletions) Provider() contractx.Provider { return c.provider }

func (c *ChatCompletions) Send(ctx context.Context, req contractx.SendRequest) (contractx.SendResult, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.model
	}

	completion, err := c.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(composeSystem(req)),
			openaisdk.UserMessage(req.UserQuery),
		},
		Temperature: openaisdk.Float(float64(c.temperature)),
	}, option.WithAPIKey(req.Credential))
	if err != nil {
		var apiErr *openaisdk.Error
		if errors.As(err, &apiErr) {
			return contractx.SendResult{}, classify(c.provider, apiErr.StatusCode, err.Error())
		}
		return contractx.SendResult{}, classify(c.provider, 0, err.Error())
	}

	if len(completion.Choices) == 0 {
		return contractx.SendResult{}, classify(c.provider, 0, "no choices in response")
	}
	return contractx.SendResult{Text: completion.Choices[0].Message.Content}, nil
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 60 * time.Second
	}
	return d
}
