package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/config"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/provider"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

// ErrMissingAPIKey is returned when an endpoint has no credentials
var ErrMissingAPIKey = errors.New("api key not configured")

// scriptResponse is the structured output requested from models that support it
type scriptResponse struct {
	Hook string `json:"hook" jsonschema_description:"Attention grabber spoken in the first 3 seconds"`
	Body string `json:"body" jsonschema_description:"Main content delivering the value"`
	CTA  string `json:"cta" jsonschema_description:"Short call to action asking for engagement"`
}

// GenerateSchema generates a JSON schema for structured outputs
func GenerateSchema[T any]() interface{} {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

var scriptResponseSchema = GenerateSchema[scriptResponse]()

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint.
// OpenAI, Groq and OpenRouter differ only in base URL, key and model.
type OpenAIProvider struct {
	name   string
	client openai.Client
	cfg    config.EndpointConfig
}

// Option customizes an OpenAIProvider
type Option func(*[]option.RequestOption)

// WithHTTPClient overrides the HTTP client used for requests
func WithHTTPClient(client *http.Client) Option {
	return func(opts *[]option.RequestOption) {
		*opts = append(*opts, option.WithHTTPClient(client))
	}
}

// NewOpenAIProvider creates a provider for the endpoint. Retries are left to
// the fallback chain.
func NewOpenAIProvider(name string, cfg config.EndpointConfig, opts ...Option) (*OpenAIProvider, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrMissingAPIKey)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%s: model not configured", name)
	}

	requestOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(cfg.BaseURL))
	}
	for _, opt := range opts {
		opt(&requestOpts)
	}

	return &OpenAIProvider{
		name:   name,
		client: openai.NewClient(requestOpts...),
		cfg:    cfg,
	}, nil
}

// Name returns the registry name of the endpoint
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Generate asks the model for a script
func (p *OpenAIProvider) Generate(ctx context.Context, prompt models.Prompt) (models.ScriptResult, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
		Model: openai.ChatModel(p.cfg.Model),
	}
	if p.cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.cfg.MaxTokens))
	}
	if p.cfg.Temperature > 0 {
		params.Temperature = openai.Float(p.cfg.Temperature)
	}
	if p.cfg.Structured {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "short_script",
					Description: openai.String("Narration script for a short vertical video"),
					Schema:      scriptResponseSchema,
					Strict:      openai.Bool(true),
				},
			},
		}
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return models.ScriptResult{}, classifyAPIError(p.name, err)
	}
	if len(completion.Choices) == 0 {
		return models.ScriptResult{}, fmt.Errorf("%w: %s returned no choices", provider.ErrProviderUnavailable, p.name)
	}

	choice := completion.Choices[0]
	raw := strings.TrimSpace(choice.Message.Content)
	if raw == "" {
		if choice.FinishReason == "content_filter" {
			return models.ScriptResult{}, fmt.Errorf("%w: %s filtered the prompt", provider.ErrUnsupportedContent, p.name)
		}
		return models.ScriptResult{}, fmt.Errorf("%w: %s: %w (finish reason %s)", provider.ErrProviderUnavailable, p.name, ErrEmptyScript, choice.FinishReason)
	}

	model := completion.Model
	if model == "" {
		model = p.cfg.Model
	}
	meta := models.ScriptMetadata{Provider: p.name, Model: model}

	if p.cfg.Structured {
		var resp scriptResponse
		if err := json.Unmarshal([]byte(raw), &resp); err == nil && strings.TrimSpace(resp.Hook+resp.Body) != "" {
			if resp.CTA == "" {
				resp.CTA = defaultCTA[normalizeStyle(prompt.Style)]
			}
			return NewScript(resp.Hook, resp.Body, resp.CTA, meta), nil
		}
	}

	hook, body, cta := ParseScript(raw, prompt.Style)
	return NewScript(hook, body, cta, meta), nil
}

// classifyAPIError maps SDK errors onto provider failure classes
func classifyAPIError(name string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s: %w", provider.ClassifyHTTPStatus(apiErr.StatusCode), name, err)
	}
	return provider.Classify(fmt.Errorf("%s: %w", name, err))
}
