package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/plan2fund/fundextract/internal/model"
)

const openAIRateLimitRetries = 3

// OpenAIProvider implements the Provider interface for the OpenAI API. It is
// the fallback path, used only when no custom endpoint is configured.
type OpenAIProvider struct {
	client *openai.Client
	model  string

	// sleep is swapped out in tests so backoff waits don't block
	sleep func(time.Duration)
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.OpenAIAPIKey == "" {
		return nil, &model.ConfigurationError{Reason: "OpenAI API key is required"}
	}

	clientConfig := openai.DefaultConfig(config.OpenAIAPIKey)
	if config.OpenAIBaseURL != "" {
		clientConfig.BaseURL = config.OpenAIBaseURL
	}
	if config.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	m := config.OpenAIModel
	if m == "" {
		m = openai.GPT4oMini
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		model:  m,
		sleep:  time.Sleep,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Complete sends the messages via the Chat Completions API. Rate limits are
// retried up to 3 times with exponential backoff (1s, 2s, 4s); any other
// error is fatal immediately.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    toOpenAIMessages(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var lastErr error
	for attempt := 0; attempt <= openAIRateLimitRetries; attempt++ {
		resp, err := p.client.CreateChatCompletion(ctx, chatReq)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", &model.ProviderError{
					Provider: p.Name(),
					Kind:     model.ProviderOther,
					Message:  "no response choices",
				}
			}
			return resp.Choices[0].Message.Content, nil
		}

		perr := classifyOpenAIError(err)
		if perr.Kind != model.ProviderRateLimit {
			return "", perr
		}

		lastErr = perr
		if attempt < openAIRateLimitRetries {
			p.sleep(time.Duration(1<<attempt) * time.Second) // 1s, 2s, 4s
		}
	}

	return "", lastErr
}

// classifyOpenAIError maps go-openai errors onto the provider error taxonomy
func classifyOpenAIError(err error) *model.ProviderError {
	perr := &model.ProviderError{
		Provider: "openai",
		Kind:     model.ProviderOther,
		Message:  err.Error(),
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		perr.StatusCode = apiErr.HTTPStatusCode
		perr.Kind = classifyStatus(apiErr.HTTPStatusCode)
		if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
			perr.Kind = model.ProviderRateLimit
		}
		return perr
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		perr.StatusCode = reqErr.HTTPStatusCode
		perr.Kind = classifyStatus(reqErr.HTTPStatusCode)
		return perr
	}

	if isTimeoutErr(err) {
		perr.Kind = model.ProviderTimeout
	}
	return perr
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}
