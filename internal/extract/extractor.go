package extract

import (
	"context"
	"encoding/json"

	"github.com/plan2fund/fundextract/internal/llm"
	"github.com/plan2fund/fundextract/internal/model"
	"github.com/plan2fund/fundextract/internal/repair"
)

const (
	defaultTemperature = 0.3
	defaultMaxTokens   = 4000
)

// Request carries one page to extract. Exactly one of HTML or Text
// must be set; Text wins when both are present.
type Request struct {
	HTML        string
	Text        string
	URL         string
	Title       string
	Description string
}

// Engine runs the full extraction flow against a single provider.
type Engine struct {
	provider    llm.Provider
	temperature float32
	maxTokens   int
}

func NewEngine(provider llm.Provider) *Engine {
	return &Engine{
		provider:    provider,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
	}
}

// Extract normalizes the page content, prompts the provider, recovers
// the JSON from its response and transforms it into the canonical
// result. Malformed responses that survive recovery still produce a
// result; unrecoverable ones return a *model.ParseError.
func (e *Engine) Extract(ctx context.Context, req Request) (*model.ExtractionResult, error) {
	if req.URL == "" {
		return nil, &model.ConfigurationError{Reason: "url is required"}
	}

	content, textMode, err := NormalizeContent(req.HTML, req.Text)
	if err != nil {
		return nil, err
	}

	messages := BuildMessages(PromptContext{
		URL:         req.URL,
		Title:       req.Title,
		Description: req.Description,
		Content:     content,
		TextMode:    textMode,
	})

	response, err := e.provider.Complete(ctx, llm.Request{
		Messages:    messages,
		JSONMode:    true,
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	})
	if err != nil {
		return nil, err
	}

	recovered, err := repair.Recover(response)
	if err != nil {
		return nil, err
	}

	var raw rawResponse
	if err := json.Unmarshal([]byte(recovered), &raw); err != nil {
		return nil, &model.ParseError{Preview: repair.Preview(recovered), Cause: err}
	}

	return Transform(&raw, req.URL), nil
}
