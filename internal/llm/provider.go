package llm

import (
	"context"
	"time"
)

// Message roles
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one chat message sent to a provider
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request contains the input for a completion call
type Request struct {
	// Messages is the ordered system/user message pair
	Messages []Message

	// JSONMode requests a JSON-formatted reply from the provider
	JSONMode bool

	// Temperature controls sampling (extraction uses 0.3)
	Temperature float32

	// MaxTokens bounds the reply length
	MaxTokens int
}

// Provider defines the interface for LLM providers. Implementations hold a
// single stateless client handle and are safe to share across concurrent
// calls; all retries within one call are sequential.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends the messages and returns the raw text reply. The reply
	// is expected to be JSON but must not be trusted as such without repair.
	Complete(ctx context.Context, req Request) (string, error)
}

// Config holds LLM provider configuration
type Config struct {
	// CustomEndpoint is an OpenAI-compatible chat completions URL. When set,
	// the custom provider is active and OpenAI is never used.
	CustomEndpoint string
	CustomAPIKey   string
	CustomModel    string

	// OpenAIAPIKey activates the fallback provider when no custom endpoint
	// is configured
	OpenAIAPIKey string
	OpenAIModel  string

	// OpenAIBaseURL overrides the API base (custom deployments, tests)
	OpenAIBaseURL string

	// Timeout for a single provider request
	Timeout time.Duration

	// Proxy settings for the custom provider's HTTP client
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// Configured reports whether at least one provider is available
func (c Config) Configured() bool {
	return c.CustomEndpoint != "" || c.OpenAIAPIKey != ""
}
