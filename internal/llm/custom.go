package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/plan2fund/fundextract/internal/model"
	"github.com/plan2fund/fundextract/internal/util"
)

const (
	defaultCustomModel   = "plan2fund-custom-1"
	defaultCustomTimeout = 90 * time.Second

	customRateLimitRetries = 3
	customRateLimitWait    = 5 * time.Second
	customTimeoutWait      = 2 * time.Second
)

// retryHintPattern matches a provider-supplied wait hint in a rate-limit
// error body, e.g. "please try again in 3s" or `"retryDelay": "12.5s"`
var retryHintPattern = regexp.MustCompile(`(?i)(?:try again|please retry|retryDelay)[^\d]*([\d.]+)s`)

// CustomProvider calls a self-hosted or gateway OpenAI-compatible chat
// completions endpoint. It never falls back to the OpenAI provider: when a
// custom endpoint is configured its failures are surfaced as-is.
type CustomProvider struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client

	// sleep is swapped out in tests so retry waits don't block
	sleep func(time.Duration)
}

// Custom endpoint request/response structures (OpenAI-compatible wire format)
type customRequest struct {
	Model          string                `json:"model"`
	Messages       []Message             `json:"messages"`
	Temperature    float32               `json:"temperature"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	ResponseFormat *customResponseFormat `json:"response_format,omitempty"`
}

type customResponseFormat struct {
	Type string `json:"type"`
}

type customResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Output  string `json:"output"`
	Content string `json:"content"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewCustomProvider creates a provider for an OpenAI-compatible endpoint
func NewCustomProvider(config Config) (*CustomProvider, error) {
	if config.CustomEndpoint == "" {
		return nil, &model.ConfigurationError{Reason: "custom LLM endpoint is required"}
	}

	m := config.CustomModel
	if m == "" {
		m = defaultCustomModel
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultCustomTimeout
	}

	return &CustomProvider{
		endpoint: strings.TrimSuffix(config.CustomEndpoint, "/"),
		apiKey:   config.CustomAPIKey,
		model:    m,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
			},
		},
		sleep: time.Sleep,
	}, nil
}

// Name returns the provider name
func (p *CustomProvider) Name() string {
	return "custom"
}

// Complete sends the messages and applies the custom endpoint's retry
// policy: rate limits are retried up to 3 times with a hinted or default
// wait, a gateway timeout is retried exactly once after a fixed pause, and
// access-denied or any other failure is fatal on the first attempt.
func (p *CustomProvider) Complete(ctx context.Context, req Request) (string, error) {
	rateRetries := customRateLimitRetries
	timeoutRetried := false

	for {
		text, err := p.send(ctx, req)
		if err == nil {
			return text, nil
		}

		var perr *model.ProviderError
		if !errors.As(err, &perr) {
			return "", err
		}

		switch perr.Kind {
		case model.ProviderRateLimit:
			if rateRetries <= 0 {
				return "", err
			}
			rateRetries--
			p.sleep(rateLimitWait(perr.Message))

		case model.ProviderTimeout:
			if timeoutRetried {
				return "", fmt.Errorf("custom LLM timeout retry failed: %w", err)
			}
			timeoutRetried = true
			p.sleep(customTimeoutWait)

		default:
			// access denied and everything else: fatal, no fallback
			return "", err
		}
	}
}

// rateLimitWait computes the wait before a rate-limit retry: a
// provider-supplied hint plus a 1-second safety margin, or 5 seconds.
func rateLimitWait(errMsg string) time.Duration {
	if m := retryHintPattern.FindStringSubmatch(errMsg); m != nil {
		if secs, err := strconv.ParseFloat(m[1], 64); err == nil {
			return time.Duration((secs + 1) * float64(time.Second))
		}
	}
	return customRateLimitWait
}

// send makes a single HTTP request to the endpoint
func (p *CustomProvider) send(ctx context.Context, req Request) (string, error) {
	apiReq := customRequest{
		Model:       p.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		apiReq.ResponseFormat = &customResponseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if isTimeoutErr(err) {
			return "", &model.ProviderError{
				Provider: p.Name(),
				Kind:     model.ProviderTimeout,
				Message:  err.Error(),
			}
		}
		return "", &model.ProviderError{
			Provider: p.Name(),
			Kind:     model.ProviderOther,
			Message:  err.Error(),
		}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return "", &model.ProviderError{
			Provider:   p.Name(),
			StatusCode: httpResp.StatusCode,
			Kind:       classifyStatus(httpResp.StatusCode),
			Message:    strings.TrimSpace(string(respBody)),
		}
	}

	var resp customResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(resp.Choices) > 0 {
		return resp.Choices[0].Message.Content, nil
	}
	// some gateways flatten the reply
	if resp.Output != "" {
		return resp.Output, nil
	}
	if resp.Content != "" {
		return resp.Content, nil
	}

	return "", &model.ProviderError{
		Provider: p.Name(),
		Kind:     model.ProviderOther,
		Message:  "no content in response",
	}
}

// classifyStatus maps an HTTP status to a retry class
func classifyStatus(status int) model.ProviderErrorKind {
	switch status {
	case http.StatusTooManyRequests:
		return model.ProviderRateLimit
	case http.StatusPaymentRequired, http.StatusForbidden, http.StatusUnauthorized:
		return model.ProviderAccessDenied
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return model.ProviderTimeout
	default:
		return model.ProviderOther
	}
}

func isTimeoutErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out")
}
