package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/plan2fund/fundextract/internal/model"
)

func newTestCustomProvider(t *testing.T, endpoint string) (*CustomProvider, *[]time.Duration) {
	t.Helper()
	provider, err := NewCustomProvider(Config{
		CustomEndpoint: endpoint,
		CustomAPIKey:   "test-key",
	})
	if err != nil {
		t.Fatalf("NewCustomProvider failed: %v", err)
	}

	var sleeps []time.Duration
	provider.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return provider, &sleeps
}

func completionBody(content string) []byte {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return body
}

func TestCustomProvider_Complete_Success(t *testing.T) {
	var gotReq customRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected Authorization header: %s", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write(completionBody(`{"metadata": {}}`))
	}))
	defer server.Close()

	provider, sleeps := newTestCustomProvider(t, server.URL)

	got, err := provider.Complete(context.Background(), Request{
		Messages:    []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "user"}},
		JSONMode:    true,
		Temperature: 0.3,
		MaxTokens:   4000,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != `{"metadata": {}}` {
		t.Errorf("unexpected reply: %q", got)
	}

	if gotReq.Model != defaultCustomModel {
		t.Errorf("expected default model %q, got %q", defaultCustomModel, gotReq.Model)
	}
	if gotReq.ResponseFormat == nil || gotReq.ResponseFormat.Type != "json_object" {
		t.Errorf("expected json_object response format, got %+v", gotReq.ResponseFormat)
	}
	if len(*sleeps) != 0 {
		t.Errorf("success must not sleep, got %v", *sleeps)
	}
}

func TestCustomProvider_Complete_FlattenedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"output": "{\"requirements\": {}}"}`))
	}))
	defer server.Close()

	provider, _ := newTestCustomProvider(t, server.URL)

	got, err := provider.Complete(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != `{"requirements": {}}` {
		t.Errorf("unexpected reply: %q", got)
	}
}

func TestCustomProvider_Complete_RateLimitRetryWithHint(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error": {"message": "rate limited, please try again in 3s"}}`))
			return
		}
		_, _ = w.Write(completionBody("ok"))
	}))
	defer server.Close()

	provider, sleeps := newTestCustomProvider(t, server.URL)

	got, err := provider.Complete(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "ok" {
		t.Errorf("unexpected reply: %q", got)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
	// hinted 3s plus the 1s safety margin
	if len(*sleeps) != 1 || (*sleeps)[0] != 4*time.Second {
		t.Errorf("expected one 4s wait, got %v", *sleeps)
	}
}

func TestCustomProvider_Complete_RateLimitExhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer server.Close()

	provider, sleeps := newTestCustomProvider(t, server.URL)

	_, err := provider.Complete(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}

	var perr *model.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %T: %v", err, err)
	}
	if perr.Kind != model.ProviderRateLimit {
		t.Errorf("unexpected kind %v", perr.Kind)
	}
	if atomic.LoadInt32(&calls) != 4 {
		t.Errorf("expected initial call plus 3 retries, got %d calls", calls)
	}
	// no hint in the body: default wait each time
	for i, d := range *sleeps {
		if d != customRateLimitWait {
			t.Errorf("sleep %d = %v, want %v", i, d, customRateLimitWait)
		}
	}
}

func TestCustomProvider_Complete_AccessDeniedFatal(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte("quota exceeded"))
	}))
	defer server.Close()

	provider, sleeps := newTestCustomProvider(t, server.URL)

	_, err := provider.Complete(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected access denied error")
	}

	var perr *model.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %T: %v", err, err)
	}
	if perr.Kind != model.ProviderAccessDenied {
		t.Errorf("unexpected kind %v", perr.Kind)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("access denied must not be retried, got %d calls", calls)
	}
	if len(*sleeps) != 0 {
		t.Errorf("access denied must not sleep, got %v", *sleeps)
	}
}

func TestCustomProvider_Complete_GatewayTimeoutRetriedOnce(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusGatewayTimeout)
			return
		}
		_, _ = w.Write(completionBody("ok"))
	}))
	defer server.Close()

	provider, sleeps := newTestCustomProvider(t, server.URL)

	got, err := provider.Complete(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "ok" {
		t.Errorf("unexpected reply: %q", got)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != customTimeoutWait {
		t.Errorf("expected one %v wait, got %v", customTimeoutWait, *sleeps)
	}
}

func TestCustomProvider_Complete_SecondTimeoutFatal(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer server.Close()

	provider, _ := newTestCustomProvider(t, server.URL)

	_, err := provider.Complete(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error after second timeout")
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("timeout is retried exactly once, got %d calls", calls)
	}

	var perr *model.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError in chain, got %T: %v", err, err)
	}
	if perr.Kind != model.ProviderTimeout {
		t.Errorf("unexpected kind %v", perr.Kind)
	}
}

func TestRateLimitWait_HintParsing(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want time.Duration
	}{
		{"try again hint", "rate limited, please try again in 3s", 4 * time.Second},
		{"retryDelay hint", `{"retryDelay": "12.5s"}`, 13500 * time.Millisecond},
		{"no hint", "slow down", customRateLimitWait},
		{"empty", "", customRateLimitWait},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rateLimitWait(tt.msg); got != tt.want {
				t.Errorf("rateLimitWait(%q) = %v, want %v", tt.msg, got, tt.want)
			}
		})
	}
}

func TestNewCustomProvider_RequiresEndpoint(t *testing.T) {
	_, err := NewCustomProvider(Config{})
	if err == nil {
		t.Fatal("expected error for missing endpoint")
	}
	var cfgErr *model.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigurationError, got %T", err)
	}
}
