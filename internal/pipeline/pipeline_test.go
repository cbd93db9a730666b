package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/plan2fund/fundextract/internal/model"
)

const llmReply = `{
	"metadata": {
		"funding_amount_max": 500000,
		"currency": "EUR",
		"deadline": "2026-03-01",
		"funding_types": ["grant"],
		"region": "Austria"
	},
	"requirements": {
		"eligibility": [
			{"type": "company_type", "value": "SMEs registered in Austria with fewer than 250 employees"}
		],
		"geographic": [
			{"type": "geographic_eligibility", "value": "Companies must be based in Austria"}
		],
		"documents": [
			{"type": "required_documents", "value": "Business plan and annual accounts for the last 2 years"}
		]
	}
}`

// newLLMServer serves an OpenAI-compatible chat completion carrying llmReply
func newLLMServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": llmReply}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func testConfig(t *testing.T, llmEndpoint string) *model.Config {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.HTTP.RespectRobots = false
	cfg.LLM.CustomEndpoint = llmEndpoint
	cfg.Cache.Dir = t.TempDir()
	cfg.RateLimit.RequestsPerSecond = 1000
	cfg.RateLimit.Burst = 100
	return cfg
}

func TestPipeline_ExtractURL_FullFlow(t *testing.T) {
	var llmCalls int32
	llmServer := newLLMServer(t, &llmCalls)
	defer llmServer.Close()

	pageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Basisprogramm</title></head>
			<body><main>Funding program for Austrian SMEs.</main></body></html>`))
	}))
	defer pageServer.Close()

	p := NewPipeline(testConfig(t, llmServer.URL))

	result, err := p.ExtractURL(context.Background(), pageServer.URL+"/program")
	if err != nil {
		t.Fatalf("ExtractURL failed: %v", err)
	}

	if result.URL != pageServer.URL+"/program" {
		t.Errorf("unexpected result URL %q", result.URL)
	}
	if result.Result.Metadata.Deadline != "2026-03-01" {
		t.Errorf("unexpected deadline %q", result.Result.Metadata.Deadline)
	}
	if result.Result.TotalRequirements() != 3 {
		t.Errorf("expected 3 requirements, got %d", result.Result.TotalRequirements())
	}
	if result.Quality.Score == 0 {
		t.Error("expected a quality score")
	}
	if result.Cached {
		t.Error("first extraction must not be served from cache")
	}
}

func TestPipeline_ExtractURL_SecondCallServedFromCache(t *testing.T) {
	var llmCalls int32
	llmServer := newLLMServer(t, &llmCalls)
	defer llmServer.Close()

	pageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><main>Program details.</main></body></html>`))
	}))
	defer pageServer.Close()

	p := NewPipeline(testConfig(t, llmServer.URL))
	url := pageServer.URL + "/program"

	first, err := p.ExtractURL(context.Background(), url)
	if err != nil {
		t.Fatalf("first ExtractURL failed: %v", err)
	}
	second, err := p.ExtractURL(context.Background(), url)
	if err != nil {
		t.Fatalf("second ExtractURL failed: %v", err)
	}

	if atomic.LoadInt32(&llmCalls) != 1 {
		t.Errorf("expected 1 provider call, got %d", llmCalls)
	}
	if !second.Cached {
		t.Error("second extraction must be marked cached")
	}
	if first.Result.Metadata.Region != second.Result.Metadata.Region {
		t.Error("cached result must match the original")
	}
}

func TestPipeline_ExtractText_SkipsFetch(t *testing.T) {
	var llmCalls int32
	llmServer := newLLMServer(t, &llmCalls)
	defer llmServer.Close()

	cfg := testConfig(t, llmServer.URL)
	p := NewPipeline(cfg)

	result, err := p.ExtractText(context.Background(),
		"https://example.com/program",
		"The program funds Austrian SMEs developing renewable energy technology.",
		"Energy Program", "")
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}

	if result.Result == nil || result.Result.TotalRequirements() == 0 {
		t.Error("expected extraction result from plain text")
	}
	if atomic.LoadInt32(&llmCalls) != 1 {
		t.Errorf("expected 1 provider call, got %d", llmCalls)
	}
}

func TestPipeline_ExtractURL_RobotsDisallowed(t *testing.T) {
	var llmCalls int32
	llmServer := newLLMServer(t, &llmCalls)
	defer llmServer.Close()

	pageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
			return
		}
		_, _ = w.Write([]byte("<html><body>secret</body></html>"))
	}))
	defer pageServer.Close()

	cfg := testConfig(t, llmServer.URL)
	cfg.HTTP.RespectRobots = true
	p := NewPipeline(cfg)

	_, err := p.ExtractURL(context.Background(), pageServer.URL+"/private/program")
	if err == nil {
		t.Fatal("expected robots.txt disallow error")
	}
	if !strings.Contains(err.Error(), "robots.txt") {
		t.Errorf("expected robots error, got %v", err)
	}
	if atomic.LoadInt32(&llmCalls) != 0 {
		t.Error("disallowed URL must not reach the provider")
	}
}

func TestPipeline_MissingProviderFailsAtFirstUse(t *testing.T) {
	cfg := testConfig(t, "")
	p := NewPipeline(cfg) // construction must not fail

	_, err := p.ExtractText(context.Background(),
		"https://example.com/program", "some text", "", "")
	if err == nil {
		t.Fatal("expected configuration error at first use")
	}
	if !strings.Contains(err.Error(), "CUSTOM_LLM_ENDPOINT") {
		t.Errorf("expected provider hint in error, got %v", err)
	}
}
