package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/plan2fund/fundextract/internal/model"
)

func testHTTPConfig() model.HTTPConfig {
	return model.HTTPConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "fundextract-test/1.0",
		MaxBodyBytes: 2_000_000,
	}
}

func TestFetcher_Fetch_ExtractsPageMeta(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "fundextract-test/1.0" {
			t.Errorf("unexpected User-Agent: %s", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte(`<html><head>
			<title>Basisprogramm | FFG</title>
			<meta name="description" content="Funding for industrial research projects.">
		</head><body><main>Details</main></body></html>`))
	}))
	defer server.Close()

	fetcher := NewFetcher(testHTTPConfig())
	result, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if result.Title != "Basisprogramm | FFG" {
		t.Errorf("unexpected title: %q", result.Title)
	}
	if result.Description != "Funding for industrial research projects." {
		t.Errorf("unexpected description: %q", result.Description)
	}
	if !strings.Contains(result.HTML, "<main>Details</main>") {
		t.Error("HTML body missing")
	}
	if result.StatusCode != http.StatusOK {
		t.Errorf("unexpected status %d", result.StatusCode)
	}
}

func TestFetcher_Fetch_OGDescriptionFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head>
			<meta property="og:description" content="Grant program overview.">
		</head><body></body></html>`))
	}))
	defer server.Close()

	fetcher := NewFetcher(testHTTPConfig())
	result, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if result.Description != "Grant program overview." {
		t.Errorf("expected og:description fallback, got %q", result.Description)
	}
}

func TestFetcher_Fetch_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(testHTTPConfig())
	_, err := fetcher.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error should carry the status: %v", err)
	}
}

func TestFetcher_Fetch_RedirectLimit(t *testing.T) {
	var server *httptest.Server
	hops := 0
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hops++
		http.Redirect(w, r, fmt.Sprintf("%s/hop%d", server.URL, hops), http.StatusFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(testHTTPConfig())
	_, err := fetcher.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error after redirect limit")
	}
	if !strings.Contains(err.Error(), "redirect") {
		t.Errorf("expected redirect error, got %v", err)
	}
}

func TestFetcher_Fetch_BodySizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 1000)))
	}))
	defer server.Close()

	cfg := testHTTPConfig()
	cfg.MaxBodyBytes = 100

	fetcher := NewFetcher(cfg)
	result, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(result.HTML) != 100 {
		t.Errorf("expected body capped at 100 bytes, got %d", len(result.HTML))
	}
}

func TestFetcher_Fetch_FollowsRedirectToFinalURL(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>target</body></html>"))
	}))
	defer target.Close()

	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusMovedPermanently)
	}))
	defer source.Close()

	fetcher := NewFetcher(testHTTPConfig())
	result, err := fetcher.Fetch(context.Background(), source.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !strings.HasPrefix(result.FinalURL, target.URL) {
		t.Errorf("expected final URL %s, got %s", target.URL, result.FinalURL)
	}
}
