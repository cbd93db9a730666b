// Package pipeline orchestrates the full crawl flow for one program
// URL: cache check, robots check, rate limiting, fetch, extraction
// and quality scoring.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/plan2fund/fundextract/internal/cache"
	"github.com/plan2fund/fundextract/internal/extract"
	"github.com/plan2fund/fundextract/internal/llm"
	"github.com/plan2fund/fundextract/internal/model"
	"github.com/plan2fund/fundextract/internal/util"
	"github.com/plan2fund/fundextract/internal/validate"
)

// Pipeline runs extractions for program URLs
type Pipeline struct {
	fetcher *Fetcher
	robots  *util.RobotsChecker
	limiter *util.Limiter
	cache   cache.Cache
	config  *model.Config

	engineOnce sync.Once
	engine     *extract.Engine
	engineErr  error
}

// NewPipeline creates a new pipeline with the given configuration.
// The provider client is constructed lazily on the first extraction,
// so a missing provider configuration fails at first use rather than
// at startup.
func NewPipeline(cfg *model.Config) *Pipeline {
	p := &Pipeline{
		fetcher: NewFetcher(cfg.HTTP),
		limiter: util.NewLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		config:  cfg,
	}

	if cfg.HTTP.RespectRobots {
		p.robots = util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout)
	}
	if cfg.Cache.Enabled {
		p.cache = cache.NewLayeredCache(cfg.Cache.TTL, cfg.Cache.Dir, cfg.Cache.TTL)
	}

	return p
}

// URLResult is the outcome of extracting one program URL
type URLResult struct {
	URL       string                  `json:"url"`
	Result    *model.ExtractionResult `json:"result,omitempty"`
	Quality   validate.Report         `json:"quality"`
	FetchedAt time.Time               `json:"fetched_at"`
	Cached    bool                    `json:"cached,omitempty"`
}

// ExtractURL fetches one program page and extracts its requirements
func (p *Pipeline) ExtractURL(ctx context.Context, url string) (*URLResult, error) {
	if p.cache != nil {
		if cached, found := p.cache.Get(cache.ResultKey(url)); found {
			var result URLResult
			if err := json.Unmarshal(cached, &result); err == nil {
				result.Cached = true
				return &result, nil
			}
			// Corrupt entry: drop it and re-extract
			_ = p.cache.Delete(cache.ResultKey(url))
		}
	}

	var crawlDelay time.Duration
	if p.robots != nil {
		allowed, delay, err := p.robots.CanFetch(ctx, url)
		if err == nil && !allowed {
			return nil, fmt.Errorf("disallowed by robots.txt: %s", url)
		}
		crawlDelay = delay
	}

	if err := p.limiter.WaitWithDelay(ctx, url, crawlDelay); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	fetched, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	result, err := p.extractContent(ctx, extract.Request{
		HTML:        fetched.HTML,
		URL:         url,
		Title:       fetched.Title,
		Description: fetched.Description,
	})
	if err != nil {
		return nil, err
	}

	return p.finish(url, result)
}

// ExtractText extracts requirements from a plain-text program
// description, bypassing fetch, robots and rate limiting.
func (p *Pipeline) ExtractText(ctx context.Context, url, text, title, description string) (*URLResult, error) {
	result, err := p.extractContent(ctx, extract.Request{
		Text:        text,
		URL:         url,
		Title:       title,
		Description: description,
	})
	if err != nil {
		return nil, err
	}

	return p.finish(url, result)
}

func (p *Pipeline) extractContent(ctx context.Context, req extract.Request) (*model.ExtractionResult, error) {
	engine, err := p.getEngine()
	if err != nil {
		return nil, err
	}

	result, err := engine.Extract(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	return result, nil
}

func (p *Pipeline) finish(url string, result *model.ExtractionResult) (*URLResult, error) {
	urlResult := &URLResult{
		URL:       url,
		Result:    result,
		Quality:   validate.Check(result),
		FetchedAt: time.Now().UTC(),
	}

	if p.cache != nil {
		if data, err := json.Marshal(urlResult); err == nil {
			_ = p.cache.Set(cache.ResultKey(url), data, p.config.Cache.TTL)
		}
	}

	return urlResult, nil
}

func (p *Pipeline) getEngine() (*extract.Engine, error) {
	p.engineOnce.Do(func() {
		provider, err := llm.NewProvider(llm.ConfigFromModel(p.config.LLM, p.config.HTTP))
		if err != nil {
			p.engineErr = err
			return
		}
		p.engine = extract.NewEngine(provider)
	})
	return p.engine, p.engineErr
}
