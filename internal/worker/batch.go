package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/plan2fund/fundextract/internal/pipeline"
)

// Extractor defines the interface for extracting one program URL
type Extractor interface {
	ExtractURL(ctx context.Context, url string) (*pipeline.URLResult, error)
}

// ExtractJob represents one URL extraction job
type ExtractJob struct {
	URL       string
	Extractor Extractor
}

// Execute runs the extraction. A failed URL produces a result carrying
// the error; it never aborts the batch.
func (j *ExtractJob) Execute(ctx context.Context) Result {
	result, err := j.Extractor.ExtractURL(ctx, j.URL)
	return &ExtractResult{
		URL:    j.URL,
		Result: result,
		Error:  err,
	}
}

// ExtractResult represents the result of an extraction job
type ExtractResult struct {
	URL    string
	Result *pipeline.URLResult
	Error  error
}

// GetError returns the error from the extraction result
func (r *ExtractResult) GetError() error {
	return r.Error
}

// BatchProcessor extracts multiple program URLs concurrently
type BatchProcessor struct {
	extractor   Extractor
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(extractor Extractor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		extractor:   extractor,
		concurrency: concurrency,
	}
}

// ProcessURLs extracts multiple URLs concurrently
func (b *BatchProcessor) ProcessURLs(ctx context.Context, urls []string) []*ExtractResult {
	if len(urls) == 0 {
		return []*ExtractResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	// Drain results while submitting so a batch larger than the pool's
	// channel buffers cannot wedge Submit.
	collected := make(chan []*ExtractResult, 1)
	go func() {
		var out []*ExtractResult
		for result := range pool.Results() {
			out = append(out, result.(*ExtractResult))
		}
		collected <- out
	}()

	for _, url := range urls {
		pool.Submit(&ExtractJob{
			URL:       url,
			Extractor: b.extractor,
		})
	}
	pool.Close()

	return <-collected
}

// ProcessFile reads URLs from a file and extracts them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ExtractResult, error) {
	urls, err := ReadURLsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read URLs: %w", err)
	}

	return b.ProcessURLs(ctx, urls), nil
}

// ReadURLsFromFile reads URLs from a file, one per line. Empty lines
// and #-comments are skipped; duplicates are collapsed.
func ReadURLsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			urls = append(urls, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return urls, nil
}
