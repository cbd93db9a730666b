package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/plan2fund/fundextract/internal/model"
	"github.com/plan2fund/fundextract/internal/pipeline"
)

var (
	outJSON    string
	timeout    time.Duration
	userAgent  string
	maxBytes   int64
	noCache    bool
	noRobots   bool
	textFile   string
	pageTitle  string
	pageDesc   string
	httpProxy  string
	httpsProxy string
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <url>",
	Short: "Extract structured requirements from a funding program page",
	Long: `Extract fetches a funding program page and produces structured data:
- Program metadata (funding amounts, deadline, contacts, funding types)
- Categorized requirements (eligibility, documents, financial, ...)
- A completeness score flagging missing high-value fields

With --text-file the page fetch is skipped and the file's contents are
used as a plain-text program description; the URL is still required as
a correlation key and for inference context.

Example:
  fundextract extract https://www.ffg.at/en/program/basisprogramm
  fundextract extract https://example.com/grant --json result.json
  fundextract extract https://example.com/grant --text-file program.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	// Output flags
	extractCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (default: stdout)")

	// HTTP flags
	extractCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall extraction timeout")
	extractCmd.Flags().StringVar(&userAgent, "ua", "fundextract/0.1 (+https://github.com/plan2fund/fundextract)", "HTTP User-Agent")
	extractCmd.Flags().Int64Var(&maxBytes, "max-bytes", 2_000_000, "max response bytes to read")
	extractCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh extraction)")
	extractCmd.Flags().BoolVar(&noRobots, "no-robots", false, "skip robots.txt checks")
	extractCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	extractCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	// Content flags
	extractCmd.Flags().StringVar(&textFile, "text-file", "", "plain-text program description (skips page fetch)")
	extractCmd.Flags().StringVar(&pageTitle, "title", "", "program title for prompt context")
	extractCmd.Flags().StringVar(&pageDesc, "description", "", "program description for prompt context")
}

func runExtract(cmd *cobra.Command, args []string) error {
	url := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg := model.DefaultConfig()
	cfg.HTTP.Timeout = timeout
	cfg.HTTP.UserAgent = userAgent
	cfg.HTTP.MaxBodyBytes = maxBytes
	cfg.HTTP.RespectRobots = !noRobots
	cfg.HTTP.HTTPProxy = httpProxy
	cfg.HTTP.HTTPSProxy = httpsProxy
	cfg.Cache.Enabled = !noCache
	cfg.Output.Verbose = verbose
	cfg.LoadEnv()

	if verbose {
		fmt.Fprintf(os.Stderr, "Extracting: %s\n", url)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", !noCache)
		fmt.Fprintln(os.Stderr)
	}

	p := pipeline.NewPipeline(cfg)

	var result *pipeline.URLResult
	var err error

	if textFile != "" {
		data, readErr := os.ReadFile(textFile)
		if readErr != nil {
			return fmt.Errorf("read text file: %w", readErr)
		}
		result, err = p.ExtractText(ctx, url, string(data), pageTitle, pageDesc)
	} else {
		result, err = p.ExtractURL(ctx, url)
	}
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Extracted %d requirements in %d categories\n",
			result.Result.TotalRequirements(), len(result.Result.CategorizedRequirements))
		fmt.Fprintf(os.Stderr, "✓ Quality score: %d/100\n", result.Quality.Score)
		if len(result.Quality.Missing) > 0 {
			fmt.Fprintf(os.Stderr, "  Missing: %v\n", result.Quality.Missing)
		}
		if result.Cached {
			fmt.Fprintf(os.Stderr, "  (served from cache)\n")
		}
		fmt.Fprintln(os.Stderr)
	}

	return writeResult(result, outJSON)
}

// writeResult renders a result as indented JSON to a file or stdout
func writeResult(result *pipeline.URLResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", path)
	}
	return nil
}
