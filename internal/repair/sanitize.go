// Package repair recovers a parseable JSON document from an untrusted LLM
// text reply, in increasing order of invasiveness: wrapper stripping,
// structural repair of truncated output, and a metadata-only salvage.
package repair

import (
	"regexp"
	"strings"
)

var preamblePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^Here is the JSON requested:\s*`),
	regexp.MustCompile(`(?i)^Here is .*?JSON:\s*`),
	regexp.MustCompile(`(?i)^Response:\s*`),
}

var fenceOpenPattern = regexp.MustCompile("(?i)```json")

// Sanitize strips code fences and conversational preambles, then slices the
// text to the span between the first opening bracket and the last closing
// bracket. Running it on already-clean JSON is a no-op (idempotent).
func Sanitize(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = fenceOpenPattern.ReplaceAllString(cleaned, "```")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	for _, p := range preamblePatterns {
		cleaned = p.ReplaceAllString(cleaned, "")
	}

	firstCurly := strings.Index(cleaned, "{")
	firstBracket := strings.Index(cleaned, "[")

	start := -1
	switch {
	case firstCurly >= 0 && firstBracket >= 0:
		start = min(firstCurly, firstBracket)
	case firstCurly >= 0:
		start = firstCurly
	case firstBracket >= 0:
		start = firstBracket
	}

	if start >= 0 {
		end := max(strings.LastIndex(cleaned, "}"), strings.LastIndex(cleaned, "]"))
		if end >= start {
			cleaned = cleaned[start : end+1]
		} else {
			// truncated before any closer; keep the tail for repair
			cleaned = cleaned[start:]
		}
	}

	return strings.TrimSpace(cleaned)
}
