package repair

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/plan2fund/fundextract/internal/model"
)

const previewLen = 300

var trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
var danglingCommaPattern = regexp.MustCompile(`,\s*$`)

// Recover turns an untrusted text blob into a parseable JSON document.
// Tiers, in order: sanitize wrappers and parse directly; structurally repair
// a truncated document; salvage a metadata-only document. Anything beyond
// that is a fatal ParseError carrying a preview of the offending text.
func Recover(text string) (string, error) {
	cleaned := Sanitize(text)
	if json.Valid([]byte(cleaned)) {
		return cleaned, nil
	}

	parseErr := parseProbe(cleaned)
	if isTruncation(parseErr) {
		repaired := RepairTruncated(cleaned)
		if json.Valid([]byte(repaired)) {
			return repaired, nil
		}
	}

	// Partial salvage: a reply cut off before the requirements section still
	// carries program-level facts worth keeping. Only the metadata-present,
	// requirements-absent shape is salvaged; other truncation shapes fail.
	if strings.Contains(text, `"metadata"`) && !strings.Contains(text, `"requirements"`) {
		if doc, ok := salvageMetadata(text); ok {
			return doc, nil
		}
	}

	return "", &model.ParseError{Preview: Preview(text), Cause: parseErr}
}

// RepairTruncated applies structural repair for output cut off near a token
// limit: close a dangling unterminated string, strip trailing commas, then
// close every still-open array and object in reverse order of opening.
// It is a pure function; soundness is only promised for a single trailing
// truncation.
func RepairTruncated(s string) string {
	if hasDanglingString(s) {
		s += `"`
	}

	s = trailingCommaPattern.ReplaceAllString(s, "$1")
	s = danglingCommaPattern.ReplaceAllString(s, "")

	for _, opener := range openContainers(s) {
		switch opener {
		case '[':
			s += "]"
		case '{':
			s += "}"
		}
	}

	return s
}

// hasDanglingString reports whether the text ends inside an unterminated
// JSON string (an odd number of unescaped quotes).
func hasDanglingString(s string) bool {
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
		}
	}
	return inString
}

// openContainers returns the unclosed bracket/brace openers in closing
// order (innermost first), ignoring brackets inside string literals.
func openContainers(s string) []byte {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch c {
		case '{', '[':
			stack = append(stack, c)
		case '}':
			if len(stack) > 0 && stack[len(stack)-1] == '{' {
				stack = stack[:len(stack)-1]
			}
		case ']':
			if len(stack) > 0 && stack[len(stack)-1] == '[' {
				stack = stack[:len(stack)-1]
			}
		}
	}

	// reverse: closers must be appended innermost-first
	for i, j := 0, len(stack)-1; i < j; i, j = i+1, j-1 {
		stack[i], stack[j] = stack[j], stack[i]
	}
	return stack
}

// salvageMetadata extracts the metadata object from a reply whose
// requirements section never arrived and wraps it in a minimal valid
// document with empty requirements.
func salvageMetadata(text string) (string, bool) {
	idx := strings.Index(text, `"metadata"`)
	if idx < 0 {
		return "", false
	}

	rest := text[idx+len(`"metadata"`):]
	open := strings.Index(rest, "{")
	if open < 0 {
		return "", false
	}
	rest = rest[open:]

	obj := balancedPrefix(rest)
	if !json.Valid([]byte(obj)) {
		obj = RepairTruncated(obj)
		if !json.Valid([]byte(obj)) {
			return "", false
		}
	}

	doc := `{"metadata":` + obj + `,"requirements":{}}`
	if !json.Valid([]byte(doc)) {
		return "", false
	}
	return doc, true
}

// balancedPrefix returns the prefix of s up to and including the brace that
// balances its leading opener, or all of s if the text is cut off first.
func balancedPrefix(s string) string {
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch c {
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return s
}

// parseProbe re-parses to capture the decoder's error for classification
func parseProbe(s string) error {
	var v any
	return json.Unmarshal([]byte(s), &v)
}

// isTruncation reports whether the parse error looks like cut-off output
// (unterminated string, unexpected end, or any position-specific syntax
// complaint) rather than a non-JSON reply.
func isTruncation(err error) bool {
	if err == nil {
		return false
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return true
	}
	return strings.Contains(err.Error(), "unexpected end of JSON input")
}

// Preview trims a response to a short excerpt suitable for error
// messages and logs.
func Preview(text string) string {
	text = strings.TrimSpace(text)
	if len(text) > previewLen {
		return text[:previewLen] + "..."
	}
	return text
}
