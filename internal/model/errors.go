package model

import "fmt"

// ConfigurationError reports a missing precondition (no provider configured,
// or neither html nor text supplied). Never retried.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// ProviderErrorKind classifies a provider failure for retry decisions
type ProviderErrorKind string

const (
	ProviderRateLimit    ProviderErrorKind = "rate_limit"    // retried with provider-specific backoff
	ProviderAccessDenied ProviderErrorKind = "access_denied" // fatal, never retried, never falls back
	ProviderTimeout      ProviderErrorKind = "timeout"       // one retry, then fatal
	ProviderOther        ProviderErrorKind = "other"         // fatal immediately
)

// ProviderError is a failed LLM provider call
type ProviderError struct {
	Provider   string
	StatusCode int
	Kind       ProviderErrorKind
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s provider error (%d, %s): %s", e.Provider, e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s provider error (%s): %s", e.Provider, e.Kind, e.Message)
}

// ParseError reports that a provider reply could not be recovered into JSON
// after sanitization, structural repair, and partial salvage.
type ParseError struct {
	Preview string // leading slice of the offending text, for diagnosis
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to parse LLM response: %v. Response preview: %s", e.Cause, e.Preview)
	}
	return fmt.Sprintf("failed to parse LLM response. Response preview: %s", e.Preview)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
