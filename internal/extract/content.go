// Package extract implements the structured requirement extraction engine:
// content normalization, prompt construction, response transformation, and
// the orchestrating Engine.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/plan2fund/fundextract/internal/model"
)

const (
	// MaxContentLength bounds the excerpt handed to the model (~12,500 tokens)
	MaxContentLength = 50000

	// TruncationMarker tells downstream consumers and the model itself that
	// the content was cut
	TruncationMarker = "... [content truncated]"
)

const (
	removeSelector      = "script, style, noscript, iframe, nav, footer, header, aside, .advertisement, .cookie-banner"
	mainContentSelector = "main, article, .content, #content, .main-content"
)

// NormalizeContent reduces a raw page body or plain-text description into a
// bounded excerpt suitable for a prompt. Plain text is used verbatim and
// flips the returned text-mode flag; markup is stripped of non-content
// elements with a recognizable main-content region preferred over the full
// body. Neither input present is a ConfigurationError.
func NormalizeContent(html, text string) (content string, textMode bool, err error) {
	switch {
	case text != "":
		content = text
		textMode = true

	case html != "":
		content, err = reduceMarkup(html)
		if err != nil {
			return "", false, err
		}

	default:
		return "", false, &model.ConfigurationError{Reason: "either html or text must be provided"}
	}

	if len(content) > MaxContentLength {
		content = content[:MaxContentLength] + TruncationMarker
	}

	return content, textMode, nil
}

func reduceMarkup(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find(removeSelector).Remove()

	main := doc.Find(mainContentSelector).First()
	if main.Length() > 0 {
		return main.Text(), nil
	}
	return doc.Find("body").Text(), nil
}
