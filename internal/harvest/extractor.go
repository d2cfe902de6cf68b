package harvest

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// extractFunc turns a fetched article page into plain text.
type extractFunc func(body []byte, pageURL *url.URL) (string, error)

// extractorFor maps a configured extractor name to its implementation.
// Unknown names fall back to paragraph extraction.
func extractorFor(name string) extractFunc {
	if name == "readability" {
		return readableText
	}
	return paragraphText
}

// paragraphText returns the text of every <p> element joined with newlines.
func paragraphText(body []byte, _ *url.URL) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parsing article HTML: %w", err)
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		paragraphs = append(paragraphs, s.Text())
	})
	return strings.Join(paragraphs, "\n"), nil
}

// readableText returns the main readable text content using go-readability.
func readableText(body []byte, pageURL *url.URL) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability extraction: %w", err)
	}
	return strings.TrimSpace(article.TextContent), nil
}
