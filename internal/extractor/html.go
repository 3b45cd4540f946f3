package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"summarybot/internal/domain"
)

const htmlBlockSelector = "p, div, br, li, tr, h1, h2, h3, h4, h5, h6, blockquote, pre"

func extractHTML(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: parse html: %w", domain.ErrExtraction, err)
	}

	doc.Find("script, style, noscript, template").Remove()
	doc.Find(htmlBlockSelector).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return compactLines(doc.Find("body").Text()), nil
}

// compactLines trims every line and drops the empty ones.
func compactLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]

	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}

	return strings.Join(kept, "\n")
}
