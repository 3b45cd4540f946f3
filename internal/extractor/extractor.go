// Package extractor turns uploaded document bytes into linear text.
package extractor

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"summarybot/internal/domain"
)

// Func extracts text from the raw bytes of a single format.
type Func func(data []byte) (string, error)

// DefaultMIMETypes are the formats accepted when nothing else is configured.
var DefaultMIMETypes = []string{ //nolint:gochecknoglobals // Read-only defaults.
	domain.MIMEPlainText,
	domain.MIMEPDF,
	domain.MIMEDOCX,
}

// Registry dispatches extraction by declared MIME type. It is immutable
// after New and safe for concurrent use.
type Registry struct {
	extractors map[string]Func
}

func New(mimeTypes []string) (*Registry, error) {
	known := builtinExtractors()
	extractors := make(map[string]Func, len(mimeTypes))

	for _, raw := range mimeTypes {
		mimeType := NormalizeMIMEType(raw)
		if mimeType == "" {
			continue
		}

		fn, ok := known[mimeType]
		if !ok {
			return nil, fmt.Errorf("%w: no extractor for %q", domain.ErrInvalidConfiguration, raw)
		}
		extractors[mimeType] = fn
	}

	if len(extractors) == 0 {
		return nil, fmt.Errorf("%w: no supported MIME types", domain.ErrInvalidConfiguration)
	}

	return &Registry{extractors: extractors}, nil
}

func (r *Registry) Supports(mimeType string) bool {
	_, ok := r.extractors[NormalizeMIMEType(mimeType)]
	return ok
}

// MIMETypes returns the accepted types in sorted order.
func (r *Registry) MIMETypes() []string {
	types := make([]string, 0, len(r.extractors))
	for t := range r.extractors {
		types = append(types, t)
	}
	slices.Sort(types)

	return types
}

// Extract returns the text of data interpreted as mimeType. It fails with
// domain.ErrUnsupportedFormat for types the registry does not accept and
// with domain.ErrExtraction when data is not valid for the type.
func (r *Registry) Extract(data []byte, mimeType string) (string, error) {
	fn, ok := r.extractors[NormalizeMIMEType(mimeType)]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, mimeType)
	}

	return fn(data)
}

// NormalizeMIMEType lowercases the media type and drops its parameters.
func NormalizeMIMEType(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(raw)
	}

	return mediaType
}

// DetectMIMEType guesses the type of a local file, first by extension and
// then by sniffing its content.
func DetectMIMEType(fileName string, data []byte) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".txt", ".text":
		return domain.MIMEPlainText
	case ".pdf":
		return domain.MIMEPDF
	case ".docx":
		return domain.MIMEDOCX
	case ".html", ".htm":
		return domain.MIMEHTML
	case ".md", ".markdown":
		return domain.MIMEMarkdown
	}

	return NormalizeMIMEType(http.DetectContentType(data))
}

func builtinExtractors() map[string]Func {
	return map[string]Func{
		domain.MIMEPlainText: extractPlainText,
		domain.MIMEPDF:       extractPDF,
		domain.MIMEDOCX:      extractDOCX,
		domain.MIMEHTML:      extractHTML,
		domain.MIMEMarkdown:  extractMarkdown,
	}
}
