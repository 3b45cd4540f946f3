package extractor

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"summarybot/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF} //nolint:gochecknoglobals // Constant byte sequence.

func extractPlainText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: plain text is not valid UTF-8", domain.ErrExtraction)
	}

	return string(data), nil
}
