package domain

import "errors"

// MIME types of the document formats the extractor understands.
const (
	MIMEPlainText = "text/plain"
	MIMEPDF       = "application/pdf"
	MIMEDOCX      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEHTML      = "text/html"
	MIMEMarkdown  = "text/markdown"
)

var (
	ErrUnsupportedFormat    = errors.New("unsupported format")
	ErrExtraction           = errors.New("extraction failed")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrSummarization        = errors.New("summarization failed")
	ErrTooShort             = errors.New("text is too short")
	ErrNoReadableText       = errors.New("no readable text")
	ErrFileTooLarge         = errors.New("file is too large")
)

// Chunk is a bounded slice of the source text. Start and End are rune
// offsets into the source, so consecutive chunks overlap when
// next.Start < prev.End.
type Chunk struct {
	Index int
	Text  string
	Start int
	End   int
}

// Document is an uploaded file as announced by the messaging platform.
type Document struct {
	FileID       string
	FileUniqueID string
	FileName     string
	MIMEType     string
	Size         int64
}
