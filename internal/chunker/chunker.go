// Package chunker splits long text into overlapping chunks that fit the
// summarization model's input bound, preferring sentence boundaries.
package chunker

import (
	"fmt"
	"strings"

	"summarybot/internal/domain"
)

const DefaultTerminators = "."

type Chunker struct {
	maxLength   int
	overlap     int
	terminators string
}

func New(maxLength, overlap int, terminators string) (*Chunker, error) {
	if err := validate(maxLength, overlap); err != nil {
		return nil, err
	}

	if terminators == "" {
		terminators = DefaultTerminators
	}

	return &Chunker{
		maxLength:   maxLength,
		overlap:     overlap,
		terminators: terminators,
	}, nil
}

// Split is a shorthand for New with the default terminators followed by
// Chunker.Split.
func Split(text string, maxLength, overlap int) ([]domain.Chunk, error) {
	c, err := New(maxLength, overlap, DefaultTerminators)
	if err != nil {
		return nil, err
	}

	return c.Split(text), nil
}

func (c *Chunker) MaxLength() int {
	return c.maxLength
}

func (c *Chunker) Overlap() int {
	return c.overlap
}

// Split cuts text into chunks of at most maxLength runes. A chunk ends
// right after the last terminator inside its window unless taking that
// shorter cut would need more than ceil(len/(maxLength-overlap)) chunks in
// total, in which case it is cut at exactly maxLength.
func (c *Chunker) Split(text string) []domain.Chunk {
	runes := []rune(text)
	if len(runes) <= c.maxLength {
		return []domain.Chunk{{Index: 0, Text: text, Start: 0, End: len(runes)}}
	}

	step := c.maxLength - c.overlap
	budget := ceilDiv(len(runes), step)

	var chunks []domain.Chunk
	cursor := 0

	for len(runes)-cursor > c.maxLength {
		end := c.maxLength

		if i := c.lastTerminator(runes[cursor : cursor+c.maxLength]); i >= 0 {
			next := c.advance(cursor, i+1)
			if len(chunks)+1+ceilDiv(len(runes)-next, step) <= budget {
				end = i + 1
			}
		}

		chunks = append(chunks, newChunk(len(chunks), runes, cursor, cursor+end))
		cursor = c.advance(cursor, end)
	}

	if strings.TrimSpace(string(runes[cursor:])) != "" {
		chunks = append(chunks, newChunk(len(chunks), runes, cursor, len(runes)))
	}

	return chunks
}

// advance returns the start of the next chunk. It always moves forward: when
// the overlap would reach back to or past cursor, the overlap is dropped.
func (c *Chunker) advance(cursor, end int) int {
	next := cursor + end - c.overlap
	if next <= cursor {
		return cursor + end
	}

	return next
}

func (c *Chunker) lastTerminator(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		if strings.ContainsRune(c.terminators, window[i]) {
			return i
		}
	}

	return -1
}

func newChunk(index int, runes []rune, start, end int) domain.Chunk {
	return domain.Chunk{
		Index: index,
		Text:  string(runes[start:end]),
		Start: start,
		End:   end,
	}
}

func validate(maxLength, overlap int) error {
	switch {
	case maxLength <= 0:
		return fmt.Errorf("%w: chunk max length must be positive (maxLength = %d)",
			domain.ErrInvalidConfiguration, maxLength)
	case overlap < 0:
		return fmt.Errorf("%w: chunk overlap must not be negative (overlap = %d)",
			domain.ErrInvalidConfiguration, overlap)
	case overlap >= maxLength:
		return fmt.Errorf("%w: chunk overlap must be less than max length (overlap = %d, maxLength = %d)",
			domain.ErrInvalidConfiguration, overlap, maxLength)
	}

	return nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
