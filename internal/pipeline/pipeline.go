// Package pipeline turns validated source text into one summary: chunk,
// summarize every chunk in order, aggregate.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"mvdan.cc/xurls/v2"

	"summarybot/internal/chunker"
	"summarybot/internal/domain"
	"summarybot/internal/metrics"
	"summarybot/internal/summarizer"
)

type Config struct {
	// MinInputLength is the smallest accepted input, in characters after
	// trimming.
	MinInputLength int
	// MaxLength and MinLength are passed to every summarizer call.
	MaxLength int
	MinLength int
	StripURLs bool
}

type Result struct {
	Summary string
	Chunks  int
}

type Pipeline struct {
	chunker    *chunker.Chunker
	summarizer summarizer.Summarizer
	cfg        Config
	urlRe      *regexp.Regexp
	log        *slog.Logger
}

func New(
	c *chunker.Chunker,
	s summarizer.Summarizer,
	cfg Config,
	log *slog.Logger,
) *Pipeline {
	p := &Pipeline{
		chunker:    c,
		summarizer: s,
		cfg:        cfg,
		log:        log,
	}
	if cfg.StripURLs {
		p.urlRe = xurls.Relaxed()
	}

	return p
}

// Prepare normalizes text and checks it against the minimum length.
// Text that is empty after normalization gives domain.ErrNoReadableText.
func (p *Pipeline) Prepare(text string) (string, error) {
	if p.urlRe != nil {
		text = p.urlRe.ReplaceAllString(text, "")
	}
	text = strings.TrimSpace(text)

	if text == "" {
		return "", domain.ErrNoReadableText
	}

	if n := utf8.RuneCountInString(text); n < p.cfg.MinInputLength {
		return "", fmt.Errorf("%w: %d characters, need at least %d",
			domain.ErrTooShort, n, p.cfg.MinInputLength)
	}

	return text, nil
}

// Summarize summarizes text chunk by chunk. Chunk i+1 is submitted only
// after chunk i has a summary; the first failure stops the run.
func (p *Pipeline) Summarize(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, domain.ErrNoReadableText
	}

	chunks := p.chunker.Split(text)

	metrics.ObserveChunks(len(chunks))

	summaries := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		summary, err := p.summarizer.Summarize(ctx, summarizer.Input{
			Text:      chunk.Text,
			MaxLength: p.cfg.MaxLength,
			MinLength: p.cfg.MinLength,
		})
		if err != nil {
			return Result{}, fmt.Errorf("summarize chunk %d of %d: %w",
				chunk.Index+1, len(chunks), err)
		}

		p.log.DebugContext(ctx, "Chunk is summarized",
			"chunk", chunk.Index,
			"chunks", len(chunks),
			"chunkLength", chunk.End-chunk.Start,
			"summaryLength", utf8.RuneCountInString(summary))

		summaries = append(summaries, summary)
	}

	return Result{
		Summary: Aggregate(summaries),
		Chunks:  len(chunks),
	}, nil
}

// Aggregate joins chunk summaries with a single space, in order.
func Aggregate(summaries []string) string {
	return strings.Join(summaries, " ")
}
