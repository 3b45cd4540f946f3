package main

import (
	"fmt"
	"io"
	"log/slog"

	"summarybot/internal/chunker"
	"summarybot/internal/config"
	"summarybot/internal/extractor"
	"summarybot/internal/pipeline"
	"summarybot/internal/summarizer"
)

// components are the parts shared by the serve and summarize commands.
type components struct {
	extractor *extractor.Registry
	guard     *summarizer.Guard
	pipeline  *pipeline.Pipeline
}

func newComponents(cfg config.Config, log *slog.Logger) (*components, error) {
	registry, err := extractor.New(cfg.SupportedMIMETypes)
	if err != nil {
		return nil, fmt.Errorf("init extractor: %w", err)
	}

	c, err := chunker.New(cfg.Chunk.MaxLength, cfg.Chunk.Overlap, cfg.Chunk.Terminators)
	if err != nil {
		return nil, fmt.Errorf("init chunker: %w", err)
	}

	guard, err := summarizer.New(cfg.SummarizerProviderConfig(), log)
	if err != nil {
		return nil, fmt.Errorf("init summarizer: %w", err)
	}

	p := pipeline.New(c, guard, pipeline.Config{
		MinInputLength: cfg.MinInputLength,
		MaxLength:      cfg.Summarizer.MaxLength,
		MinLength:      cfg.Summarizer.MinLength,
		StripURLs:      cfg.StripURLs,
	}, log)

	return &components{
		extractor: registry,
		guard:     guard,
		pipeline:  p,
	}, nil
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel}))
}
