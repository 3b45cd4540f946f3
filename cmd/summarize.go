package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"summarybot/internal/config"
	"summarybot/internal/domain"
	"summarybot/internal/extractor"
)

func newSummarizeCmd() *cobra.Command {
	var mimeType string

	cmd := &cobra.Command{
		Use:   "summarize FILE",
		Short: "Summarize a local document and print the result",
		Long: `Runs the same extraction and summarization the bot runs for an uploaded
document. The format is taken from --mime or guessed from the file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := runSummarize(cmd.Context(), args[0], mimeType)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), summary)
			return err
		},
	}

	cmd.Flags().StringVarP(&mimeType, "mime", "m", "", "MIME type of FILE (default: detected)")

	return cmd
}

func runSummarize(ctx context.Context, path, mimeType string) (string, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return "", err
	}

	log := newLogger(cfg, os.Stderr)

	comps, err := newComponents(cfg, log)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}

	if mimeType == "" {
		mimeType = extractor.DetectMIMEType(path, data)
	}
	mimeType = extractor.NormalizeMIMEType(mimeType)

	if !comps.extractor.Supports(mimeType) {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, mimeType)
	}

	text, err := comps.extractor.Extract(data, mimeType)
	if err != nil {
		return "", err
	}

	text, err = comps.pipeline.Prepare(text)
	if err != nil {
		return "", err
	}

	result, err := comps.pipeline.Summarize(ctx, text)
	if err != nil {
		return "", err
	}

	log.InfoContext(ctx, "Document is summarized",
		"path", path,
		"mimeType", mimeType,
		"chunks", result.Chunks)

	return result.Summary, nil
}
