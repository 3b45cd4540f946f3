package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"summarybot/internal/domain"
	"summarybot/internal/extractor"
	"summarybot/internal/markdown"
	"summarybot/internal/staging"
)

const receivedText = "📄 Received %s\\! Extracting text and summarizing\\.\\.\\. 🔍"

// handleDocument runs the document flow: type check, size check, download,
// extraction, validation, summarization and delivery. The type and size
// checks happen before anything is downloaded.
func (b *Bot) handleDocument(ctx context.Context, message *models.Message) error {
	doc := documentFromMessage(message.Document)

	if !b.extractor.Supports(doc.MIMEType) {
		return fmt.Errorf("%w: %q (%s)", domain.ErrUnsupportedFormat, doc.MIMEType, doc.FileName)
	}

	if doc.Size > b.opts.MaxFileSize {
		return fmt.Errorf("%w: %d bytes, limit is %d", domain.ErrFileTooLarge, doc.Size, b.opts.MaxFileSize)
	}

	if err := b.sendReceivedNotice(ctx, message.Chat.ID, doc); err != nil {
		b.log.WarnContext(ctx, "Failed to send received notice",
			"error", err,
			"chatID", message.Chat.ID)
	}

	var summary string
	err := b.withSpinner(ctx, message.Chat.ID, func() error {
		text, err := b.extractDocument(ctx, doc)
		if err != nil {
			return err
		}

		text, err = b.pipeline.Prepare(text)
		if err != nil {
			return err
		}

		result, err := b.pipeline.Summarize(ctx, text)
		if err != nil {
			return fmt.Errorf("summarize document: %w", err)
		}

		b.log.InfoContext(ctx, "Document is summarized",
			"chatID", message.Chat.ID,
			"userID", userID(message),
			"mimeType", doc.MIMEType,
			"fileSize", doc.Size,
			"chunks", result.Chunks)

		summary = result.Summary
		return nil
	})
	if err != nil {
		return err
	}


	return b.deliver(ctx, message.Chat.ID, summary)
}

func documentFromMessage(d *models.Document) domain.Document {
	return domain.Document{
		FileID:       d.FileID,
		FileUniqueID: d.FileUniqueID,
		FileName:     d.FileName,
		MIMEType:     extractor.NormalizeMIMEType(d.MimeType),
		Size:         d.FileSize,
	}
}

func (b *Bot) sendReceivedNotice(ctx context.Context, chatID int64, doc domain.Document) error {
	name := "your document"
	if doc.FileName != "" {
		name = doc.FileName
	}

	return b.sendMarkdown(ctx, chatID, fmt.Sprintf(receivedText, markdown.Bold(name)))
}

// extractDocument downloads the document into the staging area and
// extracts its text. The staged file is removed before returning, on every
// path.
func (b *Bot) extractDocument(ctx context.Context, doc domain.Document) (string, error) {
	staged, err := b.download(ctx, doc)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := staged.Remove(); err != nil {
			b.log.ErrorContext(ctx, "Failed to remove staged file",
				"error", err,
				"path", staged.Path)
		}
	}()

	data, err := staged.ReadAll()
	if err != nil {
		return "", fmt.Errorf("read staged file: %w", err)
	}

	text, err := b.extractor.Extract(data, doc.MIMEType)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", doc.MIMEType, err)
	}

	return text, nil
}

func (b *Bot) download(ctx context.Context, doc domain.Document) (*staging.File, error) {
	file, err := b.api.GetFile(ctx, &bot.GetFileParams{FileID: doc.FileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.api.FileDownloadLink(file), nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: unexpected status %d", resp.StatusCode)
	}

	staged, err := b.staging.Stage(resp.Body, doc.FileUniqueID, b.opts.MaxFileSize)
	if err != nil {
		if errors.Is(err, domain.ErrFileTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("stage file: %w", err)
	}

	return staged, nil
}
