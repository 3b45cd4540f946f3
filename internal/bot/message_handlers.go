package bot

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot/models"
)

// handleText summarizes a plain text message. Text below the minimum
// length is rejected before any summarizer call.
func (b *Bot) handleText(ctx context.Context, message *models.Message) error {
	text, err := b.pipeline.Prepare(message.Text)
	if err != nil {
		return err
	}

	var summary string
	err = b.withSpinner(ctx, message.Chat.ID, func() error {
		result, err := b.pipeline.Summarize(ctx, text)
		if err != nil {
			return fmt.Errorf("summarize text: %w", err)
		}

		b.log.InfoContext(ctx, "Text is summarized",
			"chatID", message.Chat.ID,
			"userID", userID(message),
			"chunks", result.Chunks)

		summary = result.Summary
		return nil
	})
	if err != nil {
		return err
	}

	return b.deliver(ctx, message.Chat.ID, summary)
}
