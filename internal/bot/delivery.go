package bot

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/go-telegram/bot"

	"summarybot/internal/metrics"
)

// SummaryHeader starts the first reply of every summary.
const SummaryHeader = "📑 Summary:\n"

// deliver sends summary as consecutive replies of at most ReplyMaxLength
// characters each, the header included. Delivery stops at the first failed
// send so the user never sees a later part without an earlier one.
func (b *Bot) deliver(ctx context.Context, chatID int64, summary string) error {
	parts := splitRunes(SummaryHeader+summary, b.opts.ReplyMaxLength)

	for i, part := range parts {
		if err := b.sendPlain(ctx, chatID, part); err != nil {
			metrics.ObserveDelivered(i)
			return fmt.Errorf("send summary part %d of %d: %w", i+1, len(parts), err)
		}
	}

	metrics.ObserveDelivered(len(parts))

	return nil
}

func (b *Bot) sendPlain(ctx context.Context, chatID int64, text string) error {
	_, err := b.rateLimiter.Send(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})

	return err
}

// splitRunes cuts s into ceil(len/size) consecutive slices of at most size
// characters. An empty s gives a single empty slice.
func splitRunes(s string, size int) []string {
	n := utf8.RuneCountInString(s)
	if n <= size {
		return []string{s}
	}

	parts := make([]string, 0, (n+size-1)/size)
	start, count := 0, 0
	for i := range s {
		if count == size {
			parts = append(parts, s[start:i])
			start, count = i, 0
		}
		count++
	}
	parts = append(parts, s[start:])

	return parts
}
