package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot/models"

	"summarybot/internal/domain"
	"summarybot/internal/metrics"
)

const genericFailureText = "❌ Oops! Something went wrong while summarizing. Please try again later."

// errorReply maps an error class to the text the user sees. Rejections are
// expected outcomes of bad input; everything else is a failure.
type errorReply struct {
	target    error
	rejection bool
	text      func(b *Bot) string
}

//nolint:gochecknoglobals // Dispatch table meant to be immutable.
var errorReplies = []errorReply{
	{
		target:    domain.ErrUnsupportedFormat,
		rejection: true,
		text: func(b *Bot) string {
			return fmt.Sprintf("⚠️ Unsupported file format! Please upload a %s file.",
				formatList(b.extractor.MIMETypes()))
		},
	},
	{
		target:    domain.ErrFileTooLarge,
		rejection: true,
		text: func(b *Bot) string {
			return fmt.Sprintf("⚠️ The file is too large. The limit is %s.", formatBytes(b.opts.MaxFileSize))
		},
	},
	{
		target:    domain.ErrTooShort,
		rejection: true,
		text: func(b *Bot) string {
			return fmt.Sprintf("⚠️ Please provide a longer text (at least %d characters) for summarization.",
				b.opts.MinInputLength)
		},
	},
	{
		target:    domain.ErrNoReadableText,
		rejection: true,
		text: func(*Bot) string {
			return "⚠️ No readable text found in the document. Please try another file."
		},
	},
	{
		target: domain.ErrExtraction,
		text: func(*Bot) string {
			return "❌ An error occurred while processing your document."
		},
	},
	{
		target: domain.ErrSummarization,
		text: func(*Bot) string {
			return genericFailureText
		},
	},
}

func lookupReply(b *Bot, err error) (string, bool) {
	for _, r := range errorReplies {
		if errors.Is(err, r.target) {
			return r.text(b), r.rejection
		}
	}

	return genericFailureText, false
}

// finish records the outcome of one event and, on error, tells the user.
// Internal error detail only goes to the log.
func (b *Bot) finish(ctx context.Context, message *models.Message, kind string, err error) {
	if err == nil {
		metrics.ObserveRequest(kind, metrics.OutcomeDelivered)
		return
	}

	text, rejection := lookupReply(b, err)

	fields := []any{
		"error", err,
		"kind", kind,
		"chatID", message.Chat.ID,
		"userID", userID(message),
		"messageID", message.ID,
	}
	if rejection {
		metrics.ObserveRequest(kind, metrics.OutcomeRejected)
		b.log.InfoContext(ctx, "Request is rejected", fields...)
	} else {
		metrics.ObserveRequest(kind, metrics.OutcomeFailed)
		b.log.ErrorContext(ctx, "Failed to handle message", fields...)
	}

	if sendErr := b.sendPlain(ctx, message.Chat.ID, text); sendErr != nil {
		b.log.ErrorContext(ctx, "Failed to send error reply",
			"error", sendErr,
			"chatID", message.Chat.ID)
	}
}

var formatLabels = map[string]string{ //nolint:gochecknoglobals // Read-only labels.
	domain.MIMEPlainText: "TXT",
	domain.MIMEPDF:       "PDF",
	domain.MIMEDOCX:      "DOCX",
	domain.MIMEHTML:      "HTML",
	domain.MIMEMarkdown:  "Markdown",
}

// formatList renders accepted types the way people name them:
// "TXT, PDF, or DOCX".
func formatList(mimeTypes []string) string {
	labels := make([]string, 0, len(mimeTypes))
	for _, mimeType := range mimeTypes {
		label, ok := formatLabels[mimeType]
		if !ok {
			label = mimeType
		}
		labels = append(labels, label)
	}

	switch len(labels) {
	case 0:
		return ""
	case 1:
		return labels[0]
	case 2:
		return labels[0] + " or " + labels[1]
	default:
		return strings.Join(labels[:len(labels)-1], ", ") + ", or " + labels[len(labels)-1]
	}
}

func formatBytes(n int64) string {
	const mib = 1 << 20
	if n >= mib && n%mib == 0 {
		return fmt.Sprintf("%d MB", n/mib)
	}

	return fmt.Sprintf("%d bytes", n)
}
