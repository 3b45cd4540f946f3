package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"summarybot/internal/markdown"
)

const welcomeText = `👋 *Hello\!*

Send me any text or upload a document \(%s\), and I'll summarize it for you\! 📄`

func (b *Bot) handleCommand(ctx context.Context, message *models.Message) error {
	command, _, _ := strings.Cut(strings.TrimSpace(message.Text), " ")
	// Commands addressed to a bot in a group look like /start@SomeBot.
	command, _, _ = strings.Cut(command, "@")

	switch command {
	case "/start", "/help":
		return b.handleStartCommand(ctx, message.Chat.ID)
	default:
		b.log.DebugContext(ctx, "Unknown command is ignored",
			"command", command,
			"chatID", message.Chat.ID)

		return nil
	}
}

func (b *Bot) handleStartCommand(ctx context.Context, chatID int64) error {
	text := fmt.Sprintf(welcomeText, markdown.EscapeV2(formatList(b.extractor.MIMETypes())))

	if err := b.sendMarkdown(ctx, chatID, text); err != nil {
		return fmt.Errorf("send welcome message: %w", err)
	}

	return nil
}

func (b *Bot) sendMarkdown(ctx context.Context, chatID int64, text string) error {
	_, err := b.rateLimiter.Send(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeMarkdown,
	})

	return err
}
