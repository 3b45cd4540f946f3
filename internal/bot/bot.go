package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"summarybot/internal/metrics"
	"summarybot/internal/pipeline"
	"summarybot/internal/ratelimiter"
	"summarybot/internal/staging"
)

// telegramAPI is the part of the Telegram client the handlers use besides
// sending messages, which goes through the rate limiter.
type telegramAPI interface {
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
	GetFile(ctx context.Context, params *bot.GetFileParams) (*models.File, error)
	FileDownloadLink(f *models.File) string
}

type textExtractor interface {
	Supports(mimeType string) bool
	MIMETypes() []string
	Extract(data []byte, mimeType string) (string, error)
}

type summaryPipeline interface {
	Prepare(text string) (string, error)
	Summarize(ctx context.Context, text string) (pipeline.Result, error)
}

type Options struct {
	MinInputLength int
	MaxFileSize    int64
	ReplyMaxLength int
}

type Bot struct {
	client      *bot.Bot
	api         telegramAPI
	rateLimiter *ratelimiter.RateLimiter
	extractor   textExtractor
	pipeline    summaryPipeline
	staging     *staging.Area
	httpClient  *http.Client
	opts        Options
	log         *slog.Logger
}

func New(
	token string,
	extractor textExtractor,
	pipeline summaryPipeline,
	stagingArea *staging.Area,
	opts Options,
	log *slog.Logger,
) (*Bot, error) {
	b := &Bot{
		extractor:  extractor,
		pipeline:   pipeline,
		staging:    stagingArea,
		httpClient: &http.Client{},
		opts:       opts,
		log:        log,
	}

	client, err := bot.New(
		strings.TrimSpace(token),
		bot.WithDefaultHandler(b.handleUpdate),
		bot.WithErrorsHandler(func(err error) {
			log.Error("Telegram client error",
				"error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create telegram client: %w", err)
	}

	b.client = client
	b.attach(client, client)

	return b, nil
}

func (b *Bot) attach(api telegramAPI, sender ratelimiter.Sender, opts ...ratelimiter.Option) {
	b.api = api
	b.rateLimiter = ratelimiter.New(sender, b.log, opts...)
}

// Start polls for updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	b.log.InfoContext(ctx, "Bot is started")

	b.client.Start(ctx)

	b.log.InfoContext(ctx, "Bot context is done",
		"error", ctx.Err())
}

func (b *Bot) Stop() {
	if b.rateLimiter != nil {
		b.rateLimiter.Stop()
	}
}

// handleUpdate processes one update to completion. A panic in a handler is
// logged and answered with the generic failure reply so the update loop
// keeps running.
func (b *Bot) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	message := update.Message
	if message == nil {
		return
	}

	chatID := message.Chat.ID

	defer func() {
		if r := recover(); r != nil {
			b.log.ErrorContext(ctx, "Recovered from panic in update handler",
				"panic", r,
				"chatID", chatID,
				"updateID", update.ID,
				"stack", string(debug.Stack()))
			b.finish(ctx, message, eventKind(message), fmt.Errorf("panic: %v", r))
		}
	}()

	kind := eventKind(message)

	var err error
	switch kind {
	case metrics.KindDocument:
		err = b.handleDocument(ctx, message)
	case metrics.KindCommand:
		err = b.handleCommand(ctx, message)
	case metrics.KindText:
		err = b.handleText(ctx, message)
	default:
		return
	}

	b.finish(ctx, message, kind, err)
}

func eventKind(message *models.Message) string {
	switch {
	case message.Document != nil:
		return metrics.KindDocument
	case isCommand(message):
		return metrics.KindCommand
	case message.Text != "":
		return metrics.KindText
	default:
		return ""
	}
}

// isCommand reports whether the message opens with a bot_command entity, the
// way Telegram marks "/start" but not a path like "/usr/lib".
func isCommand(message *models.Message) bool {
	if len(message.Entities) == 0 {
		return false
	}
	entity := message.Entities[0]

	return entity.Type == models.MessageEntityTypeBotCommand && entity.Offset == 0
}

func userID(message *models.Message) int64 {
	if message.From == nil {
		return 0
	}

	return message.From.ID
}
