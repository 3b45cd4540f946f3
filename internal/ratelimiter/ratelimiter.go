package ratelimiter

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	privateChatRate = time.Second
	groupChatRate   = 3 * time.Second
	queueSize       = 100
	idleGrace       = time.Second
)

// Sender is the part of the Telegram API the limiter throttles.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type request struct {
	ctx      context.Context
	params   *bot.SendMessageParams
	response chan response
}

type response struct {
	message *models.Message
	err     error
}

// chatQueue paces one chat. It is owned by its worker goroutine except for
// pending, which is guarded by RateLimiter.mu.
type chatQueue struct {
	chatID   int64
	requests chan request
	pending  int
	lastSent time.Time
}

// RateLimiter keeps the per-chat pace Telegram tolerates. Every chat gets
// its own queue and worker, so waiting out one chat's delay never holds back
// another chat. Messages to one chat leave in the order Send was called.
type RateLimiter struct {
	api         Sender
	chats       map[int64]*chatQueue
	privateRate time.Duration
	groupRate   time.Duration
	idleTimeout time.Duration
	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	log         *slog.Logger
}

type Option func(*RateLimiter)

// WithRates overrides the minimal gap between two messages to one chat.
func WithRates(private, group time.Duration) Option {
	return func(rl *RateLimiter) {
		rl.privateRate = private
		rl.groupRate = group
	}
}

func New(api Sender, log *slog.Logger, opts ...Option) *RateLimiter {
	ctx, cancel := context.WithCancel(context.Background())

	rl := &RateLimiter{
		api:         api,
		chats:       make(map[int64]*chatQueue),
		privateRate: privateChatRate,
		groupRate:   groupChatRate,
		ctx:         ctx,
		cancel:      cancel,
		log:         log,
	}
	for _, opt := range opts {
		opt(rl)
	}

	// A worker outlives its last message by at least one pacing interval so
	// the next message to the same chat still sees lastSent.
	rl.idleTimeout = max(rl.privateRate, rl.groupRate) + idleGrace

	return rl
}

func (rl *RateLimiter) Send(
	ctx context.Context,
	params *bot.SendMessageParams,
) (*models.Message, error) {
	if err := rl.ctx.Err(); err != nil {
		return nil, err
	}

	req := request{
		ctx:      ctx,
		params:   params,
		response: make(chan response, 1),
	}

	chat := rl.acquire(getChatID(params.ChatID))

	select {
	case chat.requests <- req:
	case <-ctx.Done():
		rl.release(chat)
		return nil, ctx.Err()
	case <-rl.ctx.Done():
		rl.release(chat)
		return nil, rl.ctx.Err()
	}

	select {
	case resp := <-req.response:
		return resp.message, resp.err
	case <-rl.ctx.Done():
		return nil, rl.ctx.Err()
	}
}

func (rl *RateLimiter) Stop() {
	rl.cancel()
}

// acquire returns the queue of chatID, starting its worker when needed, and
// marks one more request as pending so the worker does not retire.
func (rl *RateLimiter) acquire(chatID int64) *chatQueue {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	chat, ok := rl.chats[chatID]
	if !ok {
		chat = &chatQueue{
			chatID:   chatID,
			requests: make(chan request, queueSize),
		}
		rl.chats[chatID] = chat

		go rl.processQueue(chat)
	}
	chat.pending++

	return chat
}

func (rl *RateLimiter) release(chat *chatQueue) {
	rl.mu.Lock()
	chat.pending--
	rl.mu.Unlock()
}

// retire removes an idle queue. It refuses while a Send still holds the
// queue, since that request is about to be enqueued.
func (rl *RateLimiter) retire(chat *chatQueue) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if chat.pending > 0 {
		return false
	}
	delete(rl.chats, chat.chatID)

	return true
}

func (rl *RateLimiter) processQueue(chat *chatQueue) {
	idle := time.NewTimer(rl.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case req := <-chat.requests:
			rl.handleRequest(chat, req)
			rl.release(chat)
			idle.Reset(rl.idleTimeout)
		case <-idle.C:
			if rl.retire(chat) {
				return
			}
			idle.Reset(rl.idleTimeout)
		case <-rl.ctx.Done():
			for {
				select {
				case req := <-chat.requests:
					req.response <- response{
						err: rl.ctx.Err(),
					}
				default:
					return
				}
			}
		}
	}
}

func (rl *RateLimiter) handleRequest(chat *chatQueue, req request) {
	if !chat.lastSent.IsZero() {
		delay := getDelay(chat.lastSent, rl.getRate(chat.chatID))

		if delay > 0 {
			rl.log.DebugContext(req.ctx, "Rate limiting message",
				"chatID", chat.chatID,
				"delay", delay,
				"queueLen", len(chat.requests))

			select {
			case <-time.After(delay):
			case <-req.ctx.Done():
				req.response <- response{
					err: req.ctx.Err(),
				}

				return
			case <-rl.ctx.Done():
				req.response <- response{
					err: rl.ctx.Err(),
				}

				return
			}
		}
	}

	message, err := rl.api.SendMessage(req.ctx, req.params)
	chat.lastSent = time.Now()

	req.response <- response{
		message: message,
		err:     err,
	}
}

// getChatID accepts the forms bot.SendMessageParams.ChatID can take.
// Channel usernames are throttled together under id 0.
func getChatID(chatID any) int64 {
	switch id := chatID.(type) {
	case int64:
		return id
	case int:
		return int64(id)
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func getDelay(lastSent time.Time, rate time.Duration) time.Duration {
	elapsed := time.Since(lastSent)

	return max(rate-elapsed, 0)
}

func (rl *RateLimiter) getRate(chatID int64) time.Duration {
	if chatID < 0 {
		return rl.groupRate
	}
	return rl.privateRate
}
