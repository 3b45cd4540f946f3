package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"summarybot/internal/domain"
	"summarybot/internal/metrics"
)

const (
	breakerMaxRequests      = 3
	breakerInterval         = 30 * time.Second
	breakerTimeout          = 60 * time.Second
	breakerFailureThreshold = 0.6
	breakerMinRequests      = 5
)

// Guard is the only Summarizer the rest of the bot talks to. Every failure
// of the wrapped provider, including an open breaker or an empty answer,
// comes out as domain.ErrSummarization. It never retries.
type Guard struct {
	next     Summarizer
	provider string
	timeout  time.Duration
	breaker  *gobreaker.CircuitBreaker
	log      *slog.Logger
}

func NewGuard(next Summarizer, provider string, timeout time.Duration, log *slog.Logger) *Guard {
	settings := gobreaker.Settings{
		Name:        provider,
		MaxRequests: breakerMaxRequests,
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < breakerMinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Summarizer circuit breaker state is changed",
				"provider", name,
				"from", from.String(),
				"to", to.String())
		},
	}

	return &Guard{
		next:     next,
		provider: provider,
		timeout:  timeout,
		breaker:  gobreaker.NewCircuitBreaker(settings),
		log:      log,
	}
}

func (g *Guard) Summarize(ctx context.Context, input Input) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := g.breaker.Execute(func() (interface{}, error) {
		summary, err := g.next.Summarize(ctx, input)
		if err != nil {
			return nil, err
		}

		summary = strings.TrimSpace(summary)
		if summary == "" {
			return nil, errors.New("summary is empty")
		}

		return summary, nil
	})
	duration := time.Since(start)
	metrics.ObserveSummarizerCall(g.provider, duration, err)

	if err != nil {
		g.log.DebugContext(ctx, "Summarizer call failed",
			"error", err,
			"provider", g.provider,
			"inputLength", len(input.Text),
			"durationSeconds", duration.Seconds())

		return "", fmt.Errorf("%w: %s: %w", domain.ErrSummarization, g.provider, err)
	}

	summary, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s: unexpected result type %T", domain.ErrSummarization, g.provider, result)
	}

	return summary, nil
}

// Ready reports false while the breaker is open.
func (g *Guard) Ready() bool {
	return g.breaker.State() != gobreaker.StateOpen
}

func (g *Guard) Provider() string {
	return g.provider
}
