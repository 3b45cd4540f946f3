package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"summarybot/internal/domain"
)

// Provider names accepted in Config.Provider.
const (
	ProviderHuggingFace = "huggingface"
	ProviderOpenAI      = "openai"
	ProviderAnthropic   = "anthropic"
)

// Input describes the payload for a summary request.
type Input struct {
	// Text is one chunk of source text, already bounded by the chunker.
	Text string
	// MaxLength and MinLength bound the summary length in model tokens.
	MaxLength int
	MinLength int
}

// Summarizer produces a single summary for a given input text.
type Summarizer interface {
	Summarize(ctx context.Context, input Input) (string, error)
}

// Config selects and parameterizes a provider.
type Config struct {
	Provider        string
	Model           string
	BaseURL         string
	APIKey          string
	ReasoningEffort string
	// Timeout bounds a single call. Zero means no timeout.
	Timeout time.Duration
}

// New builds the configured provider wrapped in a Guard.
func New(cfg Config, log *slog.Logger) (*Guard, error) {
	var (
		provider Summarizer
		err      error
	)

	switch cfg.Provider {
	case ProviderHuggingFace:
		provider, err = NewHuggingFaceSummarizer(cfg)
	case ProviderOpenAI:
		provider, err = NewOpenAISummarizer(cfg)
	case ProviderAnthropic:
		provider, err = NewAnthropicSummarizer(cfg)
	default:
		err = fmt.Errorf("%w: unknown summarizer provider %q", domain.ErrInvalidConfiguration, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewGuard(provider, cfg.Provider, cfg.Timeout, log), nil
}
