package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"summarybot/internal/domain"
	"summarybot/internal/extractor"
	"summarybot/internal/summarizer"
)

// A reply, summary header included, must fit Telegram's 4096 character
// message limit and leave room for summary text after the header.
const (
	minReplyLength = 64
	maxReplyLength = 4096
)

type Config struct {
	Token    string     `env:"TOKEN"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	SupportedMIMETypes []string `env:"SUPPORTED_MIME_TYPES" envSeparator:","`
	MinInputLength     int      `env:"MIN_INPUT_LENGTH"     envDefault:"20"`
	MaxFileSize        int64    `env:"MAX_FILE_SIZE"        envDefault:"20971520"`
	ReplyMaxLength     int      `env:"REPLY_MAX_LENGTH"     envDefault:"4000"`
	StripURLs          bool     `env:"STRIP_URLS"           envDefault:"false"`

	StagingDir    string        `env:"STAGING_DIR"`
	StagingMaxAge time.Duration `env:"STAGING_MAX_AGE" envDefault:"1h"`
	JanitorSpec   string        `env:"JANITOR_SPEC"    envDefault:"*/15 * * * *"`
	MetricsAddr   string        `env:"METRICS_ADDR"    envDefault:":9090"`

	Chunk      ChunkConfig      `envPrefix:"CHUNK_"`
	Summarizer SummarizerConfig `envPrefix:"SUMMARIZER_"`

	HuggingFaceAPIToken string `env:"HUGGINGFACE_API_TOKEN"`
	OpenAIAPIKey        string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey     string `env:"ANTHROPIC_API_KEY"`
}

type ChunkConfig struct {
	MaxLength   int    `env:"MAX_LENGTH"  envDefault:"1024"`
	Overlap     int    `env:"OVERLAP"     envDefault:"50"`
	Terminators string `env:"TERMINATORS" envDefault:"."`
}

type SummarizerConfig struct {
	Provider        string        `env:"PROVIDER"         envDefault:"huggingface"`
	Model           string        `env:"MODEL"`
	BaseURL         string        `env:"BASE_URL"`
	ReasoningEffort string        `env:"REASONING_EFFORT"`
	MaxLength       int           `env:"MAX_LENGTH"       envDefault:"200"`
	MinLength       int           `env:"MIN_LENGTH"       envDefault:"50"`
	Timeout         time.Duration `env:"TIMEOUT"          envDefault:"0"`
}

// LoadConfig parses the environment and validates the result.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}

	if len(cfg.SupportedMIMETypes) == 0 {
		cfg.SupportedMIMETypes = slices.Clone(extractor.DefaultMIMETypes)
	}
	if strings.TrimSpace(cfg.StagingDir) == "" {
		cfg.StagingDir = filepath.Join(os.TempDir(), "summarybot")
	}

	if err = cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.MinInputLength < 0 {
		errs = append(errs, errors.New("MIN_INPUT_LENGTH must not be negative"))
	}
	if c.MaxFileSize <= 0 {
		errs = append(errs, errors.New("MAX_FILE_SIZE must be positive"))
	}
	if c.ReplyMaxLength < minReplyLength || c.ReplyMaxLength > maxReplyLength {
		errs = append(errs, fmt.Errorf("REPLY_MAX_LENGTH must be in [%d, %d]", minReplyLength, maxReplyLength))
	}
	if c.StagingMaxAge <= 0 {
		errs = append(errs, errors.New("STAGING_MAX_AGE must be positive"))
	}
	if c.Chunk.MaxLength <= 0 {
		errs = append(errs, errors.New("CHUNK_MAX_LENGTH must be positive"))
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.MaxLength {
		errs = append(errs, errors.New("CHUNK_OVERLAP must be in [0, CHUNK_MAX_LENGTH)"))
	}
	if c.Summarizer.MinLength <= 0 || c.Summarizer.MinLength > c.Summarizer.MaxLength {
		errs = append(errs, errors.New("SUMMARIZER_MIN_LENGTH must be in (0, SUMMARIZER_MAX_LENGTH]"))
	}
	if c.Summarizer.Timeout < 0 {
		errs = append(errs, errors.New("SUMMARIZER_TIMEOUT must not be negative"))
	}
	if _, err := extractor.New(c.SupportedMIMETypes); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}

	return nil
}

// RequireToken reports whether the bot credential is present. Only the
// serve command needs it.
func (c Config) RequireToken() error {
	if strings.TrimSpace(c.Token) == "" {
		return fmt.Errorf("%w: TOKEN is required", domain.ErrInvalidConfiguration)
	}

	return nil
}

// SummarizerProviderConfig builds the provider config with the matching
// credential.
func (c Config) SummarizerProviderConfig() summarizer.Config {
	var apiKey string
	switch c.Summarizer.Provider {
	case summarizer.ProviderHuggingFace:
		apiKey = c.HuggingFaceAPIToken
	case summarizer.ProviderOpenAI:
		apiKey = c.OpenAIAPIKey
	case summarizer.ProviderAnthropic:
		apiKey = c.AnthropicAPIKey
	}

	return summarizer.Config{
		Provider:        c.Summarizer.Provider,
		Model:           c.Summarizer.Model,
		BaseURL:         c.Summarizer.BaseURL,
		APIKey:          apiKey,
		ReasoningEffort: c.Summarizer.ReasoningEffort,
		Timeout:         c.Summarizer.Timeout,
	}
}
