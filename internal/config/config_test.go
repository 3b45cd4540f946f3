package config

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"summarybot/internal/domain"
	"summarybot/internal/summarizer"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TOKEN", "123:abc")
	t.Setenv("STAGING_DIR", t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, []string{domain.MIMEPlainText, domain.MIMEPDF, domain.MIMEDOCX}, cfg.SupportedMIMETypes)
	assert.Equal(t, 20, cfg.MinInputLength)
	assert.Equal(t, int64(20<<20), cfg.MaxFileSize)
	assert.Equal(t, 4000, cfg.ReplyMaxLength)
	assert.Equal(t, time.Hour, cfg.StagingMaxAge)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, ChunkConfig{MaxLength: 1024, Overlap: 50, Terminators: "."}, cfg.Chunk)
	assert.Equal(t, summarizer.ProviderHuggingFace, cfg.Summarizer.Provider)
	assert.Equal(t, 200, cfg.Summarizer.MaxLength)
	assert.Equal(t, 50, cfg.Summarizer.MinLength)
	assert.Zero(t, cfg.Summarizer.Timeout)
	require.NoError(t, cfg.RequireToken())
}

func TestLoadConfigPDFOnlyVariant(t *testing.T) {
	t.Setenv("STAGING_DIR", t.TempDir())
	t.Setenv("SUPPORTED_MIME_TYPES", "application/pdf")
	t.Setenv("MIN_INPUT_LENGTH", "50")
	t.Setenv("CHUNK_MAX_LENGTH", "512")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SUMMARIZER_TIMEOUT", "45s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{domain.MIMEPDF}, cfg.SupportedMIMETypes)
	assert.Equal(t, 50, cfg.MinInputLength)
	assert.Equal(t, 512, cfg.Chunk.MaxLength)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 45*time.Second, cfg.Summarizer.Timeout)

	err = cfg.RequireToken()
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"Overlap equals max length", "CHUNK_OVERLAP", "1024"},
		{"Zero max length", "CHUNK_MAX_LENGTH", "0"},
		{"Reply longer than a message", "REPLY_MAX_LENGTH", "5000"},
		{"Reply too short for the header", "REPLY_MAX_LENGTH", "10"},
		{"Unknown MIME type", "SUPPORTED_MIME_TYPES", "image/png"},
		{"Min above max", "SUMMARIZER_MIN_LENGTH", "500"},
		{"Malformed number", "MIN_INPUT_LENGTH", "twenty"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Setenv("STAGING_DIR", t.TempDir())
			t.Setenv(test.key, test.val)

			_, err := LoadConfig()
			if !errors.Is(err, domain.ErrInvalidConfiguration) {
				t.Fatalf("Expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestSummarizerProviderConfigPicksCredential(t *testing.T) {
	cfg := Config{
		HuggingFaceAPIToken: "hf",
		OpenAIAPIKey:        "sk",
		AnthropicAPIKey:     "sk-ant",
		Summarizer:          SummarizerConfig{Timeout: time.Minute},
	}

	tests := []struct {
		provider string
		want     string
	}{
		{summarizer.ProviderHuggingFace, "hf"},
		{summarizer.ProviderOpenAI, "sk"},
		{summarizer.ProviderAnthropic, "sk-ant"},
	}

	for _, test := range tests {
		t.Run(test.provider, func(t *testing.T) {
			cfg.Summarizer.Provider = test.provider

			got := cfg.SummarizerProviderConfig()
			assert.Equal(t, test.want, got.APIKey)
			assert.Equal(t, test.provider, got.Provider)
			assert.Equal(t, time.Minute, got.Timeout)
		})
	}
}
