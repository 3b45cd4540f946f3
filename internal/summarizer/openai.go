package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"

	"summarybot/internal/domain"
)

const (
	defaultOpenAIModel = openai.ChatModelGPT5Mini2025_08_07

	baseMaxOutputTokens  int64 = 512
	limitMaxOutputTokens int64 = 4096
)

// OpenAISummarizer calls OpenAI's Responses API to produce summaries.
type OpenAISummarizer struct {
	client          openai.Client
	model           string
	reasoningEffort string
}

// NewOpenAISummarizer builds a new summarizer instance. The SDK's own retry
// loop is disabled: a failed call is reported as is.
func NewOpenAISummarizer(cfg Config) (*OpenAISummarizer, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", domain.ErrInvalidConfiguration)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = string(defaultOpenAIModel)
	}

	return &OpenAISummarizer{
		client:          openai.NewClient(opts...),
		model:           model,
		reasoningEffort: strings.TrimSpace(cfg.ReasoningEffort),
	}, nil
}

// Summarize produces a summary of one chunk with a single request. The
// output budget is twice the requested summary length within fixed bounds;
// a response cut short by it is an error.
func (s *OpenAISummarizer) Summarize(
	ctx context.Context,
	input Input,
) (string, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return "", errors.New("input is empty")
	}

	maxOutputTokens := outputBudget(input.MaxLength)

	params := responses.ResponseNewParams{
		Model:           shared.ResponsesModel(s.model),
		Instructions:    openai.String(chatPrompt(input)),
		MaxOutputTokens: openai.Int(maxOutputTokens),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(text),
		},
	}
	if s.reasoningEffort != "" {
		params.Reasoning = responses.ReasoningParam{
			Effort: shared.ReasoningEffort(s.reasoningEffort),
		}
	}

	resp, err := s.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}

	if resp.Status == "incomplete" {
		return "", fmt.Errorf(
			"response is incomplete (reason = %s, maxOutputTokens = %d)",
			resp.IncompleteDetails.Reason,
			maxOutputTokens,
		)
	}

	summary := strings.TrimSpace(resp.OutputText())
	if summary == "" {
		return "", fmt.Errorf("output text is missing (status = %s)", resp.Status)
	}

	return summary, nil
}

func outputBudget(maxLength int) int64 {
	return min(max(baseMaxOutputTokens, 2*int64(maxLength)), limitMaxOutputTokens)
}
