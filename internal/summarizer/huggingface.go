package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultHuggingFaceBaseURL = "https://router.huggingface.co/hf-inference/models"
	defaultHuggingFaceModel   = "facebook/bart-large-cnn"

	maxErrorBodyBytes = 4 << 10
)

// HuggingFaceSummarizer runs a seq2seq summarization model (BART by default)
// through the Hugging Face inference API or any server speaking its
// protocol.
type HuggingFaceSummarizer struct {
	client   *http.Client
	endpoint string
	token    string
}

type huggingFaceRequest struct {
	Inputs     string                `json:"inputs"`
	Parameters huggingFaceParameters `json:"parameters"`
	Options    huggingFaceOptions    `json:"options"`
}

type huggingFaceParameters struct {
	MaxLength int  `json:"max_length,omitempty"`
	MinLength int  `json:"min_length,omitempty"`
	DoSample  bool `json:"do_sample"`
}

type huggingFaceOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type huggingFaceSummary struct {
	SummaryText string `json:"summary_text"`
}

type huggingFaceError struct {
	Error string `json:"error"`
}

func NewHuggingFaceSummarizer(cfg Config) (*HuggingFaceSummarizer, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultHuggingFaceBaseURL
	}

	model := strings.Trim(strings.TrimSpace(cfg.Model), "/")
	if model == "" {
		model = defaultHuggingFaceModel
	}

	endpoint, err := url.JoinPath(baseURL, model)
	if err != nil {
		return nil, fmt.Errorf("build endpoint: %w", err)
	}

	return &HuggingFaceSummarizer{
		client:   &http.Client{},
		endpoint: endpoint,
		token:    strings.TrimSpace(cfg.APIKey),
	}, nil
}

func (s *HuggingFaceSummarizer) Summarize(ctx context.Context, input Input) (string, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return "", errors.New("input is empty")
	}

	body, err := json.Marshal(huggingFaceRequest{
		Inputs: text,
		Parameters: huggingFaceParameters{
			MaxLength: input.MaxLength,
			MinLength: input.MinLength,
			DoSample:  false,
		},
		Options: huggingFaceOptions{WaitForModel: true},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr huggingFaceError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return "", fmt.Errorf("inference API error (status = %d): %s", resp.StatusCode, apiErr.Error)
		}

		return "", fmt.Errorf("inference API error (status = %d): %s",
			resp.StatusCode, truncateBody(respBody))
	}

	var summaries []huggingFaceSummary
	if err = json.Unmarshal(respBody, &summaries); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(summaries) == 0 {
		return "", errors.New("response has no summaries")
	}

	summary := strings.TrimSpace(summaries[0].SummaryText)
	if summary == "" {
		return "", errors.New("summary text is missing")
	}

	return summary, nil
}

func truncateBody(body []byte) string {
	if len(body) > maxErrorBodyBytes {
		body = body[:maxErrorBodyBytes]
	}

	return string(body)
}
