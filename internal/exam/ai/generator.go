package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/studyforge/examgen/internal/exam"
)

// Config holds connection details for the generation service.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client implements exam.Generator against an HTTP generation service.
type Client struct {
	httpClient  *http.Client
	config      Config
	logger      zerolog.Logger
	generateURL string
}

var _ exam.Generator = (*Client)(nil)

func NewClient(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		config:      cfg,
		logger:      logger.With().Str("component", "generation_client").Logger(),
		generateURL: base + "/v1/generate",
	}
}

// GenerateBatch requests one batch worth of exam text. HTTP 429 and explicit
// quota error codes map to a non-retryable quota error; everything else is
// reported as transient so the orchestrator can retry it.
func (c *Client) GenerateBatch(ctx context.Context, req exam.BatchRequest) (*exam.BatchResult, error) {
	if c.config.BaseURL == "" {
		return nil, &exam.GenerationError{Err: errors.New("generation endpoint not configured")}
	}

	payload := generateRequest{
		SourceText:      req.SourceText,
		TotalQuestions:  req.TotalQuestions,
		TypeQuota:       quotaStrings(req.TypeQuota),
		DifficultyQuota: difficultyStrings(req.DifficultyQuota),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &exam.GenerationError{Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.generateURL, bytes.NewReader(body))
	if err != nil {
		return nil, &exam.GenerationError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &exam.GenerationError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &exam.GenerationError{Quota: true, Err: fmt.Errorf("generation service returned status %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 300 {
		var apiErr errorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && isQuotaCode(apiErr.Code) {
			return nil, &exam.GenerationError{Quota: true, Err: fmt.Errorf("generation service: %s", apiErr.Message)}
		}
		return nil, &exam.GenerationError{Err: fmt.Errorf("generation service returned status %d", resp.StatusCode)}
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, &exam.GenerationError{Err: fmt.Errorf("decode generation payload: %w", err)}
	}

	result := &exam.BatchResult{
		RawText: genResp.RawText,
		Quality: genResp.Quality,
	}
	for _, q := range genResp.Questions {
		result.Questions = append(result.Questions, normalizeQuestion(q))
	}

	if result.RawText == "" && len(result.Questions) == 0 {
		return nil, &exam.GenerationError{Err: errors.New("generation service returned an empty response")}
	}
	return result, nil
}

func isQuotaCode(code string) bool {
	switch code {
	case "quota_exceeded", "rate_limited", "resource_exhausted":
		return true
	}
	return false
}

func normalizeQuestion(q wireQuestion) exam.Question {
	return exam.Question{
		ID:          q.ID,
		Type:        exam.QuestionType(q.Type),
		Difficulty:  exam.Difficulty(q.Difficulty),
		Prompt:      q.Prompt,
		Options:     q.Options,
		Answer:      q.Answer,
		AnswerParts: q.AnswerParts,
	}
}

func quotaStrings(m map[exam.QuestionType]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

func difficultyStrings(m map[exam.Difficulty]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

type generateRequest struct {
	SourceText      string         `json:"source_text"`
	TotalQuestions  int            `json:"total_questions"`
	TypeQuota       map[string]int `json:"type_quota"`
	DifficultyQuota map[string]int `json:"difficulty_quota"`
}

type wireQuestion struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Difficulty  string   `json:"difficulty"`
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	AnswerParts []string `json:"answer_parts"`
}

type generateResponse struct {
	RawText   string               `json:"raw_text"`
	Questions []wireQuestion       `json:"questions"`
	Quality   *exam.QualityMetrics `json:"quality"`
}

type errorResponse struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}
