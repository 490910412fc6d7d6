package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/moby-ops/moby-backend-go/internal/core/alerting"
)

// Summarizer generates short operator-facing alert summaries through an
// OpenAI-compatible chat completions endpoint. It is strictly
// best-effort: any failure returns an error and the caller degrades to
// an empty summary.
type Summarizer struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *logrus.Logger
}

// NewSummarizer creates a summarizer client.
func NewSummarizer(baseURL, apiKey, model string, timeout time.Duration, logger *logrus.Logger) *Summarizer {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Summarizer{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Summarize asks the model for a two-sentence summary of the alert.
func (s *Summarizer) Summarize(ctx context.Context, alert alerting.Alert) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("summarizer has no API key configured")
	}

	body, err := json.Marshal(chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are an industrial equipment monitoring assistant. Summarize alerts for operators in at most two sentences, stating what happened and what to do first."},
			{Role: "user", Content: s.prompt(alert)},
		},
		MaxTokens:   120,
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("encode summarize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build summarize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarize request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("summarize request returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode summarize response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("summarize response has no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func (s *Summarizer) prompt(alert alerting.Alert) string {
	metrics := make([]string, 0, len(alert.SensorValues))
	for name := range alert.SensorValues {
		metrics = append(metrics, name)
	}
	sort.Strings(metrics)

	var b strings.Builder
	fmt.Fprintf(&b, "Alert %q fired for equipment %q with severity %s.\n", alert.PolicyName, alert.EquipmentID, alert.Severity.String())
	b.WriteString("Sensor values:\n")
	for _, name := range metrics {
		fmt.Fprintf(&b, "- %s: %.2f\n", name, alert.SensorValues[name])
	}
	if len(alert.RecommendedActions) > 0 {
		fmt.Fprintf(&b, "Configured actions: %s\n", strings.Join(alert.RecommendedActions, ", "))
	}
	return b.String()
}
