package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Backend evaluates one input. Errors are turned into fallbacks by Service.
type Backend interface {
	Evaluate(ctx context.Context, in Input) (Assessment, error)
}

var _ Backend = (*OpenAIClient)(nil)

const (
	DefaultModel          = "gpt-4o-mini"
	chatCompletionsPath   = "/v1/chat/completions"
	maxResponseBodyBytes  = 64 * 1024
	defaultRequestTimeout = 25 * time.Second

	systemPrompt = `You are a corporate compliance auditor. Grade the audit request for completeness.
Check date consistency, whether the documents align with the claim, whether the category fits the
description, and whether the justification is sufficient.
Respond with a single JSON object:
{
  "completeness_score": <integer 0-100>,
  "summary": ["<point>", "<point>", "<point>"],
  "feedback": ["<actionable suggestion>", ...]
}
The summary must contain exactly 3 short points.`
)

// jsonBlockRe captures from the first '{' to the last '}' in the content.
var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

// OpenAIClient talks to an OpenAI compatible chat completions endpoint.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewOpenAIClient(baseURL, apiKey, model string, timeout time.Duration) *OpenAIClient {
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &OpenAIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
	Temperature    float64        `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type assessmentPayload struct {
	CompletenessScore float64         `json:"completeness_score"`
	Summary           json.RawMessage `json:"summary"`
	Feedback          json.RawMessage `json:"feedback"`
}

func (c *OpenAIClient) Evaluate(ctx context.Context, in Input) (Assessment, error) {
	if c.apiKey == "" {
		return Assessment{}, fmt.Errorf("scorer: api key is not configured")
	}

	userContent, err := json.Marshal(map[string]interface{}{
		"title":           in.Title,
		"category":        in.Category,
		"custom_category": in.CustomCategory,
		"department":      in.Department,
		"total_amount":    in.Amount,
		"audit_date":      in.AuditDate,
		"description":     in.Description,
		"attachments":     in.AttachmentNames(),
	})
	if err != nil {
		return Assessment{}, fmt.Errorf("scorer: encode input: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(userContent)},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
		Temperature:    0.2,
	})
	if err != nil {
		return Assessment{}, fmt.Errorf("scorer: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatCompletionsPath, bytes.NewReader(body))
	if err != nil {
		return Assessment{}, fmt.Errorf("scorer: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Assessment{}, fmt.Errorf("scorer: timeout or cancellation: %w", ctx.Err())
		}
		return Assessment{}, fmt.Errorf("scorer: http call failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return Assessment{}, fmt.Errorf("scorer: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if msg := gjson.GetBytes(raw, "error.message"); msg.Exists() {
			return Assessment{}, fmt.Errorf("scorer: backend error (HTTP %d): %s", resp.StatusCode, msg.String())
		}
		return Assessment{}, fmt.Errorf("scorer: backend HTTP %d", resp.StatusCode)
	}

	content := gjson.GetBytes(raw, "choices.0.message.content")
	if !content.Exists() || strings.TrimSpace(content.String()) == "" {
		return Assessment{}, fmt.Errorf("scorer: empty completion")
	}

	return parseAssessment(content.String())
}

func parseAssessment(content string) (Assessment, error) {
	clean := extractJSON(content)
	if clean == "" {
		return Assessment{}, fmt.Errorf("scorer: no JSON object in completion")
	}

	var payload assessmentPayload
	if err := json.Unmarshal([]byte(clean), &payload); err != nil {
		return Assessment{}, fmt.Errorf("scorer: parse completion: %w", err)
	}

	summary := stringList(payload.Summary)
	if len(summary) == 0 {
		return Assessment{}, fmt.Errorf("scorer: completion has no summary")
	}

	return Assessment{
		Score:    ClampScore(int(payload.CompletenessScore + 0.5)),
		Summary:  summary,
		Feedback: stringList(payload.Feedback),
	}, nil
}

// stringList accepts either a JSON string or a JSON array of strings.
func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		out := list[:0]
		for _, s := range list {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && strings.TrimSpace(single) != "" {
		return []string{strings.TrimSpace(single)}
	}
	return nil
}

// extractJSON strips markdown fences and returns the first {...} block.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return jsonBlockRe.FindString(text)
}
