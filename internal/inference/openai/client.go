package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"resumind/internal/blob"
	"resumind/internal/extract"
	"resumind/internal/inference"
	"resumind/internal/shared/telemetry"
)

const defaultBaseURL = "https://api.openai.com/v1"

var apiURL = defaultBaseURL + "/chat/completions"

const systemPrompt = "You are a resume analysis engine. Respond with JSON only. No markdown. Never omit keys. Output must match the schema exactly."

// Options configures the client.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client implements inference.Client using OpenAI-compatible Chat Completions.
// The document is read from the blob store and sent as extracted text.
type Client struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
	docs       blob.Store
}

// NewClient constructs a new OpenAI client.
func NewClient(opts Options, docs blob.Store) (*Client, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if docs == nil {
		return nil, fmt.Errorf("document store is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	endpoint := apiURL
	if base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); base != "" {
		endpoint = base + "/chat/completions"
	}
	return &Client{
		apiKey:   opts.APIKey,
		model:    opts.Model,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		docs: docs,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    *float32       `json:"temperature,omitempty"`
	ResponseFormat responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Feedback extracts the document text and asks the model for feedback.
func (c *Client) Feedback(ctx context.Context, documentPath, instruction string) (*inference.Response, error) {
	text, err := extract.ExtractText(ctx, c.docs, documentPath)
	if err != nil {
		return nil, fmt.Errorf("openai feedback: %w", err)
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: instruction + "\n\nResume:\n" + text},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
	}
	if !isGPT5(c.model) {
		temp := float32(0)
		reqBody.Temperature = &temp
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("openai request timeout: %w", err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("openai response parse (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("openai error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("openai response missing choices")
	}

	msg := parsed.Choices[0].Message
	var content inference.Content
	if err := json.Unmarshal(msg.Content, &content); err != nil {
		return nil, fmt.Errorf("openai response content: %w", err)
	}

	logUsage(c.model, parsed, time.Since(start))
	return &inference.Response{Message: inference.Message{Role: msg.Role, Content: content}}, nil
}

func logUsage(model string, parsed chatResponse, elapsed time.Duration) {
	fields := map[string]any{
		"model":       model,
		"response_id": parsed.ID,
		"duration_ms": elapsed.Milliseconds(),
	}
	if parsed.Usage != nil {
		fields["prompt_tokens"] = parsed.Usage.PromptTokens
		fields["completion_tokens"] = parsed.Usage.CompletionTokens
		fields["total_tokens"] = parsed.Usage.TotalTokens
	}
	telemetry.Info("llm.response", fields)
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var _ inference.Client = (*Client)(nil)
