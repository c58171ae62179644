package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"finagent-go/internal/apperr"
)

// Completer turns a system prompt and a user message into free text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type OpenAIClient struct {
	http    *http.Client
	baseURL string
	apiKey  string
	model   string
}

func NewOpenAIClient(httpClient *http.Client, baseURL, apiKey, model string) *OpenAIClient {
	return &OpenAIClient{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}
}

// Complete calls /chat/completions and returns the first choice's content.
// Every failure is reported as apperr.ErrUpstreamFetch.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: OPENAI_API_KEY missing", apperr.ErrUpstreamFetch)
	}

	body := map[string]any{
		"model":           c.model,
		"response_format": map[string]string{"type": "json_object"},
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperr.ErrUpstreamFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		bs, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: llm status %d: %s", apperr.ErrUpstreamFetch, resp.StatusCode, strings.TrimSpace(string(bs)))
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode llm response: %w", apperr.ErrUpstreamFetch, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", apperr.ErrUpstreamFetch)
	}
	return out.Choices[0].Message.Content, nil
}
