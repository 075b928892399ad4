package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"bakery_backend/pkg/utils"
)

// Role constants.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is a single chat-completion message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatPayload struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ChatClient talks to an OpenAI-compatible chat-completions endpoint.
type ChatClient struct {
	apiKey string
	system string
	settings
}

// NewChatClient creates a chat client. endpoint is the full chat/completions URL.
func NewChatClient(endpoint, apiKey, model string, opts ...Option) *ChatClient {
	return &ChatClient{
		apiKey:   apiKey,
		system:   "You are an inventory assistant for a bakery. Answer with JSON only.",
		settings: newSettings(endpoint, model, opts),
	}
}

// Generate sends a system message and the prompt as the user message.
func (c *ChatClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" || c.baseURL == "" {
		return "", fmt.Errorf("%w: chat client needs an endpoint and an API key", ErrNotConfigured)
	}

	jsonData, err := json.Marshal(chatPayload{
		Model: c.model,
		Messages: []Message{
			{Role: RoleSystem, Content: c.system},
			{Role: RoleUser, Content: prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("chat: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	utils.LogDebug("chat request", map[string]interface{}{"endpoint": c.baseURL, "bytes": len(jsonData)})

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("chat: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat: API %s: %s", resp.Status, truncate(string(respBody), 300))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("chat: unmarshal response: %w", err)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	reply := result.Choices[0].Message.Content
	utils.LogDebug("chat reply", map[string]interface{}{"chars": len(reply), "preview": truncate(reply, 120)})
	return reply, nil
}
