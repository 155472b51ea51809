package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hunterwarburton/ferret/internal/logger"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterClient implements chat completions against the OpenRouter API
// or any OpenAI-compatible endpoint.
type OpenRouterClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// OpenRouterError represents an error response from the OpenRouter API.
type OpenRouterError struct {
	Error struct {
		Message  string `json:"message"`
		Code     int    `json:"code"`
		Metadata struct {
			Raw          string `json:"raw"`
			ProviderName string `json:"provider_name"`
		} `json:"metadata"`
	} `json:"error"`
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a request to the chat completion API.
type ChatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

// Option customizes an OpenRouterClient.
type Option func(*OpenRouterClient)

// WithBaseURL points the client at an alternate endpoint.
func WithBaseURL(url string) Option {
	return func(c *OpenRouterClient) { c.baseURL = url }
}

// WithHTTPClient substitutes the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *OpenRouterClient) { c.httpClient = hc }
}

// NewOpenRouterClient creates a new instance of OpenRouterClient.
func NewOpenRouterClient(apiKey, model string, opts ...Option) *OpenRouterClient {
	c := &OpenRouterClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // Generous timeout for LLM responses
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model identifier.
func (c *OpenRouterClient) Model() string { return c.model }

// Complete sends a system+user prompt pair and returns the assistant text.
func (c *OpenRouterClient) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	messages := make([]Message, 0, 2)
	if system != "" {
		messages = append(messages, Message{Role: "system", Content: system})
	}
	messages = append(messages, Message{Role: "user", Content: user})
	return c.chat(ctx, ChatRequest{Model: c.model, Messages: messages, MaxTokens: maxTokens})
}

// CompleteWithModel is Complete against an explicit model override.
func (c *OpenRouterClient) CompleteWithModel(ctx context.Context, model, system, user string, maxTokens int) (string, error) {
	messages := make([]Message, 0, 2)
	if system != "" {
		messages = append(messages, Message{Role: "system", Content: system})
	}
	messages = append(messages, Message{Role: "user", Content: user})
	return c.chat(ctx, ChatRequest{Model: model, Messages: messages, MaxTokens: maxTokens})
}

func (c *OpenRouterClient) chat(ctx context.Context, reqBody ChatRequest) (string, error) {
	url := c.baseURL + "/chat/completions"

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	logger.Debug("Sending request to LLM '%s' with %d messages", reqBody.Model, len(reqBody.Messages))

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	// The API reports errors in the body regardless of status code.
	var apiErr OpenRouterError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		if apiErr.Error.Metadata.ProviderName != "" {
			return "", fmt.Errorf("OpenRouter API error (%s): %s", apiErr.Error.Metadata.ProviderName, apiErr.Error.Message)
		}
		return "", fmt.Errorf("OpenRouter API error: %s (code: %d)", apiErr.Error.Message, apiErr.Error.Code)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenRouter API HTTP error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp struct {
		Choices []struct {
			FinishReason string  `json:"finish_reason"`
			Message      Message `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage,omitempty"`
	}
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", errors.New("OpenRouter API returned no choices")
	}

	if chatResp.Usage.TotalTokens > 0 {
		logger.Debug("LLM usage - prompt: %d, completion: %d, total: %d tokens",
			chatResp.Usage.PromptTokens, chatResp.Usage.CompletionTokens, chatResp.Usage.TotalTokens)
	}

	return chatResp.Choices[0].Message.Content, nil
}
