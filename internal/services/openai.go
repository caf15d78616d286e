package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/jwebster45206/table-assist/pkg/chat"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"

	openAIServiceName = "ChatGPT"
)

// OpenAIService implements LLMService for OpenAI chat completions.
type OpenAIService struct {
	apiKey      string
	modelName   string
	temperature float64
	baseURL     string
	retry       RetryPolicy
	httpClient  *http.Client
	logger      *slog.Logger
}

type OpenAIChatRequest struct {
	Model       string             `json:"model"`
	Messages    []chat.ChatMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

type OpenAIChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *openAIError `json:"error,omitempty"`
}

type OpenAIModelsResponse struct {
	Data []struct {
		ID      string `json:"id"`
		OwnedBy string `json:"owned_by"`
	} `json:"data"`
	Error *openAIError `json:"error,omitempty"`
}

// NewOpenAIService creates a new OpenAI chat completion client.
func NewOpenAIService(apiKey, modelName string, temperature float64, retry RetryPolicy, logger *slog.Logger) *OpenAIService {
	return &OpenAIService{
		apiKey:      apiKey,
		modelName:   modelName,
		temperature: temperature,
		baseURL:     openAIBaseURL,
		retry:       retry,
		httpClient: &http.Client{
			Timeout: 90 * time.Second, // ChatGPT can be slower than other APIs
		},
		logger: logger,
	}
}

// WithBaseURL points the client at another API root.
func (c *OpenAIService) WithBaseURL(url string) *OpenAIService {
	c.baseURL = strings.TrimRight(url, "/")
	return c
}

// Complete sends the system prompt, history and query and returns the trimmed reply.
func (c *OpenAIService) Complete(ctx context.Context, history []chat.ChatMessage, systemPrompt, query string) (string, error) {
	messages := make([]chat.ChatMessage, 0, len(history)+2)
	messages = append(messages, chat.ChatMessage{Role: chat.ChatRoleSystem, Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, chat.ChatMessage{Role: chat.ChatRoleUser, Content: query})

	reqBody, err := json.Marshal(OpenAIChatRequest{
		Model:       c.modelName,
		Messages:    messages,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	tries := 0
	return withRetry(ctx, c.retry, openAIServiceName, func() (string, error) {
		tries++
		c.logger.Debug("Waiting for completion", "model", c.modelName, "tries", tries)
		return c.chatCompletion(ctx, reqBody)
	})
}

func (c *OpenAIService) chatCompletion(ctx context.Context, reqBody []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed OpenAIChatResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode != http.StatusOK {
		msg := ""
		if decodeErr == nil && parsed.Error != nil {
			msg = parsed.Error.Message
		} else {
			c.logger.Warn("Could not decode failed API response", "status", resp.StatusCode)
		}
		return "", responseFailure(resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", decodeErr)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from API")
	}

	msg := parsed.Choices[0].Message
	if msg.Refusal != "" {
		return strings.TrimSpace(msg.Refusal), nil
	}
	return strings.TrimSpace(msg.Content), nil
}

// ListModels retrieves the chat model ids, keeping only GPT models.
func (c *OpenAIService) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var modelsResp OpenAIModelsResponse
	if err := json.Unmarshal(body, &modelsResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if modelsResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", modelsResp.Error.Message)
	}

	var models []string
	for _, m := range modelsResp.Data {
		if strings.Contains(m.ID, "gpt") {
			models = append(models, m.ID)
		}
	}
	sort.Strings(models)
	return models, nil
}
