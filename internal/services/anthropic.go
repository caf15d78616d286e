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
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"

	anthropicServiceName = "Anthropic"

	DefaultAnthropicMaxTokens = 2048
)

// AnthropicService implements LLMService for Anthropic Claude
type AnthropicService struct {
	apiKey      string
	modelName   string
	temperature float64
	baseURL     string
	retry       RetryPolicy
	httpClient  *http.Client
	logger      *slog.Logger
}

type AnthropicChatRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Messages    []chat.ChatMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
}

type AnthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type AnthropicChatResponse struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	Role       string                  `json:"role"`
	Content    []AnthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type anthropicModelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

func NewAnthropicService(apiKey, modelName string, temperature float64, retry RetryPolicy, logger *slog.Logger) *AnthropicService {
	return &AnthropicService{
		apiKey:      apiKey,
		modelName:   modelName,
		temperature: temperature,
		baseURL:     anthropicBaseURL,
		retry:       retry,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

// WithBaseURL points the client at another API root.
func (a *AnthropicService) WithBaseURL(url string) *AnthropicService {
	a.baseURL = strings.TrimRight(url, "/")
	return a
}

// splitChatMessages extracts and combines all system messages into a single system prompt
// and returns the remaining non-system messages
func (a *AnthropicService) splitChatMessages(messages []chat.ChatMessage) (string, []chat.ChatMessage) {
	var systemParts []string
	var nonSystemMessages []chat.ChatMessage

	for _, msg := range messages {
		if msg.Role == chat.ChatRoleSystem {
			systemParts = append(systemParts, msg.Content)
		} else {
			nonSystemMessages = append(nonSystemMessages, msg)
		}
	}

	systemPrompt := strings.Join(systemParts, "\n\n")
	return systemPrompt, nonSystemMessages
}

func (a *AnthropicService) Complete(ctx context.Context, history []chat.ChatMessage, systemPrompt, query string) (string, error) {
	messages := make([]chat.ChatMessage, 0, len(history)+2)
	messages = append(messages, chat.ChatMessage{Role: chat.ChatRoleSystem, Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, chat.ChatMessage{Role: chat.ChatRoleUser, Content: query})

	system, conversation := a.splitChatMessages(messages)
	temperature := a.temperature
	reqBody, err := json.Marshal(AnthropicChatRequest{
		Model:       a.modelName,
		MaxTokens:   DefaultAnthropicMaxTokens,
		Temperature: &temperature,
		Messages:    conversation,
		System:      system,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	return withRetry(ctx, a.retry, anthropicServiceName, func() (string, error) {
		return a.chatCompletion(ctx, reqBody)
	})
}

func (a *AnthropicService) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set required Anthropic headers
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("content-type", "application/json")
	return req, nil
}

func (a *AnthropicService) chatCompletion(ctx context.Context, reqBody []byte) (string, error) {
	req, err := a.newRequest(ctx, http.MethodPost, "/messages", bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	var anthropicResp AnthropicChatResponse
	decodeErr := json.Unmarshal(body, &anthropicResp)

	if resp.StatusCode != http.StatusOK {
		msg := ""
		if decodeErr == nil && anthropicResp.Error != nil {
			msg = anthropicResp.Error.Message
		}
		return "", responseFailure(resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to parse response: %w", decodeErr)
	}

	// Extract text content from the response
	var responseText string
	for _, content := range anthropicResp.Content {
		if content.Type == "text" {
			responseText += content.Text
		}
	}

	if responseText == "" {
		responseText = "(no response)"
	}

	return strings.TrimSpace(responseText), nil
}

func (a *AnthropicService) ListModels(ctx context.Context) ([]string, error) {
	req, err := a.newRequest(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var models anthropicModelsResponse
	if err := json.Unmarshal(body, &models); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	ids := make([]string, 0, len(models.Data))
	for _, m := range models.Data {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids, nil
}
