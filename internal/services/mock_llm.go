package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/table-assist/pkg/chat"
)

// MockLLMAPI is a mock implementation of LLMService for testing
type MockLLMAPI struct {
	CompleteFunc   func(ctx context.Context, history []chat.ChatMessage, systemPrompt, query string) (string, error)
	ListModelsFunc func(ctx context.Context) ([]string, error)

	// Track calls for testing
	CompleteCalls   []CompleteCall
	ListModelsCalls int

	mu sync.Mutex // protects all fields above
}

type CompleteCall struct {
	History      []chat.ChatMessage
	SystemPrompt string
	Query        string
}

// NewMockLLMAPI creates a new mock LLM service
func NewMockLLMAPI() *MockLLMAPI {
	return &MockLLMAPI{
		CompleteCalls: make([]CompleteCall, 0),
	}
}

// Complete mocks a completion call
func (m *MockLLMAPI) Complete(ctx context.Context, history []chat.ChatMessage, systemPrompt, query string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CompleteCalls = append(m.CompleteCalls, CompleteCall{
		History:      history,
		SystemPrompt: systemPrompt,
		Query:        query,
	})

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, history, systemPrompt, query)
	}

	return "Mock response", nil
}

// ListModels mocks model listing
func (m *MockLLMAPI) ListModels(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ListModelsCalls++

	if m.ListModelsFunc != nil {
		return m.ListModelsFunc(ctx)
	}

	// Default behavior - return some mock models
	return []string{"gpt-3.5-turbo", "gpt-4o"}, nil
}

// Reset clears all call tracking
func (m *MockLLMAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteCalls = make([]CompleteCall, 0)
	m.ListModelsCalls = 0
}

// SetResponse sets up the mock to return a fixed reply
func (m *MockLLMAPI) SetResponse(reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteFunc = func(ctx context.Context, history []chat.ChatMessage, systemPrompt, query string) (string, error) {
		return reply, nil
	}
}

// SetCompleteError sets up the mock to return an error on Complete
func (m *MockLLMAPI) SetCompleteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteFunc = func(ctx context.Context, history []chat.ChatMessage, systemPrompt, query string) (string, error) {
		return "", err
	}
}

// SetListModelsError sets up the mock to return an error on ListModels
func (m *MockLLMAPI) SetListModelsError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListModelsFunc = func(ctx context.Context) ([]string, error) {
		return nil, err
	}
}

// GetCalls returns a copy of the completion calls in a thread-safe way
func (m *MockLLMAPI) GetCalls() []CompleteCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]CompleteCall, len(m.CompleteCalls))
	copy(calls, m.CompleteCalls)
	return calls
}
