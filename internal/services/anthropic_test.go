package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jwebster45206/table-assist/pkg/chat"
	"github.com/jwebster45206/table-assist/pkg/cmderr"
)

func TestNewAnthropicService(t *testing.T) {
	service := NewAnthropicService("test-api-key", "claude-3-5-haiku-latest", 0.1, DefaultRetryPolicy, testLogger())

	if service.apiKey != "test-api-key" {
		t.Errorf("Expected API key %s, got %s", "test-api-key", service.apiKey)
	}
	if service.baseURL != anthropicBaseURL {
		t.Errorf("Expected base URL %s, got %s", anthropicBaseURL, service.baseURL)
	}
	if service.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
}

func TestAnthropicService_ExtractSystemMessage(t *testing.T) {
	service := NewAnthropicService("test-key", "claude", 0.1, DefaultRetryPolicy, testLogger())

	tests := []struct {
		name                   string
		messages               []chat.ChatMessage
		expectedSystem         string
		expectedNonSystemCount int
	}{
		{
			name: "single system message",
			messages: []chat.ChatMessage{
				{Role: chat.ChatRoleSystem, Content: "You are a game master."},
				{Role: chat.ChatRoleUser, Content: "Hello"},
				{Role: chat.ChatRoleAgent, Content: "Hi there!"},
			},
			expectedSystem:         "You are a game master.",
			expectedNonSystemCount: 2,
		},
		{
			name: "multiple system messages",
			messages: []chat.ChatMessage{
				{Role: chat.ChatRoleSystem, Content: "You are a game master."},
				{Role: chat.ChatRoleUser, Content: "Hello"},
				{Role: chat.ChatRoleSystem, Content: "Be concise."},
			},
			expectedSystem:         "You are a game master.\n\nBe concise.",
			expectedNonSystemCount: 1,
		},
		{
			name: "no system messages",
			messages: []chat.ChatMessage{
				{Role: chat.ChatRoleUser, Content: "Hello"},
			},
			expectedSystem:         "",
			expectedNonSystemCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			system, rest := service.splitChatMessages(tt.messages)
			if system != tt.expectedSystem {
				t.Errorf("Expected system %q, got %q", tt.expectedSystem, system)
			}
			if len(rest) != tt.expectedNonSystemCount {
				t.Errorf("Expected %d non-system messages, got %d", tt.expectedNonSystemCount, len(rest))
			}
			for _, m := range rest {
				if m.Role == chat.ChatRoleSystem {
					t.Error("System message leaked into conversation")
				}
			}
		})
	}
}

func TestAnthropicService_Complete(t *testing.T) {
	var got AnthropicChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("anthropic-version") != anthropicVersion {
			t.Errorf("missing version header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"The goblin flees."}]}`))
	}))
	defer srv.Close()

	service := NewAnthropicService("test-key", "claude", 0.1, fastRetry, testLogger()).WithBaseURL(srv.URL)
	reply, err := service.Complete(context.Background(), nil, "You are a GM.", "What happens?")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if reply != "The goblin flees." {
		t.Errorf("Unexpected reply %q", reply)
	}
	if got.System != "You are a GM." {
		t.Errorf("Expected system prompt to be sent separately, got %q", got.System)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != chat.ChatRoleUser {
		t.Errorf("Expected a single user message, got %+v", got.Messages)
	}
}

func TestAnthropicService_EmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer srv.Close()

	service := NewAnthropicService("k", "claude", 0.1, fastRetry, testLogger()).WithBaseURL(srv.URL)
	reply, err := service.Complete(context.Background(), nil, "sys", "q")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if reply != "(no response)" {
		t.Errorf("Expected placeholder reply, got %q", reply)
	}
}

func TestAnthropicService_BadRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens too large"}}`))
	}))
	defer srv.Close()

	service := NewAnthropicService("k", "claude", 0.1, fastRetry, testLogger()).WithBaseURL(srv.URL)
	_, err := service.Complete(context.Background(), nil, "sys", "q")
	if !cmderr.IsKind(err, cmderr.RemoteService) {
		t.Fatalf("Expected remote service error, got %v", err)
	}
	if got := cmderr.UserMessage(err); got != "Anthropic API failed: max_tokens too large (400)" {
		t.Errorf("Unexpected message %q", got)
	}
}
