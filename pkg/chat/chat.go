package chat

import (
	"fmt"
	"strings"
	"time"
)

// MaxMessageLength bounds a single chat line accepted by the API.
const MaxMessageLength = 4000

// ChatRequest represents a chat line submitted by a user.
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// ChatResponse is returned by the chat endpoint after dispatch.
type ChatResponse struct {
	Intercepted bool     `json:"intercepted"`
	Intent      string   `json:"intent,omitempty"`
	Notices     []Notice `json:"notices,omitempty"`
}

const (
	ChatRoleUser   = "user"
	ChatRoleAgent  = "assistant"
	ChatRoleSystem = "system"
)

// ChatMessage represents a single message in a completion conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// NoticeLevel marks a user notification as informational or an error.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notice is a transient notification shown only to the requesting user.
// Notices are never written to the chat log.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// Entry is a chat log entry. An empty VisibleTo means everyone can see it.
type Entry struct {
	ID        string    `json:"id"`
	Speaker   string    `json:"speaker"`
	UserID    string    `json:"user_id,omitempty"`
	VisibleTo []string  `json:"visible_to,omitempty"`
	Whisper   bool      `json:"whisper,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// VisibleToUser reports whether userID may read the entry.
func (e *Entry) VisibleToUser(userID string) bool {
	if len(e.VisibleTo) == 0 {
		return true
	}
	for _, id := range e.VisibleTo {
		if id == userID {
			return true
		}
	}
	return false
}

func (cr *ChatRequest) Validate() error {
	if strings.TrimSpace(cr.UserID) == "" {
		return fmt.Errorf("user_id cannot be empty")
	}
	if strings.TrimSpace(cr.Message) == "" {
		return fmt.Errorf("message cannot be empty")
	}
	if len(cr.Message) > MaxMessageLength {
		return fmt.Errorf("message exceeds %d characters", MaxMessageLength)
	}
	return nil
}
