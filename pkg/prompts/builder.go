package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/table-assist/pkg/chat"
)

// Prompt is a fully assembled completion request.
type Prompt struct {
	System  string
	History []chat.ChatMessage
	Query   string
}

// Messages flattens the prompt into the role-tagged message list sent to chat APIs.
func (p Prompt) Messages() []chat.ChatMessage {
	msgs := make([]chat.ChatMessage, 0, len(p.History)+2)
	msgs = append(msgs, chat.ChatMessage{Role: chat.ChatRoleSystem, Content: p.System})
	msgs = append(msgs, p.History...)
	msgs = append(msgs, chat.ChatMessage{Role: chat.ChatRoleUser, Content: p.Query})
	return msgs
}

type section struct {
	header string
	body   string
}

// Builder constructs completion prompts using a fluent interface.
type Builder struct {
	system       string
	custom       string
	instructions []string
	sections     []section
	history      []chat.ChatMessage
	historyLimit int
	query        string
}

// New creates a new prompt builder. The history window defaults to zero, which sends no history.
func New() *Builder {
	return &Builder{}
}

// WithGameSystem selects the system preamble. A non-empty custom prompt replaces it.
func (b *Builder) WithGameSystem(system, custom string) *Builder {
	b.system = system
	b.custom = custom
	return b
}

// WithInstructions appends extra text to the system prompt.
func (b *Builder) WithInstructions(text string) *Builder {
	if strings.TrimSpace(text) != "" {
		b.instructions = append(b.instructions, text)
	}
	return b
}

// WithContext adds a headed block of actor data to the system prompt.
func (b *Builder) WithContext(header, body string) *Builder {
	if strings.TrimSpace(body) != "" {
		b.sections = append(b.sections, section{header: header, body: body})
	}
	return b
}

// WithHistory sets the prior conversation.
func (b *Builder) WithHistory(history []chat.ChatMessage) *Builder {
	b.history = history
	return b
}

// WithHistoryLimit sets the chat history window size.
func (b *Builder) WithHistoryLimit(limit int) *Builder {
	b.historyLimit = limit
	return b
}

// WithQuery sets the user's question.
func (b *Builder) WithQuery(query string) *Builder {
	b.query = query
	return b
}

// Build assembles the prompt.
func (b *Builder) Build() (Prompt, error) {
	query := strings.TrimSpace(b.query)
	if query == "" {
		return Prompt{}, fmt.Errorf("query is required")
	}

	var sb strings.Builder
	sb.WriteString(SystemPrompt(b.system, b.custom))
	for _, ins := range b.instructions {
		sb.WriteString("\n\n" + ins)
	}
	for _, s := range b.sections {
		sb.WriteString("\n\n" + s.header + "\n" + s.body)
	}

	return Prompt{
		System:  sb.String(),
		History: b.window(),
		Query:   query,
	}, nil
}

func (b *Builder) window() []chat.ChatMessage {
	if b.historyLimit <= 0 || len(b.history) == 0 {
		return nil
	}
	h := b.history
	if len(h) > b.historyLimit {
		h = h[len(h)-b.historyLimit:]
	}
	out := make([]chat.ChatMessage, len(h))
	copy(out, h)
	return out
}
