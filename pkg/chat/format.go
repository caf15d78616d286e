package chat

import (
	"regexp"
	"strings"
)

// ReplySpeaker is the speaker alias used for assistant replies.
const ReplySpeaker = "GPT"

const (
	replyBadge = `<abbr title="By ChatGPT. Statements may be false" class="ask-chatgpt-to fa-solid fa-microchip-ai"></abbr>`
	echoPrefix = `<span class="ask-chatgpt-to">To: GPT</span><br>`
)

var (
	markupPattern = regexp.MustCompile(`(?is)</?[a-z][\s\S]*>`)
	tagPattern    = regexp.MustCompile(`(?s)<[^>]*>`)
)

// ReplyToMarkup converts a plain completion reply into minimal markup.
// Replies that already contain markup, or that are a single line, are kept;
// otherwise newlines become line breaks. Code fences are always removed.
func ReplyToMarkup(reply string) string {
	out := reply
	if !markupPattern.MatchString(reply) && strings.Contains(reply, "\n") {
		out = strings.ReplaceAll(reply, "\n", "<br>")
	}
	return strings.ReplaceAll(out, "```", "")
}

// FormatReply wraps a reply for posting to the chat log.
func FormatReply(reply string) string {
	return replyBadge + `<span class="ask-chatgpt-reply">` + ReplyToMarkup(reply) + `</span>`
}

// FormatEcho renders the echoed question that precedes a reply.
func FormatEcho(question string) string {
	return echoPrefix + strings.ReplaceAll(question, "\n", "<br>")
}

// StripMarkup converts entry content into plain text for terminal display.
func StripMarkup(content string) string {
	s := strings.ReplaceAll(content, "<br>", "\n")
	s = strings.ReplaceAll(s, "<br/>", "\n")
	s = strings.ReplaceAll(s, "</p>", "\n")
	s = strings.ReplaceAll(s, "</li>", "\n")
	s = tagPattern.ReplaceAllString(s, "")
	s = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'").Replace(s)
	return strings.TrimSpace(s)
}
