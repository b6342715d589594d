package llm

import (
	"strings"
)

const defaultSystemRole = "You are a helpful assistant answering questions about a document."

// PromptBuilder constructs the prompts sent to the language model.
type PromptBuilder struct {
	systemRole string
}

// NewPromptBuilder creates a PromptBuilder. An empty systemRole falls
// back to the default assistant role.
func NewPromptBuilder(systemRole string) *PromptBuilder {
	if systemRole == "" {
		systemRole = defaultSystemRole
	}
	return &PromptBuilder{systemRole: systemRole}
}

// BuildDocumentQA renders the full prompt for one question against the
// combined document text. This is the exact string shown by the Q&A
// loop's debug mode.
func (b *PromptBuilder) BuildDocumentQA(documentText, question string) string {
	var sb strings.Builder
	sb.WriteString("Use the following document content to answer the question.\n\n")
	sb.WriteString("DOCUMENT:\n")
	sb.WriteString(documentText)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\nRules:\n")
	sb.WriteString("- Answer based only on the provided document.\n")
	sb.WriteString("- If the answer is not in the document, respond with \"I don't know.\"\n")
	sb.WriteString("- Be concise and to the point.\n")
	sb.WriteString("- Do not invent information.")
	return sb.String()
}

// Messages wraps a rendered prompt into the system/user message pair
// expected by the chat-completions API.
func (b *PromptBuilder) Messages(prompt string) []Message {
	return []Message{
		{Role: "system", Content: b.systemRole},
		{Role: "user", Content: prompt},
	}
}

// ChatMessages builds the message sequence for a chat turn: system
// role, recent conversation context in order, then the new message.
func (b *PromptBuilder) ChatMessages(history []Message, userMessage string) []Message {
	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: "system", Content: b.systemRole})
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: userMessage})
	return messages
}

// SystemRole returns the configured system role text.
func (b *PromptBuilder) SystemRole() string {
	return b.systemRole
}
