// Package chat implements the conversational backend: message
// classification, routing, and persistence.
package chat

import (
	"strings"
)

// QueryType represents the classified handling path for a message.
type QueryType string

const (
	QueryTypeStructured QueryType = "structured"
	QueryTypeFreeform   QueryType = "freeform"
)

// Command is a recognized structured intent.
type Command string

const (
	CommandHelp    Command = "help"
	CommandHistory Command = "history"
	CommandClear   Command = "clear"
	CommandNone    Command = ""
)

// Classifier sorts incoming messages into structured commands and
// freeform questions using rules and patterns.
type Classifier struct {
	helpPatterns    []string
	historyPatterns []string
	clearPatterns   []string
}

// NewClassifier creates a new message classifier.
func NewClassifier() *Classifier {
	return &Classifier{
		helpPatterns: []string{
			"help",
			"what can you do",
			"how do i use",
			"commands",
		},
		historyPatterns: []string{
			"history",
			"show my messages",
			"previous messages",
			"what did i ask",
			"earlier questions",
		},
		clearPatterns: []string{
			"clear",
			"reset",
			"start over",
			"new conversation",
			"forget this conversation",
		},
	}
}

// Classify determines the query type, the matched command, and a
// confidence score for a message.
func (c *Classifier) Classify(message string) (QueryType, Command, float64) {
	m := normalize(message)

	// Slash-prefixed input is always command-like.
	if cmd, ok := slashCommand(m); ok {
		return QueryTypeStructured, cmd, 0.95
	}

	// Short messages matching a pattern are commands; the same words
	// buried in a long question stay freeform ("can you help me
	// understand X" is a question, not a help request).
	wordCount := len(strings.Fields(m))

	for _, pattern := range c.clearPatterns {
		if m == pattern || (wordCount <= 4 && strings.Contains(m, pattern)) {
			return QueryTypeStructured, CommandClear, 0.9
		}
	}
	for _, pattern := range c.historyPatterns {
		if m == pattern || (wordCount <= 5 && strings.Contains(m, pattern)) {
			return QueryTypeStructured, CommandHistory, 0.85
		}
	}
	for _, pattern := range c.helpPatterns {
		if m == pattern || (wordCount <= 3 && strings.Contains(m, pattern)) {
			return QueryTypeStructured, CommandHelp, 0.85
		}
	}

	return QueryTypeFreeform, CommandNone, 0.6
}

// normalize lowercases and strips surrounding whitespace and trailing
// punctuation for matching.
func normalize(message string) string {
	m := strings.ToLower(strings.TrimSpace(message))
	return strings.TrimRight(m, ".!?")
}

// slashCommand maps "/xyz" input to a known command.
func slashCommand(m string) (Command, bool) {
	if !strings.HasPrefix(m, "/") {
		return CommandNone, false
	}
	switch strings.Fields(m)[0] {
	case "/help":
		return CommandHelp, true
	case "/history":
		return CommandHistory, true
	case "/clear", "/reset":
		return CommandClear, true
	default:
		return CommandHelp, true
	}
}
