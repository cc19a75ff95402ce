package model

import "time"

// AssistantType selects which LLM backend a conversation is bound to.
type AssistantType string

const (
	AssistantOpenAI  AssistantType = "openai-assistant"
	AssistantTxAgent AssistantType = "txagent"
)

func (t AssistantType) Valid() bool {
	return t == AssistantOpenAI || t == AssistantTxAgent
}

// ChatMessage is one turn in a session's conversation with an assistant.
type ChatMessage struct {
	ID        string
	SessionID string
	Assistant AssistantType
	Role      string // "user" | "assistant" | "system"
	Content   string
	CreatedAt time.Time
}

// Conversation is the ordered message history for one (session, assistant)
// pair.
type Conversation struct {
	SessionID string
	Assistant AssistantType
	Messages  []ChatMessage
}

// Recent returns up to n of the newest messages in chronological order.
func (c *Conversation) Recent(n int) []ChatMessage {
	if n <= 0 || len(c.Messages) <= n {
		return c.Messages
	}
	return c.Messages[len(c.Messages)-n:]
}
