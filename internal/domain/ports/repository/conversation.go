package repository

import (
	"context"

	"drug-shortage-assistant/internal/domain/model"
)

// ConversationRepository persists chat history per (session, assistant type).
type ConversationRepository interface {
	// Load returns the conversation, empty (not ErrNotFound) when no
	// messages exist yet.
	Load(ctx context.Context, sessionID string, assistant model.AssistantType) (*model.Conversation, error)
	AppendMessage(ctx context.Context, tx Tx, msg *model.ChatMessage) error
}
