package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"drug-shortage-assistant/internal/domain/model"
	"drug-shortage-assistant/internal/domain/ports/repository"
)

var _ repository.ConversationRepository = (*conversationRepo)(nil)

type conversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *conversationRepo {
	return &conversationRepo{pool: pool}
}

func (r *conversationRepo) Load(ctx context.Context, sessionID string, assistant model.AssistantType) (*model.Conversation, error) {
	const q = `
SELECT id, session_id, assistant, role, content, created_at
FROM conversation_messages
WHERE session_id = $1 AND assistant = $2
ORDER BY created_at;`

	rows, err := r.pool.Query(ctx, q, sessionID, string(assistant))
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	defer rows.Close()

	conv := &model.Conversation{SessionID: sessionID, Assistant: assistant}
	for rows.Next() {
		var m model.ChatMessage
		var asst string
		if err := rows.Scan(&m.ID, &m.SessionID, &asst, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, translateScanErr(err)
		}
		m.Assistant = model.AssistantType(asst)
		conv.Messages = append(conv.Messages, m)
	}
	return conv, rows.Err()
}

func (r *conversationRepo) AppendMessage(ctx context.Context, tx repository.Tx, msg *model.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	const q = `
INSERT INTO conversation_messages (id, session_id, assistant, role, content, created_at)
VALUES ($1, $2, $3, $4, $5, $6);`

	if _, err := execSQL(ctx, r.pool, tx, q, msg.ID, msg.SessionID, string(msg.Assistant), msg.Role, msg.Content, msg.CreatedAt); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}
