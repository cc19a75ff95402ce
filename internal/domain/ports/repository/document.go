package repository

import (
	"context"

	"drug-shortage-assistant/internal/domain/model"
)

// DocumentRepository persists the current shortage-response document per
// session (one row per session, upsert on save).
type DocumentRepository interface {
	Save(ctx context.Context, tx Tx, doc *model.Document) error
	FindBySession(ctx context.Context, sessionID string) (*model.Document, error)
}
