package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"drug-shortage-assistant/internal/domain/model"
	"drug-shortage-assistant/internal/domain/ports/repository"
)

var _ repository.DocumentRepository = (*documentRepo)(nil)

type documentRepo struct {
	pool *pgxpool.Pool
}

func NewDocumentRepo(pool *pgxpool.Pool) *documentRepo {
	return &documentRepo{pool: pool}
}

func (r *documentRepo) Save(ctx context.Context, tx repository.Tx, doc *model.Document) error {
	doc.UpdatedAt = time.Now()
	const q = `
INSERT INTO session_documents (session_id, drug_name, content, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (session_id) DO UPDATE SET
  drug_name = EXCLUDED.drug_name,
  content = EXCLUDED.content,
  updated_at = EXCLUDED.updated_at;`

	if _, err := execSQL(ctx, r.pool, tx, q, doc.SessionID, doc.DrugName, doc.Content, doc.UpdatedAt); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

func (r *documentRepo) FindBySession(ctx context.Context, sessionID string) (*model.Document, error) {
	const q = `SELECT session_id, drug_name, content, updated_at FROM session_documents WHERE session_id = $1;`
	row, err := queryRow(ctx, r.pool, nil, q, sessionID)
	if err != nil {
		return nil, err
	}
	var d model.Document
	if err := row.Scan(&d.SessionID, &d.DrugName, &d.Content, &d.UpdatedAt); err != nil {
		return nil, translateScanErr(err)
	}
	return &d, nil
}
