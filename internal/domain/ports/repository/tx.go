package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// TransactionManager executes a function within a database transaction,
// passing the underlying transaction handle via `tx`.
//
// Use-case interfaces stay clean (no driver transaction types leaking out);
// repository methods accept the handle and detect it implementation-side.
// Repositories MUST gracefully accept a nil handle (non-transactional path).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
