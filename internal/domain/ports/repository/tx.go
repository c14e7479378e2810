package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes a function within a database transaction,
// passing the transaction handle via the opaque Tx argument.
//
// Use-case interfaces stay clean of storage types; repositories accept a Tx
// and detect the concrete handle (pgx.Tx for Postgres) implementation-side.
// Repositories MUST gracefully accept a nil Tx (non-transactional path).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
