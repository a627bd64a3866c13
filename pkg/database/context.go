package database

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type contextKey string

// txKey is the context key for storing an in-flight transaction.
const txKey contextKey = "tx"

// WithTx stores a transaction in the context. Repositories resolve their
// Querier through DB.Querier, so every statement issued under the returned
// context participates in tx.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

// TxFromContext retrieves the transaction from context.
// Returns nil and false if not present.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey).(pgx.Tx)
	return tx, ok
}
