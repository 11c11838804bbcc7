// Package tx carries an open *sql.Tx through a context so store methods
// compose into one transaction without changing their signatures.
package tx

import (
	"context"
	"database/sql"
)

type key struct{}

// WithTx returns a context carrying t. Store methods that find a carried
// transaction run their statements on it instead of the pool.
func WithTx(ctx context.Context, t *sql.Tx) context.Context {
	if t == nil {
		return ctx
	}
	return context.WithValue(ctx, key{}, t)
}

// From reports the transaction carried by ctx, if any.
func From(ctx context.Context) (*sql.Tx, bool) {
	t, ok := ctx.Value(key{}).(*sql.Tx)
	return t, ok
}
