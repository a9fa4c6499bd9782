package store

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the pgx-backed persistence layer. It implements the consumer
// interfaces declared by the domain packages: ledger.Store,
// billing.AccountStore, and billing.AuditLog.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("store: pgx pool is required")
	}
	return &Store{pool: pool}
}
