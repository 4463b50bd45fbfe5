// Package ledger owns physical storage of transactions and asset
// balances. Records are created and mutated only through the engine
// packages; every store operation is atomic per record.
package ledger

import (
	"context"
	"time"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// Filter narrows a transaction listing. Zero values mean "any".
type Filter struct {
	From     time.Time // inclusive, on OccurredOn
	To       time.Time // inclusive, on OccurredOn
	Kind     domain.Kind
	Category string // case-insensitive substring match
}

// Store is the persistence boundary for the single-user ledger.
// Implementations handle their own transient-failure retries; callers
// treat every call as one synchronous atomic operation.
type Store interface {
	// CreateTransaction persists tx and returns it with the
	// store-assigned ID and CreatedAt filled in.
	CreateTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, error)

	// GetTransaction returns domain.ErrNotFound for unknown ids.
	GetTransaction(ctx context.Context, id string) (domain.Transaction, error)

	// ListTransactions returns matching records ordered by CreatedAt
	// descending, newest first.
	ListTransactions(ctx context.Context, f Filter) ([]domain.Transaction, error)

	// DeleteTransaction returns domain.ErrNotFound for unknown ids.
	DeleteTransaction(ctx context.Context, id string) error

	// UpsertBalance replaces the current balance for the account,
	// creating it on first sight. Never appends.
	UpsertBalance(ctx context.Context, b domain.AssetBalance) error

	// ListBalances returns all current balances ordered by account name.
	ListBalances(ctx context.Context) ([]domain.AssetBalance, error)

	Close() error
}
