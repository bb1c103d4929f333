// Package store persists analyzed transactions and statement metadata.
package store

import (
	"context"

	"github.com/finlens/statement-analyzer/internal/domain"
)

// StatementMeta is the statement-level metadata saved alongside the
// transactions.
type StatementMeta struct {
	BankName        string
	AccountNumber   string
	StatementPeriod string
}

// TransactionStore is the persistence collaborator. Implementations must
// tolerate the metadata table being unavailable; only the primary
// transaction insert failure is surfaced.
type TransactionStore interface {
	// SaveTransactions persists the list for a user and returns how many
	// rows were written.
	SaveTransactions(ctx context.Context, userID string, txs []domain.Transaction, meta StatementMeta) (int, error)

	// ListTransactionsByUser returns a user's most recent transactions.
	ListTransactionsByUser(ctx context.Context, userID string, limit int) ([]domain.Transaction, error)

	Close() error
}
