package notionsync

import (
	"context"

	"github.com/finlens/statement-analyzer/internal/domain"
	"github.com/finlens/statement-analyzer/internal/logger"
)

// Mirror pushes extracted transactions into a Notion database after
// they have been persisted. Mirroring is best-effort: a Notion outage
// must not fail the analysis, so per-page errors are logged and
// counted rather than returned.
type Mirror struct {
	service    NotionService
	databaseID string
}

func NewMirror(service NotionService, databaseID string) *Mirror {
	return &Mirror{service: service, databaseID: databaseID}
}

// MirrorTransactions creates one Notion page per transaction.
// It returns the number of pages created.
func (m *Mirror) MirrorTransactions(ctx context.Context, txs []domain.Transaction, bankName string) int {
	log := logger.FromContext(ctx)

	var created int
	for i := range txs {
		props := TransactionToProperties(&txs[i], bankName)
		if _, err := m.service.CreatePage(ctx, m.databaseID, props); err != nil {
			log.Warn().
				Err(err).
				Str("transaction_id", txs[i].ID).
				Msg("Failed to mirror transaction to Notion")
			continue
		}
		created++
	}

	log.Info().
		Int("created", created).
		Int("total", len(txs)).
		Msg("Mirrored transactions to Notion")

	return created
}
