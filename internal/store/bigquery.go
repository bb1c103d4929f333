package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"

	"github.com/finlens/statement-analyzer/internal/domain"
)

const (
	transactionsTable = "transactions"
	statementsTable   = "statements"
)

// TransactionRow is the BigQuery row shape for one transaction.
type TransactionRow struct {
	TransactionID string              `bigquery:"transaction_id"`
	UserID        string              `bigquery:"user_id"`
	TxDate        bigquery.NullDate   `bigquery:"tx_date"`
	RawDate       string              `bigquery:"raw_date"`
	Description   string              `bigquery:"description"`
	Amount        float64             `bigquery:"amount"`
	Direction     string              `bigquery:"direction"`
	Category      string              `bigquery:"category"`
	Confidence    float64             `bigquery:"confidence"`
	BankName      bigquery.NullString `bigquery:"bank_name"`
	CreatedTS     time.Time           `bigquery:"created_ts"`
}

// StatementRow records statement-level metadata per analysis.
type StatementRow struct {
	StatementID     string              `bigquery:"statement_id"`
	UserID          string              `bigquery:"user_id"`
	BankName        bigquery.NullString `bigquery:"bank_name"`
	AccountNumber   bigquery.NullString `bigquery:"account_number"`
	StatementPeriod bigquery.NullString `bigquery:"statement_period"`
	TxCount         int64               `bigquery:"tx_count"`
	CreatedTS       time.Time           `bigquery:"created_ts"`
}

// BigQueryStore is the TransactionStore backed by BigQuery streaming
// inserts.
type BigQueryStore struct {
	client  *bigquery.Client
	dataset string
	log     zerolog.Logger

	newID func() string
	now   func() time.Time
}

func NewBigQueryStore(ctx context.Context, projectID, dataset string, log zerolog.Logger) (*BigQueryStore, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("store: bigquery client: %w", err)
	}
	return &BigQueryStore{
		client:  client,
		dataset: dataset,
		log:     log,
		newID:   domain.NewTransactionID,
		now:     time.Now,
	}, nil
}

func (s *BigQueryStore) Close() error {
	return s.client.Close()
}

// SaveTransactions streams the transaction rows, then records the statement
// metadata. The metadata table is optional: its failure is logged and
// swallowed, only the primary insert error is returned.
func (s *BigQueryStore) SaveTransactions(ctx context.Context, userID string, txs []domain.Transaction, meta StatementMeta) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}

	now := s.now()
	rows := make([]*TransactionRow, 0, len(txs))
	for _, tx := range txs {
		row := &TransactionRow{
			TransactionID: tx.ID,
			UserID:        userID,
			RawDate:       tx.Date,
			Description:   tx.Description,
			Amount:        tx.Amount,
			Direction:     string(tx.Type),
			Category:      tx.Category,
			Confidence:    tx.Confidence,
			BankName:      nullString(meta.BankName),
			CreatedTS:     now,
		}
		if d, err := civil.ParseDate(tx.Date); err == nil {
			row.TxDate = bigquery.NullDate{Date: d, Valid: true}
		}
		rows = append(rows, row)
	}

	inserter := s.client.Dataset(s.dataset).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return 0, fmt.Errorf("store: inserting transactions: %w", err)
	}

	s.saveStatementMeta(ctx, userID, len(txs), meta)

	return len(rows), nil
}

func (s *BigQueryStore) saveStatementMeta(ctx context.Context, userID string, txCount int, meta StatementMeta) {
	row := &StatementRow{
		StatementID:     s.newID(),
		UserID:          userID,
		BankName:        nullString(meta.BankName),
		AccountNumber:   nullString(meta.AccountNumber),
		StatementPeriod: nullString(meta.StatementPeriod),
		TxCount:         int64(txCount),
		CreatedTS:       s.now(),
	}

	inserter := s.client.Dataset(s.dataset).Table(statementsTable).Inserter()
	if err := inserter.Put(ctx, []*StatementRow{row}); err != nil {
		// The statements table may not exist in older deployments.
		s.log.Warn().Err(err).Msg("Statement metadata insert failed")
	}
}

// ListTransactionsByUser returns a user's most recent transactions.
func (s *BigQueryStore) ListTransactionsByUser(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}

	q := s.client.Query(fmt.Sprintf(`
		SELECT transaction_id, raw_date, description, amount, direction, category, confidence
		FROM %s.%s
		WHERE user_id = @user_id
		ORDER BY created_ts DESC
		LIMIT @limit
	`, s.dataset, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "limit", Value: int64(limit)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: querying transactions: %w", err)
	}

	var txs []domain.Transaction
	for {
		var row struct {
			TransactionID string  `bigquery:"transaction_id"`
			RawDate       string  `bigquery:"raw_date"`
			Description   string  `bigquery:"description"`
			Amount        float64 `bigquery:"amount"`
			Direction     string  `bigquery:"direction"`
			Category      string  `bigquery:"category"`
			Confidence    float64 `bigquery:"confidence"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("store: reading transaction row: %w", err)
		}
		txs = append(txs, domain.Transaction{
			ID:          row.TransactionID,
			Date:        row.RawDate,
			Description: row.Description,
			Amount:      row.Amount,
			Type:        domain.TransactionType(row.Direction),
			Category:    row.Category,
			Confidence:  row.Confidence,
		})
	}

	return txs, nil
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
