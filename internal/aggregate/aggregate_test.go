package aggregate

import (
	"math"
	"reflect"
	"testing"

	"github.com/finlens/statement-analyzer/internal/domain"
)

func tx(date string, amount float64, txType domain.TransactionType, category string) domain.Transaction {
	return domain.Transaction{
		ID:          domain.NewTransactionID(),
		Date:        date,
		Description: "test",
		Amount:      amount,
		Type:        txType,
		Category:    category,
		Confidence:  domain.ConfidenceModel,
	}
}

func TestSummarizeTotalsAndNet(t *testing.T) {
	txs := []domain.Transaction{
		tx("2024-02-01", 3000, domain.TypeIncome, "Other"),
		tx("2024-02-05", 120.50, domain.TypeExpense, "Food"),
		tx("2024-02-10", 80, domain.TypeExpense, "Transport"),
	}

	s := Summarize(txs)

	if s.TotalIncome != 3000 {
		t.Errorf("income = %v", s.TotalIncome)
	}
	if s.TotalExpenses != 200.50 {
		t.Errorf("expenses = %v", s.TotalExpenses)
	}
	if math.Abs(s.TotalIncome-s.TotalExpenses-s.NetChange) > 1e-9 {
		t.Errorf("netChange = %v, want income-expenses = %v", s.NetChange, s.TotalIncome-s.TotalExpenses)
	}
	if s.TransactionCount != 3 {
		t.Errorf("count = %d", s.TransactionCount)
	}
	if s.DateRange.Start != "2024-02-01" || s.DateRange.End != "2024-02-10" {
		t.Errorf("date range = %+v", s.DateRange)
	}
}

func TestSummarizeTopCategories(t *testing.T) {
	txs := []domain.Transaction{
		tx("2024-02-01", 50, domain.TypeExpense, "Food"),
		tx("2024-02-02", 200, domain.TypeExpense, "Shopping"),
		tx("2024-02-03", 50, domain.TypeExpense, "Food"),
		tx("2024-02-04", 100, domain.TypeExpense, "Transport"),
		tx("2024-02-05", 100, domain.TypeExpense, "Utilities"),
		tx("2024-02-06", 500, domain.TypeIncome, "Other"), // income must not rank
		tx("2024-02-07", 20, domain.TypeExpense, "Health"),
		tx("2024-02-08", 10, domain.TypeExpense, "Travel"),
	}

	s := Summarize(txs)

	if len(s.TopCategories) != TopCategoryCount {
		t.Fatalf("top categories len = %d, want %d", len(s.TopCategories), TopCategoryCount)
	}

	// Non-increasing amounts.
	for i := 1; i < len(s.TopCategories); i++ {
		if s.TopCategories[i].Amount > s.TopCategories[i-1].Amount {
			t.Errorf("ranking not non-increasing at %d: %+v", i, s.TopCategories)
		}
	}

	if s.TopCategories[0].Category != "Shopping" || s.TopCategories[0].Amount != 200 {
		t.Errorf("top = %+v", s.TopCategories[0])
	}

	// Transport (first seen before Utilities, both 100) wins the tie.
	if s.TopCategories[1].Category != "Transport" || s.TopCategories[2].Category != "Utilities" {
		t.Errorf("tie-break by first-seen violated: %+v", s.TopCategories)
	}
}

func TestSummarizeIdempotent(t *testing.T) {
	txs := []domain.Transaction{
		tx("2024-01-01", 10, domain.TypeExpense, "Food"),
		tx("2024-01-02", 25, domain.TypeIncome, "Other"),
		tx("", 5, domain.TypeExpense, "Food"),
	}

	first := Summarize(txs)
	second := Summarize(txs)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("summaries differ:\nfirst  %+v\nsecond %+v", first, second)
	}
}

func TestSummarizeDoesNotMutateInput(t *testing.T) {
	txs := []domain.Transaction{
		tx("2024-01-02", 10, domain.TypeExpense, "Food"),
		tx("2024-01-01", 20, domain.TypeExpense, "Transport"),
	}
	before := make([]domain.Transaction, len(txs))
	copy(before, txs)

	Summarize(txs)

	if !reflect.DeepEqual(before, txs) {
		t.Error("input slice was mutated")
	}
}

func TestSummarizeEmptyAndMissingDates(t *testing.T) {
	s := Summarize(nil)
	if s.TransactionCount != 0 || s.NetChange != 0 || len(s.TopCategories) != 0 {
		t.Errorf("empty summary = %+v", s)
	}

	s = Summarize([]domain.Transaction{tx("", 10, domain.TypeExpense, "Food")})
	if s.DateRange.Start != "" || s.DateRange.End != "" {
		t.Errorf("date range for dateless transactions = %+v", s.DateRange)
	}
}
