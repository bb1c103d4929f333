package domain

import "github.com/google/uuid"

// TransactionType is the direction of a transaction. The amount itself is
// always a non-negative magnitude; the sign lives here.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Confidence constants per extraction source. Model-asserted structure is
// trusted more than regex recovery but less than verified ground truth.
const (
	ConfidenceModel     = 0.85
	ConfidenceExternal  = 0.7
	ConfidenceHeuristic = 0.4
)

// DefaultCategory is assigned when no classification is available.
const DefaultCategory = "Other"

// Transaction is one line item recovered from a statement. Created once by
// whichever extraction stage produced it and never mutated afterwards.
type Transaction struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"` // YYYY-MM-DD where derivable, else raw
	Description string          `json:"description"`
	Amount      float64         `json:"amount"` // non-negative magnitude
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	Confidence  float64         `json:"confidence"`
}

// NewTransactionID generates an opaque unique transaction identifier.
func NewTransactionID() string {
	return uuid.NewString()
}
