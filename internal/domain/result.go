package domain

// ExtractionMethod identifies which extraction tier produced the raw text.
type ExtractionMethod string

const (
	MethodExternal  ExtractionMethod = "external"
	MethodTextLayer ExtractionMethod = "text"
	MethodVision    ExtractionMethod = "vision"
)

// RawDocument is the uploaded file's content and declared media type.
// It is owned by the orchestrator for the duration of one request and is
// never persisted.
type RawDocument struct {
	Data     []byte
	MimeType string
	Filename string
}

// ExtractionResult is the outcome of a successful extraction tier.
// Text is guaranteed non-empty; a near-empty extraction is reported as a
// tier failure instead.
type ExtractionResult struct {
	Text   string
	Method ExtractionMethod

	// Issuer is a best-effort issuer name when the tier detected one
	// (only the external service does).
	Issuer string

	// PreParsed holds transaction guesses returned alongside the raw text
	// by the external extraction service. May be empty.
	PreParsed []Transaction
}

// CategoryTotal is one entry of the top-spending-categories ranking.
type CategoryTotal struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// DateRange is the min/max of the dates present in a transaction list.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// StatementSummary is derived from a transaction list and recomputed fresh
// on every result.
type StatementSummary struct {
	TotalIncome      float64         `json:"totalIncome"`
	TotalExpenses    float64         `json:"totalExpenses"`
	NetChange        float64         `json:"netChange"`
	TransactionCount int             `json:"transactionCount"`
	DateRange        DateRange       `json:"dateRange"`
	TopCategories    []CategoryTotal `json:"topCategories"`
}

// AnalysisResult is the top-level output handed to the caller. Success is
// false only when no extraction tier produced enough text; every downstream
// stage always yields some result.
type AnalysisResult struct {
	Success         bool             `json:"success"`
	Transactions    []Transaction    `json:"transactions"`
	Summary         StatementSummary `json:"summary"`
	BankName        string           `json:"bankName,omitempty"`
	AccountNumber   string           `json:"accountNumber,omitempty"`
	StatementPeriod string           `json:"statementPeriod,omitempty"`
	Insights        []string         `json:"aiInsights"`
	Error           string           `json:"error,omitempty"`
	Method          ExtractionMethod `json:"method,omitempty"`
	Saved           *bool            `json:"saved,omitempty"`
	SavedCount      int              `json:"savedCount,omitempty"`
}
