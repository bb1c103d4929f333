package analyzer

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/finlens/statement-analyzer/internal/cache"
	"github.com/finlens/statement-analyzer/internal/domain"
	"github.com/finlens/statement-analyzer/internal/extract"
	"github.com/finlens/statement-analyzer/internal/parse"
	"github.com/finlens/statement-analyzer/internal/store"
)

type fakeTier struct {
	name domain.ExtractionMethod
	res  *domain.ExtractionResult
	err  error
}

func (f *fakeTier) Name() domain.ExtractionMethod { return f.name }

func (f *fakeTier) Attempt(ctx context.Context, doc *domain.RawDocument) (*domain.ExtractionResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

type fakeParser struct {
	res *parse.Result
	err error
}

func (f *fakeParser) Parse(ctx context.Context, text string) (*parse.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

type fakeStore struct {
	saveErr error
	saved   []domain.Transaction
	meta    store.StatementMeta
	userID  string
	userIDs []string
	calls   int
}

func (f *fakeStore) SaveTransactions(ctx context.Context, userID string, txs []domain.Transaction, meta store.StatementMeta) (int, error) {
	f.calls++
	f.userID = userID
	f.userIDs = append(f.userIDs, userID)
	f.meta = meta
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	f.saved = append(f.saved, txs...)
	return len(txs), nil
}

func (f *fakeStore) ListTransactionsByUser(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	return f.saved, nil
}

func (f *fakeStore) Close() error { return nil }

func doc() *domain.RawDocument {
	return &domain.RawDocument{Data: []byte("%PDF-1.4 fake"), MimeType: "application/pdf", Filename: "statement.pdf"}
}

func longText(prefix string) string {
	return prefix + strings.Repeat(" lorem ipsum dolor", 20)
}

var parseFailure = &parse.Failure{Reason: "no JSON object in reply"}

func TestAnalyzeFallsThroughToVision(t *testing.T) {
	tiers := []extract.Tier{
		&fakeTier{name: domain.MethodExternal, err: fmt.Errorf("connect: refused")},
		&fakeTier{name: domain.MethodTextLayer, err: extract.ErrInsufficientText},
		&fakeTier{name: domain.MethodVision, res: &domain.ExtractionResult{
			Text:   longText("transcribed statement"),
			Method: domain.MethodVision,
		}},
	}
	a := New(Deps{
		Tiers: tiers,
		Parser: &fakeParser{res: &parse.Result{
			Transactions: []domain.Transaction{{ID: "t1", Date: "2024-01-15", Description: "Coffee", Amount: 4.5, Type: domain.TypeExpense}},
		}},
	})

	res := a.Analyze(context.Background(), doc(), "")
	if !res.Success {
		t.Fatalf("Success = false, error = %q", res.Error)
	}
	if res.Method != domain.MethodVision {
		t.Errorf("Method = %q, want %q", res.Method, domain.MethodVision)
	}
}

func TestAnalyzeHeuristicOnly(t *testing.T) {
	tiers := []extract.Tier{
		&fakeTier{name: domain.MethodTextLayer, res: &domain.ExtractionResult{
			Text:   "01/15/2024 Coffee Shop 4.50",
			Method: domain.MethodTextLayer,
		}},
	}
	a := New(Deps{Tiers: tiers, Parser: &fakeParser{err: parseFailure}})

	res := a.Analyze(context.Background(), doc(), "")
	if !res.Success {
		t.Fatalf("Success = false, error = %q", res.Error)
	}
	if len(res.Transactions) != 1 {
		t.Fatalf("len(Transactions) = %d, want 1", len(res.Transactions))
	}
	tx := res.Transactions[0]
	if !strings.Contains(tx.Description, "Coffee Shop") {
		t.Errorf("Description = %q, want it to contain Coffee Shop", tx.Description)
	}
	if tx.Amount != 4.50 {
		t.Errorf("Amount = %v, want 4.50", tx.Amount)
	}
	if tx.Confidence != domain.ConfidenceHeuristic {
		t.Errorf("Confidence = %v, want %v", tx.Confidence, domain.ConfidenceHeuristic)
	}
	found := false
	for _, in := range res.Insights {
		if strings.Contains(in, "verify") || strings.Contains(in, "unverified") || strings.Contains(in, "pattern matching") {
			found = true
		}
	}
	if !found {
		t.Errorf("Insights = %v, want an unverified-figures warning", res.Insights)
	}
}

func TestAnalyzeUsesPreParsedWhenModelFails(t *testing.T) {
	pre := []domain.Transaction{
		{ID: "p1", Date: "2024-02-01", Description: "Groceries", Amount: 55, Type: domain.TypeExpense, Category: "Other", Confidence: domain.ConfidenceExternal},
	}
	tiers := []extract.Tier{
		&fakeTier{name: domain.MethodExternal, res: &domain.ExtractionResult{
			Text:      longText("statement from the parse service"),
			Method:    domain.MethodExternal,
			Issuer:    "Meezan Bank",
			PreParsed: pre,
		}},
	}
	a := New(Deps{Tiers: tiers, Parser: &fakeParser{err: parseFailure}})

	res := a.Analyze(context.Background(), doc(), "")
	if len(res.Transactions) != 1 || res.Transactions[0].ID != "p1" {
		t.Fatalf("Transactions = %+v, want the pre-parsed list", res.Transactions)
	}
	if res.BankName != "Meezan Bank" {
		t.Errorf("BankName = %q, want detected issuer from extraction", res.BankName)
	}
	found := false
	for _, in := range res.Insights {
		if in == SkippedAIInsight {
			found = true
		}
	}
	if !found {
		t.Errorf("Insights = %v, want the skipped-AI note", res.Insights)
	}
}

func TestAnalyzeErroredDistinguishesMissingCredential(t *testing.T) {
	base := []extract.Tier{
		&fakeTier{name: domain.MethodTextLayer, err: extract.ErrInsufficientText},
	}

	a := New(Deps{Tiers: append(base, &fakeTier{name: domain.MethodVision, err: extract.ErrNoCredential})})
	res := a.Analyze(context.Background(), doc(), "")
	if res.Success {
		t.Fatal("Success = true, want false when every tier fails")
	}
	if !strings.Contains(res.Error, "credential") {
		t.Errorf("Error = %q, want mention of the missing vision credential", res.Error)
	}

	a = New(Deps{Tiers: append(base, &fakeTier{name: domain.MethodVision, err: fmt.Errorf("vision call failed")})})
	res = a.Analyze(context.Background(), doc(), "")
	if res.Success {
		t.Fatal("Success = true, want false")
	}
	if strings.Contains(res.Error, "credential") {
		t.Errorf("Error = %q, should not mention credentials when one was configured", res.Error)
	}
}

func TestAnalyzePersistenceFailureDoesNotFailAnalysis(t *testing.T) {
	tiers := []extract.Tier{
		&fakeTier{name: domain.MethodTextLayer, res: &domain.ExtractionResult{
			Text:   longText("statement"),
			Method: domain.MethodTextLayer,
		}},
	}
	st := &fakeStore{saveErr: fmt.Errorf("bigquery: table not found")}
	a := New(Deps{
		Tiers: tiers,
		Parser: &fakeParser{res: &parse.Result{
			BankName:     "HBL",
			Transactions: []domain.Transaction{{ID: "t1", Date: "2024-03-01", Description: "Rent", Amount: 900, Type: domain.TypeExpense}},
		}},
		Store: st,
	})

	res := a.Analyze(context.Background(), doc(), "user-1")
	if !res.Success {
		t.Fatalf("Success = false, want true despite persistence failure")
	}
	if res.Saved == nil || *res.Saved {
		t.Errorf("Saved = %v, want false", res.Saved)
	}
	if st.calls != 1 {
		t.Errorf("store calls = %d, want exactly 1", st.calls)
	}
	if st.meta.BankName != "HBL" {
		t.Errorf("meta.BankName = %q", st.meta.BankName)
	}
}

func TestAnalyzeDetectsIssuerFromText(t *testing.T) {
	tiers := []extract.Tier{
		&fakeTier{name: domain.MethodTextLayer, res: &domain.ExtractionResult{
			Text:   longText("Standard Chartered Bank Statement for account 1234"),
			Method: domain.MethodTextLayer,
		}},
	}
	a := New(Deps{Tiers: tiers, Parser: &fakeParser{err: parseFailure}})

	res := a.Analyze(context.Background(), doc(), "")
	if res.BankName != "Standard Chartered" {
		t.Errorf("BankName = %q, want Standard Chartered", res.BankName)
	}
}

func TestAnalyzeReturnsCachedResult(t *testing.T) {
	tier := &fakeTier{name: domain.MethodTextLayer, res: &domain.ExtractionResult{
		Text:   longText("statement"),
		Method: domain.MethodTextLayer,
	}}
	c := cache.New(time.Minute)
	a := New(Deps{
		Tiers: []extract.Tier{tier},
		Parser: &fakeParser{res: &parse.Result{
			Transactions: []domain.Transaction{{ID: "t1", Date: "2024-01-02", Description: "X", Amount: 1, Type: domain.TypeExpense}},
		}},
		Cache: c,
	})

	first := a.Analyze(context.Background(), doc(), "")
	// Swap the tier to an always-failing one; a cache hit must bypass it.
	tier.res = nil
	tier.err = fmt.Errorf("should not be called")
	second := a.Analyze(context.Background(), doc(), "")

	if !second.Success || second.Method != first.Method {
		t.Fatalf("second = %+v, want the cached first result", second)
	}
	if len(second.Transactions) != 1 {
		t.Errorf("len(Transactions) = %d, want 1", len(second.Transactions))
	}
}

func TestAnalyzeCachePersistsPerUser(t *testing.T) {
	tiers := []extract.Tier{
		&fakeTier{name: domain.MethodTextLayer, res: &domain.ExtractionResult{
			Text:   longText("statement"),
			Method: domain.MethodTextLayer,
		}},
	}
	st := &fakeStore{}
	a := New(Deps{
		Tiers: tiers,
		Parser: &fakeParser{res: &parse.Result{
			Transactions: []domain.Transaction{{ID: "t1", Date: "2024-04-01", Description: "Fuel", Amount: 30, Type: domain.TypeExpense}},
		}},
		Store: st,
		Cache: cache.New(time.Minute),
	})

	first := a.Analyze(context.Background(), doc(), "user-a")
	second := a.Analyze(context.Background(), doc(), "user-b")

	if st.calls != 2 {
		t.Fatalf("store calls = %d, want 2: each user's upload must be persisted", st.calls)
	}
	if len(st.userIDs) != 2 || st.userIDs[0] != "user-a" || st.userIDs[1] != "user-b" {
		t.Errorf("store userIDs = %v, want [user-a user-b]", st.userIDs)
	}
	if first.Saved == nil || !*first.Saved || second.Saved == nil || !*second.Saved {
		t.Errorf("Saved = %v / %v, want true for both users", first.Saved, second.Saved)
	}
	if second.SavedCount != 1 {
		t.Errorf("second.SavedCount = %d, want 1", second.SavedCount)
	}
}

func TestDetectIssuer(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"HABIB BANK LIMITED account statement", "Habib Bank"},
		{"statement issued by icici direct", "ICICI"},
		{"Meezan bank monthly statement", "Meezan Bank"},
		{"no bank mentioned here", ""},
	}

	for _, tc := range cases {
		if got := DetectIssuer(tc.text); got != tc.want {
			t.Errorf("DetectIssuer(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}
