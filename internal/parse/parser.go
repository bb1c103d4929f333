// Package parse turns raw statement text into typed transactions, first via
// a language model with defensive JSON decoding, and failing that via regex
// pattern recovery.
package parse

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/finlens/statement-analyzer/internal/domain"
)

// Result is a successfully parsed statement.
type Result struct {
	BankName        string
	AccountNumber   string
	StatementPeriod string
	Transactions    []domain.Transaction
	Insights        []string
}

// StatementParser extracts structured transactions from raw text. A nil
// result with a *Failure error signals the caller to fall back.
type StatementParser interface {
	Parse(ctx context.Context, text string) (*Result, error)
}

// TextGenerator is the single-round-trip language model call the parser
// depends on.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenAIGenerator calls a Gemini text model.
type GenAIGenerator struct {
	client *genai.Client
	model  string
}

func NewGenAIGenerator(client *genai.Client, model string) *GenAIGenerator {
	return &GenAIGenerator{client: client, model: model}
}

func (g *GenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

// ModelParser is the model-backed StatementParser.
type ModelParser struct {
	gen TextGenerator
	log zerolog.Logger

	// now is swapped in tests; defaulted dates use it.
	now func() time.Time
}

func NewModelParser(gen TextGenerator, log zerolog.Logger) *ModelParser {
	return &ModelParser{gen: gen, log: log, now: time.Now}
}

// modelReply mirrors the JSON shape the prompt demands.
type modelReply struct {
	BankName        string           `json:"bankName"`
	AccountNumber   string           `json:"accountNumber"`
	StatementPeriod string           `json:"statementPeriod"`
	Transactions    []rawTransaction `json:"transactions"`
	Insights        []string         `json:"insights"`
}

type rawTransaction struct {
	Date        string     `json:"date"`
	Description string     `json:"description"`
	Amount      flexNumber `json:"amount"`
	Type        string     `json:"type"`
	Category    string     `json:"category"`
}

// flexNumber accepts both JSON numbers and numeric strings; models emit
// either.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) >= 2 && s[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		if s == "" {
			*n = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("amount %q is not numeric", s)
	}
	*n = flexNumber(f)
	return nil
}

// Parse sends the extraction prompt to the model and normalizes its reply.
// All failure modes come back as *Failure; nothing is thrown past this
// boundary.
func (p *ModelParser) Parse(ctx context.Context, text string) (*Result, error) {
	reply, err := p.gen.Generate(ctx, buildExtractionPrompt(text))
	if err != nil {
		return nil, &Failure{Reason: "model call failed", Err: err}
	}

	var parsed modelReply
	if err := decodeModelJSON(reply, &parsed); err != nil {
		p.log.Warn().Err(err).Msg("Model reply could not be decoded")
		return nil, err
	}

	res := &Result{
		BankName:        parsed.BankName,
		AccountNumber:   parsed.AccountNumber,
		StatementPeriod: parsed.StatementPeriod,
		Insights:        parsed.Insights,
	}
	for _, raw := range parsed.Transactions {
		res.Transactions = append(res.Transactions, p.normalize(raw))
	}

	return res, nil
}

// normalize applies the defaulting rules: sign is discarded from the source
// amount and re-derived solely from type; type defaults to expense unless
// explicitly income; category defaults to Other; a missing date becomes
// today.
func (p *ModelParser) normalize(raw rawTransaction) domain.Transaction {
	txType := domain.TypeExpense
	if strings.EqualFold(strings.TrimSpace(raw.Type), string(domain.TypeIncome)) {
		txType = domain.TypeIncome
	}

	category := strings.TrimSpace(raw.Category)
	if category == "" {
		category = domain.DefaultCategory
	}

	date := domain.NormalizeDate(raw.Date)
	if date == "" {
		date = p.now().Format("2006-01-02")
	}

	return domain.Transaction{
		ID:          domain.NewTransactionID(),
		Date:        date,
		Description: strings.TrimSpace(raw.Description),
		Amount:      math.Abs(float64(raw.Amount)),
		Type:        txType,
		Category:    category,
		Confidence:  domain.ConfidenceModel,
	}
}
