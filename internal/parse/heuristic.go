package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/finlens/statement-analyzer/internal/domain"
)

const (
	// MaxHeuristicTransactions caps pattern-recovered transactions per
	// document.
	MaxHeuristicTransactions = 50

	// maxPlausibleAmount rejects regex matches that are clearly reference
	// numbers, not money.
	maxPlausibleAmount = 100_000_000
)

// HeuristicInsight is always attached when pattern recovery runs: this is
// the one path where correctness is explicitly not guaranteed.
const HeuristicInsight = "Transactions were recovered by pattern matching, not AI analysis. " +
	"Figures are unverified and should be checked against the original statement."

// tripleRe matches a date + description + amount line, with an optional
// DR/CR marker consumed so it stays out of the description.
var tripleRe = regexp.MustCompile(
	`(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4})\s+(.+?)\s+([\d,]+\.?\d*)\s*(?:DR|CR|Dr|Cr)?\s*$`)

// Bare currency-prefixed amounts in the two notations the source statements
// use.
var currencyRes = []*regexp.Regexp{
	regexp.MustCompile(`(?:Rs\.?|PKR)\s*([\d,]+\.?\d*)`),
	regexp.MustCompile(`(?:\$|USD)\s*([\d,]+\.?\d*)`),
}

var lineDateRe = regexp.MustCompile(`\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}`)

// ExtractHeuristic recovers date/amount pairs directly from raw text with
// ordered regex patterns. Used only when model-based extraction fails and no
// pre-parsed transactions exist. Returns the transactions plus the insight
// strings the result must carry.
func ExtractHeuristic(text string) ([]domain.Transaction, []string) {
	var txs []domain.Transaction

	for _, line := range strings.Split(text, "\n") {
		if len(txs) >= MaxHeuristicTransactions {
			break
		}
		line = strings.TrimSpace(line)
		if len(line) < 10 {
			continue
		}

		if m := tripleRe.FindStringSubmatch(line); m != nil {
			if tx, ok := buildHeuristicTx(m[1], m[2], m[3]); ok {
				txs = append(txs, tx)
			}
			continue
		}

		for _, re := range currencyRes {
			m := re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			date := lineDateRe.FindString(line)
			desc := strings.Replace(line, m[0], "", 1)
			if date != "" {
				desc = strings.Replace(desc, date, "", 1)
			}
			desc = strings.Join(strings.Fields(desc), " ")
			if tx, ok := buildHeuristicTx(date, desc, m[1]); ok {
				txs = append(txs, tx)
			}
			break
		}
	}

	return txs, []string{HeuristicInsight}
}

func buildHeuristicTx(date, description, amountStr string) (domain.Transaction, bool) {
	amount, err := strconv.ParseFloat(strings.ReplaceAll(amountStr, ",", ""), 64)
	if err != nil {
		return domain.Transaction{}, false
	}
	// Non-positive or implausibly large matches are false positives.
	if amount <= 0 || amount >= maxPlausibleAmount {
		return domain.Transaction{}, false
	}

	description = strings.TrimSpace(description)
	if description == "" {
		description = "Unlabelled transaction"
	}

	return domain.Transaction{
		ID:          domain.NewTransactionID(),
		Date:        domain.NormalizeDate(date),
		Description: description,
		Amount:      amount,
		Type:        domain.TypeExpense,
		Category:    domain.DefaultCategory,
		Confidence:  domain.ConfidenceHeuristic,
	}, true
}
