// Package aggregate derives summary statistics from a transaction list.
package aggregate

import (
	"sort"

	"github.com/finlens/statement-analyzer/internal/domain"
)

// TopCategoryCount is how many expense categories the summary ranks.
const TopCategoryCount = 5

// Summarize computes income/expense totals, net change, date range and the
// top spending categories. Pure: the input is never mutated, and the result
// is recomputed fresh on every call.
func Summarize(txs []domain.Transaction) domain.StatementSummary {
	summary := domain.StatementSummary{TransactionCount: len(txs)}

	totals := make(map[string]float64)
	var order []string

	for _, tx := range txs {
		if tx.Type == domain.TypeIncome {
			summary.TotalIncome += tx.Amount
		} else {
			summary.TotalExpenses += tx.Amount
			if _, seen := totals[tx.Category]; !seen {
				order = append(order, tx.Category)
			}
			totals[tx.Category] += tx.Amount
		}

		if tx.Date == "" {
			continue
		}
		// Dates are normalized to YYYY-MM-DD upstream, so lexicographic
		// order is chronological order.
		if summary.DateRange.Start == "" || tx.Date < summary.DateRange.Start {
			summary.DateRange.Start = tx.Date
		}
		if summary.DateRange.End == "" || tx.Date > summary.DateRange.End {
			summary.DateRange.End = tx.Date
		}
	}

	summary.NetChange = summary.TotalIncome - summary.TotalExpenses
	summary.TopCategories = topCategories(totals, order)

	return summary
}

// topCategories ranks expense categories by total, descending, ties broken
// by first-seen order.
func topCategories(totals map[string]float64, order []string) []domain.CategoryTotal {
	firstSeen := make(map[string]int, len(order))
	for i, cat := range order {
		firstSeen[cat] = i
	}

	ranked := make([]domain.CategoryTotal, 0, len(order))
	for _, cat := range order {
		ranked = append(ranked, domain.CategoryTotal{Category: cat, Amount: totals[cat]})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Amount != ranked[j].Amount {
			return ranked[i].Amount > ranked[j].Amount
		}
		return firstSeen[ranked[i].Category] < firstSeen[ranked[j].Category]
	})

	if len(ranked) > TopCategoryCount {
		ranked = ranked[:TopCategoryCount]
	}
	return ranked
}
