package reconcile

import (
	"github.com/shopspring/decimal"
)

// Discrepancy is one aggregate whose counted quantity differs from the
// theoretical quantity. Variance is counted minus theoretical: positive means
// the physical count exceeds the books, negative means stock is missing.
type Discrepancy struct {
	Article     string
	InventoryID string
	Theoretical decimal.Decimal
	Counted     decimal.Decimal
	Variance    decimal.Decimal
	LotType     LotType
	Lines       []StockLine
}

// ComputeDiscrepancies merges aggregates with the submitted count sheet.
// The counted side is keyed exactly like the aggregate: each aggregate sums
// the sheet quantities of the lot keys its own lines carry, so an article
// split across locations compares each split against its own count. Lines
// whose key appears in exclude are left out of both sides, which keeps
// phantom-lot quantities away from ordinary distribution without discarding
// the rest of the article. An aggregate missing from the sheet counts as
// zero. Aggregates whose variance is within epsilon are dropped.
func ComputeDiscrepancies(aggs []ArticleAggregate, sheet *CountSheet, exclude map[LineKey]bool) []Discrepancy {
	counted := sheet.QuantityByKey()

	out := make([]Discrepancy, 0, len(aggs))
	for _, agg := range aggs {
		var kept []StockLine
		theoretical := decimal.Zero
		got := decimal.Zero
		seen := make(map[LineKey]bool, len(agg.Lines))
		for _, line := range agg.Lines {
			key := line.Key()
			if exclude[key] {
				continue
			}
			kept = append(kept, line)
			theoretical = theoretical.Add(line.Theoretical)
			if !seen[key] {
				seen[key] = true
				got = got.Add(counted[key])
			}
		}
		if len(kept) == 0 {
			continue
		}
		variance := got.Sub(theoretical)
		if withinEpsilon(variance, decimal.Zero) {
			continue
		}
		out = append(out, Discrepancy{
			Article:     agg.Key.Article,
			InventoryID: agg.Key.InventoryID,
			Theoretical: theoretical,
			Counted:     got,
			Variance:    variance,
			LotType:     agg.LotType,
			Lines:       kept,
		})
	}
	return out
}
