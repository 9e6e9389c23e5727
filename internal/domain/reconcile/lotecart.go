package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LotecartCandidate is a count-sheet row claiming stock for which the books
// hold no theoretical quantity. Such rows become phantom-lot corrections.
type LotecartCandidate struct {
	Key     LineKey
	Counted decimal.Decimal
}

// DetectLotecartCandidates selects rows with zero theoretical quantity and a
// positive count. Runs on the full sheet, before and independently of the
// discrepancy merge. A selected row whose count is not positive indicates an
// upstream defect and fails hard.
func DetectLotecartCandidates(sheet *CountSheet) ([]LotecartCandidate, error) {
	var out []LotecartCandidate
	for _, row := range sheet.Rows {
		if !isZero(row.Theoretical) {
			continue
		}
		if row.Quantity.LessThanOrEqual(decimal.Zero) {
			if isZero(row.Quantity) {
				continue
			}
			return nil, NewInvalidLotecartCandidateError(row.Key(),
				fmt.Sprintf("counted quantity %s is not positive", row.Quantity))
		}
		out = append(out, LotecartCandidate{Key: row.Key(), Counted: row.Quantity})
	}
	return out, nil
}

// LotecartResolution carries the phantom-lot adjustments plus everything the
// later phases need: the claimed keys (for exclusion from ordinary
// distribution) and any unresolved candidates, which the blocking gate turns
// into a hard failure.
type LotecartResolution struct {
	Adjustments []Adjustment
	ClaimedKeys map[LineKey]bool
	Issues      []string
}

// ResolveLotecart turns candidates into tier-1 adjustments by anchoring each
// on a reference stock line. An existing zero-theoretical line for the same
// lot is rewritten in place; otherwise a line for the same article is cloned
// into a brand-new phantom-lot line. A candidate with no reference at all is
// recorded as an issue, never silently dropped.
//
// It also sweeps zero-theoretical lines that were not explicit candidates but
// have a positive submitted count for their exact key; those become in-place
// updates under the same invariants.
func ResolveLotecart(candidates []LotecartCandidate, lines []StockLine, sheet *CountSheet) *LotecartResolution {
	res := &LotecartResolution{ClaimedKeys: make(map[LineKey]bool)}

	byArticle := make(map[ArticleRef][]*StockLine)
	for i := range lines {
		line := &lines[i]
		ref := ArticleRef{Article: line.ArticleCode, Inventory: line.InventoryID}
		byArticle[ref] = append(byArticle[ref], line)
	}

	processed := make(map[AdjustmentKey]bool)

	for _, cand := range candidates {
		ref := ArticleRef{Article: cand.Key.Article, Inventory: cand.Key.Inventory}
		articleLines := byArticle[ref]

		var anchor *StockLine
		for _, line := range articleLines {
			if line.HasZeroTheoretical() && line.Lot.FieldValue() == cand.Key.Lot {
				anchor = line
				break
			}
		}

		if anchor != nil {
			adj := Adjustment{
				Key:       AdjustmentKey{Article: anchor.ArticleCode, Inventory: anchor.InventoryID, Lot: anchor.Lot.FieldValue()},
				Tier:      TierLotecart,
				Original:  anchor.Theoretical,
				Submitted: cand.Counted,
				Corrected: cand.Counted,
				Delta:     cand.Counted,
				Reference: anchor,
				LotType:   LotTypePhantom,
				Reason:    "zero-stock line counted, rewritten as phantom lot",
			}
			if processed[adj.Key] {
				continue
			}
			processed[adj.Key] = true
			res.ClaimedKeys[cand.Key] = true
			res.Adjustments = append(res.Adjustments, adj)
			continue
		}

		if len(articleLines) == 0 {
			res.Issues = append(res.Issues,
				NewMissingReferenceLineError(cand.Key.Article, cand.Key.Inventory).Message)
			continue
		}

		// No zero-stock line for this lot: clone the article's first line
		// into a brand-new phantom-lot line.
		clone := articleLines[0]
		adj := Adjustment{
			Key:       AdjustmentKey{Article: cand.Key.Article, Inventory: cand.Key.Inventory, Lot: cand.Key.Lot},
			Tier:      TierLotecart,
			Original:  decimal.Zero,
			Submitted: cand.Counted,
			Corrected: cand.Counted,
			Delta:     cand.Counted,
			CloneFrom: clone,
			NewLine:   true,
			LotType:   LotTypePhantom,
			Reason:    "counted stock with no matching lot line, synthesizing phantom lot",
		}
		if processed[adj.Key] {
			continue
		}
		processed[adj.Key] = true
		res.ClaimedKeys[cand.Key] = true
		res.Adjustments = append(res.Adjustments, adj)
	}

	// Sweep: zero-theoretical lines with a positive submitted count for their
	// exact key that no explicit candidate already claimed.
	submitted := sheet.QuantityByKey()
	for i := range lines {
		line := &lines[i]
		if !line.HasZeroTheoretical() {
			continue
		}
		key := line.Key()
		adjKey := AdjustmentKey{Article: key.Article, Inventory: key.Inventory, Lot: key.Lot}
		if processed[adjKey] {
			continue
		}
		qty, ok := submitted[key]
		if !ok || qty.LessThanOrEqual(decimal.Zero) {
			continue
		}
		processed[adjKey] = true
		res.ClaimedKeys[key] = true
		res.Adjustments = append(res.Adjustments, Adjustment{
			Key:       adjKey,
			Tier:      TierLotecart,
			Original:  line.Theoretical,
			Submitted: qty,
			Corrected: qty,
			Delta:     qty,
			Reference: line,
			LotType:   LotTypePhantom,
			Reason:    "zero-stock line with submitted count, rewritten as phantom lot",
		})
	}

	return res
}
