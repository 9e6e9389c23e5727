package reconcile

import (
	"github.com/shopspring/decimal"
)

// AdjustmentTier orders adjustment application. Phantom-lot corrections are
// always applied before ordinary variance distribution.
type AdjustmentTier int

const (
	TierLotecart AdjustmentTier = 1
	TierOrdinary AdjustmentTier = 2
)

// AdjustmentKey is the lookup key the composer uses to match an adjustment to
// an original line.
type AdjustmentKey struct {
	Article   string
	Inventory string
	Lot       string
}

// Adjustment is one correction to apply to a stock line. Reference points at
// the original line being rewritten; a nil Reference with NewLine set means
// the composer synthesizes a fresh line from CloneFrom.
type Adjustment struct {
	Key       AdjustmentKey
	Tier      AdjustmentTier
	Original  decimal.Decimal
	Submitted decimal.Decimal
	Corrected decimal.Decimal
	Delta     decimal.Decimal
	Reference *StockLine
	CloneFrom *StockLine
	NewLine   bool
	LotType   LotType
	Reason    string
}

// IsPhantom reports whether this is a phantom-lot adjustment.
func (a Adjustment) IsPhantom() bool {
	return a.Tier == TierLotecart
}

// ConsolidateAdjustments merges phantom-lot adjustments (always first) with
// ordinary ones. A key present in both tiers is a conflict: the ordinary tier
// must never overwrite a phantom-lot correction.
func ConsolidateAdjustments(lotecart, ordinary []Adjustment) ([]Adjustment, error) {
	seen := make(map[AdjustmentKey]bool, len(lotecart))
	out := make([]Adjustment, 0, len(lotecart)+len(ordinary))

	for _, adj := range lotecart {
		seen[adj.Key] = true
		out = append(out, adj)
	}
	for _, adj := range ordinary {
		if seen[adj.Key] {
			return nil, NewAdjustmentConflictError(adj.Key)
		}
		seen[adj.Key] = true
		out = append(out, adj)
	}
	return out, nil
}

// TotalMoved sums the absolute deltas of all adjustments.
func TotalMoved(adjustments []Adjustment) decimal.Decimal {
	total := decimal.Zero
	for _, adj := range adjustments {
		total = total.Add(adj.Delta.Abs())
	}
	return total
}
