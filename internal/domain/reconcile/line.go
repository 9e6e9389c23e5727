package reconcile

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StockLine is one parsed S; record of the export file. It is immutable once
// parsed; the composer works on a copy of the raw field slice.
type StockLine struct {
	SessionID   string
	InventoryID string
	Rank        int
	Site        string
	Theoretical decimal.Decimal
	CountedIn   decimal.Decimal // counted-quantity slot as present in the input
	CountFlag   string
	ArticleCode string
	Location    string
	Status      string
	Unit        string
	Value       string
	Zone        string
	Lot         Lot
	LotDate     *time.Time // inferred from the lot number, nil when unknown
	LotType     LotType
	Raw         string // original line text, kept for faithful regeneration
}

// LineKey identifies a stock line (and the adjustment targeting it) by its
// business key. Lot holds the lot-number column value, possibly empty.
type LineKey struct {
	Article   string
	Inventory string
	Lot       string
}

// Key returns the business key of the line.
func (l *StockLine) Key() LineKey {
	return LineKey{
		Article:   l.ArticleCode,
		Inventory: l.InventoryID,
		Lot:       l.Lot.FieldValue(),
	}
}

// RawFields splits the original line text into its columns. Trailing columns
// beyond the schema are preserved.
func (l *StockLine) RawFields() []string {
	return strings.Split(l.Raw, FieldSeparator)
}

// HasZeroTheoretical reports whether the line carries no expected stock.
func (l *StockLine) HasZeroTheoretical() bool {
	return isZero(l.Theoretical)
}

// MaxRank returns the highest rank present in lines, 0 for an empty slice.
func MaxRank(lines []StockLine) int {
	max := 0
	for i := range lines {
		if lines[i].Rank > max {
			max = lines[i].Rank
		}
	}
	return max
}
