package reconcile

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/stocktake/backend/internal/domain/shared"
)

// QuantityMode controls how unparseable submitted quantities are handled.
type QuantityMode string

const (
	// QuantityModeStrict rejects the whole sheet when any quantity fails to parse.
	QuantityModeStrict QuantityMode = "strict"
	// QuantityModeLenient coerces unparseable quantities to zero and records a warning.
	QuantityModeLenient QuantityMode = "lenient"
)

// IsValid checks if the quantity mode is valid
func (m QuantityMode) IsValid() bool {
	return m == QuantityModeStrict || m == QuantityModeLenient
}

// CountRow is one operator-entered row of a completed count sheet. Quantities
// arrive as raw text; NormalizeCountSheet parses them.
type CountRow struct {
	Article        string
	InventoryID    string
	Lot            string
	RawTheoretical string
	RawQuantity    string

	Theoretical decimal.Decimal
	Quantity    decimal.Decimal
}

// CountSheet is a normalized completed count sheet keyed by line.
type CountSheet struct {
	SessionID string
	Rows      []CountRow
	Warnings  []string
}

// Key returns the line key a count row settles against.
func (r CountRow) Key() LineKey {
	lot := r.Lot
	if strings.EqualFold(lot, PhantomLotNumber) {
		lot = PhantomLotNumber
	}
	return LineKey{Article: r.Article, Inventory: r.InventoryID, Lot: lot}
}

// NormalizeCountSheet parses the raw quantities of every row. In strict mode
// a single bad row fails the sheet, naming every offending row. In lenient
// mode bad rows are coerced to zero and reported as warnings.
func NormalizeCountSheet(sessionID string, rows []CountRow, mode QuantityMode) (*CountSheet, error) {
	if len(rows) == 0 {
		return nil, shared.NewDomainError(CodeEmptyInput, "count sheet has no rows")
	}

	sheet := &CountSheet{SessionID: sessionID, Rows: make([]CountRow, 0, len(rows))}
	var bad []string

	for i, row := range rows {
		label := fmt.Sprintf("%d (%s/%s)", i+1, row.Article, row.Lot)

		theo, err := parseQuantity(row.RawTheoretical)
		if err != nil {
			// The theoretical column is template-generated; a corrupt value
			// means the sheet itself is unusable.
			bad = append(bad, label)
			continue
		}

		qty, err := parseQuantity(row.RawQuantity)
		if err != nil {
			if mode == QuantityModeStrict {
				bad = append(bad, label)
				continue
			}
			sheet.Warnings = append(sheet.Warnings,
				fmt.Sprintf("row %s: quantity %q coerced to 0", label, row.RawQuantity))
			qty = decimal.Zero
		}
		row.Theoretical = theo
		row.Quantity = qty
		sheet.Rows = append(sheet.Rows, row)
	}

	if len(bad) > 0 {
		return nil, NewInvalidQuantityError(bad)
	}
	return sheet, nil
}

// QuantityByKey indexes submitted quantities, summing duplicate rows for the
// same lot line.
func (s *CountSheet) QuantityByKey() map[LineKey]decimal.Decimal {
	out := make(map[LineKey]decimal.Decimal, len(s.Rows))
	for _, row := range s.Rows {
		key := row.Key()
		out[key] = out[key].Add(row.Quantity)
	}
	return out
}

// ArticleRef identifies an article within one inventory.
type ArticleRef struct {
	Article   string
	Inventory string
}

func parseQuantity(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, nil
	}
	// Sheets filled by hand sometimes use a comma decimal separator.
	trimmed = strings.ReplaceAll(trimmed, ",", ".")
	qty, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse quantity %q: %w", raw, err)
	}
	return qty, nil
}
