// Package countsheet writes the Excel template operators fill in during the
// physical count and reads the completed sheet back.
package countsheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/stocktake/backend/internal/domain/reconcile"
)

const sheetName = "Count"

var columns = []string{"Article", "Inventory", "Lot", "Theoretical Qty", "Counted Qty"}

// WriteTemplate renders one row per stock line of the session, quantities
// prefilled with the theoretical value and the counted column left blank.
func WriteTemplate(w io.Writer, lines []reconcile.StockLine) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, col); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, line := range lines {
		row := i + 2
		values := []interface{}{
			line.ArticleCode,
			line.InventoryID,
			line.Lot.FieldValue(),
			line.Theoretical.String(),
			"",
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	return nil
}

// ReadCompleted parses a filled-in template back into raw count rows.
// Quantities stay as text; normalization is the engine's concern.
func ReadCompleted(r io.Reader) ([]reconcile.CountRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open count sheet: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read count sheet: %w", err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("count sheet is empty")
	}

	out := make([]reconcile.CountRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		// GetRows trims trailing empty cells.
		padded := make([]string, len(columns))
		copy(padded, row)
		if padded[0] == "" && padded[1] == "" {
			continue
		}
		out = append(out, reconcile.CountRow{
			Article:        padded[0],
			InventoryID:    padded[1],
			Lot:            padded[2],
			RawTheoretical: padded[3],
			RawQuantity:    padded[4],
		})
	}
	return out, nil
}
