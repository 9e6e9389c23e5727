package countsheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/stocktake/backend/internal/domain/reconcile"
)

// Read picks the parser from the file extension: .csv for semicolon-delimited
// sheets, anything else is treated as xlsx.
func Read(name string, r io.Reader) ([]reconcile.CountRow, error) {
	if strings.EqualFold(path.Ext(name), ".csv") {
		return ReadCompletedCSV(r)
	}
	return ReadCompleted(r)
}

// ReadCompletedCSV parses a semicolon-delimited rendition of the count sheet,
// as produced by spreadsheet tools exporting the template. A leading header
// row is skipped when present.
func ReadCompletedCSV(r io.Reader) ([]reconcile.CountRow, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv count sheet: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("count sheet is empty")
	}

	start := 0
	if len(records[0]) > 0 && strings.EqualFold(strings.TrimSpace(records[0][0]), columns[0]) {
		start = 1
	}

	out := make([]reconcile.CountRow, 0, len(records)-start)
	for _, rec := range records[start:] {
		padded := make([]string, len(columns))
		copy(padded, rec)
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
