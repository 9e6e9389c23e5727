package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocktake/backend/internal/domain/shared"
)

func TestNormalizeCountSheet(t *testing.T) {
	t.Run("fails on empty sheet", func(t *testing.T) {
		_, err := NormalizeCountSheet("SES001", nil, QuantityModeStrict)
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, CodeEmptyInput))
	})

	t.Run("parses comma decimal separators", func(t *testing.T) {
		rows := []CountRow{{Article: "ART1", InventoryID: "INV001", RawTheoretical: "10", RawQuantity: "12,5"}}
		sheet, err := NormalizeCountSheet("SES001", rows, QuantityModeStrict)
		require.NoError(t, err)
		assert.True(t, sheet.Rows[0].Quantity.Equal(decimal.NewFromFloat(12.5)))
	})

	t.Run("blank quantity counts as zero", func(t *testing.T) {
		rows := []CountRow{{Article: "ART1", InventoryID: "INV001", RawTheoretical: "10", RawQuantity: "  "}}
		sheet, err := NormalizeCountSheet("SES001", rows, QuantityModeStrict)
		require.NoError(t, err)
		assert.True(t, sheet.Rows[0].Quantity.IsZero())
		assert.Empty(t, sheet.Warnings)
	})

	t.Run("strict mode names every bad row", func(t *testing.T) {
		rows := []CountRow{
			{Article: "ART1", InventoryID: "INV001", Lot: "L1", RawTheoretical: "10", RawQuantity: "abc"},
			{Article: "ART2", InventoryID: "INV001", Lot: "L2", RawTheoretical: "5", RawQuantity: "3"},
			{Article: "ART3", InventoryID: "INV001", Lot: "L3", RawTheoretical: "5", RawQuantity: "x"},
		}
		_, err := NormalizeCountSheet("SES001", rows, QuantityModeStrict)
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, CodeInvalidQuantity))
		assert.Contains(t, err.Error(), "ART1")
		assert.Contains(t, err.Error(), "ART3")
		assert.NotContains(t, err.Error(), "ART2")
	})

	t.Run("lenient mode coerces to zero with a warning", func(t *testing.T) {
		rows := []CountRow{
			{Article: "ART1", InventoryID: "INV001", Lot: "L1", RawTheoretical: "10", RawQuantity: "abc"},
			{Article: "ART2", InventoryID: "INV001", Lot: "L2", RawTheoretical: "5", RawQuantity: "3"},
		}
		sheet, err := NormalizeCountSheet("SES001", rows, QuantityModeLenient)
		require.NoError(t, err)
		require.Len(t, sheet.Rows, 2)
		assert.True(t, sheet.Rows[0].Quantity.IsZero())
		assert.Len(t, sheet.Warnings, 1)
		assert.Contains(t, sheet.Warnings[0], "coerced to 0")
	})

	t.Run("corrupt theoretical column fails even in lenient mode", func(t *testing.T) {
		rows := []CountRow{{Article: "ART1", InventoryID: "INV001", RawTheoretical: "n/a", RawQuantity: "3"}}
		_, err := NormalizeCountSheet("SES001", rows, QuantityModeLenient)
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, CodeInvalidQuantity))
	})
}

func TestCountSheetIndexes(t *testing.T) {
	sheet := mustSheet(t, []CountRow{
		testRow("ART1", "INV001", "L1", 10, 4),
		testRow("ART1", "INV001", "L2", 20, 6),
		testRow("ART1", "INV001", "L1", 10, 1),
		testRow("ART2", "INV001", "", 5, 5),
	})

	t.Run("per-key index sums duplicate rows", func(t *testing.T) {
		byKey := sheet.QuantityByKey()
		assert.True(t, byKey[LineKey{Article: "ART1", Inventory: "INV001", Lot: "L1"}].Equal(decimal.NewFromInt(5)))
		assert.True(t, byKey[LineKey{Article: "ART1", Inventory: "INV001", Lot: "L2"}].Equal(decimal.NewFromInt(6)))
	})

	t.Run("lot sentinel is normalized in row keys", func(t *testing.T) {
		row := CountRow{Article: "ART1", InventoryID: "INV001", Lot: "lotecart"}
		assert.Equal(t, PhantomLotNumber, row.Key().Lot)
	})
}
