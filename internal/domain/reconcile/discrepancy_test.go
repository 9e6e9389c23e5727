package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDiscrepancies(t *testing.T) {
	lines := []StockLine{
		testLine("ART1", "INV001", "L1", 1000, 30, nil),
		testLine("ART2", "INV001", "L2", 2000, 5, nil),
		testLine("ART3", "INV001", "L3", 3000, 8, nil),
	}
	aggs, err := AggregateLines(lines)
	require.NoError(t, err)

	t.Run("left merge defaults missing counts to zero", func(t *testing.T) {
		sheet := mustSheet(t, []CountRow{testRow("ART1", "INV001", "L1", 30, 30)})
		discs := ComputeDiscrepancies(aggs, sheet, nil)
		require.Len(t, discs, 2)
		assert.Equal(t, "ART2", discs[0].Article)
		assert.True(t, discs[0].Counted.IsZero())
		assert.True(t, discs[0].Variance.Equal(decimal.NewFromInt(-5)))
	})

	t.Run("variance within epsilon is dropped", func(t *testing.T) {
		sheet := mustSheet(t, []CountRow{
			testRow("ART1", "INV001", "L1", 30, 30),
			testRow("ART2", "INV001", "L2", 5, 5),
			testRow("ART3", "INV001", "L3", 8, 8),
		})
		discs := ComputeDiscrepancies(aggs, sheet, nil)
		assert.Empty(t, discs)
	})

	t.Run("sign convention: surplus is positive", func(t *testing.T) {
		sheet := mustSheet(t, []CountRow{
			testRow("ART1", "INV001", "L1", 30, 42),
			testRow("ART2", "INV001", "L2", 5, 5),
			testRow("ART3", "INV001", "L3", 8, 8),
		})
		discs := ComputeDiscrepancies(aggs, sheet, nil)
		require.Len(t, discs, 1)
		assert.True(t, discs[0].Variance.Equal(decimal.NewFromInt(12)))
	})

	t.Run("counted side follows the aggregate split", func(t *testing.T) {
		// One article stored in two locations, each counted exactly.
		a := testLine("ART1", "INV001", "L1", 1000, 50, nil)
		b := testLine("ART1", "INV001", "L2", 2000, 50, nil)
		b.Location = "B07"
		split, err := AggregateLines([]StockLine{a, b})
		require.NoError(t, err)
		require.Len(t, split, 2)

		sheet := mustSheet(t, []CountRow{
			testRow("ART1", "INV001", "L1", 50, 50),
			testRow("ART1", "INV001", "L2", 50, 50),
		})
		discs := ComputeDiscrepancies(split, sheet, nil)
		assert.Empty(t, discs)
	})

	t.Run("excluded lot keys leave the rest of the article intact", func(t *testing.T) {
		empty := testLine("ART1", "INV001", "EMPTY", 1000, 0, nil)
		full := testLine("ART1", "INV001", "FULL", 2000, 100, nil)
		single, err := AggregateLines([]StockLine{empty, full})
		require.NoError(t, err)

		sheet := mustSheet(t, []CountRow{
			testRow("ART1", "INV001", "EMPTY", 0, 5),
			testRow("ART1", "INV001", "FULL", 100, 90),
		})
		claimed := map[LineKey]bool{
			{Article: "ART1", Inventory: "INV001", Lot: "EMPTY"}: true,
		}
		discs := ComputeDiscrepancies(single, sheet, claimed)
		require.Len(t, discs, 1)
		assert.True(t, discs[0].Theoretical.Equal(decimal.NewFromInt(100)))
		assert.True(t, discs[0].Counted.Equal(decimal.NewFromInt(90)))
		assert.True(t, discs[0].Variance.Equal(decimal.NewFromInt(-10)))
		require.Len(t, discs[0].Lines, 1)
		assert.Equal(t, "FULL", discs[0].Lines[0].Lot.FieldValue())
	})

	t.Run("aggregate fully claimed by exclusion is dropped", func(t *testing.T) {
		empty := testLine("ART1", "INV001", "EMPTY", 1000, 0, nil)
		single, err := AggregateLines([]StockLine{empty})
		require.NoError(t, err)

		sheet := mustSheet(t, []CountRow{testRow("ART1", "INV001", "EMPTY", 0, 5)})
		claimed := map[LineKey]bool{
			{Article: "ART1", Inventory: "INV001", Lot: "EMPTY"}: true,
		}
		discs := ComputeDiscrepancies(single, sheet, claimed)
		assert.Empty(t, discs)
	})
}
