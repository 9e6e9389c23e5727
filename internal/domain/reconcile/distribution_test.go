package reconcile

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocktake/backend/internal/domain/shared"
)

func newTestEngine(t *testing.T, strategy LotDistributionStrategyType) *Engine {
	t.Helper()
	engine, err := NewEngine(EngineConfig{Strategy: strategy})
	require.NoError(t, err)
	return engine
}

func TestEngineShortage(t *testing.T) {
	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	lines := []StockLine{
		testLine("ART1", "INV001", "OLD", 1000, 40, timePtr(jan)),
		testLine("ART1", "INV001", "NEW", 2000, 20, timePtr(jun)),
	}
	sheet := mustSheet(t, []CountRow{
		testRow("ART1", "INV001", "OLD", 40, 40),
		testRow("ART1", "INV001", "NEW", 20, 10),
	})

	t.Run("FIFO takes the shortage out of the oldest lot", func(t *testing.T) {
		result, err := newTestEngine(t, LotDistributionStrategyTypeFIFO).Run(lines, sheet)
		require.NoError(t, err)
		require.Len(t, result.Adjustments, 1)

		adj := result.Adjustments[0]
		assert.Equal(t, TierOrdinary, adj.Tier)
		assert.Equal(t, "OLD", adj.Key.Lot)
		assert.True(t, adj.Corrected.Equal(decimal.NewFromInt(30)))
		assert.True(t, adj.Delta.Equal(decimal.NewFromInt(-10)))
		assert.Equal(t, PhaseDone, result.Phase)
	})

	t.Run("LIFO takes the shortage out of the newest lot", func(t *testing.T) {
		result, err := newTestEngine(t, LotDistributionStrategyTypeLIFO).Run(lines, sheet)
		require.NoError(t, err)
		require.Len(t, result.Adjustments, 1)

		adj := result.Adjustments[0]
		assert.Equal(t, "NEW", adj.Key.Lot)
		assert.True(t, adj.Corrected.Equal(decimal.NewFromInt(10)))
	})

	t.Run("shortage larger than one lot spills into the next", func(t *testing.T) {
		short := mustSheet(t, []CountRow{
			testRow("ART1", "INV001", "OLD", 40, 10),
			testRow("ART1", "INV001", "NEW", 20, 0),
		})
		result, err := newTestEngine(t, LotDistributionStrategyTypeFIFO).Run(lines, short)
		require.NoError(t, err)
		require.Len(t, result.Adjustments, 2)

		assert.True(t, result.Adjustments[0].Corrected.IsZero())
		assert.True(t, result.Adjustments[1].Corrected.Equal(decimal.NewFromInt(10)))

		moved := decimal.Zero
		for _, adj := range result.Adjustments {
			moved = moved.Add(adj.Delta)
		}
		assert.True(t, moved.Equal(decimal.NewFromInt(-50)), "deltas must sum to the variance")
		assert.True(t, result.Summary.Residual.IsZero())
	})
}

func TestEngineSurplus(t *testing.T) {
	t.Run("additions are capped at twice the lot quantity", func(t *testing.T) {
		lines := []StockLine{testLine("ART1", "INV001", "ONLY", 1000, 10, nil)}
		sheet := mustSheet(t, []CountRow{testRow("ART1", "INV001", "ONLY", 10, 40)})

		result, err := newTestEngine(t, LotDistributionStrategyTypeFIFO).Run(lines, sheet)
		require.NoError(t, err)
		require.Len(t, result.Adjustments, 1)

		adj := result.Adjustments[0]
		assert.True(t, adj.Corrected.Equal(decimal.NewFromInt(30)))
		assert.True(t, result.Summary.Residual.Equal(decimal.NewFromInt(10)),
			"what no lot can absorb stays as residual")
	})

	t.Run("surplus within the cap settles fully", func(t *testing.T) {
		lines := []StockLine{testLine("ART1", "INV001", "ONLY", 1000, 10, nil)}
		sheet := mustSheet(t, []CountRow{testRow("ART1", "INV001", "ONLY", 10, 25)})

		result, err := newTestEngine(t, LotDistributionStrategyTypeFIFO).Run(lines, sheet)
		require.NoError(t, err)
		assert.True(t, result.Adjustments[0].Corrected.Equal(decimal.NewFromInt(25)))
		assert.True(t, result.Summary.Residual.IsZero())
	})
}

func TestEngineLotecart(t *testing.T) {
	t.Run("zero-stock line counted becomes a tier-1 in-place update", func(t *testing.T) {
		lines := []StockLine{
			testLine("ART1", "INV001", "EMPTY", 1000, 0, nil),
			testLine("ART2", "INV001", "FULL", 2000, 10, nil),
		}
		sheet := mustSheet(t, []CountRow{
			testRow("ART1", "INV001", "EMPTY", 0, 7),
			testRow("ART2", "INV001", "FULL", 10, 10),
		})

		result, err := newTestEngine(t, LotDistributionStrategyTypeFIFO).Run(lines, sheet)
		require.NoError(t, err)
		require.Len(t, result.Adjustments, 1)

		adj := result.Adjustments[0]
		assert.Equal(t, TierLotecart, adj.Tier)
		assert.False(t, adj.NewLine)
		require.NotNil(t, adj.Reference)
		assert.Equal(t, "EMPTY", adj.Reference.Lot.FieldValue())
		assert.True(t, adj.Corrected.Equal(decimal.NewFromInt(7)))
		assert.Equal(t, 1, result.Summary.LotecartAdjustments)
	})

	t.Run("counted lot with no zero-stock match synthesizes a new line", func(t *testing.T) {
		lines := []StockLine{testLine("ART1", "INV001", "FULL", 1000, 10, nil)}
		sheet := mustSheet(t, []CountRow{
			testRow("ART1", "INV001", "SURPRISE", 0, 4),
			testRow("ART1", "INV001", "FULL", 10, 10),
		})

		result, err := newTestEngine(t, LotDistributionStrategyTypeFIFO).Run(lines, sheet)
		require.NoError(t, err)
		require.Len(t, result.Adjustments, 1)

		adj := result.Adjustments[0]
		assert.Equal(t, TierLotecart, adj.Tier)
		assert.True(t, adj.NewLine)
		require.NotNil(t, adj.CloneFrom)
		assert.Equal(t, 1, result.Summary.NewLines)
	})

	t.Run("candidate without any reference line blocks the run", func(t *testing.T) {
		lines := []StockLine{testLine("ART1", "INV001", "FULL", 1000, 10, nil)}
		sheet := mustSheet(t, []CountRow{
			testRow("GHOST", "INV001", "", 0, 3),
			testRow("ART1", "INV001", "FULL", 10, 10),
		})

		result, err := newTestEngine(t, LotDistributionStrategyTypeFIFO).Run(lines, sheet)
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, CodeLotecartCoherence))
		assert.Equal(t, PhaseFailed, result.Phase)
		assert.Empty(t, result.Adjustments, "no partial output past the gate")
	})

	t.Run("phantom articles are excluded from ordinary distribution", func(t *testing.T) {
		lines := []StockLine{
			testLine("ART1", "INV001", "EMPTY", 1000, 0, nil),
			testLine("ART2", "INV001", "FULL", 2000, 30, nil),
		}
		sheet := mustSheet(t, []CountRow{
			testRow("ART1", "INV001", "EMPTY", 0, 5),
			testRow("ART2", "INV001", "FULL", 30, 20),
		})

		result, err := newTestEngine(t, LotDistributionStrategyTypeFIFO).Run(lines, sheet)
		require.NoError(t, err)
		require.Len(t, result.Adjustments, 2)
		assert.Equal(t, TierLotecart, result.Adjustments[0].Tier, "tier 1 always first")
		assert.Equal(t, TierOrdinary, result.Adjustments[1].Tier)
		assert.Equal(t, "ART2", result.Adjustments[1].Key.Article)
	})

	t.Run("phantom lot on one article keeps its other lots in play", func(t *testing.T) {
		lines := []StockLine{
			testLine("ART1", "INV001", "EMPTY", 1000, 0, nil),
			testLine("ART1", "INV001", "FULL", 2000, 100, nil),
		}
		sheet := mustSheet(t, []CountRow{
			testRow("ART1", "INV001", "EMPTY", 0, 5),
			testRow("ART1", "INV001", "FULL", 100, 90),
		})

		result, err := newTestEngine(t, LotDistributionStrategyTypeFIFO).Run(lines, sheet)
		require.NoError(t, err)
		require.Len(t, result.Adjustments, 2)

		assert.Equal(t, TierLotecart, result.Adjustments[0].Tier)
		assert.True(t, result.Adjustments[0].Corrected.Equal(decimal.NewFromInt(5)))

		ordinary := result.Adjustments[1]
		assert.Equal(t, TierOrdinary, ordinary.Tier)
		assert.Equal(t, "FULL", ordinary.Key.Lot)
		assert.True(t, ordinary.Delta.Equal(decimal.NewFromInt(-10)),
			"the ordinary shortage must survive the phantom-lot exclusion")
	})
}

func TestEngineLocationSplit(t *testing.T) {
	t.Run("exact counts per location yield no adjustments", func(t *testing.T) {
		a := testLine("ART1", "INV001", "L1", 1000, 50, nil)
		b := testLine("ART1", "INV001", "L2", 2000, 50, nil)
		b.Location = "B07"
		sheet := mustSheet(t, []CountRow{
			testRow("ART1", "INV001", "L1", 50, 50),
			testRow("ART1", "INV001", "L2", 50, 50),
		})

		result, err := newTestEngine(t, LotDistributionStrategyTypeFIFO).Run([]StockLine{a, b}, sheet)
		require.NoError(t, err)
		assert.Empty(t, result.Adjustments)
		assert.True(t, result.Summary.TotalMoved.IsZero())
	})

	t.Run("a shortage in one location stays in that location", func(t *testing.T) {
		a := testLine("ART1", "INV001", "L1", 1000, 50, nil)
		b := testLine("ART1", "INV001", "L2", 2000, 50, nil)
		b.Location = "B07"
		sheet := mustSheet(t, []CountRow{
			testRow("ART1", "INV001", "L1", 50, 50),
			testRow("ART1", "INV001", "L2", 50, 40),
		})

		result, err := newTestEngine(t, LotDistributionStrategyTypeFIFO).Run([]StockLine{a, b}, sheet)
		require.NoError(t, err)
		require.Len(t, result.Adjustments, 1)
		assert.Equal(t, "L2", result.Adjustments[0].Key.Lot)
		assert.True(t, result.Adjustments[0].Delta.Equal(decimal.NewFromInt(-10)))
	})
}

func TestEngineSummary(t *testing.T) {
	t.Run("balanced inventory yields no adjustments and a perfect score", func(t *testing.T) {
		lines := []StockLine{testLine("ART1", "INV001", "FULL", 1000, 10, nil)}
		sheet := mustSheet(t, []CountRow{testRow("ART1", "INV001", "FULL", 10, 10)})

		result, err := newTestEngine(t, LotDistributionStrategyTypeFIFO).Run(lines, sheet)
		require.NoError(t, err)
		assert.Empty(t, result.Adjustments)
		assert.Equal(t, float64(100), result.Summary.QualityScore)
	})

	t.Run("summary counts both tiers and total movement", func(t *testing.T) {
		lines := []StockLine{
			testLine("ART1", "INV001", "EMPTY", 1000, 0, nil),
			testLine("ART2", "INV001", "FULL", 2000, 30, nil),
		}
		sheet := mustSheet(t, []CountRow{
			testRow("ART1", "INV001", "EMPTY", 0, 5),
			testRow("ART2", "INV001", "FULL", 30, 20),
		})

		result, err := newTestEngine(t, LotDistributionStrategyTypeFIFO).Run(lines, sheet)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Summary.TotalAdjustments)
		assert.Equal(t, 1, result.Summary.LotecartAdjustments)
		assert.Equal(t, 1, result.Summary.OrdinaryAdjustments)
		assert.True(t, result.Summary.TotalMoved.Equal(decimal.NewFromInt(15)))
		assert.Equal(t, float64(100), result.Summary.QualityScore)
	})

	t.Run("rerunning on the composed output is a no-op", func(t *testing.T) {
		lines := []StockLine{
			testLine("ART1", "INV001", "OLD", 1000, 40, timePtr(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))),
			testLine("ART1", "INV001", "NEW", 2000, 20, timePtr(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))),
		}
		sheet := mustSheet(t, []CountRow{
			testRow("ART1", "INV001", "OLD", 40, 40),
			testRow("ART1", "INV001", "NEW", 20, 10),
		})

		engine := newTestEngine(t, LotDistributionStrategyTypeFIFO)
		first, err := engine.Run(lines, sheet)
		require.NoError(t, err)

		// Apply the corrections, then resubmit the same counts.
		corrected := make([]StockLine, len(lines))
		copy(corrected, lines)
		for _, adj := range first.Adjustments {
			for i := range corrected {
				if adjustmentKeyFor(&corrected[i]) == adj.Key {
					corrected[i].Theoretical = adj.Corrected
				}
			}
		}
		second, err := engine.Run(corrected, sheet)
		require.NoError(t, err)
		assert.Empty(t, second.Adjustments)
	})
}

func TestConsolidateAdjustments(t *testing.T) {
	key := AdjustmentKey{Article: "ART1", Inventory: "INV001", Lot: "L1"}

	t.Run("tier 1 always precedes tier 2", func(t *testing.T) {
		tier1 := []Adjustment{{Key: AdjustmentKey{Article: "B", Inventory: "I", Lot: "X"}, Tier: TierLotecart}}
		tier2 := []Adjustment{{Key: key, Tier: TierOrdinary}}
		out, err := ConsolidateAdjustments(tier1, tier2)
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, TierLotecart, out[0].Tier)
	})

	t.Run("cross-tier key collision is a conflict", func(t *testing.T) {
		tier1 := []Adjustment{{Key: key, Tier: TierLotecart}}
		tier2 := []Adjustment{{Key: key, Tier: TierOrdinary}}
		_, err := ConsolidateAdjustments(tier1, tier2)
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, CodeAdjustmentConflict))
	})
}
