package reconcile

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ComposeInput is everything the composer needs to regenerate the export:
// the untouched header lines, the original stock lines in file order, the
// consolidated adjustment list and the count sheet (for the submitted
// quantity, which is traced independently of any correction).
type ComposeInput struct {
	Headers     []string
	Lines       []StockLine
	Adjustments []Adjustment
	Sheet       *CountSheet
	RankStride  int
}

// ComposeFinalFile regenerates the export with all corrections applied:
// headers pass through verbatim, every original stock line is rewritten
// in place, and brand-new phantom-lot lines are appended last with ranks
// beyond anything in the input. The composed text is re-validated before
// being returned; anything short of full coherence fails the run.
func ComposeFinalFile(in ComposeInput) ([]string, error) {
	stride := in.RankStride
	if stride <= 0 {
		stride = DefaultRankStride
	}

	byKey := make(map[AdjustmentKey]*Adjustment, len(in.Adjustments))
	var newLines []*Adjustment
	for i := range in.Adjustments {
		adj := &in.Adjustments[i]
		if adj.NewLine {
			newLines = append(newLines, adj)
			continue
		}
		byKey[adj.Key] = adj
	}

	submitted := in.Sheet.QuantityByKey()

	out := make([]string, 0, len(in.Headers)+len(in.Lines)+len(newLines))
	out = append(out, in.Headers...)

	for i := range in.Lines {
		line := &in.Lines[i]
		out = append(out, composeLine(line, byKey[adjustmentKeyFor(line)], submitted))
	}

	maxRank := MaxRank(in.Lines)
	for i, adj := range newLines {
		out = append(out, composeNewLine(adj, maxRank+(i+1)*stride))
	}

	report := ValidateComposedOutput(out)
	if !report.Passed() {
		return nil, NewOutputCoherenceError(report.Score, report.Issues)
	}
	return out, nil
}

func adjustmentKeyFor(line *StockLine) AdjustmentKey {
	return AdjustmentKey{
		Article:   line.ArticleCode,
		Inventory: line.InventoryID,
		Lot:       line.Lot.FieldValue(),
	}
}

// composeLine rewrites one original stock line. Phantom-tier adjustments force
// both quantity columns to the corrected value and rename the lot; ordinary
// adjustments keep the submitted quantity visible next to the correction.
func composeLine(line *StockLine, adj *Adjustment, submitted map[LineKey]decimal.Decimal) string {
	fields := line.RawFields()
	if len(fields) < MinFieldCount {
		return line.Raw
	}

	switch {
	case adj != nil && adj.Tier == TierLotecart:
		fields[FieldTheoreticalQty] = emitQuantity(adj.Corrected)
		fields[FieldCountedQty] = emitQuantity(adj.Corrected)
		fields[FieldCountFlag] = CountedFlag
		fields[FieldLotNumber] = PhantomLotNumber
	case adj != nil:
		fields[FieldTheoreticalQty] = emitQuantity(adj.Corrected)
		fields[FieldCountedQty] = emitQuantity(adj.Submitted)
	default:
		if qty, ok := submitted[line.Key()]; ok {
			fields[FieldCountedQty] = emitQuantity(qty)
		} else {
			fields[FieldCountedQty] = "0"
		}
	}

	forceCountedFlag(fields, line)
	return strings.Join(fields, FieldSeparator)
}

// composeNewLine synthesizes a phantom-lot line from the adjustment's clone
// source, replacing only rank, quantities, flag and lot number.
func composeNewLine(adj *Adjustment, rank int) string {
	fields := adj.CloneFrom.RawFields()
	if len(fields) < MinFieldCount {
		fields = append(fields, make([]string, MinFieldCount-len(fields))...)
		fields[FieldLineKind] = LineKindStock
	}
	fields[FieldRank] = strconv.Itoa(rank)
	fields[FieldTheoreticalQty] = emitQuantity(adj.Corrected)
	fields[FieldCountedQty] = emitQuantity(adj.Corrected)
	fields[FieldCountFlag] = CountedFlag
	fields[FieldLotNumber] = PhantomLotNumber
	return strings.Join(fields, FieldSeparator)
}

// forceCountedFlag marks a line as counted whenever its final state leaves no
// doubt it was handled: it had no expected stock, its final quantities agree
// on a positive count, or it carries the phantom lot.
func forceCountedFlag(fields []string, line *StockLine) {
	if fields[FieldLotNumber] == PhantomLotNumber {
		fields[FieldCountFlag] = CountedFlag
		return
	}
	if line.HasZeroTheoretical() {
		fields[FieldCountFlag] = CountedFlag
		return
	}
	theo, errT := decimal.NewFromString(fields[FieldTheoreticalQty])
	counted, errC := decimal.NewFromString(fields[FieldCountedQty])
	if errT == nil && errC == nil && theo.Equal(counted) && counted.IsPositive() {
		fields[FieldCountFlag] = CountedFlag
	}
}

// emitQuantity renders a quantity the way the export expects: truncated to an
// integer, no decimal point.
func emitQuantity(q decimal.Decimal) string {
	return q.Truncate(0).String()
}
