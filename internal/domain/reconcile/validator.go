package reconcile

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidationReport is the outcome of a coherence check: per-line issues plus
// an overall score. Score is coherent lines over checked lines, 0-100; an
// empty check scores 100.
type ValidationReport struct {
	Checked  int      `json:"checked"`
	Coherent int      `json:"coherent"`
	Issues   []string `json:"issues,omitempty"`
	Score    float64  `json:"score"`
}

// Passed reports whether every checked line was coherent.
func (r *ValidationReport) Passed() bool {
	return len(r.Issues) == 0
}

func (r *ValidationReport) finish() {
	if r.Checked == 0 {
		r.Score = 100
		return
	}
	r.Score = float64(r.Coherent) / float64(r.Checked) * 100
}

// AdjustmentCoherent reports whether a single adjustment satisfies its tier's
// invariants. Phantom-lot adjustments must carry a positive corrected quantity
// equal to the submitted count; ordinary adjustments must never correct a lot
// below zero.
func AdjustmentCoherent(adj Adjustment) bool {
	switch adj.Tier {
	case TierLotecart:
		return adj.Corrected.IsPositive() &&
			adj.Corrected.Equal(adj.Submitted) &&
			adj.Corrected.Equal(adj.Delta.Add(adj.Original))
	case TierOrdinary:
		return !adj.Corrected.IsNegative() &&
			adj.Corrected.Equal(adj.Original.Add(adj.Delta))
	}
	return false
}

// ValidateAdjustments checks the phantom-lot invariants on in-memory
// adjustments. Called at the blocking gate on the tier-1 list and again after
// consolidation on the full list.
func ValidateAdjustments(adjustments []Adjustment) *ValidationReport {
	report := &ValidationReport{}
	for _, adj := range adjustments {
		report.Checked++
		if AdjustmentCoherent(adj) {
			report.Coherent++
			continue
		}
		report.Issues = append(report.Issues, fmt.Sprintf(
			"adjustment %s/%s lot %q: corrected=%s submitted=%s delta=%s violates tier %d invariants",
			adj.Key.Article, adj.Key.Inventory, adj.Key.Lot,
			adj.Corrected, adj.Submitted, adj.Delta, adj.Tier))
	}
	report.finish()
	return report
}

// ValidateComposedOutput re-checks every phantom-lot line of the composed file
// text: the count flag must be the counted sentinel, the two quantity columns
// must be equal and positive, and the lot column must hold the phantom
// sentinel. A score below 100 fails the run.
func ValidateComposedOutput(lines []string) *ValidationReport {
	report := &ValidationReport{}
	for i, line := range lines {
		fields := strings.Split(line, FieldSeparator)
		if len(fields) < MinFieldCount || fields[FieldLineKind] != LineKindStock {
			continue
		}
		if fields[FieldLotNumber] != PhantomLotNumber {
			continue
		}
		report.Checked++

		var issues []string
		if fields[FieldCountFlag] != CountedFlag {
			issues = append(issues, fmt.Sprintf("count flag %q, want %q", fields[FieldCountFlag], CountedFlag))
		}
		theo, errT := decimal.NewFromString(fields[FieldTheoreticalQty])
		counted, errC := decimal.NewFromString(fields[FieldCountedQty])
		switch {
		case errT != nil || errC != nil:
			issues = append(issues, "unparseable quantity columns")
		case !theo.Equal(counted):
			issues = append(issues, fmt.Sprintf("quantities differ: %s vs %s", theo, counted))
		case !theo.IsPositive():
			issues = append(issues, fmt.Sprintf("quantity %s is not positive", theo))
		}

		if len(issues) == 0 {
			report.Coherent++
			continue
		}
		report.Issues = append(report.Issues, fmt.Sprintf(
			"output line %d (%s): %s", i+1, fields[FieldArticleCode], strings.Join(issues, ", ")))
	}
	report.finish()
	return report
}
