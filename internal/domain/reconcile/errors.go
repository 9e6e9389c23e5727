package reconcile

import (
	"fmt"
	"strings"

	"github.com/stocktake/backend/internal/domain/shared"
)

// Error codes for reconciliation failures.
const (
	CodeEmptyInput               = "RECONCILE_EMPTY_INPUT"
	CodeNoAggregationKey         = "RECONCILE_NO_AGGREGATION_KEY"
	CodeInvalidQuantity          = "RECONCILE_INVALID_QUANTITY"
	CodeInvalidLotecartCandidate = "RECONCILE_INVALID_LOTECART_CANDIDATE"
	CodeMissingReferenceLine     = "RECONCILE_MISSING_REFERENCE_LINE"
	CodeLotecartCoherence        = "RECONCILE_LOTECART_COHERENCE"
	CodeAdjustmentConflict       = "RECONCILE_ADJUSTMENT_CONFLICT"
	CodeAdjustmentCoherence      = "RECONCILE_ADJUSTMENT_COHERENCE"
	CodeOutputCoherence          = "RECONCILE_OUTPUT_COHERENCE"
)

var (
	// ErrEmptyInput is returned when aggregation receives no stock lines.
	ErrEmptyInput = shared.NewDomainError(CodeEmptyInput, "no stock lines to aggregate")
)

// NewNoAggregationKeyError reports a line whose aggregation key fields are all blank.
func NewNoAggregationKeyError(rank int) *shared.DomainError {
	return shared.NewDomainError(CodeNoAggregationKey,
		fmt.Sprintf("line %d has no usable aggregation key", rank))
}

// NewInvalidQuantityError names every count-sheet row whose quantity could not
// be parsed. Rows are reported together so the operator can fix the sheet in
// one pass.
func NewInvalidQuantityError(rows []string) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidQuantity,
		fmt.Sprintf("unparseable quantities in rows: %s", strings.Join(rows, ", ")))
}

// NewInvalidLotecartCandidateError reports a candidate whose quantities
// contradict the phantom-lot shape.
func NewInvalidLotecartCandidateError(key LineKey, reason string) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidLotecartCandidate,
		fmt.Sprintf("invalid lotecart candidate %s/%s: %s", key.Article, key.Lot, reason))
}

// NewMissingReferenceLineError reports a phantom-lot candidate with no stock
// line to anchor the synthesized movement on.
func NewMissingReferenceLineError(article, inventory string) *shared.DomainError {
	return shared.NewDomainError(CodeMissingReferenceLine,
		fmt.Sprintf("no reference line for article %s in inventory %s", article, inventory))
}

// NewLotecartCoherenceError fails the blocking validation gate.
func NewLotecartCoherenceError(issues []string) *shared.DomainError {
	return shared.NewDomainError(CodeLotecartCoherence,
		fmt.Sprintf("lotecart validation failed: %s", strings.Join(issues, "; ")))
}

// NewAdjustmentConflictError reports two adjustments targeting the same lot line.
func NewAdjustmentConflictError(key AdjustmentKey) *shared.DomainError {
	return shared.NewDomainError(CodeAdjustmentConflict,
		fmt.Sprintf("conflicting adjustments for article %s lot %q in inventory %s",
			key.Article, key.Lot, key.Inventory))
}

// NewAdjustmentCoherenceError reports a consolidated adjustment list that
// failed the post-consolidation coherence pass.
func NewAdjustmentCoherenceError(score float64, issues []string) *shared.DomainError {
	return shared.NewDomainError(CodeAdjustmentCoherence,
		fmt.Sprintf("adjustment coherence score %.1f: %s", score, strings.Join(issues, "; ")))
}

// NewOutputCoherenceError reports a composed file that failed final validation.
func NewOutputCoherenceError(score float64, issues []string) *shared.DomainError {
	return shared.NewDomainError(CodeOutputCoherence,
		fmt.Sprintf("output coherence score %.1f: %s", score, strings.Join(issues, "; ")))
}
