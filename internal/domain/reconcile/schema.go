// Package reconcile implements the inventory count reconciliation engine.
// It aggregates exported stock lines, compares them against a physical count
// sheet, distributes the discrepancies across lots and regenerates the export
// file with the corrections applied.
package reconcile

import "github.com/shopspring/decimal"

// FieldIndex identifies a column of an S; stock line in the semicolon-delimited
// export format. All positional access goes through these names; raw integer
// indices must not appear outside this file.
type FieldIndex int

const (
	FieldLineKind       FieldIndex = 0
	FieldSessionID      FieldIndex = 1
	FieldInventoryID    FieldIndex = 2
	FieldRank           FieldIndex = 3
	FieldSite           FieldIndex = 4
	FieldTheoreticalQty FieldIndex = 5
	FieldCountedQty     FieldIndex = 6
	FieldCountFlag      FieldIndex = 7
	FieldArticleCode    FieldIndex = 8
	FieldLocation       FieldIndex = 9
	FieldStatus         FieldIndex = 10
	FieldUnit           FieldIndex = 11
	FieldValue          FieldIndex = 12
	FieldZone           FieldIndex = 13
	FieldLotNumber      FieldIndex = 14
)

// MinFieldCount is the minimum number of fields a stock line must carry.
// Extra trailing fields are preserved verbatim on regeneration.
const MinFieldCount = 15

// Line kind discriminators, first field of every line in the export.
const (
	LineKindEnvelope  = "E"
	LineKindInventory = "L"
	LineKindStock     = "S"
)

// FieldSeparator is the column separator of the export format.
const FieldSeparator = ";"

// CountedFlag is the count-status sentinel meaning "physically counted /
// reconciled". Any other value means the line has not been counted yet.
const CountedFlag = "2"

// DefaultRankStride is the increment used when assigning ranks to synthesized
// phantom-lot lines, chosen large enough to never collide with input ranks.
const DefaultRankStride = 1000

// Epsilon is the absolute tolerance used for every quantity comparison in the
// engine. A remaining discrepancy below this threshold counts as settled.
var Epsilon = decimal.New(1, -3) // 0.001

// withinEpsilon reports whether two quantities are equal within Epsilon.
func withinEpsilon(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Epsilon)
}

// isZero reports whether a quantity is zero within Epsilon.
func isZero(q decimal.Decimal) bool {
	return q.Abs().LessThan(Epsilon)
}
