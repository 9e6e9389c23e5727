package reconcile

// PhantomLotNumber is the sentinel lot identifier written to the export for
// stock found during the count without a matching theoretical lot. It must
// never collide with a real lot number.
const PhantomLotNumber = "LOTECART"

// LotKind distinguishes ordinary lots from the synthesized phantom lot.
// Modeling this as a tagged value keeps string comparison against the sentinel
// out of the pipeline.
type LotKind int

const (
	// LotKindOrdinary is a regular lot carrying its own identifier.
	LotKindOrdinary LotKind = iota
	// LotKindPhantom is the LOTECART sentinel lot.
	LotKindPhantom
)

// Lot is a lot reference as carried on a stock line or an adjustment.
type Lot struct {
	Kind   LotKind
	Number string // empty for phantom lots
}

// OrdinaryLot returns a Lot for a regular lot number. The number may be empty
// for articles that are not lot-tracked.
func OrdinaryLot(number string) Lot {
	if number == PhantomLotNumber {
		return PhantomLot()
	}
	return Lot{Kind: LotKindOrdinary, Number: number}
}

// PhantomLot returns the LOTECART sentinel lot.
func PhantomLot() Lot {
	return Lot{Kind: LotKindPhantom}
}

// IsPhantom reports whether the lot is the LOTECART sentinel.
func (l Lot) IsPhantom() bool {
	return l.Kind == LotKindPhantom
}

// FieldValue returns the value written to the lot-number column.
func (l Lot) FieldValue() string {
	if l.Kind == LotKindPhantom {
		return PhantomLotNumber
	}
	return l.Number
}

// LotType classifies a lot number by the shape of its identifier, which
// determines whether a lot date could be inferred from it.
type LotType string

const (
	// LotTypeDatedSite is a lot of the form <site><DDMMYY><sequence>.
	LotTypeDatedSite LotType = "dated_site"
	// LotTypeDatedPlain is a lot of the form LOT<DDMMYY>.
	LotTypeDatedPlain LotType = "dated_plain"
	// LotTypePhantom marks a LOTECART lot.
	LotTypePhantom LotType = "lotecart"
	// LotTypePotentialPhantom marks a zero-quantity lot that may become a
	// LOTECART once counts are submitted.
	LotTypePotentialPhantom LotType = "potential_lotecart"
	// LotTypeUnknown is any lot whose identifier carries no recognizable date.
	LotTypeUnknown LotType = "unknown"
)

// lotTypePrecedence is the fixed order used to pick the display lot type of an
// aggregate: dated types win over phantom markers, unknown loses to everything.
var lotTypePrecedence = []LotType{
	LotTypeDatedSite,
	LotTypeDatedPlain,
	LotTypePhantom,
	LotTypePotentialPhantom,
	LotTypeUnknown,
}

// PriorityLotType returns the highest-precedence lot type present in types,
// or LotTypeUnknown when types is empty.
func PriorityLotType(types []LotType) LotType {
	present := make(map[LotType]bool, len(types))
	for _, t := range types {
		present[t] = true
	}
	for _, t := range lotTypePrecedence {
		if present[t] {
			return t
		}
	}
	return LotTypeUnknown
}
