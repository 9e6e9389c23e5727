package reconcile

import (
	"github.com/shopspring/decimal"
)

// Phase is a state of the distribution engine. A run only ever moves forward;
// any failure jumps straight to PhaseFailed.
type Phase string

const (
	PhaseDetectingLotecart   Phase = "detecting_lotecart"
	PhaseValidatingLotecart  Phase = "validating_lotecart"
	PhaseDistributingOthers  Phase = "distributing_others"
	PhaseConsolidatingOutput Phase = "consolidating_output"
	PhaseDone                Phase = "done"
	PhaseFailed              Phase = "failed"
)

// EngineConfig carries the per-run knobs of the distribution engine.
type EngineConfig struct {
	Strategy   LotDistributionStrategyType
	RankStride int
}

// Summary describes what a run did, per tier.
type Summary struct {
	TotalAdjustments    int             `json:"total_adjustments"`
	LotecartAdjustments int             `json:"lotecart_adjustments"`
	OrdinaryAdjustments int             `json:"ordinary_adjustments"`
	NewLines            int             `json:"new_lines"`
	TotalMoved          decimal.Decimal `json:"total_moved"`
	Residual            decimal.Decimal `json:"residual"`
	QualityScore        float64         `json:"quality_score"`
	Warnings            []string        `json:"warnings,omitempty"`
}

// Result is the outcome of a distribution run: the consolidated, ordered
// adjustment list plus its summary. Phase records where the run ended.
type Result struct {
	Adjustments []Adjustment
	Aggregates  []ArticleAggregate
	Summary     Summary
	Phase       Phase
}

// Engine walks a reconciliation run through its phases:
// DetectingLotecart, ValidatingLotecart (blocking), DistributingOthers,
// ConsolidatingOutput. Phantom-lot corrections always come first and gate the
// rest of the run. Engines hold no per-run state and may be reused.
type Engine struct {
	cfg      EngineConfig
	strategy LotDistributionStrategy
}

// NewEngine creates a distribution engine for the given configuration.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.RankStride <= 0 {
		cfg.RankStride = DefaultRankStride
	}
	strat, err := NewLotDistributionStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, strategy: strat}, nil
}

// Strategy returns the lot distribution strategy in use.
func (e *Engine) Strategy() LotDistributionStrategy {
	return e.strategy
}

// Run executes the full distribution pipeline over one session's stock lines
// and its normalized count sheet. No output is produced unless the phantom-lot
// gate passes.
func (e *Engine) Run(lines []StockLine, sheet *CountSheet) (*Result, error) {
	result := &Result{Phase: PhaseDetectingLotecart}

	aggregates, err := AggregateLines(lines)
	if err != nil {
		result.Phase = PhaseFailed
		return result, err
	}
	result.Aggregates = aggregates

	candidates, err := DetectLotecartCandidates(sheet)
	if err != nil {
		result.Phase = PhaseFailed
		return result, err
	}
	resolution := ResolveLotecart(candidates, lines, sheet)

	result.Phase = PhaseValidatingLotecart
	report := ValidateAdjustments(resolution.Adjustments)
	issues := append(resolution.Issues, report.Issues...)
	if len(issues) > 0 {
		result.Phase = PhaseFailed
		return result, NewLotecartCoherenceError(issues)
	}

	result.Phase = PhaseDistributingOthers
	discrepancies := ComputeDiscrepancies(aggregates, sheet, resolution.ClaimedKeys)
	ordinary, residual := e.distribute(discrepancies, sheet)

	result.Phase = PhaseConsolidatingOutput
	consolidated, err := ConsolidateAdjustments(resolution.Adjustments, ordinary)
	if err != nil {
		result.Phase = PhaseFailed
		return result, err
	}
	result.Adjustments = consolidated

	// Second coherence pass, over the full consolidated list this time.
	// Composition never starts from an incoherent adjustment set.
	final := ValidateAdjustments(consolidated)
	if !final.Passed() {
		result.Phase = PhaseFailed
		return result, NewAdjustmentCoherenceError(final.Score, final.Issues)
	}

	result.Summary = e.summarize(consolidated, residual, sheet.Warnings)
	result.Phase = PhaseDone
	return result, nil
}

// distribute settles each non-phantom discrepancy across its article's lots in
// strategy order. Positive variance adds stock with a per-lot ceiling of twice
// the lot's theoretical quantity; negative variance removes stock down to
// empty. The residual is whatever no lot could absorb.
func (e *Engine) distribute(discrepancies []Discrepancy, sheet *CountSheet) ([]Adjustment, decimal.Decimal) {
	submitted := sheet.QuantityByKey()
	byKey := make(map[AdjustmentKey]*Adjustment)
	var order []AdjustmentKey
	residual := decimal.Zero

	for _, disc := range discrepancies {
		lots := make([]StockLine, 0, len(disc.Lines))
		for _, line := range disc.Lines {
			if line.HasZeroTheoretical() {
				continue
			}
			lots = append(lots, line)
		}
		ordered := e.strategy.OrderLots(lots)

		remaining := disc.Variance
		for i := range ordered {
			if remaining.Abs().LessThan(Epsilon) {
				break
			}
			lot := &ordered[i]
			key := AdjustmentKey{Article: lot.ArticleCode, Inventory: lot.InventoryID, Lot: lot.Lot.FieldValue()}

			adj, ok := byKey[key]
			if !ok {
				adj = &Adjustment{
					Key:       key,
					Tier:      TierOrdinary,
					Original:  lot.Theoretical,
					Submitted: submitted[lot.Key()],
					Corrected: lot.Theoretical,
					Reference: lot,
					LotType:   lot.LotType,
					Reason:    "variance distribution (" + e.strategy.StrategyType().String() + ")",
				}
			}

			// The twice-the-lot ceiling on additions is deliberate; removals
			// never take a lot below zero.
			var step decimal.Decimal
			if remaining.IsPositive() {
				step = decimal.Min(remaining, lot.Theoretical.Mul(decimal.NewFromInt(2)))
			} else {
				step = decimal.Max(remaining, lot.Theoretical.Neg())
			}
			if isZero(step) {
				continue
			}

			adj.Corrected = adj.Corrected.Add(step)
			adj.Delta = adj.Delta.Add(step)
			remaining = remaining.Sub(step)

			if !ok {
				byKey[key] = adj
				order = append(order, key)
			}
		}
		residual = residual.Add(remaining)
	}

	out := make([]Adjustment, 0, len(order))
	for _, key := range order {
		out = append(out, *byKey[key])
	}
	return out, residual
}

func (e *Engine) summarize(adjustments []Adjustment, residual decimal.Decimal, warnings []string) Summary {
	s := Summary{
		TotalAdjustments: len(adjustments),
		TotalMoved:       TotalMoved(adjustments),
		Residual:         residual,
		Warnings:         warnings,
	}
	coherent := 0
	for _, adj := range adjustments {
		switch adj.Tier {
		case TierLotecart:
			s.LotecartAdjustments++
		case TierOrdinary:
			s.OrdinaryAdjustments++
		}
		if adj.NewLine {
			s.NewLines++
		}
		if AdjustmentCoherent(adj) {
			coherent++
		}
	}
	if len(adjustments) == 0 {
		s.QualityScore = 100
	} else {
		s.QualityScore = float64(coherent) / float64(len(adjustments)) * 100
	}
	return s
}
