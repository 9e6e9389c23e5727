package reconcile

import (
	"sort"

	"github.com/stocktake/backend/internal/domain/shared"
	"github.com/stocktake/backend/internal/domain/shared/strategy"
)

// LotDistributionStrategyType defines the type of lot distribution strategy
type LotDistributionStrategyType string

const (
	// LotDistributionStrategyTypeFIFO settles variances against the oldest lots first (by lot date)
	LotDistributionStrategyTypeFIFO LotDistributionStrategyType = "FIFO"
	// LotDistributionStrategyTypeLIFO settles variances against the newest lots first (by lot date)
	LotDistributionStrategyTypeLIFO LotDistributionStrategyType = "LIFO"
)

// IsValid checks if the strategy type is valid
func (t LotDistributionStrategyType) IsValid() bool {
	switch t {
	case LotDistributionStrategyTypeFIFO, LotDistributionStrategyTypeLIFO:
		return true
	}
	return false
}

// String returns the string representation
func (t LotDistributionStrategyType) String() string {
	return string(t)
}

// AllLotDistributionStrategyTypes returns all valid lot distribution strategy types
func AllLotDistributionStrategyTypes() []LotDistributionStrategyType {
	return []LotDistributionStrategyType{
		LotDistributionStrategyTypeFIFO,
		LotDistributionStrategyTypeLIFO,
	}
}

// LotDistributionStrategy is the interface for lot distribution strategies
type LotDistributionStrategy interface {
	strategy.Strategy
	// StrategyType returns the lot distribution strategy type
	StrategyType() LotDistributionStrategyType
	// OrderLots returns the lots in the order variances should be settled against them
	OrderLots(lots []StockLine) []StockLine
}

// NewLotDistributionStrategy creates the strategy for the given type
func NewLotDistributionStrategy(t LotDistributionStrategyType) (LotDistributionStrategy, error) {
	switch t {
	case LotDistributionStrategyTypeFIFO:
		return NewFIFOLotDistributionStrategy(), nil
	case LotDistributionStrategyTypeLIFO:
		return NewLIFOLotDistributionStrategy(), nil
	default:
		return nil, shared.NewDomainError("INVALID_STRATEGY", "Unknown lot distribution strategy: "+t.String())
	}
}

// FIFOLotDistributionStrategy settles variances oldest-lot-first
type FIFOLotDistributionStrategy struct {
	strategy.BaseStrategy
}

// NewFIFOLotDistributionStrategy creates a new FIFO lot distribution strategy
func NewFIFOLotDistributionStrategy() *FIFOLotDistributionStrategy {
	return &FIFOLotDistributionStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"fifo_lot_distribution",
			strategy.StrategyTypeDistribution,
			"FIFO lot distribution strategy - settles variances against the oldest lots first by lot date",
		),
	}
}

// StrategyType returns the lot distribution strategy type
func (s *FIFOLotDistributionStrategy) StrategyType() LotDistributionStrategyType {
	return LotDistributionStrategyTypeFIFO
}

// OrderLots sorts lots ascending by lot date (lots without a date go last)
func (s *FIFOLotDistributionStrategy) OrderLots(lots []StockLine) []StockLine {
	sorted := make([]StockLine, len(lots))
	copy(sorted, lots)
	sort.Slice(sorted, func(i, j int) bool {
		// Sort by lot date first (nil lot dates go to the end)
		if sorted[i].LotDate != nil && sorted[j].LotDate != nil {
			if !sorted[i].LotDate.Equal(*sorted[j].LotDate) {
				return sorted[i].LotDate.Before(*sorted[j].LotDate)
			}
		} else if sorted[i].LotDate != nil {
			return true // i has lot date, j doesn't - i comes first
		} else if sorted[j].LotDate != nil {
			return false // j has lot date, i doesn't - j comes first
		}
		// Fall back to the original line rank
		return sorted[i].Rank < sorted[j].Rank
	})
	return sorted
}

// LIFOLotDistributionStrategy settles variances newest-lot-first
type LIFOLotDistributionStrategy struct {
	strategy.BaseStrategy
}

// NewLIFOLotDistributionStrategy creates a new LIFO lot distribution strategy
func NewLIFOLotDistributionStrategy() *LIFOLotDistributionStrategy {
	return &LIFOLotDistributionStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"lifo_lot_distribution",
			strategy.StrategyTypeDistribution,
			"LIFO lot distribution strategy - settles variances against the newest lots first by lot date",
		),
	}
}

// StrategyType returns the lot distribution strategy type
func (s *LIFOLotDistributionStrategy) StrategyType() LotDistributionStrategyType {
	return LotDistributionStrategyTypeLIFO
}

// OrderLots sorts lots descending by lot date (lots without a date go last)
func (s *LIFOLotDistributionStrategy) OrderLots(lots []StockLine) []StockLine {
	sorted := make([]StockLine, len(lots))
	copy(sorted, lots)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].LotDate != nil && sorted[j].LotDate != nil {
			if !sorted[i].LotDate.Equal(*sorted[j].LotDate) {
				return sorted[i].LotDate.After(*sorted[j].LotDate)
			}
		} else if sorted[i].LotDate != nil {
			return true // dated lots are settled before undated ones
		} else if sorted[j].LotDate != nil {
			return false
		}
		return sorted[i].Rank < sorted[j].Rank
	})
	return sorted
}
