package reconcile

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AggregateKey identifies one grouping of stock lines.
type AggregateKey struct {
	Article     string
	Status      string
	Location    string
	Zone        string
	Unit        string
	InventoryID string
}

// ArticleAggregate is a recomputed per-run rollup of the stock lines sharing
// an aggregate key. It is never persisted.
type ArticleAggregate struct {
	Key         AggregateKey
	Theoretical decimal.Decimal
	SessionID   string
	Site        string
	EarliestLot *time.Time
	LotType     LotType
	Lines       []StockLine
}

// AggregateLines groups stock lines by the full business key: article,
// status, location, zone, unit and inventory. Each group sums theoretical
// quantities, keeps the first non-empty session and site, the earliest lot
// date, and the dominant lot type by precedence.
func AggregateLines(lines []StockLine) ([]ArticleAggregate, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyInput
	}

	groups := make(map[AggregateKey]*ArticleAggregate)
	var order []AggregateKey

	for _, line := range lines {
		if strings.TrimSpace(line.ArticleCode) == "" && strings.TrimSpace(line.InventoryID) == "" {
			return nil, NewNoAggregationKeyError(line.Rank)
		}
		key := AggregateKey{
			Article:     line.ArticleCode,
			Status:      line.Status,
			Location:    line.Location,
			Zone:        line.Zone,
			Unit:        line.Unit,
			InventoryID: line.InventoryID,
		}

		agg, ok := groups[key]
		if !ok {
			agg = &ArticleAggregate{Key: key, LotType: LotTypeUnknown}
			groups[key] = agg
			order = append(order, key)
		}
		agg.Theoretical = agg.Theoretical.Add(line.Theoretical)
		if agg.SessionID == "" {
			agg.SessionID = line.SessionID
		}
		if agg.Site == "" {
			agg.Site = line.Site
		}
		if line.LotDate != nil && (agg.EarliestLot == nil || line.LotDate.Before(*agg.EarliestLot)) {
			d := *line.LotDate
			agg.EarliestLot = &d
		}
		agg.Lines = append(agg.Lines, line)
	}

	out := make([]ArticleAggregate, 0, len(groups))
	for _, key := range order {
		agg := groups[key]
		types := make([]LotType, 0, len(agg.Lines))
		for _, line := range agg.Lines {
			types = append(types, line.LotType)
		}
		agg.LotType = PriorityLotType(types)
		out = append(out, *agg)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Key, out[j].Key
		if a.Article != b.Article {
			return a.Article < b.Article
		}
		if a.InventoryID != b.InventoryID {
			return a.InventoryID < b.InventoryID
		}
		if a.Status != b.Status {
			return a.Status < b.Status
		}
		if a.Location != b.Location {
			return a.Location < b.Location
		}
		if a.Zone != b.Zone {
			return a.Zone < b.Zone
		}
		return a.Unit < b.Unit
	})
	return out, nil
}

// TotalTheoretical sums the theoretical quantity over all aggregates.
func TotalTheoretical(aggs []ArticleAggregate) decimal.Decimal {
	total := decimal.Zero
	for _, a := range aggs {
		total = total.Add(a.Theoretical)
	}
	return total
}
