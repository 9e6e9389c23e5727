package reconcile

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// Lot number shapes carrying an embedded date. Dates are day-month-year with a
// two-digit year.
var (
	// <site prefix><DDMMYY><sequence>, e.g. ABC120324001
	datedSiteLotPattern = regexp.MustCompile(`^[A-Z0-9]{3,4}\d{6}\d+$`)
	// LOT<DDMMYY>, e.g. LOT120324
	datedPlainLotPattern = regexp.MustCompile(`^LOT(\d{6})$`)
)

// SetLotPatterns replaces the built-in lot number patterns, for sites whose lot
// numbering deviates from the defaults. Empty strings keep the corresponding
// default. The plain pattern must capture the DDMMYY digits in its first group;
// the site pattern may capture them too, otherwise the date is read at prefix
// offset 3 or 4.
func SetLotPatterns(site, plain string) error {
	if site != "" {
		re, err := regexp.Compile(site)
		if err != nil {
			return fmt.Errorf("invalid site lot pattern: %w", err)
		}
		datedSiteLotPattern = re
	}
	if plain != "" {
		re, err := regexp.Compile(plain)
		if err != nil {
			return fmt.Errorf("invalid plain lot pattern: %w", err)
		}
		if re.NumSubexp() < 1 {
			return fmt.Errorf("plain lot pattern %q needs a capture group for the date digits", plain)
		}
		datedPlainLotPattern = re
	}
	return nil
}

// ClassifyLot determines the lot type of a stock line and the date embedded in
// its lot number, if any. Zero-quantity ordinary lots are flagged as potential
// phantom lots: they are where counted-but-unbooked stock usually surfaces.
func ClassifyLot(lot Lot, theoretical decimal.Decimal) (LotType, *time.Time) {
	if lot.IsPhantom() {
		return LotTypePhantom, nil
	}
	if t, date := parseDatedLot(lot.Number); t != LotTypeUnknown {
		return t, date
	}
	if isZero(theoretical) {
		return LotTypePotentialPhantom, nil
	}
	return LotTypeUnknown, nil
}

func parseDatedLot(number string) (LotType, *time.Time) {
	if m := datedPlainLotPattern.FindStringSubmatch(number); m != nil {
		if date := parseDDMMYY(m[1]); date != nil {
			return LotTypeDatedPlain, date
		}
	}
	if m := datedSiteLotPattern.FindStringSubmatch(number); m != nil {
		if len(m) > 1 {
			if date := parseDDMMYY(m[1]); date != nil {
				return LotTypeDatedSite, date
			}
			return LotTypeUnknown, nil
		}
		// The prefix may be 3 or 4 characters; try both splits and keep the
		// first that yields a real calendar date.
		for _, prefixLen := range []int{3, 4} {
			if len(number) < prefixLen+7 {
				continue
			}
			if date := parseDDMMYY(number[prefixLen : prefixLen+6]); date != nil {
				return LotTypeDatedSite, date
			}
		}
	}
	return LotTypeUnknown, nil
}

func parseDDMMYY(s string) *time.Time {
	t, err := time.Parse("020106", s)
	if err != nil {
		return nil
	}
	return &t
}
