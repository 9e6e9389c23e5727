// Package sagefile reads and writes the semicolon-delimited stock export
// format consumed and produced by the reconciliation engine.
package sagefile

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stocktake/backend/internal/domain/reconcile"
)

// ParsedFile is the structured content of one export file: the E and L header
// lines verbatim, in order, and every S stock line parsed.
type ParsedFile struct {
	Headers []string
	Lines   []reconcile.StockLine
}

// ParseError reports a malformed line with its position in the file.
type ParseError struct {
	LineNumber int
	Line       string
	Reason     string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.LineNumber, e.Reason)
}

// Parser reads export files. The zero value is not usable; use NewParser.
type Parser struct {
	maxLineBytes int
}

// ParserOption is a functional option for Parser configuration
type ParserOption func(*Parser)

// WithMaxLineBytes caps the accepted line length (default 1MB)
func WithMaxLineBytes(n int) ParserOption {
	return func(p *Parser) {
		p.maxLineBytes = n
	}
}

// NewParser creates a new export file parser
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{maxLineBytes: 1 << 20}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse reads the whole export from r. Header lines pass through untouched;
// stock lines must carry the minimum field count and parseable quantities.
// Blank lines are skipped. The file must contain at least one stock line.
func (p *Parser) Parse(r io.Reader) (*ParsedFile, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), p.maxLineBytes)

	file := &ParsedFile{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimRight(scanner.Text(), "\r")
		if lineNo == 1 {
			raw = strings.TrimPrefix(raw, "\uFEFF")
		}
		if strings.TrimSpace(raw) == "" {
			continue
		}

		switch {
		case strings.HasPrefix(raw, reconcile.LineKindEnvelope+reconcile.FieldSeparator),
			strings.HasPrefix(raw, reconcile.LineKindInventory+reconcile.FieldSeparator):
			file.Headers = append(file.Headers, raw)
		case strings.HasPrefix(raw, reconcile.LineKindStock+reconcile.FieldSeparator):
			line, err := parseStockLine(raw, lineNo)
			if err != nil {
				return nil, err
			}
			file.Lines = append(file.Lines, *line)
		default:
			return nil, &ParseError{LineNumber: lineNo, Line: raw,
				Reason: fmt.Sprintf("unknown line kind %q", firstField(raw))}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	if len(file.Lines) == 0 {
		return nil, &ParseError{LineNumber: lineNo, Reason: "no stock lines in file"}
	}
	return file, nil
}

func parseStockLine(raw string, lineNo int) (*reconcile.StockLine, error) {
	fields := strings.Split(raw, reconcile.FieldSeparator)
	if len(fields) < reconcile.MinFieldCount {
		return nil, &ParseError{LineNumber: lineNo, Line: raw,
			Reason: fmt.Sprintf("stock line has %d fields, need at least %d", len(fields), reconcile.MinFieldCount)}
	}

	rank, err := strconv.Atoi(strings.TrimSpace(fields[reconcile.FieldRank]))
	if err != nil {
		return nil, &ParseError{LineNumber: lineNo, Line: raw,
			Reason: fmt.Sprintf("unparseable rank %q", fields[reconcile.FieldRank])}
	}
	theoretical, err := parseFileQuantity(fields[reconcile.FieldTheoreticalQty])
	if err != nil {
		return nil, &ParseError{LineNumber: lineNo, Line: raw,
			Reason: fmt.Sprintf("unparseable theoretical quantity %q", fields[reconcile.FieldTheoreticalQty])}
	}
	counted, err := parseFileQuantity(fields[reconcile.FieldCountedQty])
	if err != nil {
		return nil, &ParseError{LineNumber: lineNo, Line: raw,
			Reason: fmt.Sprintf("unparseable counted quantity %q", fields[reconcile.FieldCountedQty])}
	}

	lot := reconcile.OrdinaryLot(strings.TrimSpace(fields[reconcile.FieldLotNumber]))
	lotType, lotDate := reconcile.ClassifyLot(lot, theoretical)

	return &reconcile.StockLine{
		SessionID:   fields[reconcile.FieldSessionID],
		InventoryID: fields[reconcile.FieldInventoryID],
		Rank:        rank,
		Site:        fields[reconcile.FieldSite],
		Theoretical: theoretical,
		CountedIn:   counted,
		CountFlag:   fields[reconcile.FieldCountFlag],
		ArticleCode: fields[reconcile.FieldArticleCode],
		Location:    fields[reconcile.FieldLocation],
		Status:      fields[reconcile.FieldStatus],
		Unit:        fields[reconcile.FieldUnit],
		Value:       fields[reconcile.FieldValue],
		Zone:        fields[reconcile.FieldZone],
		Lot:         lot,
		LotDate:     lotDate,
		LotType:     lotType,
		Raw:         raw,
	}, nil
}

func parseFileQuantity(s string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return decimal.Zero, nil
	}
	trimmed = strings.ReplaceAll(trimmed, ",", ".")
	return decimal.NewFromString(trimmed)
}

func firstField(raw string) string {
	if i := strings.Index(raw, reconcile.FieldSeparator); i >= 0 {
		return raw[:i]
	}
	return raw
}

// inventoryDatePattern matches the day and month encoded just before the INV
// marker of an inventory identifier, e.g. 2406INV00012 or BKE022508INV00000008.
// Identifiers may carry a site prefix, so the match is not anchored.
var inventoryDatePattern = regexp.MustCompile(`(\d{2})(\d{2})INV`)

// ExtractInventoryDate returns the day and month encoded in an inventory
// identifier, or nil when the identifier carries no date. The identifier has
// no year of its own; the year is taken from ref, the session clock.
func ExtractInventoryDate(inventoryID string, ref time.Time) *time.Time {
	m := inventoryDatePattern.FindStringSubmatch(inventoryID)
	if m == nil {
		return nil
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return nil
	}
	t := time.Date(ref.Year(), time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != time.Month(month) {
		// time.Date normalized an impossible day such as 31 February.
		return nil
	}
	return &t
}
