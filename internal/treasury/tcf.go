package treasury

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// SecuritySheet is the workbook sheet listing deliverable securities.
const SecuritySheet = "Security Database"

// headerRow is the zero-based row holding column names.
const headerRow = 2

// Column headers after whitespace is collapsed.
const (
	colOTRIssue         = "OTR Issue"
	colOriginalMaturity = "Original Maturity"
	colCoupon           = "Coupon"
	colIssueDate        = "Issue Date"
	colMaturityDate     = "Maturity Date"
	colCUSIP            = "CUSIP"
	colAdjustedIssuance = "Adjusted Issuance (Billions)"
	colOriginalIssuance = "Original Issuance (Billions)"
)

var knownColumns = map[string]bool{
	colOTRIssue:         true,
	colOriginalMaturity: true,
	colCoupon:           true,
	colIssueDate:        true,
	colMaturityDate:     true,
	colCUSIP:            true,
	colAdjustedIssuance: true,
	colOriginalIssuance: true,
}

// SecurityRow is one row of the CME security database.
type SecurityRow struct {
	OTRIssue         string
	OriginalMaturity string
	Coupon           float64 // percent
	IssueDate        time.Time
	MaturityDate     time.Time
	CUSIP            string
	AdjustedIssuance float64
	OriginalIssuance float64
	Factors          map[string]float64 // published factors keyed by contract column
}

// LoadSecurityDatabase reads the security rows of a TCF workbook.
func LoadSecurityDatabase(path string) ([]SecurityRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SecuritySheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", SecuritySheet, err)
	}
	return parseSecurityRows(rows)
}

func parseSecurityRows(rows [][]string) ([]SecurityRow, error) {
	if len(rows) <= headerRow {
		return nil, fmt.Errorf("sheet %q has no header row", SecuritySheet)
	}

	index := make(map[string]int)
	for i, h := range rows[headerRow] {
		index[normalizeHeader(h)] = i
	}
	for _, col := range []string{colCUSIP, colMaturityDate, colCoupon} {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("sheet %q missing column %q", SecuritySheet, col)
		}
	}

	cell := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []SecurityRow
	for _, row := range rows[headerRow+1:] {
		sr := SecurityRow{
			OTRIssue:         cell(row, colOTRIssue),
			OriginalMaturity: cell(row, colOriginalMaturity),
			Coupon:           parseCoupon(cell(row, colCoupon)),
			IssueDate:        parseSheetDate(cell(row, colIssueDate)),
			MaturityDate:     parseSheetDate(cell(row, colMaturityDate)),
			CUSIP:            cell(row, colCUSIP),
			AdjustedIssuance: parseNumber(cell(row, colAdjustedIssuance)),
			OriginalIssuance: parseNumber(cell(row, colOriginalIssuance)),
		}
		for name, i := range index {
			if knownColumns[name] || name == "" || i >= len(row) {
				continue
			}
			if v := parseNumber(row[i]); v > 0 && v < 2 {
				if sr.Factors == nil {
					sr.Factors = make(map[string]float64)
				}
				sr.Factors[name] = v
			}
		}
		out = append(out, sr)
	}
	return out, nil
}

func normalizeHeader(h string) string {
	return strings.Join(strings.Fields(h), " ")
}

var sheetDateLayouts = []string{
	"1/2/06", "01/02/06", "1/2/2006", "01/02/2006",
	"2006-01-02", "1-2-06", "01-02-06", "2-Jan-06", "Jan 2, 2006",
}

// parseSheetDate accepts the formatted date strings excelize renders and raw
// Excel serial numbers. Returns the zero time when nothing matches.
func parseSheetDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range sheetDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
	}
	return time.Time{}
}

// parseCoupon accepts decimal coupons and fractional ones such as "4 1/4".
func parseCoupon(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}

	var total float64
	for _, part := range strings.Fields(s) {
		if num, den, ok := strings.Cut(part, "/"); ok {
			n, err1 := strconv.ParseFloat(num, 64)
			d, err2 := strconv.ParseFloat(den, 64)
			if err1 != nil || err2 != nil || d == 0 {
				return 0
			}
			total += n / d
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0
		}
		total += v
	}
	return total
}

func parseNumber(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
