package nomenclature

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tealeg/xlsx/v2"
)

const isoDate = "2006-01-02"

var (
	spaceRunRe  = regexp.MustCompile(`\s+`)
	frDateRe    = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	isoPrefixRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)
)

// fallback layouts for date strings that match neither the French nor the
// ISO form. Rare, but older exports have been seen with these.
var looseDateLayouts = []string{
	time.RFC3339,
	"2006/01/02",
	"02-01-2006",
}

// CleanString renders a raw cell as trimmed text, nil when empty.
func CleanString(c Cell) *string {
	s := strings.TrimSpace(cellText(c))
	if s == "" {
		return nil
	}
	return &s
}

// CleanRegistrationNumber additionally collapses internal whitespace runs.
// MIPH exports sometimes carry stray double spaces inside registration
// numbers, which would otherwise split identity keys across versions.
func CleanRegistrationNumber(c Cell) *string {
	s := CleanString(c)
	if s == nil {
		return nil
	}
	out := spaceRunRe.ReplaceAllString(*s, " ")
	return &out
}

// CleanDate normalizes any supported date encoding to a "YYYY-MM-DD"
// string: a native date cell, a 1900-epoch spreadsheet serial, the French
// "DD/MM/YYYY" form, an ISO-prefixed string, or a loosely parseable
// layout. Dates are not critical-path fields, so anything unparseable
// yields nil rather than an error.
func CleanDate(c Cell) *string {
	switch c.Kind {
	case CellEmpty, CellBool:
		return nil
	case CellTime:
		return strPtr(c.Time.Format(isoDate))
	case CellNumber:
		// tealeg's serial epoch is 1899-12-30, so the first valid serials
		// land in late 1899.
		t := xlsx.TimeFromExcelTime(c.Number, false)
		if t.Year() < 1899 || t.Year() > 2200 {
			return nil
		}
		return strPtr(t.Format(isoDate))
	}

	s := strings.TrimSpace(c.Text)
	if s == "" {
		return nil
	}
	if m := frDateRe.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		// time.Date normalizes overflow (31/02 becomes 02/03), so a
		// round-trip mismatch means the components were not a real date.
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
			return nil
		}
		return strPtr(t.Format(isoDate))
	}
	if m := isoPrefixRe.FindStringSubmatch(s); m != nil {
		return strPtr(m[1] + "-" + m[2] + "-" + m[3])
	}
	for _, layout := range looseDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return strPtr(t.Format(isoDate))
		}
	}
	return nil
}

func cellText(c Cell) string {
	switch c.Kind {
	case CellString:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellTime:
		return c.Time.Format(isoDate)
	case CellBool:
		if c.Bool {
			return "true"
		}
		return "false"
	}
	return ""
}

func strPtr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
