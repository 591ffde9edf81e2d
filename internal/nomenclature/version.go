package nomenclature

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// French month names in folded (lowercase, accent-stripped) form, mapped
// to their calendar month and canonical accented display form. Operators
// name files "Nomenclature_Decembre_2025.xlsx" as often as
// "nomenclature décembre 2025.xlsx", so matching is accent-insensitive
// while labels are rendered with proper accents.
var frenchMonths = []struct {
	folded  string
	month   time.Month
	display string
}{
	{"janvier", time.January, "Janvier"},
	{"fevrier", time.February, "Février"},
	{"mars", time.March, "Mars"},
	{"avril", time.April, "Avril"},
	{"mai", time.May, "Mai"},
	{"juin", time.June, "Juin"},
	{"juillet", time.July, "Juillet"},
	{"aout", time.August, "Août"},
	{"septembre", time.September, "Septembre"},
	{"octobre", time.October, "Octobre"},
	{"novembre", time.November, "Novembre"},
	{"decembre", time.December, "Décembre"},
}

var (
	extRe       = regexp.MustCompile(`\.[^.]+$`)
	yearRe      = regexp.MustCompile(`20\d{2}`)
	monthYearRe = regexp.MustCompile(`(janvier|fevrier|mars|avril|mai|juin|juillet|aout|septembre|octobre|novembre|decembre)\s*(20\d{2})`)
)

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// fold lowercases s and strips diacritics, so "Décembre", "decembre" and
// "DECEMBRE" all compare equal.
func fold(s string) string {
	out, _, err := transform.String(foldTransformer, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// InferVersionLabel derives a human version label for a snapshot. An
// operator-supplied override wins verbatim (trimmed). Otherwise the
// filename is normalized (extension stripped, separators spaced) and
// searched for a French month adjacent to a 20xx year; failing that, a
// bare 20xx year anywhere; failing that, the normalized filename itself.
// Pure string-to-string; no I/O.
func InferVersionLabel(filename, override string) string {
	if o := strings.TrimSpace(override); o != "" {
		return o
	}

	base := extRe.ReplaceAllString(filename, "")
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	folded := fold(base)

	if m := monthYearRe.FindStringSubmatch(folded); m != nil {
		return monthDisplay(m[1]) + " " + m[2]
	}
	if y := yearRe.FindString(folded); y != "" {
		return y
	}
	return strings.TrimSpace(base)
}

// ReferenceDate derives a snapshot's reference date from its label: the
// first of the named month when a French month is recognized, December 1st
// when only a year is found, nil when the label carries no 20xx year.
func ReferenceDate(label string) *time.Time {
	folded := fold(label)
	y := yearRe.FindString(folded)
	if y == "" {
		return nil
	}
	year, _ := strconv.Atoi(y)

	month := time.December
	for _, m := range frenchMonths {
		if strings.Contains(folded, m.folded) {
			month = m.month
			break
		}
	}

	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return &t
}

// VersionYear extracts the 20xx nomenclature year from a label, falling
// back to the current year when the label has none.
func VersionYear(label string, now time.Time) int {
	if y := yearRe.FindString(label); y != "" {
		year, _ := strconv.Atoi(y)
		return year
	}
	return now.Year()
}

func monthDisplay(folded string) string {
	for _, m := range frenchMonths {
		if m.folded == folded {
			return m.display
		}
	}
	return folded
}
