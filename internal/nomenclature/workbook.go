// Package nomenclature implements the MIPH Excel ingestion pipeline:
// workbook parsing, field normalization, identity keys, version inference,
// and the transactional dataset swap.
package nomenclature

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// CellKind discriminates the native value held by a workbook cell.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellString
	CellNumber
	CellTime
	CellBool
)

// Cell is one raw workbook cell with its native type preserved. Dates in
// MIPH exports arrive as real date cells, bare serial numbers, or strings
// depending on the year of the export, so the kind matters downstream.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Time   time.Time
	Bool   bool
}

// StringCell builds a string-kind Cell. Empty or whitespace-only text
// yields an empty cell, matching what the reader produces.
func StringCell(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Cell{}
	}
	return Cell{Kind: CellString, Text: s}
}

// NumberCell builds a numeric-kind Cell.
func NumberCell(f float64) Cell { return Cell{Kind: CellNumber, Number: f} }

// TimeCell builds a time-kind Cell.
func TimeCell(t time.Time) Cell { return Cell{Kind: CellTime, Time: t} }

// Workbook wraps an opened MIPH export.
type Workbook struct {
	file *xlsx.File
}

// OpenWorkbook parses workbook bytes as uploaded by an administrator.
// Bytes that are not a readable spreadsheet are the uploader's problem,
// so the failure carries the validation category.
func OpenWorkbook(data []byte) (*Workbook, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrapf(ErrValidation, "workbook: open: %v", err)
	}
	return &Workbook{file: f}, nil
}

// SheetRows returns the raw rows of the first sheet whose name contains
// keyword, case-insensitively. ok reports whether any sheet matched;
// absence is the caller's decision to treat as error or not, since only
// the registry sheet is guaranteed to be present in ministry exports.
func (w *Workbook) SheetRows(keyword string) (rows [][]Cell, ok bool) {
	upper := strings.ToUpper(keyword)
	for _, sheet := range w.file.Sheets {
		if strings.Contains(strings.ToUpper(sheet.Name), upper) {
			return sheetCells(sheet), true
		}
	}
	return nil, false
}

// SheetNames lists the workbook's sheet names in file order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.file.Sheets))
	for i, sheet := range w.file.Sheets {
		names[i] = sheet.Name
	}
	return names
}

const (
	headerScanLimit = 20
	headerKeyword   = "ENREGISTREMENT"
)

// FindHeaderRow scans the first rows of a sheet for the cell marking the
// header row ("N° Enregistrement" in every export so far, with drifting
// spelling around it). Returns the header row index, or -1 when absent.
// Data rows start on the following index.
func FindHeaderRow(rows [][]Cell) int {
	limit := len(rows)
	if limit > headerScanLimit {
		limit = headerScanLimit
	}
	for i := 0; i < limit; i++ {
		for _, c := range rows[i] {
			if c.Kind == CellString && strings.Contains(strings.ToUpper(c.Text), headerKeyword) {
				return i
			}
		}
	}
	return -1
}

func sheetCells(sheet *xlsx.Sheet) [][]Cell {
	rows := make([][]Cell, len(sheet.Rows))
	for i, row := range sheet.Rows {
		cells := make([]Cell, len(row.Cells))
		for j, c := range row.Cells {
			cells[j] = toCell(c)
		}
		rows[i] = cells
	}
	return rows
}

func toCell(c *xlsx.Cell) Cell {
	if c.IsTime() {
		if t, err := c.GetTime(false); err == nil {
			return Cell{Kind: CellTime, Time: t}
		}
	}
	switch c.Type() {
	case xlsx.CellTypeNumeric:
		if f, err := c.Float(); err == nil {
			return Cell{Kind: CellNumber, Number: f}
		}
	case xlsx.CellTypeBool:
		return Cell{Kind: CellBool, Bool: c.Bool()}
	}
	return StringCell(c.String())
}
