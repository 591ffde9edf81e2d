package nomenclature

import (
	"github.com/rotisserie/eris"
)

// Sheet keywords are matched fuzzily (case-insensitive contains) because
// the ministry renames sheets between exports ("Retraits 2024",
// "NOMENCLATURE VF", ...). First match wins.
const (
	registrySheetKeyword   = "Nomenclature"
	withdrawalSheetKeyword = "Retrait"
	nonRenewalSheetKeyword = "Non Renouvel"
)

// Hard errors for the mandatory registry sheet. The two optional sheets
// are simply absent from some exports and parse to empty slices.
var (
	ErrRegistrySheetMissing  = eris.New(`parse: mandatory sheet "Nomenclature" not found in workbook`)
	ErrRegistryHeaderMissing = eris.New(`parse: header row ("N° Enregistrement") not found in registry sheet`)
)

// Snapshot holds one fully parsed workbook.
type Snapshot struct {
	Registrations []ActiveRegistration
	Withdrawals   []Withdrawal
	NonRenewals   []NonRenewal
}

// ParseWorkbook parses uploaded workbook bytes into a Snapshot. The
// registry sheet is mandatory; withdrawals and non-renewals are parsed
// when present and skipped silently otherwise.
func ParseWorkbook(data []byte) (*Snapshot, error) {
	wb, err := OpenWorkbook(data)
	if err != nil {
		return nil, err
	}

	regRows, ok := wb.SheetRows(registrySheetKeyword)
	if !ok {
		return nil, ErrRegistrySheetMissing
	}
	header := FindHeaderRow(regRows)
	if header < 0 {
		return nil, ErrRegistryHeaderMissing
	}

	snap := &Snapshot{}
	for _, row := range regRows[header+1:] {
		if r, ok := parseRegistration(row); ok {
			snap.Registrations = append(snap.Registrations, r)
		}
	}

	if rows, ok := wb.SheetRows(withdrawalSheetKeyword); ok {
		if h := FindHeaderRow(rows); h >= 0 {
			for _, row := range rows[h+1:] {
				if w, ok := parseWithdrawal(row); ok {
					snap.Withdrawals = append(snap.Withdrawals, w)
				}
			}
		}
	}

	if rows, ok := wb.SheetRows(nonRenewalSheetKeyword); ok {
		if h := FindHeaderRow(rows); h >= 0 {
			for _, row := range rows[h+1:] {
				if nr, ok := parseNonRenewal(row); ok {
					snap.NonRenewals = append(snap.NonRenewals, nr)
				}
			}
		}
	}

	return snap, nil
}

// cellAt is bounds- and sentinel-safe indexing into a raw row.
func cellAt(row []Cell, idx int) Cell {
	if idx < 0 || idx >= len(row) {
		return Cell{}
	}
	return row[idx]
}

// A row is blank, and skipped, when both its registration number and its
// substance column clean to nil.
func blankRow(row []Cell, m ColumnMap) bool {
	return CleanRegistrationNumber(cellAt(row, m.RegistrationNumber)) == nil &&
		CleanString(cellAt(row, m.Substance)) == nil
}

func parseRegistration(row []Cell) (ActiveRegistration, bool) {
	m := RegistryColumns
	if blankRow(row, m) {
		return ActiveRegistration{}, false
	}
	return ActiveRegistration{
		RegistrationNumber: CleanRegistrationNumber(cellAt(row, m.RegistrationNumber)),
		ProductCode:        CleanString(cellAt(row, m.ProductCode)),
		Substance:          CleanString(cellAt(row, m.Substance)),
		BrandName:          CleanString(cellAt(row, m.BrandName)),
		Form:               CleanString(cellAt(row, m.Form)),
		Dosage:             CleanString(cellAt(row, m.Dosage)),
		Packaging:          CleanString(cellAt(row, m.Packaging)),
		List:               CleanString(cellAt(row, m.List)),
		Prescription:       CleanString(cellAt(row, m.Prescription)),
		Observation:        CleanString(cellAt(row, m.Observation)),
		Manufacturer:       CleanString(cellAt(row, m.Manufacturer)),
		Country:            CleanString(cellAt(row, m.Country)),
		RegisteredOn:       CleanDate(cellAt(row, m.RegisteredOn)),
		ExpiresOn:          CleanDate(cellAt(row, m.ExpiresOn)),
		ProductType:        CleanString(cellAt(row, m.ProductType)),
		Status:             CleanString(cellAt(row, m.Status)),
		Stability:          CleanString(cellAt(row, m.Stability)),
	}, true
}

func parseWithdrawal(row []Cell) (Withdrawal, bool) {
	m := WithdrawalColumns
	if blankRow(row, m) {
		return Withdrawal{}, false
	}
	return Withdrawal{
		RegistrationNumber: CleanRegistrationNumber(cellAt(row, m.RegistrationNumber)),
		ProductCode:        CleanString(cellAt(row, m.ProductCode)),
		Substance:          CleanString(cellAt(row, m.Substance)),
		BrandName:          CleanString(cellAt(row, m.BrandName)),
		Form:               CleanString(cellAt(row, m.Form)),
		Dosage:             CleanString(cellAt(row, m.Dosage)),
		Packaging:          CleanString(cellAt(row, m.Packaging)),
		List:               CleanString(cellAt(row, m.List)),
		Prescription:       CleanString(cellAt(row, m.Prescription)),
		Manufacturer:       CleanString(cellAt(row, m.Manufacturer)),
		Country:            CleanString(cellAt(row, m.Country)),
		RegisteredOn:       CleanDate(cellAt(row, m.RegisteredOn)),
		ProductType:        CleanString(cellAt(row, m.ProductType)),
		Status:             CleanString(cellAt(row, m.Status)),
		WithdrawnOn:        CleanDate(cellAt(row, m.WithdrawnOn)),
		WithdrawalReason:   CleanString(cellAt(row, m.WithdrawalReason)),
	}, true
}

func parseNonRenewal(row []Cell) (NonRenewal, bool) {
	m := NonRenewalColumns
	if blankRow(row, m) {
		return NonRenewal{}, false
	}
	return NonRenewal{
		RegistrationNumber: CleanRegistrationNumber(cellAt(row, m.RegistrationNumber)),
		ProductCode:        CleanString(cellAt(row, m.ProductCode)),
		Substance:          CleanString(cellAt(row, m.Substance)),
		BrandName:          CleanString(cellAt(row, m.BrandName)),
		Form:               CleanString(cellAt(row, m.Form)),
		Dosage:             CleanString(cellAt(row, m.Dosage)),
		Packaging:          CleanString(cellAt(row, m.Packaging)),
		List:               CleanString(cellAt(row, m.List)),
		Prescription:       CleanString(cellAt(row, m.Prescription)),
		Manufacturer:       CleanString(cellAt(row, m.Manufacturer)),
		Country:            CleanString(cellAt(row, m.Country)),
		RegisteredOn:       CleanDate(cellAt(row, m.RegisteredOn)),
		ExpiresOn:          CleanDate(cellAt(row, m.ExpiresOn)),
		ProductType:        CleanString(cellAt(row, m.ProductType)),
		Status:             CleanString(cellAt(row, m.Status)),
	}, true
}
