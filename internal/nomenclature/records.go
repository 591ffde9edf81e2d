package nomenclature

// ActiveRegistration is one row of the registry sheet after normalization.
// All fields are nullable because the ministry leaves plenty of them blank.
type ActiveRegistration struct {
	RegistrationNumber *string
	ProductCode        *string
	Substance          *string
	BrandName          *string
	Form               *string
	Dosage             *string
	Packaging          *string
	List               *string
	Prescription       *string
	Observation        *string
	Manufacturer       *string
	Country            *string
	RegisteredOn       *string // YYYY-MM-DD
	ExpiresOn          *string
	ProductType        *string
	Status             *string
	Stability          *string
}

// Key returns the record's identity key.
func (r ActiveRegistration) Key() string {
	return IdentityKey(IdentityRef{
		RegistrationNumber: r.RegistrationNumber,
		ProductCode:        r.ProductCode,
		Substance:          r.Substance,
		BrandName:          r.BrandName,
		Dosage:             r.Dosage,
	})
}

// Withdrawal is one row of the withdrawals sheet: a drug pulled from the
// market, with a recorded date and free-text reason.
type Withdrawal struct {
	RegistrationNumber *string
	ProductCode        *string
	Substance          *string
	BrandName          *string
	Form               *string
	Dosage             *string
	Packaging          *string
	List               *string
	Prescription       *string
	Manufacturer       *string
	Country            *string
	RegisteredOn       *string
	ProductType        *string
	Status             *string
	WithdrawnOn        *string
	WithdrawalReason   *string
}

// NonRenewal is one row of the non-renewals sheet: an authorization that
// lapsed without renewal.
type NonRenewal struct {
	RegistrationNumber *string
	ProductCode        *string
	Substance          *string
	BrandName          *string
	Form               *string
	Dosage             *string
	Packaging          *string
	List               *string
	Prescription       *string
	Manufacturer       *string
	Country            *string
	RegisteredOn       *string
	ExpiresOn          *string
	ProductType        *string
	Status             *string
}

// ColumnMap fixes the column position of every field for one sheet layout.
// MIPH header labels drift between years but column order has stayed
// stable, so parsing is positional; a layout change is a change to these
// tables, not to parser code. -1 marks a field the sheet does not carry.
type ColumnMap struct {
	RegistrationNumber int
	ProductCode        int
	Substance          int
	BrandName          int
	Form               int
	Dosage             int
	Packaging          int
	List               int
	Prescription       int
	Observation        int
	Manufacturer       int
	Country            int
	RegisteredOn       int
	ExpiresOn          int
	ProductType        int
	Status             int
	Stability          int
	WithdrawnOn        int
	WithdrawalReason   int
}

// Column 0 is a row counter and column 10 a spacer on every sheet.
var (
	// RegistryColumns is the layout of the mandatory "Nomenclature" sheet.
	RegistryColumns = ColumnMap{
		RegistrationNumber: 1,
		ProductCode:        2,
		Substance:          3,
		BrandName:          4,
		Form:               5,
		Dosage:             6,
		Packaging:          7,
		List:               8,
		Prescription:       9,
		Observation:        11,
		Manufacturer:       12,
		Country:            13,
		RegisteredOn:       14,
		ExpiresOn:          15,
		ProductType:        16,
		Status:             17,
		Stability:          18,
		WithdrawnOn:        -1,
		WithdrawalReason:   -1,
	}

	// WithdrawalColumns is the layout of the optional "Retrait" sheet,
	// which trades the observation/expiry columns for withdrawal date
	// and reason.
	WithdrawalColumns = ColumnMap{
		RegistrationNumber: 1,
		ProductCode:        2,
		Substance:          3,
		BrandName:          4,
		Form:               5,
		Dosage:             6,
		Packaging:          7,
		List:               8,
		Prescription:       9,
		Observation:        -1,
		Manufacturer:       11,
		Country:            12,
		RegisteredOn:       13,
		ExpiresOn:          -1,
		ProductType:        14,
		Status:             15,
		Stability:          -1,
		WithdrawnOn:        16,
		WithdrawalReason:   17,
	}

	// NonRenewalColumns is the layout of the optional "Non Renouvel" sheet.
	NonRenewalColumns = ColumnMap{
		RegistrationNumber: 1,
		ProductCode:        2,
		Substance:          3,
		BrandName:          4,
		Form:               5,
		Dosage:             6,
		Packaging:          7,
		List:               8,
		Prescription:       9,
		Observation:        -1,
		Manufacturer:       11,
		Country:            12,
		RegisteredOn:       13,
		ExpiresOn:          14,
		ProductType:        15,
		Status:             16,
		Stability:          -1,
		WithdrawnOn:        -1,
		WithdrawalReason:   -1,
	}
)
