package store

import "time"

// Drug is one active registration row. JSON field names follow the
// database's French column names, which are the site's public API
// contract.
type Drug struct {
	ID                 int64   `json:"id"`
	RegistrationNumber *string `json:"n_enreg"`
	ProductCode        *string `json:"code"`
	Substance          *string `json:"dci"`
	BrandName          *string `json:"nom_marque"`
	Form               *string `json:"forme"`
	Dosage             *string `json:"dosage"`
	Packaging          *string `json:"conditionnement"`
	List               *string `json:"liste"`
	Prescription       *string `json:"prescription"`
	Observation        *string `json:"obs"`
	Manufacturer       *string `json:"labo"`
	Country            *string `json:"pays"`
	RegisteredOn       *string `json:"date_init"`
	ExpiresOn          *string `json:"date_final"`
	ProductType        *string `json:"type_prod"`
	Status             *string `json:"statut"`
	Stability          *string `json:"stabilite"`
	Year               *int16  `json:"annee"`
	SourceVersion      *string `json:"source_version"`
	IsNew              bool    `json:"is_new_vs_previous"`
}

// WithdrawnDrug is one market withdrawal row.
type WithdrawnDrug struct {
	ID                 int64   `json:"id"`
	RegistrationNumber *string `json:"n_enreg"`
	ProductCode        *string `json:"code"`
	Substance          *string `json:"dci"`
	BrandName          *string `json:"nom_marque"`
	Form               *string `json:"forme"`
	Dosage             *string `json:"dosage"`
	Packaging          *string `json:"conditionnement"`
	List               *string `json:"liste"`
	Prescription       *string `json:"prescription"`
	Manufacturer       *string `json:"labo"`
	Country            *string `json:"pays"`
	RegisteredOn       *string `json:"date_init"`
	ProductType        *string `json:"type_prod"`
	Status             *string `json:"statut"`
	WithdrawnOn        *string `json:"date_retrait"`
	WithdrawalReason   *string `json:"motif_retrait"`
}

// NonRenewedDrug is one lapsed-authorization row.
type NonRenewedDrug struct {
	ID                 int64   `json:"id"`
	RegistrationNumber *string `json:"n_enreg"`
	ProductCode        *string `json:"code"`
	Substance          *string `json:"dci"`
	BrandName          *string `json:"nom_marque"`
	Form               *string `json:"forme"`
	Dosage             *string `json:"dosage"`
	Packaging          *string `json:"conditionnement"`
	List               *string `json:"liste"`
	Prescription       *string `json:"prescription"`
	Manufacturer       *string `json:"labo"`
	Country            *string `json:"pays"`
	RegisteredOn       *string `json:"date_init"`
	ExpiresOn          *string `json:"date_final"`
	ProductType        *string `json:"type_prod"`
	Status             *string `json:"statut"`
}

// SearchHit is one row of the cross-table search, tagged with the table
// it came from.
type SearchHit struct {
	Scope              SearchScope `json:"scope"`
	ID                 int64       `json:"id"`
	RegistrationNumber *string     `json:"n_enreg"`
	Substance          *string     `json:"dci"`
	BrandName          *string     `json:"nom_marque"`
	Form               *string     `json:"forme"`
	Dosage             *string     `json:"dosage"`
	Manufacturer       *string     `json:"labo"`
	Status             *string     `json:"statut"`
}

// Stats is the landing-page aggregate.
type Stats struct {
	TotalRegistrations    int     `json:"total_enregistrements"`
	TotalWithdrawals      int     `json:"total_retraits"`
	TotalNonRenewals      int     `json:"total_non_renouveles"`
	NewInCurrentVersion   int     `json:"total_nouveautes"`
	DistinctSubstances    int     `json:"total_dci"`
	DistinctManufacturers int     `json:"total_labos"`
	CurrentVersion        *string `json:"version_courante"`
}

// YearCount is one bucket of the registrations-per-year histogram.
type YearCount struct {
	Year  int `json:"annee"`
	Count int `json:"total"`
}

// GenericGroup aggregates generic products sharing one substance.
type GenericGroup struct {
	Substance string `json:"dci"`
	Count     int    `json:"total"`
}

// Subscriber is one newsletter subscription, confirmed or pending.
type Subscriber struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	Name             *string   `json:"nom"`
	ConfirmToken     string    `json:"-"`
	UnsubscribeToken string    `json:"-"`
	Confirmed        bool      `json:"confirmed"`
	CreatedAt        time.Time `json:"created_at"`
}

// Publication is one row of the social/newsletter publication audit trail.
type Publication struct {
	ID          int64     `json:"id"`
	Kind        string    `json:"kind"`
	SourceTable *string   `json:"source_table"`
	SourceID    *int64    `json:"source_id"`
	Platform    string    `json:"platform"`
	ExternalID  *string   `json:"external_id"`
	Error       *string   `json:"error"`
	PublishedAt time.Time `json:"published_at"`
}
