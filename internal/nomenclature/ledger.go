package nomenclature

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/pharmaveille/pharmadz/internal/db"
)

// NomenclatureVersion is one row of the cumulative version ledger. Unlike
// the three record tables, the ledger is never truncated: every ingestion
// appends (or updates in place when the same label is re-ingested).
type NomenclatureVersion struct {
	ID                 int64      `json:"id"`
	Label              string     `json:"version_label"`
	ReferenceDate      *time.Time `json:"reference_date"`
	PreviousLabel      *string    `json:"previous_label"`
	TotalRegistrations int        `json:"total_enregistrements"`
	AddedCount         int        `json:"total_nouveautes"`
	TotalWithdrawals   int        `json:"total_retraits"`
	TotalNonRenewals   int        `json:"total_non_renouveles"`
	RemovedCount       int        `json:"removed_count"`
	UploadedFile       *string    `json:"uploaded_file"`
	CreatedAt          time.Time  `json:"created_at"`
}

// ledgerOrder is the single definition of version recency, used by every
// read of "current version" in the system. Most recent reference date
// first, nulls last, ties broken by creation time.
const ledgerOrder = "ORDER BY reference_date DESC NULLS LAST, created_at DESC"

const ledgerSelect = `SELECT id, version_label, reference_date, previous_label,
	       total_enregistrements, total_nouveautes, total_retraits,
	       total_non_renouveles, removed_count, uploaded_file, created_at
	FROM nomenclature_versions `

// VersionLedger reads the nomenclature_versions table.
type VersionLedger struct {
	pool db.Pool
}

// NewVersionLedger creates a ledger backed by the given pool.
func NewVersionLedger(pool db.Pool) *VersionLedger {
	return &VersionLedger{pool: pool}
}

// List returns every ledger row, most recent first per ledgerOrder.
func (l *VersionLedger) List(ctx context.Context) ([]NomenclatureVersion, error) {
	rows, err := l.pool.Query(ctx, ledgerSelect+ledgerOrder)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: list versions")
	}
	defer rows.Close()

	var versions []NomenclatureVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// Current returns the active version, nil when the ledger is empty.
func (l *VersionLedger) Current(ctx context.Context) (*NomenclatureVersion, error) {
	rows, err := l.pool.Query(ctx, ledgerSelect+ledgerOrder+" LIMIT 1")
	if err != nil {
		return nil, eris.Wrap(err, "ledger: current version")
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	v, err := scanVersion(rows)
	if err != nil {
		return nil, err
	}
	return &v, rows.Err()
}

func scanVersion(rows pgx.Rows) (NomenclatureVersion, error) {
	var v NomenclatureVersion
	err := rows.Scan(&v.ID, &v.Label, &v.ReferenceDate, &v.PreviousLabel,
		&v.TotalRegistrations, &v.AddedCount, &v.TotalWithdrawals,
		&v.TotalNonRenewals, &v.RemovedCount, &v.UploadedFile, &v.CreatedAt)
	if err != nil {
		return NomenclatureVersion{}, eris.Wrap(err, "ledger: scan version")
	}
	return v, nil
}
