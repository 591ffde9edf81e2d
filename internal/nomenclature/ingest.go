package nomenclature

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pharmaveille/pharmadz/internal/db"
)

// Error categories let callers map ingestion failures onto responses:
// input rejections and validation failures are the uploader's to fix and
// carry no side effects; anything else failed inside the transaction and
// rolled back.
var (
	ErrInputRejected = eris.New("ingest: input rejected")
	ErrValidation    = eris.New("ingest: validation failed")
)

// Advisory lock key serializing ingestions. The before/after diff is only
// correct when no other ingestion interleaves, and this is an infrequent
// administrative action, so one writer at a time costs nothing.
const ingestLockID = 727156

// DefaultIngestTimeout bounds a whole ingestion, parse included.
const DefaultIngestTimeout = 60 * time.Second

var allowedExtensions = map[string]bool{".xlsx": true, ".xls": true}

// Options carries the operator inputs for one ingestion.
type Options struct {
	Filename      string
	LabelOverride string
}

// Result reports a committed ingestion: the (possibly inferred) version
// label and the five counters persisted in the ledger.
type Result struct {
	VersionLabel       string `json:"version_label"`
	TotalRegistrations int    `json:"total_enregistrements"`
	AddedCount         int    `json:"added_count"`
	RemovedCount       int    `json:"removed_count"`
	TotalWithdrawals   int    `json:"total_retraits"`
	TotalNonRenewals   int    `json:"total_non_renouveles"`
}

// Ingestor replaces the active nomenclature dataset from an uploaded
// workbook inside a single transaction, recording the version diff in the
// ledger. Either every table reflects the new snapshot or none does.
type Ingestor struct {
	pool      db.Pool
	batchSize int
	timeout   time.Duration
	now       func() time.Time
}

// NewIngestor creates an Ingestor. Non-positive batchSize or timeout fall
// back to defaults.
func NewIngestor(pool db.Pool, batchSize int, timeout time.Duration) *Ingestor {
	if batchSize <= 0 {
		batchSize = db.DefaultBatchSize
	}
	if timeout <= 0 {
		timeout = DefaultIngestTimeout
	}
	return &Ingestor{pool: pool, batchSize: batchSize, timeout: timeout, now: time.Now}
}

// Ingest parses workbook bytes, diffs the parsed registry against the
// currently active one, and atomically swaps the three record tables
// while upserting the version ledger. On any failure the transaction
// rolls back and the active dataset is untouched.
func (ing *Ingestor) Ingest(ctx context.Context, data []byte, opts Options) (*Result, error) {
	log := zap.L().With(zap.String("component", "nomenclature.ingest"))

	if err := validateUpload(data, opts.Filename); err != nil {
		return nil, err
	}

	snap, err := ParseWorkbook(data)
	if err != nil {
		return nil, err
	}
	if len(snap.Registrations) == 0 {
		// Never replace a non-empty active dataset with an empty one.
		return nil, eris.Wrap(ErrValidation, "registry sheet contains no usable rows")
	}

	label := InferVersionLabel(opts.Filename, opts.LabelOverride)
	refDate := ReferenceDate(label)
	year := VersionYear(label, ing.now())

	ctx, cancel := context.WithTimeout(ctx, ing.timeout)
	defer cancel()

	tx, err := ing.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", ingestLockID); err != nil {
		return nil, eris.Wrap(err, "ingest: acquire advisory lock")
	}

	// Diff counts are computed once, against the pre-replacement snapshot,
	// and persisted verbatim in the ledger.
	before, err := currentIdentityKeys(ctx, tx)
	if err != nil {
		return nil, err
	}
	after := make(map[string]struct{}, len(snap.Registrations))
	for i := range snap.Registrations {
		after[snap.Registrations[i].Key()] = struct{}{}
	}
	added, removed := diffCounts(before, after)

	if err := ing.reloadRegistrations(ctx, tx, snap.Registrations, before, year, label); err != nil {
		return nil, err
	}
	if err := ing.reloadWithdrawals(ctx, tx, snap.Withdrawals); err != nil {
		return nil, err
	}
	if err := ing.reloadNonRenewals(ctx, tx, snap.NonRenewals); err != nil {
		return nil, err
	}

	if err := upsertVersion(ctx, tx, versionRow{
		label:         label,
		referenceDate: refDate,
		total:         len(snap.Registrations),
		added:         added,
		withdrawals:   len(snap.Withdrawals),
		nonRenewals:   len(snap.NonRenewals),
		removed:       removed,
		uploadedFile:  opts.Filename,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "ingest: commit")
	}

	log.Info("ingestion committed",
		zap.String("version", label),
		zap.Int("registrations", len(snap.Registrations)),
		zap.Int("added", added),
		zap.Int("removed", removed),
		zap.Int("withdrawals", len(snap.Withdrawals)),
		zap.Int("non_renewals", len(snap.NonRenewals)),
	)

	return &Result{
		VersionLabel:       label,
		TotalRegistrations: len(snap.Registrations),
		AddedCount:         added,
		RemovedCount:       removed,
		TotalWithdrawals:   len(snap.Withdrawals),
		TotalNonRenewals:   len(snap.NonRenewals),
	}, nil
}

func validateUpload(data []byte, filename string) error {
	if len(data) == 0 {
		return eris.Wrap(ErrInputRejected, "empty upload")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return eris.Wrapf(ErrInputRejected, "unsupported file extension %q, want .xlsx or .xls", ext)
	}
	return nil
}

// diffCounts returns |after-before| and |before-after|.
func diffCounts(before, after map[string]struct{}) (added, removed int) {
	for k := range after {
		if _, ok := before[k]; !ok {
			added++
		}
	}
	for k := range before {
		if _, ok := after[k]; !ok {
			removed++
		}
	}
	return added, removed
}

// currentIdentityKeys snapshots the identity keys of the active
// registrations table before it is truncated.
func currentIdentityKeys(ctx context.Context, tx pgx.Tx) (map[string]struct{}, error) {
	rows, err := tx.Query(ctx, "SELECT n_enreg, code, dci, nom_marque, dosage FROM enregistrements")
	if err != nil {
		return nil, eris.Wrap(err, "ingest: snapshot current identity keys")
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var ref IdentityRef
		if err := rows.Scan(&ref.RegistrationNumber, &ref.ProductCode, &ref.Substance, &ref.BrandName, &ref.Dosage); err != nil {
			return nil, eris.Wrap(err, "ingest: scan identity row")
		}
		keys[IdentityKey(ref)] = struct{}{}
	}
	return keys, rows.Err()
}

var registrationColumns = []string{
	"n_enreg", "code", "dci", "nom_marque", "forme", "dosage",
	"conditionnement", "liste", "prescription", "obs", "labo", "pays",
	"date_init", "date_final", "type_prod", "statut", "stabilite",
	"annee", "source_version", "is_new_vs_previous",
}

func (ing *Ingestor) reloadRegistrations(ctx context.Context, tx pgx.Tx, regs []ActiveRegistration, before map[string]struct{}, year int, label string) error {
	if _, err := tx.Exec(ctx, "TRUNCATE TABLE enregistrements RESTART IDENTITY CASCADE"); err != nil {
		return eris.Wrap(err, "ingest: truncate enregistrements")
	}

	rows := make([][]any, len(regs))
	for i, r := range regs {
		_, existed := before[r.Key()]
		rows[i] = []any{
			r.RegistrationNumber, r.ProductCode, r.Substance, r.BrandName,
			r.Form, r.Dosage, r.Packaging, r.List, r.Prescription,
			r.Observation, r.Manufacturer, r.Country,
			r.RegisteredOn, r.ExpiresOn, r.ProductType, r.Status, r.Stability,
			int16(year), label, !existed,
		}
	}

	_, err := db.InsertBatch(ctx, tx, "enregistrements", registrationColumns, rows, ing.batchSize)
	return err
}

var withdrawalColumns = []string{
	"n_enreg", "code", "dci", "nom_marque", "forme", "dosage",
	"conditionnement", "liste", "prescription", "labo", "pays",
	"date_init", "type_prod", "statut", "date_retrait", "motif_retrait",
}

func (ing *Ingestor) reloadWithdrawals(ctx context.Context, tx pgx.Tx, ws []Withdrawal) error {
	if _, err := tx.Exec(ctx, "TRUNCATE TABLE retraits RESTART IDENTITY CASCADE"); err != nil {
		return eris.Wrap(err, "ingest: truncate retraits")
	}

	rows := make([][]any, len(ws))
	for i, w := range ws {
		rows[i] = []any{
			w.RegistrationNumber, w.ProductCode, w.Substance, w.BrandName,
			w.Form, w.Dosage, w.Packaging, w.List, w.Prescription,
			w.Manufacturer, w.Country, w.RegisteredOn,
			w.ProductType, w.Status, w.WithdrawnOn, w.WithdrawalReason,
		}
	}

	_, err := db.InsertBatch(ctx, tx, "retraits", withdrawalColumns, rows, ing.batchSize)
	return err
}

var nonRenewalColumns = []string{
	"n_enreg", "code", "dci", "nom_marque", "forme", "dosage",
	"conditionnement", "liste", "prescription", "labo", "pays",
	"date_init", "date_final", "type_prod", "statut",
}

func (ing *Ingestor) reloadNonRenewals(ctx context.Context, tx pgx.Tx, nrs []NonRenewal) error {
	if _, err := tx.Exec(ctx, "TRUNCATE TABLE non_renouveles RESTART IDENTITY CASCADE"); err != nil {
		return eris.Wrap(err, "ingest: truncate non_renouveles")
	}

	rows := make([][]any, len(nrs))
	for i, nr := range nrs {
		rows[i] = []any{
			nr.RegistrationNumber, nr.ProductCode, nr.Substance, nr.BrandName,
			nr.Form, nr.Dosage, nr.Packaging, nr.List, nr.Prescription,
			nr.Manufacturer, nr.Country, nr.RegisteredOn, nr.ExpiresOn,
			nr.ProductType, nr.Status,
		}
	}

	_, err := db.InsertBatch(ctx, tx, "non_renouveles", nonRenewalColumns, rows, ing.batchSize)
	return err
}

type versionRow struct {
	label         string
	referenceDate *time.Time
	total         int
	added         int
	withdrawals   int
	nonRenewals   int
	removed       int
	uploadedFile  string
}

// upsertVersion appends (or updates in place for a re-ingested label) the
// ledger row. previous_label is resolved in SQL to the most recent other
// label; excluding the row's own label keeps a re-ingestion from pointing
// at itself.
func upsertVersion(ctx context.Context, tx pgx.Tx, v versionRow) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO nomenclature_versions
			(version_label, reference_date, previous_label,
			 total_enregistrements, total_nouveautes,
			 total_retraits, total_non_renouveles, removed_count, uploaded_file)
		VALUES ($1, $2,
			(SELECT version_label FROM nomenclature_versions
			 WHERE version_label != $1
			 ORDER BY reference_date DESC NULLS LAST, created_at DESC LIMIT 1),
			$3, $4, $5, $6, $7, $8)
		ON CONFLICT (version_label) DO UPDATE SET
			reference_date        = EXCLUDED.reference_date,
			total_enregistrements = EXCLUDED.total_enregistrements,
			total_nouveautes      = EXCLUDED.total_nouveautes,
			total_retraits        = EXCLUDED.total_retraits,
			total_non_renouveles  = EXCLUDED.total_non_renouveles,
			removed_count         = EXCLUDED.removed_count,
			uploaded_file         = EXCLUDED.uploaded_file,
			created_at            = now()`,
		v.label, v.referenceDate,
		v.total, v.added, v.withdrawals, v.nonRenewals, v.removed, v.uploadedFile,
	)
	if err != nil {
		return eris.Wrapf(err, "ingest: upsert version %q", v.label)
	}
	return nil
}
