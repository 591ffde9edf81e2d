package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/pharmaveille/pharmadz/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()

	mu   sync.RWMutex
	caps Capabilities
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with its own connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	s := &PostgresStore{pool: pool, closeFn: pool.Close}
	if err := s.Reprobe(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing pool, probing schema capabilities once.
func New(ctx context.Context, pool db.Pool) (*PostgresStore, error) {
	s := &PostgresStore{pool: pool}
	if err := s.Reprobe(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Pool returns the underlying database pool for subsystems needing direct
// access (migrations, the ingestion pipeline).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return eris.Wrap(err, "postgres: ping")
	}
	return nil
}

// Close releases the pool when this store owns it.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const drugColumns = `id, n_enreg, code, dci, nom_marque, forme, dosage,
	conditionnement, liste, prescription, obs, labo, pays,
	date_init::text, date_final::text, type_prod, statut, stabilite,
	annee, source_version, is_new_vs_previous`

func scanDrug(rows pgx.Rows) (Drug, error) {
	var d Drug
	err := rows.Scan(&d.ID, &d.RegistrationNumber, &d.ProductCode, &d.Substance,
		&d.BrandName, &d.Form, &d.Dosage, &d.Packaging, &d.List,
		&d.Prescription, &d.Observation, &d.Manufacturer, &d.Country,
		&d.RegisteredOn, &d.ExpiresOn, &d.ProductType, &d.Status, &d.Stability,
		&d.Year, &d.SourceVersion, &d.IsNew)
	if err != nil {
		return Drug{}, eris.Wrap(err, "postgres: scan registration")
	}
	return d, nil
}

// Stats aggregates landing-page counters in one round trip, plus the
// novelty count when the schema carries the diff flag.
func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM enregistrements),
			(SELECT count(*) FROM retraits),
			(SELECT count(*) FROM non_renouveles),
			(SELECT count(DISTINCT dci)  FROM enregistrements WHERE dci  IS NOT NULL),
			(SELECT count(DISTINCT labo) FROM enregistrements WHERE labo IS NOT NULL),
			(SELECT version_label FROM nomenclature_versions
			 ORDER BY reference_date DESC NULLS LAST, created_at DESC LIMIT 1)`).
		Scan(&st.TotalRegistrations, &st.TotalWithdrawals, &st.TotalNonRenewals,
			&st.DistinctSubstances, &st.DistinctManufacturers, &st.CurrentVersion)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats")
	}

	if s.Capabilities().HasIsNew {
		err = s.pool.QueryRow(ctx,
			"SELECT count(*) FROM enregistrements WHERE is_new_vs_previous").
			Scan(&st.NewInCurrentVersion)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: stats novelty count")
		}
	}
	return &st, nil
}

// ListRegistrations pages through the active registry, optionally filtered
// by nomenclature year.
func (s *PostgresStore) ListRegistrations(ctx context.Context, f RegistrationFilter) ([]Drug, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	sql := "SELECT " + drugColumns + " FROM enregistrements"
	args := []any{}
	if f.Year != nil {
		args = append(args, *f.Year)
		sql += fmt.Sprintf(" WHERE annee = $%d", len(args))
	}
	args = append(args, limit)
	sql += fmt.Sprintf(" ORDER BY nom_marque NULLS LAST, id LIMIT $%d", len(args))
	args = append(args, f.Offset)
	sql += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list registrations")
	}
	defer rows.Close()

	var drugs []Drug
	for rows.Next() {
		d, err := scanDrug(rows)
		if err != nil {
			return nil, err
		}
		drugs = append(drugs, d)
	}
	return drugs, rows.Err()
}

// LatestAdditions returns registrations new in the current version. On a
// schema predating the diff flag it returns an empty list rather than
// failing the whole page.
func (s *PostgresStore) LatestAdditions(ctx context.Context, limit int) ([]Drug, error) {
	if !s.Capabilities().HasIsNew {
		return nil, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		"SELECT "+drugColumns+" FROM enregistrements WHERE is_new_vs_previous ORDER BY nom_marque NULLS LAST, id LIMIT $1",
		limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest additions")
	}
	defer rows.Close()

	var drugs []Drug
	for rows.Next() {
		d, err := scanDrug(rows)
		if err != nil {
			return nil, err
		}
		drugs = append(drugs, d)
	}
	return drugs, rows.Err()
}

// ListWithdrawals pages through market withdrawals, most recent first.
func (s *PostgresStore) ListWithdrawals(ctx context.Context, limit, offset int) ([]WithdrawnDrug, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, n_enreg, code, dci, nom_marque, forme, dosage,
		       conditionnement, liste, prescription, labo, pays,
		       date_init::text, type_prod, statut,
		       date_retrait::text, motif_retrait
		FROM retraits
		ORDER BY date_retrait DESC NULLS LAST, id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list withdrawals")
	}
	defer rows.Close()

	var out []WithdrawnDrug
	for rows.Next() {
		var w WithdrawnDrug
		err := rows.Scan(&w.ID, &w.RegistrationNumber, &w.ProductCode, &w.Substance,
			&w.BrandName, &w.Form, &w.Dosage, &w.Packaging, &w.List,
			&w.Prescription, &w.Manufacturer, &w.Country, &w.RegisteredOn,
			&w.ProductType, &w.Status, &w.WithdrawnOn, &w.WithdrawalReason)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan withdrawal")
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ListNonRenewals pages through lapsed authorizations.
func (s *PostgresStore) ListNonRenewals(ctx context.Context, limit, offset int) ([]NonRenewedDrug, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, n_enreg, code, dci, nom_marque, forme, dosage,
		       conditionnement, liste, prescription, labo, pays,
		       date_init::text, date_final::text, type_prod, statut
		FROM non_renouveles
		ORDER BY date_final DESC NULLS LAST, id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list non-renewals")
	}
	defer rows.Close()

	var out []NonRenewedDrug
	for rows.Next() {
		var nr NonRenewedDrug
		err := rows.Scan(&nr.ID, &nr.RegistrationNumber, &nr.ProductCode, &nr.Substance,
			&nr.BrandName, &nr.Form, &nr.Dosage, &nr.Packaging, &nr.List,
			&nr.Prescription, &nr.Manufacturer, &nr.Country, &nr.RegisteredOn,
			&nr.ExpiresOn, &nr.ProductType, &nr.Status)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan non-renewal")
		}
		out = append(out, nr)
	}
	return out, rows.Err()
}

// RegistrationsByYear builds the per-year histogram of the active registry.
func (s *PostgresStore) RegistrationsByYear(ctx context.Context) ([]YearCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT annee, count(*)
		FROM enregistrements
		WHERE annee IS NOT NULL
		GROUP BY annee
		ORDER BY annee`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: registrations by year")
	}
	defer rows.Close()

	var out []YearCount
	for rows.Next() {
		var yc YearCount
		if err := rows.Scan(&yc.Year, &yc.Count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan year count")
		}
		out = append(out, yc)
	}
	return out, rows.Err()
}

// GenericGroups aggregates generic products by substance, largest families
// first. MIPH marks generics with type_prod values starting with G ("GE",
// "Gé" depending on the export).
func (s *PostgresStore) GenericGroups(ctx context.Context, limit int) ([]GenericGroup, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT dci, count(*) AS total
		FROM enregistrements
		WHERE type_prod ILIKE 'G%' AND dci IS NOT NULL
		GROUP BY dci
		HAVING count(*) > 1
		ORDER BY total DESC, dci
		LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: generic groups")
	}
	defer rows.Close()

	var out []GenericGroup
	for rows.Next() {
		var g GenericGroup
		if err := rows.Scan(&g.Substance, &g.Count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan generic group")
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
