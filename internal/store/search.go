package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrQueryTooShort rejects searches below the minimum query length.
var ErrQueryTooShort = eris.New("store: search query must be at least 2 characters")

const minQueryLen = 2

const (
	searchActive = `SELECT 'active', id, n_enreg, dci, nom_marque, forme, dosage, labo, statut
		FROM enregistrements
		WHERE dci ILIKE $1 OR nom_marque ILIKE $1 OR n_enreg ILIKE $1 OR labo ILIKE $1`
	searchWithdrawn = `SELECT 'withdrawn', id, n_enreg, dci, nom_marque, forme, dosage, labo, statut
		FROM retraits
		WHERE dci ILIKE $1 OR nom_marque ILIKE $1 OR n_enreg ILIKE $1 OR labo ILIKE $1`
	searchNonRenewed = `SELECT 'nonrenewed', id, n_enreg, dci, nom_marque, forme, dosage, labo, statut
		FROM non_renouveles
		WHERE dci ILIKE $1 OR nom_marque ILIKE $1 OR n_enreg ILIKE $1 OR labo ILIKE $1`
)

// Search runs a case-insensitive substring search across the record
// tables, tagging each hit with its origin. Scope narrows the search to a
// single table; ScopeAll unions all three.
func (s *PostgresStore) Search(ctx context.Context, query string, scope SearchScope, limit int) ([]SearchHit, error) {
	q := strings.TrimSpace(query)
	if len([]rune(q)) < minQueryLen {
		return nil, ErrQueryTooShort
	}
	if !scope.Valid() {
		scope = ScopeAll
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var branches []string
	switch scope {
	case ScopeActive:
		branches = []string{searchActive}
	case ScopeWithdrawn:
		branches = []string{searchWithdrawn}
	case ScopeNonRenewed:
		branches = []string{searchNonRenewed}
	default:
		branches = []string{searchActive, searchWithdrawn, searchNonRenewed}
	}

	sql := strings.Join(branches, "\n\t\tUNION ALL\n\t\t") +
		"\n\t\tORDER BY nom_marque NULLS LAST LIMIT $2"

	rows, err := s.pool.Query(ctx, sql, "%"+q+"%", limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search")
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		var scope string
		err := rows.Scan(&scope, &h.ID, &h.RegistrationNumber, &h.Substance,
			&h.BrandName, &h.Form, &h.Dosage, &h.Manufacturer, &h.Status)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan search hit")
		}
		h.Scope = SearchScope(scope)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
