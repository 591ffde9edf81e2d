package store

import (
	"context"

	"github.com/rotisserie/eris"
)

// Capabilities records which optional columns the live schema carries.
// Deployments migrated from older datasets can lack the diff flag or the
// stability column; read paths degrade instead of erroring. Probed once at
// construction and cached until Reprobe.
type Capabilities struct {
	HasIsNew       bool
	HasObservation bool
	HasStability   bool
}

// Capabilities returns the cached schema probe.
func (s *PostgresStore) Capabilities() Capabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.caps
}

// Reprobe re-reads the schema, invalidating the capability cache. Called
// after migrations run.
func (s *PostgresStore) Reprobe(ctx context.Context) error {
	rows, err := s.pool.Query(ctx,
		"SELECT column_name FROM information_schema.columns WHERE table_name = 'enregistrements'")
	if err != nil {
		return eris.Wrap(err, "postgres: probe schema capabilities")
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return eris.Wrap(err, "postgres: scan column name")
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return eris.Wrap(err, "postgres: probe schema capabilities")
	}

	s.mu.Lock()
	s.caps = Capabilities{
		HasIsNew:       cols["is_new_vs_previous"],
		HasObservation: cols["obs"],
		HasStability:   cols["stabilite"],
	}
	s.mu.Unlock()
	return nil
}
