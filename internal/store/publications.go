package store

import (
	"context"

	"github.com/rotisserie/eris"
)

// RecordPublication appends one row to the publication audit trail. Failed
// publications are recorded too, with their error text.
func (s *PostgresStore) RecordPublication(ctx context.Context, p Publication) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO published_posts (kind, source_table, source_id, platform, external_id, error)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.Kind, p.SourceTable, p.SourceID, p.Platform, p.ExternalID, p.Error)
	if err != nil {
		return eris.Wrap(err, "postgres: record publication")
	}
	return nil
}

// RecentPublications lists the audit trail, newest first.
func (s *PostgresStore) RecentPublications(ctx context.Context, limit int) ([]Publication, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, kind, source_table, source_id, platform, external_id, error, published_at
		FROM published_posts
		ORDER BY published_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list publications")
	}
	defer rows.Close()

	var out []Publication
	for rows.Next() {
		var p Publication
		err := rows.Scan(&p.ID, &p.Kind, &p.SourceTable, &p.SourceID,
			&p.Platform, &p.ExternalID, &p.Error, &p.PublishedAt)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan publication")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
