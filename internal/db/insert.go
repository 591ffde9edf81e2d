package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// DefaultBatchSize bounds how many rows go into one multi-VALUES INSERT.
// 200 rows at 20 columns stays well under Postgres' 65535 bind parameters.
const DefaultBatchSize = 200

// InsertBatch inserts rows into table using chunked multi-VALUES statements.
// It runs on an Executor so the caller controls the transaction boundary:
// a failed chunk fails the whole enclosing transaction, never part of one.
func InsertBatch(ctx context.Context, ex Executor, table string, columns []string, rows [][]any, batchSize int) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, eris.New("db: insert: no columns specified")
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ",
		sanitizeTable(table), quoteAndJoin(columns))

	var total int64
	width := len(columns)

	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		placeholders := make([]string, len(batch))
		args := make([]any, 0, len(batch)*width)
		for i, row := range batch {
			if len(row) != width {
				return total, eris.Errorf("db: insert: row %d has %d values, want %d", start+i, len(row), width)
			}
			ph := make([]string, width)
			for j := range row {
				ph[j] = fmt.Sprintf("$%d", i*width+j+1)
			}
			placeholders[i] = "(" + strings.Join(ph, ",") + ")"
			args = append(args, row...)
		}

		tag, err := ex.Exec(ctx, prefix+strings.Join(placeholders, ","), args...)
		if err != nil {
			return total, eris.Wrapf(err, "db: INSERT INTO %s", table)
		}
		total += tag.RowsAffected()
	}

	return total, nil
}

// sanitizeTable handles schema-qualified table names like "public.retraits".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
