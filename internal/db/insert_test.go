package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// anyArgs builds a placeholder-per-argument slice for expectations where
// only the argument count matters.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestInsertBatch_EmptyRows(t *testing.T) {
	n, err := InsertBatch(context.TODO(), nil, "retraits", []string{"a"}, nil, 10)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestInsertBatch_NoColumns(t *testing.T) {
	_, err := InsertBatch(context.TODO(), nil, "retraits", nil, [][]any{{1}}, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns")
}

func TestInsertBatch_SingleChunk(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO "retraits"`).
		WithArgs("a1", "b1", "a2", "b2").
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	rows := [][]any{{"a1", "b1"}, {"a2", "b2"}}
	n, err := InsertBatch(context.Background(), mock, "retraits", []string{"x", "y"}, rows, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBatch_ChunksByBatchSize(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// 5 single-column rows with batch size 2 -> chunks of 2 + 2 + 1 args.
	mock.ExpectExec(`INSERT INTO "enregistrements"`).WithArgs(anyArgs(2)...).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectExec(`INSERT INTO "enregistrements"`).WithArgs(anyArgs(2)...).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectExec(`INSERT INTO "enregistrements"`).WithArgs(anyArgs(1)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rows := make([][]any, 5)
	for i := range rows {
		rows[i] = []any{i}
	}
	n, err := InsertBatch(context.Background(), mock, "enregistrements", []string{"id"}, rows, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBatch_RowWidthMismatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := [][]any{{"a", "b"}, {"only-one"}}
	_, err = InsertBatch(context.Background(), mock, "retraits", []string{"x", "y"}, rows, 200)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1 has 1 values, want 2")
}

func TestInsertBatch_ExecError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO "retraits"`).WithArgs(anyArgs(1)...).WillReturnError(fmt.Errorf("connection reset"))

	_, err = InsertBatch(context.Background(), mock, "retraits", []string{"x"}, [][]any{{1}}, 200)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INSERT INTO retraits")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSanitizeTable_SchemaQualified(t *testing.T) {
	assert.Equal(t, `"public"."retraits"`, sanitizeTable("public.retraits"))
	assert.Equal(t, `"retraits"`, sanitizeTable("retraits"))
}
