package nomenclature

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"n_enreg", "code", "dci", "nom_marque", "dosage"})
}

// anyArgs builds a placeholder-per-argument slice for batched inserts,
// where only the argument count is worth pinning.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

// Two registry rows of twenty columns each.
const registryInsertArgs = 2 * 20

func testWorkbook(t *testing.T) []byte {
	t.Helper()
	return workbookBytes(t, sheetSpec{
		name: "Nomenclature",
		rows: [][]any{
			registryHeader,
			registryRow("1", "06/20 B 001/01", "C001", "PARACETAMOL", "DOLIPRANE"),
			registryRow("2", "06/20 B 002/02", "C002", "IBUPROFENE", "NUROFEN"),
		},
	})
}

func TestIngest_RejectsBadInput(t *testing.T) {
	ing := NewIngestor(nil, 0, 0)

	_, err := ing.Ingest(context.Background(), nil, Options{Filename: "n.xlsx"})
	assert.ErrorIs(t, err, ErrInputRejected)

	_, err = ing.Ingest(context.Background(), []byte("data"), Options{Filename: "n.csv"})
	assert.ErrorIs(t, err, ErrInputRejected)

	_, err = ing.Ingest(context.Background(), []byte("data"), Options{Filename: "n"})
	assert.ErrorIs(t, err, ErrInputRejected)
}

func TestIngest_RejectsEmptyRegistry(t *testing.T) {
	data := workbookBytes(t, sheetSpec{
		name: "Nomenclature",
		rows: [][]any{registryHeader},
	})

	ing := NewIngestor(nil, 0, 0)
	_, err := ing.Ingest(context.Background(), data, Options{Filename: "n.xlsx"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestIngest_CommitsFullSwap(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	refDate := time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(ingestLockID).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))

	// One key survives, one disappears, one arrives: added=1, removed=1.
	mock.ExpectQuery("SELECT n_enreg, code, dci, nom_marque, dosage FROM enregistrements").
		WillReturnRows(identityRows().
			AddRow(strPtr("06/20 B 001/01"), strPtr("C001"), strPtr("PARACETAMOL"), strPtr("DOLIPRANE"), strPtr("500MG")).
			AddRow(strPtr("99/99 X 999/99"), nil, strPtr("RETIRE"), nil, nil))

	mock.ExpectExec("TRUNCATE TABLE enregistrements").
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectExec(`INSERT INTO "enregistrements"`).
		WithArgs(anyArgs(registryInsertArgs)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectExec("TRUNCATE TABLE retraits").
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectExec("TRUNCATE TABLE non_renouveles").
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))

	mock.ExpectExec("INSERT INTO nomenclature_versions").
		WithArgs("Décembre 2025", &refDate, 2, 1, 0, 0, 1, "Nomenclature_Decembre_2025.xlsx").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	ing := NewIngestor(mock, 0, 0)
	res, err := ing.Ingest(context.Background(), testWorkbook(t), Options{
		Filename: "Nomenclature_Decembre_2025.xlsx",
	})
	require.NoError(t, err)

	assert.Equal(t, "Décembre 2025", res.VersionLabel)
	assert.Equal(t, 2, res.TotalRegistrations)
	assert.Equal(t, 1, res.AddedCount)
	assert.Equal(t, 1, res.RemovedCount)
	assert.Equal(t, 0, res.TotalWithdrawals)
	assert.Equal(t, 0, res.TotalNonRenewals)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIngest_ReingestionIsIdempotentOnCounts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	refDate := time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(ingestLockID).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))

	// The active dataset already holds exactly the uploaded snapshot.
	mock.ExpectQuery("SELECT n_enreg, code, dci, nom_marque, dosage FROM enregistrements").
		WillReturnRows(identityRows().
			AddRow(strPtr("06/20 B 001/01"), strPtr("C001"), strPtr("PARACETAMOL"), strPtr("DOLIPRANE"), strPtr("500MG")).
			AddRow(strPtr("06/20 B 002/02"), strPtr("C002"), strPtr("IBUPROFENE"), strPtr("NUROFEN"), strPtr("500MG")))

	mock.ExpectExec("TRUNCATE TABLE enregistrements").
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectExec(`INSERT INTO "enregistrements"`).
		WithArgs(anyArgs(registryInsertArgs)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectExec("TRUNCATE TABLE retraits").
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectExec("TRUNCATE TABLE non_renouveles").
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectExec("INSERT INTO nomenclature_versions").
		WithArgs("Décembre 2025", &refDate, 2, 0, 0, 0, 0, "Nomenclature_Decembre_2025.xlsx").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	ing := NewIngestor(mock, 0, 0)
	res, err := ing.Ingest(context.Background(), testWorkbook(t), Options{
		Filename: "Nomenclature_Decembre_2025.xlsx",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.AddedCount)
	assert.Equal(t, 0, res.RemovedCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIngest_RollsBackOnMidSwapFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(ingestLockID).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT n_enreg, code, dci, nom_marque, dosage FROM enregistrements").
		WillReturnRows(identityRows())
	mock.ExpectExec("TRUNCATE TABLE enregistrements").
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectExec(`INSERT INTO "enregistrements"`).
		WithArgs(anyArgs(registryInsertArgs)...).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	ing := NewIngestor(mock, 0, 0)
	_, err = ing.Ingest(context.Background(), testWorkbook(t), Options{
		Filename: "Nomenclature_Decembre_2025.xlsx",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIngest_LabelOverride(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(ingestLockID).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT n_enreg, code, dci, nom_marque, dosage FROM enregistrements").
		WillReturnRows(identityRows())
	mock.ExpectExec("TRUNCATE TABLE enregistrements").
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectExec(`INSERT INTO "enregistrements"`).
		WithArgs(anyArgs(registryInsertArgs)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectExec("TRUNCATE TABLE retraits").
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectExec("TRUNCATE TABLE non_renouveles").
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))

	// No 20xx year in the override, so reference_date is null.
	mock.ExpectExec("INSERT INTO nomenclature_versions").
		WithArgs("Edition Spéciale", (*time.Time)(nil), 2, 2, 0, 0, 0, "upload.xlsx").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	ing := NewIngestor(mock, 0, 0)
	res, err := ing.Ingest(context.Background(), testWorkbook(t), Options{
		Filename:      "upload.xlsx",
		LabelOverride: "Edition Spéciale",
	})
	require.NoError(t, err)
	assert.Equal(t, "Edition Spéciale", res.VersionLabel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDiffCounts(t *testing.T) {
	before := map[string]struct{}{"a": {}, "b": {}, "c": {}}
	after := map[string]struct{}{"b": {}, "c": {}, "d": {}, "e": {}}

	added, removed := diffCounts(before, after)
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, removed)

	added, removed = diffCounts(nil, map[string]struct{}{"x": {}})
	assert.Equal(t, 1, added)
	assert.Equal(t, 0, removed)
}
