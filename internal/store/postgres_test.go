package store

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func capsRows(cols ...string) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"column_name"})
	for _, c := range cols {
		rows.AddRow(c)
	}
	return rows
}

var fullSchema = []string{
	"id", "n_enreg", "code", "dci", "nom_marque", "forme", "dosage",
	"conditionnement", "liste", "prescription", "obs", "labo", "pays",
	"date_init", "date_final", "type_prod", "statut", "stabilite",
	"annee", "source_version", "is_new_vs_previous",
}

func newTestStore(t *testing.T, mock pgxmock.PgxPoolIface, schema []string) *PostgresStore {
	t.Helper()
	mock.ExpectQuery("information_schema.columns").
		WillReturnRows(capsRows(schema...))
	s, err := New(context.Background(), mock)
	require.NoError(t, err)
	return s
}

func drugRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "n_enreg", "code", "dci", "nom_marque", "forme", "dosage",
		"conditionnement", "liste", "prescription", "obs", "labo", "pays",
		"date_init", "date_final", "type_prod", "statut", "stabilite",
		"annee", "source_version", "is_new_vs_previous",
	})
}

func addDrugRow(rows *pgxmock.Rows, id int64, brand string, isNew bool) {
	year := int16(2025)
	rows.AddRow(id, strPtr("06/20 B 001/01"), strPtr("C001"), strPtr("PARACETAMOL"),
		strPtr(brand), strPtr("COMP"), strPtr("500MG"), strPtr("B/20"),
		strPtr("Liste II"), strPtr("PMO"), nil, strPtr("SAIDAL"), strPtr("ALGERIE"),
		strPtr("2024-03-15"), strPtr("2029-03-15"), strPtr("GE"),
		strPtr("COMMERCIALISE"), strPtr("STABLE"), &year, strPtr("Décembre 2025"), isNew)
}

func TestCapabilities_FullSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := newTestStore(t, mock, fullSchema)
	caps := s.Capabilities()
	assert.True(t, caps.HasIsNew)
	assert.True(t, caps.HasObservation)
	assert.True(t, caps.HasStability)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCapabilities_LegacySchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := newTestStore(t, mock, []string{"id", "n_enreg", "dci", "nom_marque"})
	caps := s.Capabilities()
	assert.False(t, caps.HasIsNew)
	assert.False(t, caps.HasObservation)
	assert.False(t, caps.HasStability)
}

func TestStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := newTestStore(t, mock, fullSchema)

	mock.ExpectQuery("SELECT version_label FROM nomenclature_versions").
		WillReturnRows(pgxmock.NewRows([]string{"c1", "c2", "c3", "c4", "c5", "c6"}).
			AddRow(7500, 120, 340, 1850, 95, strPtr("Décembre 2025")))
	mock.ExpectQuery("count.*FROM enregistrements WHERE is_new_vs_previous").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(45))

	st, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7500, st.TotalRegistrations)
	assert.Equal(t, 120, st.TotalWithdrawals)
	assert.Equal(t, 340, st.TotalNonRenewals)
	assert.Equal(t, 45, st.NewInCurrentVersion)
	assert.Equal(t, "Décembre 2025", *st.CurrentVersion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStats_LegacySchemaSkipsNoveltyCount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := newTestStore(t, mock, []string{"id", "dci"})

	mock.ExpectQuery("SELECT version_label FROM nomenclature_versions").
		WillReturnRows(pgxmock.NewRows([]string{"c1", "c2", "c3", "c4", "c5", "c6"}).
			AddRow(7500, 0, 0, 1850, 95, nil))

	st, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, st.NewInCurrentVersion)
	assert.Nil(t, st.CurrentVersion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearch_AllScopesUnion(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := newTestStore(t, mock, fullSchema)

	hits := pgxmock.NewRows([]string{"scope", "id", "n_enreg", "dci", "nom_marque", "forme", "dosage", "labo", "statut"}).
		AddRow("active", int64(1), strPtr("06/20 B 001/01"), strPtr("PARACETAMOL"), strPtr("DOLIPRANE"), strPtr("COMP"), strPtr("500MG"), strPtr("SAIDAL"), strPtr("COMMERCIALISE")).
		AddRow("withdrawn", int64(9), nil, strPtr("PARACETAMOL"), strPtr("ALGESIC"), nil, nil, nil, strPtr("RETIRE"))

	mock.ExpectQuery("UNION ALL").
		WithArgs("%paracetamol%", 50).
		WillReturnRows(hits)

	got, err := s.Search(context.Background(), " paracetamol ", ScopeAll, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ScopeActive, got[0].Scope)
	assert.Equal(t, ScopeWithdrawn, got[1].Scope)
	assert.Equal(t, "DOLIPRANE", *got[0].BrandName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearch_SingleScope(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := newTestStore(t, mock, fullSchema)

	mock.ExpectQuery(`SELECT 'withdrawn'.*FROM retraits`).
		WithArgs("%amoxi%", 10).
		WillReturnRows(pgxmock.NewRows([]string{"scope", "id", "n_enreg", "dci", "nom_marque", "forme", "dosage", "labo", "statut"}))

	got, err := s.Search(context.Background(), "amoxi", ScopeWithdrawn, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearch_QueryTooShort(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := newTestStore(t, mock, fullSchema)

	_, err = s.Search(context.Background(), " a ", ScopeAll, 10)
	assert.ErrorIs(t, err, ErrQueryTooShort)
}

func TestListRegistrations_YearFilter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := newTestStore(t, mock, fullSchema)

	rows := drugRows()
	addDrugRow(rows, 1, "DOLIPRANE", false)
	mock.ExpectQuery("FROM enregistrements WHERE annee = \\$1").
		WithArgs(2025, 100, 0).
		WillReturnRows(rows)

	year := 2025
	got, err := s.ListRegistrations(context.Background(), RegistrationFilter{Year: &year})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "DOLIPRANE", *got[0].BrandName)
	assert.Equal(t, int16(2025), *got[0].Year)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestAdditions_LegacySchemaReturnsEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := newTestStore(t, mock, []string{"id", "dci"})

	got, err := s.LatestAdditions(context.Background(), 10)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestAdditions(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := newTestStore(t, mock, fullSchema)

	rows := drugRows()
	addDrugRow(rows, 3, "NUROFEN", true)
	mock.ExpectQuery("WHERE is_new_vs_previous").
		WithArgs(10).
		WillReturnRows(rows)

	got, err := s.LatestAdditions(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsNew)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationsByYear(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := newTestStore(t, mock, fullSchema)

	mock.ExpectQuery("GROUP BY annee").
		WillReturnRows(pgxmock.NewRows([]string{"annee", "count"}).
			AddRow(2024, 7100).
			AddRow(2025, 7500))

	got, err := s.RegistrationsByYear(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, YearCount{Year: 2024, Count: 7100}, got[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenericGroups(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := newTestStore(t, mock, fullSchema)

	mock.ExpectQuery("type_prod ILIKE 'G%'").
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows([]string{"dci", "total"}).
			AddRow("PARACETAMOL", 42).
			AddRow("AMOXICILLINE", 31))

	got, err := s.GenericGroups(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "PARACETAMOL", got[0].Substance)
	assert.Equal(t, 42, got[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListWithdrawals(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := newTestStore(t, mock, fullSchema)

	mock.ExpectQuery("FROM retraits").
		WithArgs(100, 0).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "n_enreg", "code", "dci", "nom_marque", "forme", "dosage",
			"conditionnement", "liste", "prescription", "labo", "pays",
			"date_init", "type_prod", "statut", "date_retrait", "motif_retrait",
		}).AddRow(int64(1), strPtr("03/15 B 111/11"), nil, strPtr("AMOXICILLINE"),
			strPtr("CLAMOXYL"), nil, nil, nil, nil, nil, strPtr("GSK"), nil,
			nil, nil, nil, strPtr("2024-06-20"), strPtr("Décision ministérielle")))

	got, err := s.ListWithdrawals(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2024-06-20", *got[0].WithdrawnOn)
	assert.NoError(t, mock.ExpectationsWereMet())
}
