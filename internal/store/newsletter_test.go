package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subscriberRow(email string, confirmed bool) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "email", "nom", "confirm_token", "unsubscribe_token", "confirmed", "created_at",
	}).AddRow(int64(1), email, strPtr("Amine"), "ct-123", "ut-456", confirmed, time.Now())
}

func TestSubscribe(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := newTestStore(t, mock, fullSchema)

	mock.ExpectQuery("INSERT INTO newsletter_subscribers").
		WithArgs("amine@example.dz", strPtr("Amine"), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(subscriberRow("amine@example.dz", false))

	sub, err := s.Subscribe(context.Background(), "  Amine@Example.dz ", "Amine")
	require.NoError(t, err)
	assert.Equal(t, "amine@example.dz", sub.Email)
	assert.False(t, sub.Confirmed)
	assert.NotEmpty(t, sub.ConfirmToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscribe_InvalidEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := newTestStore(t, mock, fullSchema)

	for _, email := range []string{"", "no-at-sign", "@nodomain", "user@", "user@nodot", "sp ace@x.dz"} {
		_, err := s.Subscribe(context.Background(), email, "")
		assert.ErrorIs(t, err, ErrInvalidEmail, email)
	}
}

func TestConfirmSubscriber(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := newTestStore(t, mock, fullSchema)

	mock.ExpectQuery("UPDATE newsletter_subscribers").
		WithArgs("ct-123").
		WillReturnRows(subscriberRow("amine@example.dz", true))

	sub, err := s.ConfirmSubscriber(context.Background(), "ct-123")
	require.NoError(t, err)
	assert.True(t, sub.Confirmed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmSubscriber_UnknownToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := newTestStore(t, mock, fullSchema)

	mock.ExpectQuery("UPDATE newsletter_subscribers").
		WithArgs("bogus").
		WillReturnError(pgx.ErrNoRows)

	_, err = s.ConfirmSubscriber(context.Background(), "bogus")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnsubscribe(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := newTestStore(t, mock, fullSchema)

	mock.ExpectExec("DELETE FROM newsletter_subscribers").
		WithArgs("ut-456").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.Unsubscribe(context.Background(), "ut-456"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnsubscribe_UnknownToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := newTestStore(t, mock, fullSchema)

	mock.ExpectExec("DELETE FROM newsletter_subscribers").
		WithArgs("bogus").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, s.Unsubscribe(context.Background(), "bogus"), ErrNotFound)
}

func TestConfirmedSubscribers(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := newTestStore(t, mock, fullSchema)

	mock.ExpectQuery("WHERE confirmed").
		WillReturnRows(subscriberRow("amine@example.dz", true))

	subs, err := s.ConfirmedSubscribers(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "amine@example.dz", subs[0].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordPublication(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := newTestStore(t, mock, fullSchema)

	src := int64(9)
	table := "retraits"
	mock.ExpectExec("INSERT INTO published_posts").
		WithArgs("withdrawal_alert", &table, &src, "facebook", strPtr("fb-post-1"), (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = s.RecordPublication(context.Background(), Publication{
		Kind:        "withdrawal_alert",
		SourceTable: &table,
		SourceID:    &src,
		Platform:    "facebook",
		ExternalID:  strPtr("fb-post-1"),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
