package store

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// ErrInvalidEmail rejects subscription attempts with unusable addresses.
var ErrInvalidEmail = eris.New("store: invalid email address")

const subscriberColumns = `id, email, nom, confirm_token, unsubscribe_token, confirmed, created_at`

// Subscribe registers an email for the newsletter with fresh confirmation
// and unsubscribe tokens. Re-subscribing an existing address rotates its
// confirmation token without resetting a confirmed subscription.
func (s *PostgresStore) Subscribe(ctx context.Context, email, name string) (*Subscriber, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !plausibleEmail(email) {
		return nil, ErrInvalidEmail
	}

	var namePtr *string
	if n := strings.TrimSpace(name); n != "" {
		namePtr = &n
	}

	var sub Subscriber
	err := s.pool.QueryRow(ctx, `
		INSERT INTO newsletter_subscribers (email, nom, confirm_token, unsubscribe_token)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET
			nom           = COALESCE(EXCLUDED.nom, newsletter_subscribers.nom),
			confirm_token = EXCLUDED.confirm_token
		RETURNING `+subscriberColumns,
		email, namePtr, uuid.NewString(), uuid.NewString()).
		Scan(&sub.ID, &sub.Email, &sub.Name, &sub.ConfirmToken,
			&sub.UnsubscribeToken, &sub.Confirmed, &sub.CreatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: subscribe")
	}
	return &sub, nil
}

// ConfirmSubscriber flips a pending subscription to confirmed by its
// confirmation token.
func (s *PostgresStore) ConfirmSubscriber(ctx context.Context, token string) (*Subscriber, error) {
	var sub Subscriber
	err := s.pool.QueryRow(ctx, `
		UPDATE newsletter_subscribers
		SET confirmed = TRUE
		WHERE confirm_token = $1
		RETURNING `+subscriberColumns, token).
		Scan(&sub.ID, &sub.Email, &sub.Name, &sub.ConfirmToken,
			&sub.UnsubscribeToken, &sub.Confirmed, &sub.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: confirm subscriber")
	}
	return &sub, nil
}

// Unsubscribe removes a subscription by its unsubscribe token.
func (s *PostgresStore) Unsubscribe(ctx context.Context, token string) error {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM newsletter_subscribers WHERE unsubscribe_token = $1", token)
	if err != nil {
		return eris.Wrap(err, "postgres: unsubscribe")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ConfirmedSubscribers lists subscribers eligible for newsletter sends.
func (s *PostgresStore) ConfirmedSubscribers(ctx context.Context) ([]Subscriber, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+subscriberColumns+" FROM newsletter_subscribers WHERE confirmed ORDER BY created_at")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list confirmed subscribers")
	}
	defer rows.Close()

	var subs []Subscriber
	for rows.Next() {
		var sub Subscriber
		err := rows.Scan(&sub.ID, &sub.Email, &sub.Name, &sub.ConfirmToken,
			&sub.UnsubscribeToken, &sub.Confirmed, &sub.CreatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan subscriber")
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// plausibleEmail is a cheap sanity check, not RFC validation. Delivery
// failures are handled by the mailer.
func plausibleEmail(email string) bool {
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(email, " \t\n")
}
