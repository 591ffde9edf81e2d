package publish

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pharmaveille/pharmadz/internal/store"
	"github.com/pharmaveille/pharmadz/pkg/brevo"
	"github.com/pharmaveille/pharmadz/pkg/facebook"
)

// Publication kinds and platforms recorded in the audit trail.
const (
	KindWithdrawalAlert     = "withdrawal_alert"
	KindVersionAnnouncement = "version_announcement"
	KindWeeklyRecap         = "weekly_recap"

	PlatformFacebook   = "facebook"
	PlatformNewsletter = "newsletter"
)

// Store is the slice of persistence the publisher needs.
type Store interface {
	ConfirmedSubscribers(ctx context.Context) ([]store.Subscriber, error)
	RecordPublication(ctx context.Context, p Publication) error
	Stats(ctx context.Context) (*store.Stats, error)
	ListWithdrawals(ctx context.Context, limit, offset int) ([]store.WithdrawnDrug, error)
}

// Publication aliases the store row type for callers of this package.
type Publication = store.Publication

const publishTimeout = 30 * time.Second

// Publisher fans announcements out to every configured platform. Platforms
// are independent: one failing does not block the others, and every
// attempt, failed or not, lands in the audit trail.
type Publisher struct {
	store  Store
	fb     facebook.Client
	mailer brevo.Client
	sender brevo.Contact
	log    *zap.Logger
}

// New creates a Publisher. Nil fb or mailer disables that platform.
func New(st Store, fb facebook.Client, mailer brevo.Client, senderEmail, senderName string) *Publisher {
	return &Publisher{
		store:  st,
		fb:     fb,
		mailer: mailer,
		sender: brevo.Contact{Email: senderEmail, Name: senderName},
		log:    zap.L().With(zap.String("component", "publish")),
	}
}

// WithdrawalAlert announces one market withdrawal.
func (p *Publisher) WithdrawalAlert(ctx context.Context, w store.WithdrawnDrug) error {
	table := "retraits"
	subject := fmt.Sprintf("Retrait du marché : %s", orUnknown(w.BrandName))
	return p.fanOut(ctx, KindWithdrawalAlert, &table, &w.ID,
		FormatWithdrawalAlert(w), subject)
}

// VersionAnnouncement announces a freshly ingested nomenclature version.
func (p *Publisher) VersionAnnouncement(ctx context.Context, label string, total, added, removed int) error {
	subject := fmt.Sprintf("Nomenclature %s publiée", label)
	return p.fanOut(ctx, KindVersionAnnouncement, nil, nil,
		FormatVersionAnnouncement(label, total, added, removed), subject)
}

// WeeklyRecap builds and publishes the scheduled weekly summary.
func (p *Publisher) WeeklyRecap(ctx context.Context) error {
	stats, err := p.store.Stats(ctx)
	if err != nil {
		return eris.Wrap(err, "publish: weekly recap stats")
	}
	withdrawals, err := p.store.ListWithdrawals(ctx, 5, 0)
	if err != nil {
		return eris.Wrap(err, "publish: weekly recap withdrawals")
	}
	return p.fanOut(ctx, KindWeeklyRecap, nil, nil,
		FormatWeeklyRecap(*stats, withdrawals), "Le point de la semaine")
}

// fanOut publishes message to every enabled platform concurrently. Errors
// are aggregated; the audit row for each platform records its own outcome.
func (p *Publisher) fanOut(ctx context.Context, kind string, srcTable *string, srcID *int64, message, subject string) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	if p.fb != nil {
		g.Go(func() error {
			resp, err := p.fb.PublishPost(ctx, message)
			var extID *string
			if resp != nil {
				extID = &resp.ID
			}
			p.record(ctx, kind, srcTable, srcID, PlatformFacebook, extID, err)
			if err != nil {
				return eris.Wrap(err, "publish: facebook")
			}
			return nil
		})
	}

	if p.mailer != nil {
		g.Go(func() error {
			err := p.sendNewsletter(ctx, subject, message)
			p.record(ctx, kind, srcTable, srcID, PlatformNewsletter, nil, err)
			if err != nil {
				return eris.Wrap(err, "publish: newsletter")
			}
			return nil
		})
	}

	return g.Wait()
}

func (p *Publisher) sendNewsletter(ctx context.Context, subject, message string) error {
	subs, err := p.store.ConfirmedSubscribers(ctx)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		p.log.Debug("no confirmed subscribers, skipping newsletter send")
		return nil
	}

	to := make([]brevo.Contact, len(subs))
	for i, s := range subs {
		to[i] = brevo.Contact{Email: s.Email}
		if s.Name != nil {
			to[i].Name = *s.Name
		}
	}

	html := "<pre style=\"font-family:inherit;white-space:pre-wrap\">" +
		strings.ReplaceAll(message, "<", "&lt;") + "</pre>"

	_, err = p.mailer.SendEmail(ctx, brevo.Email{
		Sender:      p.sender,
		To:          to,
		Subject:     subject,
		HTMLContent: html,
	})
	return err
}

// record writes the audit row. Audit failures are logged, never escalated:
// a lost audit row must not turn a successful post into an error.
func (p *Publisher) record(ctx context.Context, kind string, srcTable *string, srcID *int64, platform string, externalID *string, pubErr error) {
	var errText *string
	if pubErr != nil {
		t := pubErr.Error()
		errText = &t
	}
	err := p.store.RecordPublication(ctx, Publication{
		Kind:        kind,
		SourceTable: srcTable,
		SourceID:    srcID,
		Platform:    platform,
		ExternalID:  externalID,
		Error:       errText,
	})
	if err != nil {
		p.log.Warn("failed to record publication",
			zap.String("kind", kind),
			zap.String("platform", platform),
			zap.Error(err))
	}
}
