package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pharmaveille/pharmadz/internal/auth"
	"github.com/pharmaveille/pharmadz/internal/nomenclature"
	"github.com/pharmaveille/pharmadz/internal/publish"
	"github.com/pharmaveille/pharmadz/internal/server"
	"github.com/pharmaveille/pharmadz/pkg/brevo"
	"github.com/pharmaveille/pharmadz/pkg/facebook"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx, "serve")
		if err != nil {
			return err
		}
		defer st.Close()

		am, err := auth.New(cfg.Admin.SessionSecret, cfg.Admin.Password,
			time.Duration(cfg.Admin.SessionTTLHours)*time.Hour)
		if err != nil {
			return err
		}

		ledger := nomenclature.NewVersionLedger(st.Pool())
		ingestor := nomenclature.NewIngestor(st.Pool(), cfg.Ingest.BatchSize,
			time.Duration(cfg.Ingest.TimeoutSecs)*time.Second)

		var fb facebook.Client
		if cfg.Facebook.PageID != "" && cfg.Facebook.AccessToken != "" {
			var opts []facebook.Option
			if cfg.Facebook.BaseURL != "" {
				opts = append(opts, facebook.WithBaseURL(cfg.Facebook.BaseURL))
			}
			fb = facebook.NewClient(cfg.Facebook.PageID, cfg.Facebook.AccessToken, opts...)
		}

		var mailer brevo.Client
		if cfg.Newsletter.BrevoKey != "" {
			var opts []brevo.Option
			if cfg.Newsletter.BrevoBaseURL != "" {
				opts = append(opts, brevo.WithBaseURL(cfg.Newsletter.BrevoBaseURL))
			}
			mailer = brevo.NewClient(cfg.Newsletter.BrevoKey, opts...)
		}

		pub := publish.New(st, fb, mailer,
			cfg.Newsletter.SenderEmail, cfg.Newsletter.SenderName)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := server.New(server.Config{
			Port:            port,
			AllowedOrigins:  cfg.Server.AllowedOrigins,
			RateLimitPerSec: cfg.Server.RateLimitPerSec,
			RateLimitBurst:  cfg.Server.RateLimitBurst,
			MaxUploadBytes:  cfg.Ingest.MaxUploadMiB << 20,
			AnnounceOnNew:   cfg.Ingest.AnnounceOnNew,
		}, st, ledger, ingestor, am, pub)
		if mailer != nil {
			srv.WithMailer(mailer, brevo.Contact{
				Email: cfg.Newsletter.SenderEmail,
				Name:  cfg.Newsletter.SenderName,
			})
		}

		if fb != nil || mailer != nil {
			sched := gocron.NewScheduler(time.UTC)
			_, err := sched.Cron(cfg.Newsletter.RecapCron).Do(func() {
				recapCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				defer cancel()
				if err := pub.WeeklyRecap(recapCtx); err != nil {
					zap.L().Warn("weekly recap failed", zap.Error(err))
				}
			})
			if err != nil {
				return err
			}
			sched.StartAsync()
			defer sched.Stop()
			zap.L().Info("weekly recap scheduled",
				zap.String("cron", cfg.Newsletter.RecapCron))
		}

		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
