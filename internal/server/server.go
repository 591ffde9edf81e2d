// Package server exposes the public read API and the admin surface over
// HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pharmaveille/pharmadz/internal/auth"
	"github.com/pharmaveille/pharmadz/internal/nomenclature"
	"github.com/pharmaveille/pharmadz/internal/store"
	"github.com/pharmaveille/pharmadz/pkg/brevo"
)

// Ingestor runs one upload through the ingestion pipeline.
type Ingestor interface {
	Ingest(ctx context.Context, data []byte, opts nomenclature.Options) (*nomenclature.Result, error)
}

// Ledger reads the version ledger.
type Ledger interface {
	List(ctx context.Context) ([]nomenclature.NomenclatureVersion, error)
	Current(ctx context.Context) (*nomenclature.NomenclatureVersion, error)
}

// Publisher announces freshly ingested versions. Nil disables announcing.
type Publisher interface {
	VersionAnnouncement(ctx context.Context, label string, total, added, removed int) error
}

// Config holds the server's runtime settings.
type Config struct {
	Port            int
	AllowedOrigins  []string
	RateLimitPerSec float64
	RateLimitBurst  int64
	MaxUploadBytes  int64
	AnnounceOnNew   bool
}

// Server wires the HTTP API to the application's subsystems.
type Server struct {
	cfg       Config
	store     store.Store
	ledger    Ledger
	ingestor  Ingestor
	auth      *auth.Manager
	publisher Publisher
	mailer    brevo.Client
	sender    brevo.Contact
	log       *zap.Logger
}

// contextWithMailTimeout bounds background sends detached from any request.
func contextWithMailTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// New creates a Server.
func New(cfg Config, st store.Store, ledger Ledger, ing Ingestor, am *auth.Manager, pub Publisher) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 25 << 20
	}
	return &Server{
		cfg:       cfg,
		store:     st,
		ledger:    ledger,
		ingestor:  ing,
		auth:      am,
		publisher: pub,
		log:       zap.L().With(zap.String("component", "server")),
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimit(s.cfg.RateLimitPerSec, s.cfg.RateLimitBurst))
		r.Use(s.metrics)

		r.Get("/stats", s.handleStats)
		r.Get("/search", s.handleSearch)
		r.Get("/registrations", s.handleRegistrations)
		r.Get("/registrations/latest", s.handleLatestAdditions)
		r.Get("/registrations/years", s.handleRegistrationsByYear)
		r.Get("/withdrawals", s.handleWithdrawals)
		r.Get("/nonrenewals", s.handleNonRenewals)
		r.Get("/generics", s.handleGenerics)
		r.Get("/versions", s.handleVersions)

		r.Route("/newsletter", func(r chi.Router) {
			r.Post("/", s.handleSubscribe)
			r.Get("/confirm", s.handleConfirm)
			r.Get("/unsubscribe", s.handleUnsubscribe)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Post("/upload", s.handleUpload)
				r.Get("/versions", s.handleVersions)
				r.Get("/publications", s.handlePublications)
			})
		})
	})

	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.Int("port", s.cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return eris.Wrap(err, "server: listen")
	case <-ctx.Done():
	}

	s.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}
	return nil
}
