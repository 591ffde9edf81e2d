package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/pharmaveille/pharmadz/internal/auth"
	"github.com/pharmaveille/pharmadz/internal/nomenclature"
	"github.com/pharmaveille/pharmadz/internal/store"
	"github.com/pharmaveille/pharmadz/pkg/brevo"
)

const sessionCookieName = auth.CookieName

const publicSiteURL = "https://pharmadz.dz"

// WithMailer enables confirmation emails for newsletter signups.
func (s *Server) WithMailer(mailer brevo.Client, sender brevo.Contact) *Server {
	s.mailer = mailer
	s.sender = sender
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// mapError translates subsystem errors into HTTP status codes: rejected
// input is the client's fault, unparseable or invalid workbooks are
// unprocessable, unknown tokens are 404, everything else is internal.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, nomenclature.ErrInputRejected),
		errors.Is(err, store.ErrQueryTooShort),
		errors.Is(err, store.ErrInvalidEmail):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, nomenclature.ErrValidation),
		errors.Is(err, nomenclature.ErrRegistrySheetMissing),
		errors.Is(err, nomenclature.ErrRegistryHeaderMissing):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	}
	return http.StatusInternalServerError, "internal error"
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status, msg := mapError(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	writeError(w, status, msg)
}

func queryInt(r *http.Request, key, def string) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		v = def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	scope := store.SearchScope(r.URL.Query().Get("scope"))
	if scope == "" {
		scope = store.ScopeAll
	}

	hits, err := s.store.Search(r.Context(), q, scope, queryInt(r, "limit", "50"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": q, "scope": scope, "results": emptyIfNil(hits)})
}

func (s *Server) handleRegistrations(w http.ResponseWriter, r *http.Request) {
	f := store.RegistrationFilter{
		Limit:  queryInt(r, "limit", "100"),
		Offset: queryInt(r, "offset", "0"),
	}
	if y := r.URL.Query().Get("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		f.Year = &year
	}

	drugs, err := s.store.ListRegistrations(r.Context(), f)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(drugs))
}

func (s *Server) handleLatestAdditions(w http.ResponseWriter, r *http.Request) {
	drugs, err := s.store.LatestAdditions(r.Context(), queryInt(r, "limit", "50"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(drugs))
}

func (s *Server) handleRegistrationsByYear(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.RegistrationsByYear(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(counts))
}

func (s *Server) handleWithdrawals(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.ListWithdrawals(r.Context(), queryInt(r, "limit", "100"), queryInt(r, "offset", "0"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(out))
}

func (s *Server) handleNonRenewals(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.ListNonRenewals(r.Context(), queryInt(r, "limit", "100"), queryInt(r, "offset", "0"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(out))
}

func (s *Server) handleGenerics(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.GenericGroups(r.Context(), queryInt(r, "limit", "50"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(groups))
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := s.ledger.List(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(versions))
}

func (s *Server) handlePublications(w http.ResponseWriter, r *http.Request) {
	pubs, err := s.store.RecentPublications(r.Context(), queryInt(r, "limit", "50"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(pubs))
}

type subscribeRequest struct {
	Email string `json:"email"`
	Name  string `json:"nom"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := s.store.Subscribe(r.Context(), req.Email, req.Name)
	if err != nil {
		s.fail(w, err)
		return
	}

	if s.mailer != nil {
		s.sendConfirmation(*sub)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"email":   sub.Email,
		"message": "un email de confirmation vous a été envoyé",
	})
}

// sendConfirmation emails the double-opt-in link. Fire-and-forget: signup
// succeeds even when the mail relay is down, and the subscriber can
// re-submit to get a fresh token.
func (s *Server) sendConfirmation(sub store.Subscriber) {
	go func() {
		ctx, cancel := contextWithMailTimeout()
		defer cancel()

		body := fmt.Sprintf(
			"<p>Bonjour,</p><p>Confirmez votre inscription à la lettre PharmaDZ :</p>"+
				"<p><a href=%q>Confirmer mon inscription</a></p>"+
				"<p>Pour vous désinscrire : <a href=%q>se désinscrire</a></p>",
			fmt.Sprintf("%s/api/newsletter/confirm?token=%s", publicSiteURL, sub.ConfirmToken),
			fmt.Sprintf("%s/api/newsletter/unsubscribe?token=%s", publicSiteURL, sub.UnsubscribeToken),
		)

		_, err := s.mailer.SendEmail(ctx, brevo.Email{
			Sender:      s.sender,
			To:          []brevo.Contact{{Email: sub.Email}},
			Subject:     "Confirmez votre inscription",
			HTMLContent: body,
		})
		if err != nil {
			s.log.Warn("confirmation email failed",
				zap.String("email", sub.Email), zap.Error(err))
		}
	}()
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}

	sub, err := s.store.ConfirmSubscriber(r.Context(), token)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"email": sub.Email, "confirmed": true})
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}

	if err := s.store.Unsubscribe(r.Context(), token); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "désinscription effectuée"})
}

type loginRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := s.auth.Login(req.Password)
	if err != nil {
		s.fail(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.auth.TTL().Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "upload too large or malformed")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	result, err := s.ingestor.Ingest(r.Context(), data, nomenclature.Options{
		Filename:      header.Filename,
		LabelOverride: r.FormValue("version_label"),
	})
	if err != nil {
		ingestionsTotal.WithLabelValues("failure").Inc()
		s.fail(w, err)
		return
	}
	ingestionsTotal.WithLabelValues("success").Inc()

	if s.cfg.AnnounceOnNew && s.publisher != nil {
		res := *result
		go func() {
			ctx, cancel := contextWithMailTimeout()
			defer cancel()
			if err := s.publisher.VersionAnnouncement(ctx, res.VersionLabel,
				res.TotalRegistrations, res.AddedCount, res.RemovedCount); err != nil {
				s.log.Warn("version announcement failed",
					zap.String("version", res.VersionLabel), zap.Error(err))
			}
		}()
	}

	writeJSON(w, http.StatusOK, result)
}

// emptyIfNil keeps list endpoints returning [] instead of null.
func emptyIfNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
