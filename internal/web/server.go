// Package web serves the operator UI: login, breaker status and the
// reservation ledger, plus the Prometheus scrape endpoint.
package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/concierge/internal/domain/reservation"
	"github.com/example/concierge/internal/resilience"
	"github.com/example/concierge/internal/store"
)

//go:embed templates/*.html
var fs embed.FS

type Server struct {
	Sessions     *Sessions
	Users        *store.Users
	Reservations *store.Reservations
	Breakers     *resilience.Registry
	Metrics      http.Handler
	Log          zerolog.Logger
}

type tmplData struct {
	Title string
	User  string
	Flash string

	Breakers     []resilience.BreakerStatus
	Reservations []reservation.Reservation
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", s.Metrics)

	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.handleLogout)

	mux.Handle("/", s.Sessions.RequireAuth(http.HandlerFunc(s.handleStatus)))
	mux.Handle("/reservations", s.Sessions.RequireAuth(http.HandlerFunc(s.handleReservations)))

	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	user, _ := UsernameFromContext(r.Context())
	s.render(w, "templates/status.html", tmplData{
		Title:    "Status",
		User:     user,
		Breakers: s.Breakers.Snapshot(),
	})
}

func (s *Server) handleReservations(w http.ResponseWriter, r *http.Request) {
	user, _ := UsernameFromContext(r.Context())
	rs, err := s.Reservations.ListAll(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.render(w, "templates/reservations.html", tmplData{
		Title:        "Reservations",
		User:         user,
		Reservations: rs,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.render(w, "templates/login.html", tmplData{Title: "Login"})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		username := strings.TrimSpace(r.FormValue("username"))
		password := r.FormValue("password")
		u, err := s.Users.Authenticate(r.Context(), username, password)
		if err != nil {
			s.render(w, "templates/login.html", tmplData{Title: "Login", Flash: "Invalid username/password"})
			return
		}
		if err := s.Sessions.Set(w, r, u.Username); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/", http.StatusFound)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Sessions.Clear(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) render(w http.ResponseWriter, name string, data tmplData) {
	t, err := template.ParseFS(fs, "templates/base.html", name)
	if err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "base", data); err != nil {
		s.Log.Error().Err(err).Str("template", name).Msg("render failed")
	}
}

func Start(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return srv.ListenAndServe()
}
