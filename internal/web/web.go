package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"eventcal/internal/config"
	"eventcal/internal/loader"
	appLog "eventcal/internal/log"
	"eventcal/internal/model"
	"eventcal/internal/report"
	"eventcal/internal/surface"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Server serves the calendar page, its live websocket channel and a small
// JSON API.
type Server struct {
	cfg    *config.Config
	loader *loader.Loader
	hub    *Hub
	router chi.Router
	page   *template.Template
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, l *loader.Loader) (*Server, error) {
	page, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:    cfg,
		loader: l,
		hub:    NewHub(l),
		page:   page,
	}
	s.setupRoutes()
	return s, nil
}

// Hub returns the registry of live page sessions.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		r.Use(s.basicAuthMiddleware)
	}

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
	} else {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))
	}

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleIndex)
	r.Get("/ws", s.handleWS)
	r.Get("/api/events", s.handleEvents)

	s.router = r
}

// StartServer serves HTTP on cfg.Listen until ctx is canceled, then shuts
// down gracefully.
func (s *Server) StartServer(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.hub.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware guards everything except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="eventcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type pageData struct {
	LoaderID  string
	ContentID string
	SourceID  string
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := pageData{
		LoaderID:  surface.LoaderID,
		ContentID: surface.ContentID,
		SourceID:  surface.SourceID,
	}
	if err := s.page.ExecuteTemplate(w, "index.html", data); err != nil {
		appLog.Error("failed to render page", err)
	}
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Events []model.RenderableEvent `json:"events"`
}

// errorResponse carries the same messages the page would alert.
type errorResponse struct {
	Error    string   `json:"error"`
	Messages []string `json:"messages"`
}

// handleEvents runs one fetch+build without the page lifecycle.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.loader.Fetch(r.Context())
	if err != nil {
		appLog.Error("api events: load failed", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:    "failed to load events",
			Messages: report.Messages(err),
		})
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: events})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}
