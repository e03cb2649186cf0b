// Package web serves the timetable as an HTML page with a small JSON API.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/jwulff/timetable/internal/store"
)

//go:embed templates/*.html
var templates embed.FS

// Server renders and edits one store over HTTP.
type Server struct {
	store  *store.Store
	logger *zap.Logger
	tmpl   *template.Template
	router *mux.Router
}

// New builds the server and its routes.
func New(st *store.Store, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tmpl, err := template.ParseFS(templates, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{store: st, logger: logger, tmpl: tmpl}
	s.router = newRouter(logger)
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router

	r.HandleFunc("/", s.index).Methods(http.MethodGet)
	r.HandleFunc("/lectures", s.createLecture).Methods(http.MethodPost)
	r.HandleFunc("/lectures/{id}", s.editLecture).Methods(http.MethodPost)
	r.HandleFunc("/lectures/{id}/delete", s.deleteLecture).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)
	api.HandleFunc("/timetable", s.apiTimetable).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/days/{day}/lectures", s.apiInsert).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/days/{day}/lectures/{id}", s.apiReplace).Methods(http.MethodPut, http.MethodOptions)
	api.HandleFunc("/days/{day}/lectures/{id}", s.apiDelete).Methods(http.MethodDelete)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "index.html", data); err != nil {
		s.logger.Error("render page", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
