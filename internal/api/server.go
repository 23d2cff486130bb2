package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	router *chi.Mux
	port   int

	results results
}

func NewServer(port int) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/rollcall/status", s.status)
	router.Get("/api/v1/rollcall/summary", s.summary)
	router.Get("/api/v1/rollcall/participants", s.participants)
	router.Get("/api/v1/rollcall/anomalies", s.anomalies)

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	state := "waiting"
	if s.results.ready() {
		state = "reconciled"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "rollcall",
		"status":  state,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
