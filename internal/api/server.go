package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/complyaudit/compliance-analyzer/internal/analysis"
	"github.com/complyaudit/compliance-analyzer/internal/ingestion"
	"github.com/complyaudit/compliance-analyzer/internal/storage"
)

// runTimeout bounds one background analysis run end to end, including
// judge calls for every ambiguous batch.
const runTimeout = 10 * time.Minute

type Server struct {
	router *chi.Mux

	documents storage.DocumentRepository
	runs      storage.RunRepository
	ingest    *ingestion.Service
	pipeline  *analysis.Orchestrator
}

func NewServer(documents storage.DocumentRepository, runs storage.RunRepository, ingest *ingestion.Service, pipeline *analysis.Orchestrator) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:    r,
		documents: documents,
		runs:      runs,
		ingest:    ingest,
		pipeline:  pipeline,
	}
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	// API v1
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", s.handleIngestDocument)
			r.Get("/", s.handleListDocuments)
			r.Get("/{documentID}", s.handleGetDocument)
		})

		r.Post("/regulations", s.handleIngestRegulation)

		r.Route("/analyses", func(r chi.Router) {
			r.Post("/", s.handleStartAnalysis)
			r.Get("/{analysisID}", s.handleGetAnalysis)
			r.Get("/{analysisID}/results", s.handleGetResults)
			r.Get("/{analysisID}/gaps", s.handleGetGaps)
			r.Get("/{analysisID}/questions", s.handleGetQuestions)
			r.Get("/{analysisID}/report", s.handleGetReport)
		})
	})
}

func (s *Server) Run(addr string) error {
	return http.ListenAndServe(addr, s.router)
}

// Router exposes the handler tree for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// startRun persists the pending run, then drives it in the background
// detached from the request context.
func (s *Server) startRun(run *analysis.Run) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		s.pipeline.Execute(ctx, run)
	}()
}

// Helper to send JSON responses
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
