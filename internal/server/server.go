// Package server provides the HTTP REST API for operating the pipeline:
// reviewing ideas, acting on them, and triggering jobs.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camila/ideaforge/internal/admin"
	"github.com/camila/ideaforge/internal/db"
	"github.com/camila/ideaforge/internal/pipeline"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	db         *db.DB
	gateway    *admin.Gateway
	jobs       *pipeline.Registry
}

// Config holds server configuration
type Config struct {
	Addr string
}

// New creates a new server instance around already-wired components.
func New(cfg Config, database *db.DB, gateway *admin.Gateway, jobs *pipeline.Registry) *Server {
	s := &Server{
		db:      database,
		gateway: gateway,
		jobs:    jobs,
	}

	mux := http.NewServeMux()

	// Idea review endpoints
	mux.HandleFunc("GET /ideas", s.handleListIdeas)
	mux.HandleFunc("GET /ideas/{id}", s.handleGetIdea)
	mux.HandleFunc("POST /ideas/{id}/advance", s.handleAdvance)
	mux.HandleFunc("POST /ideas/{id}/reject", s.handleReject)
	mux.HandleFunc("POST /ideas/{id}/refine", s.handleRefine)

	// Bucket and category review endpoints
	mux.HandleFunc("GET /buckets", s.handleListBuckets)
	mux.HandleFunc("GET /categories", s.handleListCategories)

	// Job endpoints
	mux.HandleFunc("GET /jobs", s.handleListJobs)
	mux.HandleFunc("POST /jobs/{name}/run", s.handleRunJob)
	mux.HandleFunc("GET /jobs/runs", s.handleListJobRuns)
	mux.HandleFunc("GET /jobs/runs/{run_id}", s.handleGetJobRun)

	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.withLogging(s.withCORS(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins listening for requests and blocks until interrupted.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Println("Server stopped")
	return nil
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var actionErr *admin.ActionError
	switch {
	case errors.Is(err, db.ErrNotFound), errors.Is(err, pipeline.ErrUnknownJob):
		return http.StatusNotFound
	case errors.Is(err, db.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, db.ErrInvalidTransition), errors.Is(err, pipeline.ErrNotTriggerable):
		return http.StatusUnprocessableEntity
	case errors.As(err, &actionErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// domainError writes an error response with the status mapped from the
// domain error taxonomy.
func (s *Server) domainError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("server: internal error: %v", err)
		s.errorResponse(w, status, "internal error")
		return
	}
	s.errorResponse(w, status, err.Error())
}
