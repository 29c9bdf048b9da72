// Package api exposes the fit pipeline as a JSON service.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"aalr/app"
	"aalr/internal"
	"aalr/internal/ensemble"
	"aalr/internal/refine"
)

// Server routes fit requests to the FitService
type Server struct {
	router           *chi.Mux
	fits             *app.FitService
	refineDefaults   refine.Options
	ensembleDefaults ensemble.Options
	log              *internal.Logger
}

// NewServer creates the API server. The default options seed every request;
// payload fields override them per call.
func NewServer(fits *app.FitService, refineDefaults refine.Options, ensembleDefaults ensemble.Options) *Server {
	s := &Server{
		router:           chi.NewRouter(),
		fits:             fits,
		refineDefaults:   refineDefaults,
		ensembleDefaults: ensembleDefaults,
		log:              internal.DefaultLogger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Router returns the HTTP handler for serving
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Post("/api/fit", s.handleFit)
	s.router.Get("/api/runs", s.handleListRuns)
	s.router.Get("/api/runs/{id}", s.handleGetRun)
}
