// Package server is the HTTP boundary. It resolves caller identity, maps
// paths to lifecycle operations, and translates canonical errors to
// responses.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/deploykit/stagegate/internal/auth"
	"github.com/deploykit/stagegate/internal/lifecycle"
)

type Server struct {
	Router *chi.Mux
	Port   int
	logger *slog.Logger
}

// New builds the router with the standard middleware chain and mounts the
// stage routes.
func New(port int, logger *slog.Logger, resolver *auth.Resolver, manager *lifecycle.Manager) *Server {
	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "stagegate")
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	h := &StageHandler{manager: manager, logger: logger}
	r.Route("/v1/envs/{envName}/{stageName}", func(r chi.Router) {
		// Mutations need a resolved principal; the bare read does not.
		r.Get("/", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(PrincipalMiddleware(resolver))
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Post("/external_id", h.SetExternalID)
			r.Patch("/stage_is_sox", h.SetComplianceFlag)
			r.Post("/actions", h.PerformAction)
		})
	})

	return &Server{
		Router: r,
		Port:   port,
		logger: logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting server", slog.Int("port", s.Port))
	return http.ListenAndServe(fmt.Sprintf(":%d", s.Port), s.Router)
}
