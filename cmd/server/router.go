package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/scry-reader/internal/api"
	apiMiddleware "github.com/phrazzld/scry-reader/internal/api/middleware"
)

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	documentHandler := api.NewDocumentHandler(
		app.documentService,
		app.config.Storage.MaxUploadBytes,
		app.logger,
	)

	var db api.Pinger
	if app.db != nil {
		db = app.db
	}
	healthHandler := api.NewHealthHandler(db)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Post("/documents", documentHandler.UploadDocument)
		r.Put("/sources/{id}/document", documentHandler.ReuploadDocument)
		r.Get("/sources/{id}/extraction-status", documentHandler.GetExtractionStatus)
	})

	r.Get("/health", healthHandler.Health)

	return r
}
