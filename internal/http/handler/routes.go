package handler

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"docmanager/internal/http/middleware"
	"docmanager/internal/model"
	"docmanager/internal/service"
)

// Deps are the collaborators needed by the HTTP routes.
type Deps struct {
	DB            *sql.DB
	Documents     service.DocumentService
	Search        service.SearchService
	JWTSecret     []byte
	PresignExpiry time.Duration
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Swagger serves /swagger/* when set.
	Swagger fiber.Handler
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())
	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics))
	}
	if d.Swagger != nil {
		app.Get("/swagger/*", d.Swagger)
	}

	readers := middleware.RequireRole(model.RoleUser, model.RoleAdmin)
	admins := middleware.RequireRole(model.RoleAdmin)

	docs := app.Group("/api/documents", middleware.Authenticate(d.JWTSecret))
	// Static segments are registered before /:id so they are not captured as ids.
	docs.Get("/search", readers, SearchDocuments(d.Search))
	docs.Get("/filter", readers, FilterDocuments(d.Search))
	docs.Post("/", admins, UploadDocument(d.Documents))
	docs.Get("/:id", readers, GetDocument(d.Documents))
	docs.Get("/:id/download", readers, DownloadDocument(d.Documents, d.PresignExpiry))
	docs.Delete("/:id", admins, DeleteDocument(d.Documents))
}
