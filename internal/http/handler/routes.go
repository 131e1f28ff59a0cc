package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reqdesk/internal/service"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	DB          *sql.DB
	Users       service.UserService
	Requests    service.RequestService
	Attachments service.AttachmentService
	// Today drives the "expiry date in the future" body rule.
	Today Today
	// Gatherer backs /metrics. Nil leaves the route out.
	Gatherer prometheus.Gatherer
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers only translate HTTP to service calls; the rules live in the service package.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	users := api.Group("/users")
	users.Post("", CreateUser(d.Users, d.Today))
	users.Get("/:id", GetUser(d.Users))
	users.Put("/:id", UpdateUser(d.Users, d.Today))
	users.Delete("/:id", DeleteUser(d.Users))

	requests := api.Group("/requests")
	requests.Post("", CreateRequest(d.Requests))
	requests.Get("/user/:userId", ListRequestsByUser(d.Requests))
	requests.Get("/:id", GetRequest(d.Requests))
	requests.Put("/:id", UpdateRequest(d.Requests))
	requests.Post("/:id/cancel", CancelRequest(d.Requests))
	requests.Delete("/:id", DeleteRequest(d.Requests))

	attachments := api.Group("/attachments")
	attachments.Post("/upload", UploadAttachment(d.Attachments))
	attachments.Get("/download/:id", DownloadAttachment(d.Attachments))
	attachments.Get("/:id/link", AttachmentLink(d.Attachments))
	attachments.Get("/:id", GetAttachment(d.Attachments))
	attachments.Delete("/:id", DeleteAttachment(d.Attachments))
}
