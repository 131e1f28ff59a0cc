package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"reqdesk/docs"
	"reqdesk/internal/config"
	"reqdesk/internal/database"
	"reqdesk/internal/database/migration"
	handlers "reqdesk/internal/http/handler"
	"reqdesk/internal/http/middleware"
	"reqdesk/internal/logger"
	"reqdesk/internal/otel"
	"reqdesk/internal/repository/postgres"
	"reqdesk/internal/service"
	"reqdesk/internal/status"
	"reqdesk/internal/storage"
)

// @title Request Desk API
// @version 1.0
// @description Users, requests and their attachments.
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(logger.Options{ServiceName: "reqdesk"})
		bootLog.Error(context.Background(), "config_invalid", err)
		os.Exit(1)
	}
	loc, _ := cfg.Location()

	log := logger.New(logger.Options{
		ServiceName: "reqdesk",
		Level:       logger.ParseLevel(cfg.LogLevel),
		Format:      cfg.LogFormat,
		Location:    loc,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, loc, log); err != nil {
		log.Error(ctx, "server_exit", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig, loc *time.Location, log *logger.Logger) error {
	shutdownTracing, err := otel.Init(ctx, cfg.Tracing, log)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := migration.EnsureMigrated(ctx, db, log); err != nil {
			return err
		}
	}

	objStore, err := storage.NewMinIO(ctx, cfg.MinIO)
	if err != nil {
		return err
	}

	users := postgres.NewUserPostgres(db)
	requests := postgres.NewRequestPostgres(db)
	attachments := postgres.NewAttachmentPostgres(db)
	attachmentTypes := postgres.NewAttachmentTypePostgres(db)
	tx := database.NewTransactor(db)

	gate := service.NewEligibilityGate(loc, time.Now)
	validator := service.NewCompositionValidator(attachments, cfg.Lifecycle.MinAttachments, cfg.Lifecycle.StrictAttachments)

	userSvc := service.NewUserService(users, tx)
	requestSvc := service.NewRequestService(service.RequestServiceDeps{
		Requests:  requests,
		Users:     users,
		Statuses:  status.NewCatalog(),
		Gate:      gate,
		Validator: validator,
		Tx:        tx,
	})
	attachmentSvc := service.NewAttachmentService(objStore, attachments, attachmentTypes, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := database.RegisterPoolMetrics(reg, db, cfg.Database.Name); err != nil {
		return err
	}
	metrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    cfg.Upload.MaxBytes,
	})

	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(metrics.Handler())

	handlers.RegisterRoutes(app, handlers.Deps{
		DB:          db,
		Users:       userSvc,
		Requests:    requestSvc,
		Attachments: attachmentSvc,
		Today:       gate.Today,
		Gatherer:    reg,
	})

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	errCh := make(chan error, 1)
	go func() {
		log.Zerolog(ctx).Info().Str("port", cfg.Port).Msg("server_starting")
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(context.Background(), "server_shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}
