package main

import (
	"context"
	"errors"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docmanager/docs"
	"docmanager/internal/config"
	"docmanager/internal/database"
	"docmanager/internal/database/migration"
	"docmanager/internal/extractor"
	handlers "docmanager/internal/http/handler"
	"docmanager/internal/http/middleware"
	"docmanager/internal/otel"
	"docmanager/internal/repository/postgres"
	"docmanager/internal/service"
	"docmanager/internal/storage"
)

const (
	shutdownTimeout = 15 * time.Second
	// multipartOverhead leaves room for form boundaries and the author field.
	multipartOverhead = 1 << 20
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET must be set")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting document manager",
		zap.String("env", cfg.Env),
		zap.String("port", cfg.Port),
		zap.String("timezone", cfg.Timezone),
		zap.Bool("archive_enabled", cfg.MinIO.Enabled()),
	)

	shutdownTracing, err := otel.Init(ctx, serviceName, log)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
			return err
		}
	}

	var store storage.Storage
	if cfg.MinIO.Enabled() {
		if store, err = storage.NewMinIO(ctx, cfg.MinIO); err != nil {
			return err
		}
		log.Info("object storage ready", zap.String("bucket", cfg.MinIO.Bucket))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	extractMetrics, err := extractor.NewMetrics(reg)
	if err != nil {
		return err
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg, "/healthz", "/health")
	if err != nil {
		return err
	}

	docRepo := postgres.NewDocumentPostgres(db)
	ex := extractor.NewInstrumented(extractor.NewRegistry(), extractMetrics, log)

	docSvc := service.NewDocumentService(service.DocumentDeps{
		Admission: service.NewFileAdmission(
			service.NewAdmissionPolicy(cfg.Ingestion.MaxFileSize, cfg.Ingestion.AllowedContentTypes),
		),
		Gateway:       service.NewExtractionGateway(ex, cfg.Ingestion.TempDir, log),
		Users:         postgres.NewUserPostgres(db),
		Repo:          docRepo,
		Store:         store,
		PresignExpiry: cfg.MinIO.PresignExpiry(),
		Logger:        log,
	})
	searchSvc := service.NewSearchService(docRepo, service.RetrievalPolicy{
		SnippetWindow:   cfg.Retrieval.SnippetWindow,
		DefaultPageSize: cfg.Retrieval.DefaultPageSize,
		MaxPageSize:     cfg.Retrieval.MaxPageSize,
	}, cfg.Location(), log)

	app := newApp(cfg, log, httpMetrics)
	handlers.RegisterRoutes(app, handlers.Deps{
		DB:            db,
		Documents:     docSvc,
		Search:        searchSvc,
		JWTSecret:     []byte(cfg.Auth.JWTSecret),
		PresignExpiry: cfg.MinIO.PresignExpiry(),
		Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Swagger:       swaggerHandler,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", ":"+cfg.Port))
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutdown signal received")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(sctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	log.Info("server stopped")
	return nil
}

func newApp(cfg *config.AppConfig, log *zap.Logger, metrics *middleware.PrometheusMiddleware) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		ErrorHandler:          handlers.ErrorHandler(),
		BodyLimit:             int(cfg.Ingestion.MaxFileSize) + multipartOverhead,
		DisableStartupMessage: true,
	})

	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		p := c.Path()
		return p == "/metrics" || p == "/healthz"
	})))
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(metrics.Handler())
	return app
}

// swaggerHandler serves the UI with host and scheme taken from the request.
func swaggerHandler(c *fiber.Ctx) error {
	scheme := c.Protocol()
	if proto := c.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}

	docs.SwaggerInfo.Host = c.Get("Host")
	docs.SwaggerInfo.Schemes = []string{scheme}

	return swagger.HandlerDefault(c)
}
