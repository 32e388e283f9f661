package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"phrasevid/cache"
	"phrasevid/config"
	"phrasevid/handlers"
	"phrasevid/logger"
	"phrasevid/repository/sqlite"
	"phrasevid/services/ingest"
	"phrasevid/services/search"
	"phrasevid/transcode"
	"phrasevid/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		log.Fatalf("Failed to provision directories: %v", err)
	}

	// Initialize logger
	appLogger, logWriter, err := logger.New(cfg.LogDir, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Initialize database
	db, err := sqlite.InitDB(cfg.Database.Path, sqlite.DBConfig{
		MaxConnections:     cfg.Database.MaxConnections,
		MaxIdleConnections: cfg.Database.MaxIdleConnections,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	repo, err := sqlite.NewRepository(db)
	if err != nil {
		log.Fatalf("Failed to initialize repository: %v", err)
	}

	// Initialize transcoding orchestrator
	orchestrator, err := transcode.New(transcode.Config{
		FFmpegPath:     cfg.Transcode.FFmpegPath,
		FFprobePath:    cfg.Transcode.FFprobePath,
		SegmentSeconds: cfg.Transcode.SegmentSeconds,
		Workers:        cfg.Transcode.Workers,
	}, appLogger)
	if err != nil {
		log.Fatalf("Failed to initialize transcoder: %v", err)
	}

	// Initialize artifact cache and its background sweeper
	artifacts := cache.New(cfg.CacheDir, appLogger)
	if err := artifacts.Init(); err != nil {
		log.Fatalf("Failed to initialize artifact cache: %v", err)
	}
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	artifacts.StartSweeper(sweepCtx, cfg.Cache.SweepInterval, cfg.Cache.TTL)

	// Initialize services
	validator := validation.NewValidator(cfg)
	ingestService := ingest.NewService(repo, orchestrator, artifacts, ingest.Config{
		CacheDir: cfg.CacheDir,
		SweepTTL: cfg.Cache.TTL,
	}, appLogger)
	searchService := search.NewService(repo, appLogger)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		IdleTimeout:           cfg.IdleTimeout,
		BodyLimit:             int(cfg.MaxUploadSize),
		ErrorHandler:          handlers.NewErrorHandler(appLogger),
		DisableStartupMessage: !cfg.Debug,
		StrictRouting:         true,
		CaseSensitive:         true,
		AppName:               "phrasevid " + cfg.Version,
	})

	setupMiddleware(app, cfg, logWriter)

	// Setup routes
	videoHandler := handlers.NewVideoHandler(
		ingestService,
		searchService,
		repo,
		artifacts,
		orchestrator,
		validator,
		cfg,
		appLogger,
	)

	app.Post("/api/upload", videoHandler.Upload)
	app.Post("/api/search", videoHandler.Search)
	app.Get("/api/video/:videoId/:timestamp", videoHandler.StreamVideo)
	app.Get("/api/thumbnail/:videoId/:timestamp", videoHandler.Thumbnail)
	app.Get("/health", videoHandler.HealthCheck)

	// Graceful shutdown setup
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-shutdownChan
		appLogger.Info().Msg("Shutting down server")

		stopSweeper()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := app.ShutdownWithContext(ctx); err != nil {
			appLogger.Error().Err(err).Msg("Server shutdown error")
		}

		if err := db.Close(); err != nil {
			appLogger.Error().Err(err).Msg("Database shutdown error")
		}
	}()

	// Start server
	serverAddr := ":" + cfg.ServerPort
	if cfg.Debug {
		appLogger.Info().Str("addr", serverAddr).Msg("Server starting")
	}

	if err := app.Listen(serverAddr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func setupMiddleware(app *fiber.App, cfg *config.Config, logWriter io.Writer) {
	if cfg.Middleware.EnableRecover {
		app.Use(recover.New(recover.Config{
			EnableStackTrace: cfg.Debug,
		}))
	}

	if cfg.Middleware.EnableRequestID {
		app.Use(requestid.New(requestid.Config{
			Header: "X-Request-ID",
			Generator: func() string {
				return uuid.New().String()
			},
		}))
	}

	if cfg.Middleware.EnableLogger {
		app.Use(fiberLogger.New(logger.FiberConfig(logWriter)))
	}

	if cfg.Middleware.EnableCORS {
		app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(cfg.CORS.AllowedOrigins, ","),
			AllowMethods: strings.Join(cfg.CORS.AllowedMethods, ","),
			AllowHeaders: strings.Join(cfg.CORS.AllowedHeaders, ","),
			MaxAge:       cfg.CORS.MaxAge,
		}))
	}

	if cfg.Middleware.EnableRateLimit {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit.RequestsPerMinute,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "Rate limit exceeded",
				})
			},
		}))
	}

	if cfg.Middleware.EnableCompress {
		app.Use(compress.New(compress.Config{
			Level: compress.LevelDefault,
		}))
	}

	if cfg.Middleware.EnableETag {
		app.Use(etag.New())
	}
}
