package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"phrasevid/cache"
	"phrasevid/config"
	"phrasevid/repository"
	"phrasevid/services/ingest"
	"phrasevid/services/search"
	"phrasevid/validation"
)

// Thumbnailer is the slice of the transcoding orchestrator the thumbnail
// endpoint needs.
type Thumbnailer interface {
	CaptureThumbnail(ctx context.Context, assetPath string, timestampSeconds float64, outputDir string) (string, error)
}

type VideoHandler struct {
	ingest    ingest.Service
	search    search.Service
	repo      repository.VideoRepository
	artifacts *cache.Cache
	thumbs    Thumbnailer
	validator *validation.Validator
	config    *config.Config
	logger    zerolog.Logger

	// Each thumbnail request forks an ffmpeg process; pace them
	// independently of the HTTP rate limiter.
	thumbLimiter *rate.Limiter
}

func NewVideoHandler(
	ingestService ingest.Service,
	searchService search.Service,
	repo repository.VideoRepository,
	artifacts *cache.Cache,
	thumbs Thumbnailer,
	validator *validation.Validator,
	cfg *config.Config,
	logger zerolog.Logger,
) *VideoHandler {
	return &VideoHandler{
		ingest:    ingestService,
		search:    searchService,
		repo:      repo,
		artifacts: artifacts,
		thumbs:    thumbs,
		validator: validator,
		config:    cfg,
		logger:    logger.With().Str("component", "handlers").Logger(),
		thumbLimiter: rate.NewLimiter(
			rate.Limit(cfg.Transcode.ThumbnailsPerSecond),
			cfg.Transcode.ThumbnailBurst,
		),
	}
}

// HealthCheck reports liveness plus database reachability.
func (h *VideoHandler) HealthCheck(c *fiber.Ctx) error {
	status := "ok"
	code := fiber.StatusOK
	if err := h.repo.Ping(c.Context()); err != nil {
		status = "degraded"
		code = fiber.StatusServiceUnavailable
		h.logger.Error().Err(err).Msg("Database ping failed")
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
