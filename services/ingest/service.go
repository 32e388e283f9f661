// Package ingest sequences the ingestion pipeline: probe, segmentation,
// caption normalization, and transactional persistence, with compensating
// artifact cleanup on any mid-pipeline failure.
package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"phrasevid/cache"
	"phrasevid/captions"
	"phrasevid/errors"
	"phrasevid/models"
	"phrasevid/repository"
	"phrasevid/transcode"
)

// Stage tracks how far an ingestion progressed. Any stage can transition to
// StageFailed; everything persisted is rolled back when that happens.
type Stage string

const (
	StageReceived          Stage = "received"
	StageValidated         Stage = "validated"
	StageProbed            Stage = "probed"
	StageSegmented         Stage = "segmented"
	StageCaptionNormalized Stage = "caption_normalized"
	StagePersisted         Stage = "persisted"
	StageFailed            Stage = "failed"
)

// Orchestrator is the transcoder surface the coordinator drives.
type Orchestrator interface {
	Probe(ctx context.Context, assetPath string) (transcode.ProbeInfo, error)
	ExtractAll(ctx context.Context, assetPath string, duration float64, outputDir, prefix string) ([]transcode.SegmentFile, error)
}

// NormalizeFunc matches captions.Normalize.
type NormalizeFunc func(raw []byte, formatHint string) ([]models.Cue, error)

type Config struct {
	CacheDir string
	SweepTTL time.Duration
}

// Request is one ingestion unit of work. The asset is already on disk
// under its storage name; the caption file rides along in memory.
type Request struct {
	AssetPath      string
	StoredName     string
	OriginalName   string
	CaptionContent []byte
	CaptionFormat  string
}

type Result struct {
	VideoID string              `json:"video_id"`
	Info    transcode.ProbeInfo `json:"info"`
}

type Service interface {
	Ingest(ctx context.Context, req Request) (*Result, error)
}

type service struct {
	repo      repository.VideoRepository
	orch      Orchestrator
	artifacts *cache.Cache
	normalize NormalizeFunc
	config    Config
	logger    zerolog.Logger
}

func NewService(
	repo repository.VideoRepository,
	orch Orchestrator,
	artifacts *cache.Cache,
	config Config,
	logger zerolog.Logger,
) Service {
	return &service{
		repo:      repo,
		orch:      orch,
		artifacts: artifacts,
		normalize: captions.Normalize,
		config:    config,
		logger:    logger.With().Str("component", "ingest").Logger(),
	}
}

type captionResult struct {
	cues []models.Cue
	err  error
}

// Ingest runs the full pipeline for one upload. Stage-ordering contract:
// segmentation and caption normalization run concurrently, but persistence
// waits on both; the transaction commits video, segments, and cues as one
// visible unit or not at all.
func (s *service) Ingest(ctx context.Context, req Request) (*Result, error) {
	const op = "IngestService.Ingest"

	videoID := uuid.New().String()
	logger := s.logger.With().
		Str("video_id", videoID).
		Str("original_name", req.OriginalName).
		Logger()

	stage := StageReceived
	if req.AssetPath == "" || len(req.CaptionContent) == 0 {
		return nil, errors.MissingInput(op, nil, "both a video and a caption file are required")
	}
	stage = StageValidated

	info, err := s.orch.Probe(ctx, req.AssetPath)
	if err != nil {
		logger.Error().Err(err).Str("stage", string(stage)).Msg("Ingestion failed")
		return nil, err
	}
	stage = StageProbed
	logger.Info().
		Float64("duration_seconds", info.DurationSeconds).
		Int("width", info.Width).
		Int("height", info.Height).
		Msg("Probed upload")

	// Normalization has no data dependency on segmentation; run it while
	// the worker pool cuts segments.
	capCh := make(chan captionResult, 1)
	go func() {
		cues, err := s.normalize(req.CaptionContent, req.CaptionFormat)
		capCh <- captionResult{cues: cues, err: err}
	}()

	produced, err := s.orch.ExtractAll(ctx, req.AssetPath, info.DurationSeconds, s.config.CacheDir, videoID)

	// The cache owns every artifact from the moment it exists, even when
	// the extraction as a whole failed.
	paths := make([]string, 0, len(produced))
	for _, file := range produced {
		s.artifacts.Store(file.Path)
		paths = append(paths, file.Path)
	}

	if err != nil {
		s.fail(logger, stage, paths)
		return nil, err
	}
	stage = StageSegmented

	capRes := <-capCh
	if capRes.err != nil {
		s.fail(logger, stage, paths)
		return nil, capRes.err
	}
	stage = StageCaptionNormalized

	video := &models.Video{
		ID:              videoID,
		Filename:        req.StoredName,
		OriginalName:    req.OriginalName,
		DurationSeconds: info.DurationSeconds,
		Width:           info.Width,
		Height:          info.Height,
		CreatedAt:       time.Now().UTC(),
	}

	segments := make([]models.Segment, 0, len(produced))
	for _, file := range produced {
		segments = append(segments, models.Segment{
			VideoID:            videoID,
			StartOffsetSeconds: file.Start,
			DurationSeconds:    file.Duration,
			StoragePath:        file.Path,
		})
	}

	cues := make([]models.Cue, 0, len(capRes.cues))
	for _, cue := range capRes.cues {
		cue.VideoID = videoID
		cues = append(cues, cue)
	}

	if err := s.repo.SaveIngestion(ctx, video, segments, cues); err != nil {
		s.fail(logger, stage, paths)
		return nil, err
	}
	stage = StagePersisted

	logger.Info().
		Str("stage", string(stage)).
		Int("segments", len(segments)).
		Int("cues", len(cues)).
		Msg("Ingestion committed")

	// Best-effort housekeeping; a sweep failure never fails the upload.
	if _, err := s.artifacts.Sweep(s.config.SweepTTL); err != nil {
		logger.Warn().Err(err).Msg("Post-ingest sweep reported failures")
	}

	return &Result{VideoID: videoID, Info: info}, nil
}

// fail performs the compensating cleanup for a pipeline abort: every
// artifact already produced for this ingestion is deleted through the
// cache.
func (s *service) fail(logger zerolog.Logger, stage Stage, paths []string) {
	logger.Error().
		Str("stage", string(stage)).
		Int("artifacts_removed", len(paths)).
		Msg("Ingestion failed, removing partial artifacts")

	if len(paths) > 0 {
		s.artifacts.Remove(paths)
	}
}
