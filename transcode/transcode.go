// Package transcode drives the external ffmpeg/ffprobe binaries: metadata
// probing, segment extraction, and thumbnail capture. Every operation is a
// single process invocation with no shared mutable state.
package transcode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"phrasevid/errors"
)

type Config struct {
	FFmpegPath     string
	FFprobePath    string
	SegmentSeconds float64
	Workers        int
}

// ProbeInfo is the metadata subset the pipeline needs from ffprobe.
type ProbeInfo struct {
	DurationSeconds float64 `json:"duration_seconds"`
	Bitrate         int64   `json:"bitrate"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
}

type Orchestrator struct {
	config Config
	logger zerolog.Logger
}

// New resolves both binaries up front so a missing install fails at startup
// rather than on the first upload.
func New(cfg Config, logger zerolog.Logger) (*Orchestrator, error) {
	if cfg.SegmentSeconds <= 0 {
		return nil, fmt.Errorf("segment length must be positive, got %v", cfg.SegmentSeconds)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}

	for _, bin := range []string{cfg.FFmpegPath, cfg.FFprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return nil, fmt.Errorf("transcoder binary not found: %s: %w", bin, err)
		}
	}

	return &Orchestrator{
		config: cfg,
		logger: logger.With().Str("component", "transcode").Logger(),
	}, nil
}

// probeOutput mirrors the ffprobe -of json shape.
type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
}

// Probe inspects the asset and returns its duration, bitrate, and the
// resolution of the first video stream.
func (o *Orchestrator) Probe(ctx context.Context, assetPath string) (ProbeInfo, error) {
	const op = "Orchestrator.Probe"

	cmd := exec.CommandContext(ctx, o.config.FFprobePath,
		"-v", "error",
		"-show_format",
		"-show_streams",
		"-of", "json",
		assetPath,
	)

	output, err := o.run(cmd)
	if err != nil {
		return ProbeInfo{}, errors.Probe(op, err, "failed to probe asset")
	}

	info, err := parseProbeOutput(output)
	if err != nil {
		return ProbeInfo{}, errors.Probe(op, err, "unusable probe result")
	}

	o.logger.Debug().
		Str("asset", assetPath).
		Float64("duration_seconds", info.DurationSeconds).
		Int("width", info.Width).
		Int("height", info.Height).
		Msg("Probed asset")

	return info, nil
}

func parseProbeOutput(data []byte) (ProbeInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return ProbeInfo{}, fmt.Errorf("invalid probe JSON: %w", err)
	}

	duration, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil || duration <= 0 {
		return ProbeInfo{}, fmt.Errorf("asset has no usable duration: %q", out.Format.Duration)
	}

	info := ProbeInfo{DurationSeconds: duration}
	if out.Format.BitRate != "" {
		if bitrate, err := strconv.ParseInt(out.Format.BitRate, 10, 64); err == nil {
			info.Bitrate = bitrate
		}
	}

	for _, stream := range out.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			info.Width = stream.Width
			info.Height = stream.Height
			break
		}
	}
	if info.Width == 0 || info.Height == 0 {
		return ProbeInfo{}, fmt.Errorf("asset has no video stream")
	}

	return info, nil
}

// ExtractSegment cuts [startSeconds, startSeconds+durationSeconds) of the
// asset into outputPath. On failure the destination file is removed so the
// caller never sees a partial artifact.
func (o *Orchestrator) ExtractSegment(
	ctx context.Context,
	assetPath string,
	startSeconds, durationSeconds float64,
	outputPath string,
) error {
	const op = "Orchestrator.ExtractSegment"

	cmd := exec.CommandContext(ctx, o.config.FFmpegPath,
		"-v", "error",
		"-ss", formatSeconds(startSeconds),
		"-t", formatSeconds(durationSeconds),
		"-i", assetPath,
		"-c", "copy",
		"-y", outputPath,
	)

	if _, err := o.run(cmd); err != nil {
		os.Remove(outputPath)
		return errors.Transcode(op, err,
			fmt.Sprintf("failed to extract segment at %gs", startSeconds))
	}

	return nil
}

// CaptureThumbnail grabs a single 320x240 frame at timestampSeconds and
// returns the artifact path.
func (o *Orchestrator) CaptureThumbnail(
	ctx context.Context,
	assetPath string,
	timestampSeconds float64,
	outputDir string,
) (string, error) {
	const op = "Orchestrator.CaptureThumbnail"

	outputPath := filepath.Join(outputDir, fmt.Sprintf("thumb_%s.jpg", uuid.New().String()))

	cmd := exec.CommandContext(ctx, o.config.FFmpegPath,
		"-v", "error",
		"-ss", formatSeconds(timestampSeconds),
		"-i", assetPath,
		"-frames:v", "1",
		"-s", "320x240",
		"-y", outputPath,
	)

	if _, err := o.run(cmd); err != nil {
		os.Remove(outputPath)
		return "", errors.Thumbnail(op, err,
			fmt.Sprintf("failed to capture thumbnail at %gs", timestampSeconds))
	}

	return outputPath, nil
}

func (o *Orchestrator) run(cmd *exec.Cmd) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrOutput := strings.TrimSpace(stderr.String())
		o.logger.Error().
			Err(err).
			Str("binary", cmd.Path).
			Str("stderr", stderrOutput).
			Msg("Transcoder invocation failed")
		return nil, fmt.Errorf("%v (stderr: %s)", err, stderrOutput)
	}

	return stdout.Bytes(), nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
